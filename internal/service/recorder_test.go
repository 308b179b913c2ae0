package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service/mocks"
)

func validRatings() map[string]string {
	return map[string]string{
		FieldOverallSatisfaction: "5",
		FieldFoodQuality:         "4",
		FieldMenuVariety:         "4",
		FieldCleanliness:         "5",
		FieldQueueTime:           "3",
	}
}

func capturePoint(active bool, defaultShift *models.Shift) models.CapturePoint {
	p := models.CapturePoint{
		ID:          7,
		Identifier:  "tablet-norte-01",
		CafeteriaID: 10,
		Active:      active,
		Cafeteria:   &models.Cafeteria{ID: 10, VenueID: 1, VenueName: "Planta Norte", Name: "Comedor Principal Norte", Active: true},
	}
	if defaultShift != nil {
		p.DefaultShiftID = &defaultShift.ID
		p.DefaultShift = defaultShift
	}
	return p
}

type recorderFixture struct {
	catalog   *mocks.MockCapturePointReader
	responses *mocks.MockResponseRepository
	configs   *mocks.MockSurveyConfigRepository
	inserted  []models.SurveyResponse
}

func newRecorderFixture(point models.CapturePoint, shifts []models.Shift) *recorderFixture {
	f := &recorderFixture{
		configs: &mocks.MockSurveyConfigRepository{},
	}
	f.catalog = &mocks.MockCapturePointReader{
		GetCapturePointByIdentifierFunc: func(ctx context.Context, identifier string) (models.CapturePoint, error) {
			if identifier != point.Identifier {
				return models.CapturePoint{}, repository.ErrNotFound
			}
			return point, nil
		},
		ListShiftsFunc: func(ctx context.Context, activeOnly bool) ([]models.Shift, error) {
			return shifts, nil
		},
	}
	f.responses = &mocks.MockResponseRepository{
		InsertResponseFunc: func(ctx context.Context, resp *models.SurveyResponse) error {
			resp.ID = int64(len(f.inserted) + 1)
			f.inserted = append(f.inserted, *resp)
			return nil
		},
	}
	return f
}

func (f *recorderFixture) service(now time.Time) *RecorderService {
	s := NewRecorderService(f.catalog, f.responses, NewSurveyConfigService(f.configs, zap.NewNop()), time.UTC, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestNewRecorderService(t *testing.T) {
	t.Run("nil dependencies panic", func(t *testing.T) {
		assert.Panics(t, func() {
			NewRecorderService(nil, &mocks.MockResponseRepository{}, nil, nil, nil)
		})
	})

	t.Run("defaults", func(t *testing.T) {
		s := NewRecorderService(&mocks.MockCapturePointReader{}, &mocks.MockResponseRepository{},
			NewSurveyConfigService(&mocks.MockSurveyConfigRepository{}, nil), nil, nil)
		assert.Equal(t, time.Local, s.loc)
		assert.NotNil(t, s.logger)
	})
}

func TestRecorderService_Submit(t *testing.T) {
	ctx := context.Background()
	breakfast := scheduled(1, "Desayuno", tod(6, 30), tod(9, 30))
	lunch := scheduled(2, "Almuerzo", tod(12, 0), tod(15, 0))

	t.Run("automatic shift is attributed", func(t *testing.T) {
		f := newRecorderFixture(capturePoint(true, nil), []models.Shift{breakfast, lunch})
		now := at(13, 15)

		in := SubmissionInput{Ratings: validRatings(), Comment: "  Muy rico  ", Shift: "1"}
		_, resp, err := f.service(now).Submit(ctx, "tablet-norte-01", in)
		require.NoError(t, err)

		require.Len(t, f.inserted, 1)
		got := f.inserted[0]
		require.NotNil(t, got.ShiftID)
		assert.Equal(t, int64(2), *got.ShiftID)
		assert.Equal(t, int64(1), got.VenueID)
		assert.Equal(t, int64(10), got.CafeteriaID)
		assert.Equal(t, "Muy rico", got.Comment)
		assert.Equal(t, now, got.RegisteredAt)
		assert.Equal(t, int64(1), resp.ID)
	})

	t.Run("missing manual shift rejects without writing", func(t *testing.T) {
		f := newRecorderFixture(capturePoint(true, nil), []models.Shift{breakfast, lunch})

		form, _, err := f.service(at(10, 0)).Submit(ctx, "tablet-norte-01", SubmissionInput{Ratings: validRatings()})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"Seleccione un turno."}, verr.Fields[FieldShift])
		assert.Empty(t, f.inserted)
		assert.True(t, form.ManualRequired)
	})

	t.Run("valid manual shift is persisted", func(t *testing.T) {
		f := newRecorderFixture(capturePoint(true, nil), []models.Shift{breakfast, lunch})

		_, _, err := f.service(at(10, 0)).Submit(ctx, "tablet-norte-01", SubmissionInput{Ratings: validRatings(), Shift: "1"})
		require.NoError(t, err)
		require.Len(t, f.inserted, 1)
		assert.Equal(t, int64(1), *f.inserted[0].ShiftID)
	})

	t.Run("no active shifts records without shift", func(t *testing.T) {
		inactiveDefault := lunch
		inactiveDefault.Active = false
		f := newRecorderFixture(capturePoint(true, &inactiveDefault), nil)

		_, _, err := f.service(at(10, 0)).Submit(ctx, "tablet-norte-01", SubmissionInput{Ratings: validRatings()})
		require.NoError(t, err)
		require.Len(t, f.inserted, 1)
		assert.Nil(t, f.inserted[0].ShiftID)
	})

	t.Run("rating and shift errors are reported together", func(t *testing.T) {
		f := newRecorderFixture(capturePoint(true, nil), []models.Shift{lunch})
		ratings := validRatings()
		ratings[FieldFoodQuality] = "9"
		delete(ratings, FieldQueueTime)

		_, _, err := f.service(at(10, 0)).Submit(ctx, "tablet-norte-01", SubmissionInput{Ratings: ratings})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, FieldFoodQuality)
		assert.Contains(t, verr.Fields, FieldQueueTime)
		assert.Contains(t, verr.Fields, FieldShift)
		assert.Empty(t, f.inserted)
	})

	t.Run("comment dropped when open question disabled", func(t *testing.T) {
		f := newRecorderFixture(capturePoint(true, nil), nil)
		f.configs.GetOrCreateSurveyConfigFunc = func(ctx context.Context, d models.SurveyConfig) (models.SurveyConfig, error) {
			d.OpenQuestionEnabled = false
			return d, nil
		}

		_, _, err := f.service(at(10, 0)).Submit(ctx, "tablet-norte-01", SubmissionInput{Ratings: validRatings(), Comment: "hola"})
		require.NoError(t, err)
		assert.Empty(t, f.inserted[0].Comment)
	})

	t.Run("unknown and inactive points are not found", func(t *testing.T) {
		f := newRecorderFixture(capturePoint(false, nil), nil)
		s := f.service(at(10, 0))

		_, _, err := s.Submit(ctx, "tablet-norte-01", SubmissionInput{Ratings: validRatings()})
		assert.ErrorIs(t, err, ErrNotFound)

		_, _, err = s.Submit(ctx, "missing", SubmissionInput{Ratings: validRatings()})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, f.inserted)
	})

	t.Run("storage failure on insert", func(t *testing.T) {
		f := newRecorderFixture(capturePoint(true, nil), nil)
		f.responses.InsertResponseFunc = func(ctx context.Context, resp *models.SurveyResponse) error {
			return errors.New("database is locked")
		}

		_, _, err := f.service(at(10, 0)).Submit(ctx, "tablet-norte-01", SubmissionInput{Ratings: validRatings()})
		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Contains(t, err.Error(), "database is locked")
	})

	t.Run("shift resolution uses the configured zone", func(t *testing.T) {
		f := newRecorderFixture(capturePoint(true, nil), []models.Shift{lunch})
		s := f.service(time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC))
		s.loc = time.FixedZone("CLT", -3*60*60)

		form, err := s.Form(ctx, "tablet-norte-01")
		require.NoError(t, err)
		require.NotNil(t, form.Automatic)
		assert.Equal(t, "Almuerzo", form.Automatic.Name)
	})
}

func TestRecorderService_Thanks(t *testing.T) {
	f := newRecorderFixture(capturePoint(true, nil), nil)
	p, cfg, err := f.service(at(10, 0)).Thanks(context.Background(), "tablet-norte-01")
	require.NoError(t, err)
	assert.Equal(t, "tablet-norte-01", p.Identifier)
	assert.Equal(t, "Gracias por tu respuesta.", cfg.ThanksText)
}
