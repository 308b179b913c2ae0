package service

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/pkg/database"
)

func newCatalogService(t *testing.T) (*CatalogService, *repository.ResponseRepository) {
	t.Helper()

	db, err := database.New(
		database.WithDataSource(":memory:?_foreign_keys=on"),
		database.WithMaxOpenConns(1),
		database.WithRetry(1, 0),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db))

	responses := repository.NewResponseRepository(db)
	return NewCatalogService(repository.NewCatalogRepository(db), responses, time.UTC, zaptest.NewLogger(t)), responses
}

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestCatalogService(t *testing.T) {
	ctx := context.Background()
	s, responses := newCatalogService(t)

	venue, err := s.SaveVenue(ctx, models.Venue{Name: " Planta Norte ", Active: true})
	require.NoError(t, err)
	assert.Equal(t, "Planta Norte", venue.Name)

	cafeteria, err := s.SaveCafeteria(ctx, models.Cafeteria{VenueID: venue.ID, Name: "Comedor Principal", Active: true})
	require.NoError(t, err)
	assert.Equal(t, "Planta Norte", cafeteria.VenueName)

	lunch, err := s.SaveShift(ctx, models.Shift{Name: "Almuerzo", Start: tod(12, 0), End: tod(15, 0), Active: true})
	require.NoError(t, err)
	assert.Equal(t, models.ShiftModeScheduled, lunch.Mode)

	t.Run("duplicate venue name is a field error", func(t *testing.T) {
		_, err := s.SaveVenue(ctx, models.Venue{Name: "Planta Norte", Active: true})
		assert.Equal(t, []string{msgDuplicate}, fieldErrors(t, err)["name"])
	})

	t.Run("duplicate cafeteria in venue", func(t *testing.T) {
		_, err := s.SaveCafeteria(ctx, models.Cafeteria{VenueID: venue.ID, Name: "Comedor Principal"})
		assert.Equal(t, []string{msgDuplicateCafeteria}, fieldErrors(t, err)[NonFieldErrors])
	})

	t.Run("cafeteria needs an existing venue", func(t *testing.T) {
		_, err := s.SaveCafeteria(ctx, models.Cafeteria{VenueID: 999, Name: "Fantasma"})
		assert.Equal(t, []string{msgBadReference}, fieldErrors(t, err)[NonFieldErrors])
	})

	t.Run("invalid shift range", func(t *testing.T) {
		_, err := s.SaveShift(ctx, models.Shift{Name: "Cena", Start: tod(20, 0), End: tod(19, 0), Active: true})
		assert.Contains(t, fieldErrors(t, err), NonFieldErrors)
	})

	t.Run("capture point default shift must be active", func(t *testing.T) {
		off, err := s.SaveShift(ctx, models.Shift{Name: "Noche", Mode: models.ShiftModeManual, Active: false})
		require.NoError(t, err)

		_, err = s.SaveCapturePoint(ctx, models.CapturePoint{Identifier: "tablet-x", CafeteriaID: cafeteria.ID, DefaultShiftID: &off.ID, Active: true})
		assert.Contains(t, fieldErrors(t, err), "default_shift_id")

		missing := int64(999)
		_, err = s.SaveCapturePoint(ctx, models.CapturePoint{Identifier: "tablet-x", CafeteriaID: cafeteria.ID, DefaultShiftID: &missing})
		assert.Contains(t, fieldErrors(t, err), "default_shift_id")
	})

	point, err := s.SaveCapturePoint(ctx, models.CapturePoint{Identifier: "tablet-norte-01", CafeteriaID: cafeteria.ID, DefaultShiftID: &lunch.ID, Active: true})
	require.NoError(t, err)
	require.NotNil(t, point.DefaultShift)

	t.Run("duplicate identifier", func(t *testing.T) {
		_, err := s.SaveCapturePoint(ctx, models.CapturePoint{Identifier: "tablet-norte-01", CafeteriaID: cafeteria.ID})
		assert.Contains(t, fieldErrors(t, err), "identifier")
	})

	t.Run("referenced venue and cafeteria are protected", func(t *testing.T) {
		assert.Equal(t, []string{msgProtected}, fieldErrors(t, s.DeleteVenue(ctx, venue.ID))[NonFieldErrors])
		assert.Equal(t, []string{msgProtected}, fieldErrors(t, s.DeleteCafeteria(ctx, cafeteria.ID))[NonFieldErrors])
	})

	t.Run("update of missing row is not found", func(t *testing.T) {
		_, err := s.SaveVenue(ctx, models.Venue{ID: 999, Name: "Nadie"})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteShift(ctx, 999), ErrNotFound)
	})

	t.Run("reset responses by year", func(t *testing.T) {
		for _, ts := range []time.Time{
			time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		} {
			resp := models.SurveyResponse{
				VenueID: venue.ID, CafeteriaID: cafeteria.ID, RegisteredAt: ts,
				Ratings: models.Ratings{OverallSatisfaction: 3, FoodQuality: 3, MenuVariety: 3, Cleanliness: 3, QueueTime: 3},
			}
			require.NoError(t, responses.InsertResponse(ctx, &resp))
		}

		n, err := s.ResetResponses(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, err = s.ResetResponses(ctx, 0)
		assert.Contains(t, fieldErrors(t, err), "year")
	})

	t.Run("deleting a shift keeps the capture point", func(t *testing.T) {
		require.NoError(t, s.DeleteShift(ctx, lunch.ID))

		points, err := s.ListCapturePoints(ctx)
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Nil(t, points[0].DefaultShiftID)
	})
}

func TestMapWriteError(t *testing.T) {
	assert.NoError(t, mapWriteError(nil, opSave))
	assert.ErrorIs(t, mapWriteError(repository.ErrNotFound, opSave), ErrNotFound)
	assert.ErrorIs(t, mapWriteError(assert.AnError, opSave), ErrStorageFailure)
}
