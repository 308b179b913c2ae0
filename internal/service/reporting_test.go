package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service/mocks"
)

func santiago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestParseReportFilter(t *testing.T) {
	loc := time.UTC

	t.Run("all parameters", func(t *testing.T) {
		f := ParseReportFilter(url.Values{
			ParamStartDate: {"2026-01-01"},
			ParamEndDate:   {"2026-01-31"},
			ParamVenue:     {"3"},
			ParamCafeteria: {"7"},
			ParamShift:     {"2"},
		}, loc)

		require.NotNil(t, f.VenueID)
		require.NotNil(t, f.CafeteriaID)
		assert.Equal(t, int64(3), *f.VenueID)
		assert.Equal(t, int64(7), *f.CafeteriaID)
		assert.Equal(t, models.ShiftSelector{Kind: models.SpecificShift, ShiftID: 2}, f.Shift)
		assert.Equal(t, "2026-01-01", f.StartDate.Format(dateLayout))
	})

	t.Run("sin_turno selects responses without shift", func(t *testing.T) {
		f := ParseReportFilter(url.Values{ParamShift: {NoShiftValue}}, loc)
		assert.Equal(t, models.NoShift, f.Shift.Kind)
	})

	t.Run("unparseable values are ignored", func(t *testing.T) {
		f := ParseReportFilter(url.Values{
			ParamStartDate: {"01/02/2026"},
			ParamEndDate:   {"mañana"},
			ParamVenue:     {"abc"},
			ParamShift:     {"x"},
		}, loc)
		assert.Equal(t, ReportFilter{}, f)
	})

	t.Run("values round trip", func(t *testing.T) {
		in := url.Values{
			ParamStartDate: {"2026-02-01"},
			ParamVenue:     {"1"},
			ParamShift:     {NoShiftValue},
		}
		assert.Equal(t, in, ParseReportFilter(in, loc).Values())
	})
}

func TestReportFilter_ResponseFilter(t *testing.T) {
	loc := santiago(t)
	f := ParseReportFilter(url.Values{ParamStartDate: {"2026-03-10"}, ParamEndDate: {"2026-03-10"}}, loc)
	rf := f.ResponseFilter(loc)

	require.NotNil(t, rf.From)
	require.NotNil(t, rf.To)
	assert.Equal(t, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), rf.From.UTC())
	assert.Equal(t, time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC), rf.To.UTC())

	late := time.Date(2026, 3, 11, 2, 30, 0, 0, time.UTC)
	assert.True(t, !late.Before(*rf.From) && late.Before(*rf.To), "23:30 local belongs to the end date")
}

func TestReportingService_Portal(t *testing.T) {
	ctx := context.Background()
	venueID := int64(4)
	filter := ReportFilter{VenueID: &venueID}
	sat := 4.5

	t.Run("every view receives the same filter inside one snapshot", func(t *testing.T) {
		var seen []models.ResponseFilter
		snapshots := 0
		repo := &mocks.MockResponseRepository{
			CountFunc: func(ctx context.Context, f models.ResponseFilter) (int64, error) {
				seen = append(seen, f)
				return 2, nil
			},
			AveragesFunc: func(ctx context.Context, f models.ResponseFilter) (models.RatingAverages, error) {
				seen = append(seen, f)
				return models.RatingAverages{OverallSatisfaction: &sat}, nil
			},
			RankingByCafeteriaFunc: func(ctx context.Context, f models.ResponseFilter) ([]models.CafeteriaRanking, error) {
				seen = append(seen, f)
				return []models.CafeteriaRanking{{CafeteriaID: 1, CafeteriaName: "Comedor", AverageSatisfaction: sat, ResponseCount: 2}}, nil
			},
			CommentedResponsesFunc: func(ctx context.Context, f models.ResponseFilter) ([]models.ResponseRow, error) {
				seen = append(seen, f)
				return nil, nil
			},
		}
		repo.SnapshotFunc = func(ctx context.Context, fn func(repository.ResponseReader) error) error {
			snapshots++
			return fn(repo)
		}
		catalog := &mocks.MockCatalogLister{
			ListVenuesFunc: func(ctx context.Context, activeOnly bool) ([]models.Venue, error) {
				assert.True(t, activeOnly)
				return []models.Venue{{ID: 4, Name: "Sede", Active: true}}, nil
			},
		}

		s := NewReportingService(repo, catalog, time.UTC, zap.NewNop())
		p, err := s.Portal(ctx, filter)
		require.NoError(t, err)

		assert.Equal(t, 1, snapshots)
		require.Len(t, seen, 4)
		for _, f := range seen[1:] {
			if diff := cmp.Diff(seen[0], f); diff != "" {
				t.Errorf("filter mismatch (-first +got):\n%s", diff)
			}
		}
		assert.Equal(t, int64(2), p.Total)
		assert.Len(t, p.Venues, 1)
		assert.Equal(t, "4.50", FormatAverage(p.Averages.OverallSatisfaction))
		assert.Equal(t, "Sin datos", FormatAverage(p.Averages.QueueTime))
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := &mocks.MockResponseRepository{
			CountFunc: func(ctx context.Context, f models.ResponseFilter) (int64, error) {
				return 0, errors.New("no such table: survey_responses")
			},
		}
		s := NewReportingService(repo, &mocks.MockCatalogLister{}, time.UTC, zap.NewNop())
		_, err := s.Portal(ctx, filter)
		assert.ErrorIs(t, err, ErrStorageFailure)
	})
}

func TestReportingService_Export(t *testing.T) {
	ctx := context.Background()
	loc := time.FixedZone("CLT", -3*60*60)
	rows := []models.ResponseRow{{
		ID:            1,
		RegisteredAt:  time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC),
		VenueName:     "Sede Reportes",
		CafeteriaName: "Comedor Reportes",
		Ratings:       models.Ratings{OverallSatisfaction: 5, FoodQuality: 4, MenuVariety: 3, Cleanliness: 2, QueueTime: 1},
		Comment:       "Buen servicio",
	}}
	repo := &mocks.MockResponseRepository{
		StreamResponsesFunc: func(ctx context.Context, f models.ResponseFilter, commentedOnly bool, fn func(models.ResponseRow) error) error {
			assert.False(t, commentedOnly)
			for _, r := range rows {
				if err := fn(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	s := NewReportingService(repo, &mocks.MockCatalogLister{}, loc, zap.NewNop())

	t.Run("records in header order with local time", func(t *testing.T) {
		var got [][]string
		err := s.Export(ctx, ReportFilter{}, func(rec []string) error {
			got = append(got, rec)
			return nil
		})
		require.NoError(t, err)

		want := [][]string{{"2026-03-10 12:04:05", "Sede Reportes", "Comedor Reportes", "", "5", "4", "3", "2", "1", "Buen servicio"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("export mismatch (-want +got):\n%s", diff)
		}
		assert.Len(t, ExportHeader, len(want[0]))
	})

	t.Run("writer errors pass through", func(t *testing.T) {
		broken := errors.New("client went away")
		err := s.Export(ctx, ReportFilter{}, func([]string) error { return broken })
		assert.ErrorIs(t, err, broken)
		assert.NotErrorIs(t, err, ErrStorageFailure)
	})
}
