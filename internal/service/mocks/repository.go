package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
)

// MockCapturePointReader is a function-based mock of service.CapturePointReader.
type MockCapturePointReader struct {
	GetCapturePointByIdentifierFunc func(ctx context.Context, identifier string) (models.CapturePoint, error)
	ListCapturePointsFunc           func(ctx context.Context, activeOnly bool) ([]models.CapturePoint, error)
	ListShiftsFunc                  func(ctx context.Context, activeOnly bool) ([]models.Shift, error)
}

func (m *MockCapturePointReader) GetCapturePointByIdentifier(ctx context.Context, identifier string) (models.CapturePoint, error) {
	if m.GetCapturePointByIdentifierFunc != nil {
		return m.GetCapturePointByIdentifierFunc(ctx, identifier)
	}
	return models.CapturePoint{}, errors.New("GetCapturePointByIdentifierFunc not implemented")
}

func (m *MockCapturePointReader) ListCapturePoints(ctx context.Context, activeOnly bool) ([]models.CapturePoint, error) {
	if m.ListCapturePointsFunc != nil {
		return m.ListCapturePointsFunc(ctx, activeOnly)
	}
	return nil, errors.New("ListCapturePointsFunc not implemented")
}

func (m *MockCapturePointReader) ListShifts(ctx context.Context, activeOnly bool) ([]models.Shift, error) {
	if m.ListShiftsFunc != nil {
		return m.ListShiftsFunc(ctx, activeOnly)
	}
	return nil, nil
}

// MockCatalogLister is a function-based mock of service.CatalogLister.
// Unset functions return empty lists.
type MockCatalogLister struct {
	ListVenuesFunc     func(ctx context.Context, activeOnly bool) ([]models.Venue, error)
	ListCafeteriasFunc func(ctx context.Context, activeOnly bool) ([]models.Cafeteria, error)
	ListShiftsFunc     func(ctx context.Context, activeOnly bool) ([]models.Shift, error)
}

func (m *MockCatalogLister) ListVenues(ctx context.Context, activeOnly bool) ([]models.Venue, error) {
	if m.ListVenuesFunc != nil {
		return m.ListVenuesFunc(ctx, activeOnly)
	}
	return nil, nil
}

func (m *MockCatalogLister) ListCafeterias(ctx context.Context, activeOnly bool) ([]models.Cafeteria, error) {
	if m.ListCafeteriasFunc != nil {
		return m.ListCafeteriasFunc(ctx, activeOnly)
	}
	return nil, nil
}

func (m *MockCatalogLister) ListShifts(ctx context.Context, activeOnly bool) ([]models.Shift, error) {
	if m.ListShiftsFunc != nil {
		return m.ListShiftsFunc(ctx, activeOnly)
	}
	return nil, nil
}

// MockResponseRepository is a function-based mock of service.ResponseRepository.
// Snapshot calls fn with the mock itself unless SnapshotFunc is set.
type MockResponseRepository struct {
	CountFunc                  func(ctx context.Context, f models.ResponseFilter) (int64, error)
	AveragesFunc               func(ctx context.Context, f models.ResponseFilter) (models.RatingAverages, error)
	RankingByCafeteriaFunc     func(ctx context.Context, f models.ResponseFilter) ([]models.CafeteriaRanking, error)
	CommentedResponsesFunc     func(ctx context.Context, f models.ResponseFilter) ([]models.ResponseRow, error)
	StreamResponsesFunc        func(ctx context.Context, f models.ResponseFilter, commentedOnly bool, fn func(models.ResponseRow) error) error
	SnapshotFunc               func(ctx context.Context, fn func(repository.ResponseReader) error) error
	InsertResponseFunc         func(ctx context.Context, resp *models.SurveyResponse) error
	DeleteResponsesBetweenFunc func(ctx context.Context, from, to time.Time) (int64, error)
}

func (m *MockResponseRepository) Count(ctx context.Context, f models.ResponseFilter) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, f)
	}
	return 0, errors.New("CountFunc not implemented")
}

func (m *MockResponseRepository) Averages(ctx context.Context, f models.ResponseFilter) (models.RatingAverages, error) {
	if m.AveragesFunc != nil {
		return m.AveragesFunc(ctx, f)
	}
	return models.RatingAverages{}, errors.New("AveragesFunc not implemented")
}

func (m *MockResponseRepository) RankingByCafeteria(ctx context.Context, f models.ResponseFilter) ([]models.CafeteriaRanking, error) {
	if m.RankingByCafeteriaFunc != nil {
		return m.RankingByCafeteriaFunc(ctx, f)
	}
	return nil, errors.New("RankingByCafeteriaFunc not implemented")
}

func (m *MockResponseRepository) CommentedResponses(ctx context.Context, f models.ResponseFilter) ([]models.ResponseRow, error) {
	if m.CommentedResponsesFunc != nil {
		return m.CommentedResponsesFunc(ctx, f)
	}
	return nil, errors.New("CommentedResponsesFunc not implemented")
}

func (m *MockResponseRepository) StreamResponses(ctx context.Context, f models.ResponseFilter, commentedOnly bool, fn func(models.ResponseRow) error) error {
	if m.StreamResponsesFunc != nil {
		return m.StreamResponsesFunc(ctx, f, commentedOnly, fn)
	}
	return errors.New("StreamResponsesFunc not implemented")
}

func (m *MockResponseRepository) Snapshot(ctx context.Context, fn func(repository.ResponseReader) error) error {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, fn)
	}
	return fn(m)
}

func (m *MockResponseRepository) InsertResponse(ctx context.Context, resp *models.SurveyResponse) error {
	if m.InsertResponseFunc != nil {
		return m.InsertResponseFunc(ctx, resp)
	}
	return errors.New("InsertResponseFunc not implemented")
}

func (m *MockResponseRepository) DeleteResponsesBetween(ctx context.Context, from, to time.Time) (int64, error) {
	if m.DeleteResponsesBetweenFunc != nil {
		return m.DeleteResponsesBetweenFunc(ctx, from, to)
	}
	return 0, errors.New("DeleteResponsesBetweenFunc not implemented")
}

// MockSurveyConfigRepository is a function-based mock of service.SurveyConfigRepository.
type MockSurveyConfigRepository struct {
	GetOrCreateSurveyConfigFunc func(ctx context.Context, defaults models.SurveyConfig) (models.SurveyConfig, error)
	UpdateSurveyConfigFunc      func(ctx context.Context, cfg models.SurveyConfig) error
}

// GetOrCreateSurveyConfig returns the defaults with id 1 unless overridden.
func (m *MockSurveyConfigRepository) GetOrCreateSurveyConfig(ctx context.Context, defaults models.SurveyConfig) (models.SurveyConfig, error) {
	if m.GetOrCreateSurveyConfigFunc != nil {
		return m.GetOrCreateSurveyConfigFunc(ctx, defaults)
	}
	defaults.ID = 1
	return defaults, nil
}

func (m *MockSurveyConfigRepository) UpdateSurveyConfig(ctx context.Context, cfg models.SurveyConfig) error {
	if m.UpdateSurveyConfigFunc != nil {
		return m.UpdateSurveyConfigFunc(ctx, cfg)
	}
	return nil
}

// MockStaffRepository is a function-based mock of service.StaffRepository.
type MockStaffRepository struct {
	GetStaffByUsernameFunc func(ctx context.Context, username string) (models.StaffUser, error)
	UpsertStaffFunc        func(ctx context.Context, u *models.StaffUser) error
}

func (m *MockStaffRepository) GetStaffByUsername(ctx context.Context, username string) (models.StaffUser, error) {
	if m.GetStaffByUsernameFunc != nil {
		return m.GetStaffByUsernameFunc(ctx, username)
	}
	return models.StaffUser{}, repository.ErrNotFound
}

func (m *MockStaffRepository) UpsertStaff(ctx context.Context, u *models.StaffUser) error {
	if m.UpsertStaffFunc != nil {
		return m.UpsertStaffFunc(ctx, u)
	}
	return nil
}
