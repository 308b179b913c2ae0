package service

import (
	"context"
	"time"

	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
)

// CapturePointReader is what the capture flow reads from the catalog.
type CapturePointReader interface {
	GetCapturePointByIdentifier(ctx context.Context, identifier string) (models.CapturePoint, error)
	ListCapturePoints(ctx context.Context, activeOnly bool) ([]models.CapturePoint, error)
	ListShifts(ctx context.Context, activeOnly bool) ([]models.Shift, error)
}

// CatalogLister provides the option lists of the reporting filters.
type CatalogLister interface {
	ListVenues(ctx context.Context, activeOnly bool) ([]models.Venue, error)
	ListCafeterias(ctx context.Context, activeOnly bool) ([]models.Cafeteria, error)
	ListShifts(ctx context.Context, activeOnly bool) ([]models.Shift, error)
}

// CatalogRepository defines the catalog write operations used by staff.
type CatalogRepository interface {
	CatalogLister

	GetVenue(ctx context.Context, id int64) (models.Venue, error)
	CreateVenue(ctx context.Context, v *models.Venue) error
	UpdateVenue(ctx context.Context, v models.Venue) error
	DeleteVenue(ctx context.Context, id int64) error

	GetCafeteria(ctx context.Context, id int64) (models.Cafeteria, error)
	CreateCafeteria(ctx context.Context, c *models.Cafeteria) error
	UpdateCafeteria(ctx context.Context, c models.Cafeteria) error
	DeleteCafeteria(ctx context.Context, id int64) error

	GetShift(ctx context.Context, id int64) (models.Shift, error)
	CreateShift(ctx context.Context, s *models.Shift) error
	UpdateShift(ctx context.Context, s models.Shift) error
	DeleteShift(ctx context.Context, id int64) error

	ListCapturePoints(ctx context.Context, activeOnly bool) ([]models.CapturePoint, error)
	GetCapturePoint(ctx context.Context, id int64) (models.CapturePoint, error)
	CreateCapturePoint(ctx context.Context, p *models.CapturePoint) error
	UpdateCapturePoint(ctx context.Context, p models.CapturePoint) error
	DeleteCapturePoint(ctx context.Context, id int64) error
}

type SurveyConfigRepository interface {
	GetOrCreateSurveyConfig(ctx context.Context, defaults models.SurveyConfig) (models.SurveyConfig, error)
	UpdateSurveyConfig(ctx context.Context, cfg models.SurveyConfig) error
}

// ResponseRepository defines the response store used by the recorder and
// the report engine.
type ResponseRepository interface {
	repository.ResponseReader
	Snapshot(ctx context.Context, fn func(repository.ResponseReader) error) error
	InsertResponse(ctx context.Context, resp *models.SurveyResponse) error
	DeleteResponsesBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type StaffRepository interface {
	GetStaffByUsername(ctx context.Context, username string) (models.StaffUser, error)
	UpsertStaff(ctx context.Context, u *models.StaffUser) error
}

// SessionStore keeps staff sessions with an expiration. Get returns an error
// for unknown or expired keys.
type SessionStore interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}
