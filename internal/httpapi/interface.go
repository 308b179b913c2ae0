package httpapi

import (
	"context"
	"net/url"
	"time"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service"
)

type Recorder interface {
	ActiveCapturePoints(ctx context.Context) ([]models.CapturePoint, error)
	Form(ctx context.Context, identifier string) (service.CaptureForm, error)
	Submit(ctx context.Context, identifier string, in service.SubmissionInput) (service.CaptureForm, models.SurveyResponse, error)
	Thanks(ctx context.Context, identifier string) (models.CapturePoint, models.SurveyConfig, error)
}

type SurveyConfigs interface {
	Get(ctx context.Context) (models.SurveyConfig, error)
	Update(ctx context.Context, cfg models.SurveyConfig) (models.SurveyConfig, error)
}

type Reporter interface {
	ParseFilter(values url.Values) service.ReportFilter
	Portal(ctx context.Context, f service.ReportFilter) (service.Portal, error)
	Export(ctx context.Context, f service.ReportFilter, fn func(record []string) error) error
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, service.Session, error)
	Authenticate(ctx context.Context, token string) (service.Session, error)
	Logout(ctx context.Context, token string) error
	TTL() time.Duration
}

type Catalog interface {
	ListVenues(ctx context.Context) ([]models.Venue, error)
	SaveVenue(ctx context.Context, v models.Venue) (models.Venue, error)
	DeleteVenue(ctx context.Context, id int64) error

	ListCafeterias(ctx context.Context) ([]models.Cafeteria, error)
	SaveCafeteria(ctx context.Context, c models.Cafeteria) (models.Cafeteria, error)
	DeleteCafeteria(ctx context.Context, id int64) error

	ListShifts(ctx context.Context) ([]models.Shift, error)
	SaveShift(ctx context.Context, s models.Shift) (models.Shift, error)
	DeleteShift(ctx context.Context, id int64) error

	ListCapturePoints(ctx context.Context) ([]models.CapturePoint, error)
	SaveCapturePoint(ctx context.Context, p models.CapturePoint) (models.CapturePoint, error)
	DeleteCapturePoint(ctx context.Context, id int64) error

	ResetResponses(ctx context.Context, year int) (int64, error)
}
