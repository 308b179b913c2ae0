package grpc

import (
	"context"
	"net/url"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service"
)

type ReportingService interface {
	ParseFilter(values url.Values) service.ReportFilter
	Summary(ctx context.Context, f service.ReportFilter) (int64, models.RatingAverages, error)
	Ranking(ctx context.Context, f service.ReportFilter) ([]models.CafeteriaRanking, error)
	Comments(ctx context.Context, f service.ReportFilter) ([]models.ResponseRow, error)
}

// Authenticator resolves a bearer token to a live staff session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (service.Session, error)
}
