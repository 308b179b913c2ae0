package mocks

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service"
)

// MockReportingService is a mock implementation of the ReportingService interface
// for testing the handler layer. It uses function-based mocking for flexibility.
type MockReportingService struct {
	ParseFilterFunc func(values url.Values) service.ReportFilter
	SummaryFunc     func(ctx context.Context, f service.ReportFilter) (int64, models.RatingAverages, error)
	RankingFunc     func(ctx context.Context, f service.ReportFilter) ([]models.CafeteriaRanking, error)
	CommentsFunc    func(ctx context.Context, f service.ReportFilter) ([]models.ResponseRow, error)
}

// ParseFilter defaults to the real query-string parser in UTC.
func (m *MockReportingService) ParseFilter(values url.Values) service.ReportFilter {
	if m.ParseFilterFunc != nil {
		return m.ParseFilterFunc(values)
	}
	return service.ParseReportFilter(values, time.UTC)
}

func (m *MockReportingService) Summary(ctx context.Context, f service.ReportFilter) (int64, models.RatingAverages, error) {
	if m.SummaryFunc != nil {
		return m.SummaryFunc(ctx, f)
	}
	return 0, models.RatingAverages{}, errors.New("SummaryFunc not implemented")
}

func (m *MockReportingService) Ranking(ctx context.Context, f service.ReportFilter) ([]models.CafeteriaRanking, error) {
	if m.RankingFunc != nil {
		return m.RankingFunc(ctx, f)
	}
	return nil, errors.New("RankingFunc not implemented")
}

func (m *MockReportingService) Comments(ctx context.Context, f service.ReportFilter) ([]models.ResponseRow, error) {
	if m.CommentsFunc != nil {
		return m.CommentsFunc(ctx, f)
	}
	return nil, errors.New("CommentsFunc not implemented")
}

// MockAuthenticator accepts Tokens and rejects everything else.
type MockAuthenticator struct {
	Tokens map[string]service.Session
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, token string) (service.Session, error) {
	if sess, ok := m.Tokens[token]; ok {
		return sess, nil
	}
	return service.Session{}, service.ErrUnauthorized
}
