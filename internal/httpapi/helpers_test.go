package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service"
	"github.com/godilite/cafeteria-survey/internal/service/mocks"
	"github.com/godilite/cafeteria-survey/pkg/database"
)

// testEnv runs the real services over an in-memory store.
type testEnv struct {
	t         *testing.T
	server    http.Handler
	catalog   *service.CatalogService
	responses *repository.ResponseRepository
	auth      *service.AuthService
	sessions  *mocks.MemorySessionStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	db, err := database.New(
		database.WithDataSource(":memory:?_foreign_keys=on"),
		database.WithMaxOpenConns(1),
		database.WithRetry(1, 0),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.Migrate(ctx, db))

	catalogRepo := repository.NewCatalogRepository(db)
	responses := repository.NewResponseRepository(db)
	configs := service.NewSurveyConfigService(catalogRepo, logger)
	sessions := mocks.NewMemorySessionStore()
	auth := service.NewAuthService(repository.NewStaffRepository(db), sessions, []byte("test-secret"), time.Hour, logger)
	catalog := service.NewCatalogService(catalogRepo, responses, time.UTC, logger)

	h, err := NewHandler(Config{
		Logger:   logger,
		Recorder: service.NewRecorderService(catalogRepo, responses, configs, time.UTC, logger),
		Configs:  configs,
		Reporter: service.NewReportingService(responses, catalogRepo, time.UTC, logger),
		Auth:     auth,
		Catalog:  catalog,
		Location: time.UTC,
	})
	require.NoError(t, err)

	return &testEnv{
		t:         t,
		server:    h.Routes(),
		catalog:   catalog,
		responses: responses,
		auth:      auth,
		sessions:  sessions,
	}
}

// seedPoint creates an active venue, cafeteria and capture point.
func (e *testEnv) seedPoint(identifier, venueName, cafeteriaName string) models.CapturePoint {
	e.t.Helper()
	ctx := context.Background()

	venue, err := e.catalog.SaveVenue(ctx, models.Venue{Name: venueName, Active: true})
	require.NoError(e.t, err)
	cafeteria, err := e.catalog.SaveCafeteria(ctx, models.Cafeteria{VenueID: venue.ID, Name: cafeteriaName, Active: true})
	require.NoError(e.t, err)
	point, err := e.catalog.SaveCapturePoint(ctx, models.CapturePoint{Identifier: identifier, CafeteriaID: cafeteria.ID, Active: true})
	require.NoError(e.t, err)
	return point
}

func (e *testEnv) staffToken() string {
	e.t.Helper()
	ctx := context.Background()
	_, err := e.auth.CreateStaff(ctx, "supervisora", "clave-segura")
	require.NoError(e.t, err)
	token, _, err := e.auth.Login(ctx, "supervisora", "clave-segura")
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) do(method, target string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(target string, header http.Header) *httptest.ResponseRecorder {
	return e.do(http.MethodGet, target, nil, header)
}

func (e *testEnv) postForm(target string, form url.Values, header http.Header) *httptest.ResponseRecorder {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(http.MethodPost, target, strings.NewReader(form.Encode()), header)
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func ratings(v string) url.Values {
	form := url.Values{}
	for _, f := range service.RatingFields {
		form.Set(f.Name, v)
	}
	return form
}
