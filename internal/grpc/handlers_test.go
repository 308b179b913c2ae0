package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/godilite/cafeteria-survey/internal/grpc/mocks"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service"
	"github.com/godilite/cafeteria-survey/pkg/grpc/server"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const staffToken = "token-supervisora"

// startReporting serves handlers over bufconn behind the staff interceptor.
func startReporting(t *testing.T, reporting ReportingService) *ReportingClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	auth := &mocks.MockAuthenticator{Tokens: map[string]service.Session{
		staffToken: {ID: "sid-1", Username: "supervisora"},
	}}

	srv, err := server.New(
		server.WithListener(lis),
		server.WithLogger(zaptest.NewLogger(t)),
		server.WithLogging(true),
		server.WithAuth(StaffAuth(auth)),
	)
	require.NoError(t, err)
	srv.RegisterServiceWithHealth(ReportingServiceName, func(s *grpc.Server) {
		RegisterReportingServer(s, NewReportingHandlers(reporting, zaptest.NewLogger(t)))
	})
	srv.Start()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return NewReportingClient(conn)
}

func staffContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+staffToken)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestNewReportingHandlers(t *testing.T) {
	assert.Panics(t, func() { NewReportingHandlers(nil, zap.NewNop()) })
	assert.NotNil(t, NewReportingHandlers(&mocks.MockReportingService{}, nil))
}

func TestGetSummary(t *testing.T) {
	sat := 4.25
	var got service.ReportFilter
	client := startReporting(t, &mocks.MockReportingService{
		SummaryFunc: func(ctx context.Context, f service.ReportFilter) (int64, models.RatingAverages, error) {
			got = f
			return 8, models.RatingAverages{OverallSatisfaction: &sat}, nil
		},
	})

	resp, err := client.GetSummary(staffContext(t), mustStruct(t, map[string]any{
		service.ParamVenue: 3,
		service.ParamShift: service.NoShiftValue,
	}))
	require.NoError(t, err)

	require.NotNil(t, got.VenueID)
	assert.Equal(t, int64(3), *got.VenueID)
	assert.Equal(t, models.NoShift, got.Shift.Kind)

	want := map[string]any{
		"total": float64(8),
		"averages": map[string]any{
			service.FieldOverallSatisfaction: 4.25,
			service.FieldFoodQuality:         nil,
			service.FieldMenuVariety:         nil,
			service.FieldCleanliness:         nil,
			service.FieldQueueTime:           nil,
		},
	}
	if diff := cmp.Diff(want, resp.AsMap()); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterFromRequest_NumericIDs(t *testing.T) {
	h := NewReportingHandlers(&mocks.MockReportingService{}, zap.NewNop())

	f := h.filterFromRequest(mustStruct(t, map[string]any{
		service.ParamVenue:     1e20,
		service.ParamCafeteria: -1e19,
		service.ParamShift:     2.5,
	}))
	assert.Nil(t, f.VenueID)
	assert.Nil(t, f.CafeteriaID)
	assert.Equal(t, models.AnyShift, f.Shift.Kind)

	f = h.filterFromRequest(mustStruct(t, map[string]any{
		service.ParamCafeteria: 7,
		service.ParamShift:     4,
	}))
	require.NotNil(t, f.CafeteriaID)
	assert.Equal(t, int64(7), *f.CafeteriaID)
	assert.Equal(t, models.SpecificShift, f.Shift.Kind)
	assert.Equal(t, int64(4), f.Shift.ShiftID)
}

func TestGetCafeteriaRanking(t *testing.T) {
	client := startReporting(t, &mocks.MockReportingService{
		RankingFunc: func(ctx context.Context, f service.ReportFilter) ([]models.CafeteriaRanking, error) {
			return []models.CafeteriaRanking{
				{CafeteriaID: 1, CafeteriaName: "A", VenueName: "Sede", AverageSatisfaction: 4.0, ResponseCount: 10},
				{CafeteriaID: 2, CafeteriaName: "B", VenueName: "Sede", AverageSatisfaction: 4.0, ResponseCount: 5},
			}, nil
		},
	})

	resp, err := client.GetCafeteriaRanking(staffContext(t), nil)
	require.NoError(t, err)

	rows := resp.AsMap()["ranking"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].(map[string]any)["comedor"])
	assert.Equal(t, float64(5), rows[1].(map[string]any)["total"])
}

func TestListComments(t *testing.T) {
	client := startReporting(t, &mocks.MockReportingService{
		CommentsFunc: func(ctx context.Context, f service.ReportFilter) ([]models.ResponseRow, error) {
			assert.NotNil(t, f.StartDate)
			return []models.ResponseRow{{
				ID:            9,
				RegisteredAt:  time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
				VenueName:     "Sede",
				CafeteriaName: "Comedor",
				Comment:       "Muy rico",
			}}, nil
		},
	})

	resp, err := client.ListComments(staffContext(t), mustStruct(t, map[string]any{service.ParamStartDate: "2026-03-01"}))
	require.NoError(t, err)

	rows := resp.AsMap()["comments"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "Muy rico", row["comentario"])
	assert.Equal(t, "2026-03-10T15:00:00Z", row["fecha_hora_registro"])
	assert.Equal(t, "", row["turno"])
}

func TestReportingRequiresStaffSession(t *testing.T) {
	called := false
	client := startReporting(t, &mocks.MockReportingService{
		SummaryFunc: func(ctx context.Context, f service.ReportFilter) (int64, models.RatingAverages, error) {
			called = true
			return 0, models.RatingAverages{}, nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.GetSummary(ctx, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer expired")
	_, err = client.GetSummary(bad, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	assert.False(t, called)
}

func TestHandleError(t *testing.T) {
	h := NewReportingHandlers(&mocks.MockReportingService{}, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", fmt.Errorf("load: %w", service.ErrNotFound), codes.NotFound},
		{"validation", service.NewValidationError("fecha_inicio", "inválida"), codes.InvalidArgument},
		{"unauthorized", service.ErrUnauthorized, codes.Unauthenticated},
		{"storage", fmt.Errorf("%w: disk I/O error", service.ErrStorageFailure), codes.Internal},
		{"unexpected", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(h.handleError(ctx, "op", tt.err)))
		})
	}

	t.Run("canceled context wins", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.Equal(t, codes.Canceled, status.Code(h.handleError(cctx, "op", service.ErrStorageFailure)))
	})

	t.Run("storage failure over the wire", func(t *testing.T) {
		client := startReporting(t, &mocks.MockReportingService{
			RankingFunc: func(ctx context.Context, f service.ReportFilter) ([]models.CafeteriaRanking, error) {
				return nil, fmt.Errorf("%w: no such table", service.ErrStorageFailure)
			},
		})
		_, err := client.GetCafeteriaRanking(staffContext(t), nil)
		assert.Equal(t, codes.Internal, status.Code(err))
		assert.Equal(t, "database error", status.Convert(err).Message())
	})
}
