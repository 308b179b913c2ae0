package grpc

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service"
	"github.com/godilite/cafeteria-survey/pkg/grpc/server"
)

const defaultGRPCTimeout = 10 * time.Second

type sessionKey struct{}

// SessionFromContext returns the staff session attached by StaffAuth.
func SessionFromContext(ctx context.Context) (service.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(service.Session)
	return sess, ok
}

// StaffAuth adapts an Authenticator to the bearer-token interceptor and
// attaches the session to the request context.
func StaffAuth(auth Authenticator) server.TokenValidator {
	return func(ctx context.Context, token string) (context.Context, error) {
		sess, err := auth.Authenticate(ctx, token)
		if err != nil {
			return nil, err
		}
		return context.WithValue(ctx, sessionKey{}, sess), nil
	}
}

type ReportingHandlers struct {
	reporting ReportingService
	logger    *zap.Logger
}

// NewReportingHandlers initializes the reporting RPC handlers.
func NewReportingHandlers(reporting ReportingService, logger *zap.Logger) *ReportingHandlers {
	if reporting == nil {
		panic("nil ReportingService provided to NewReportingHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingHandlers{
		reporting: reporting,
		logger:    logger.Named("grpc-handler"),
	}
}

// filterFromRequest reads the portal query keys from a Struct. Numbers are
// accepted for the id keys; ones that do not fit an int64 are dropped.
func (h *ReportingHandlers) filterFromRequest(req *structpb.Struct) service.ReportFilter {
	values := url.Values{}
	for key, v := range req.GetFields() {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			values.Set(key, kind.StringValue)
		case *structpb.Value_NumberValue:
			n := kind.NumberValue
			if n == math.Trunc(n) && math.Abs(n) < 1<<63 {
				values.Set(key, strconv.FormatInt(int64(n), 10))
			}
		}
	}
	return h.reporting.ParseFilter(values)
}

func (h *ReportingHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		h.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		h.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	case errors.Is(err, service.ErrStorageFailure):
		h.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		h.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed", op)
	}
}

func (h *ReportingHandlers) logCall(ctx context.Context, op string) {
	if sess, ok := SessionFromContext(ctx); ok {
		h.logger.Debug("report requested", zap.String("op", op), zap.String("staff", sess.Username))
	}
}

func averageValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func (h *ReportingHandlers) GetSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := h.filterFromRequest(req)
	h.logCall(ctx, "GetSummary")

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	total, avg, err := h.reporting.Summary(ctx, f)
	if err != nil {
		return nil, h.handleError(ctx, "GetSummary", err)
	}

	averages := map[string]any{
		service.FieldOverallSatisfaction: averageValue(avg.OverallSatisfaction),
		service.FieldFoodQuality:         averageValue(avg.FoodQuality),
		service.FieldMenuVariety:         averageValue(avg.MenuVariety),
		service.FieldCleanliness:         averageValue(avg.Cleanliness),
		service.FieldQueueTime:           averageValue(avg.QueueTime),
	}
	return h.toStruct(ctx, "GetSummary", map[string]any{"total": total, "averages": averages})
}

func (h *ReportingHandlers) GetCafeteriaRanking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := h.filterFromRequest(req)
	h.logCall(ctx, "GetCafeteriaRanking")

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	ranking, err := h.reporting.Ranking(ctx, f)
	if err != nil {
		return nil, h.handleError(ctx, "GetCafeteriaRanking", err)
	}

	rows := make([]any, len(ranking))
	for i, r := range ranking {
		rows[i] = map[string]any{
			"cafeteria_id":          r.CafeteriaID,
			"comedor":               r.CafeteriaName,
			"sede":                  r.VenueName,
			"promedio_satisfaccion": r.AverageSatisfaction,
			"total":                 r.ResponseCount,
		}
	}
	return h.toStruct(ctx, "GetCafeteriaRanking", map[string]any{"ranking": rows})
}

func (h *ReportingHandlers) ListComments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := h.filterFromRequest(req)
	h.logCall(ctx, "ListComments")

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	comments, err := h.reporting.Comments(ctx, f)
	if err != nil {
		return nil, h.handleError(ctx, "ListComments", err)
	}

	rows := make([]any, len(comments))
	for i, c := range comments {
		rows[i] = commentValue(c)
	}
	return h.toStruct(ctx, "ListComments", map[string]any{"comments": rows})
}

func commentValue(c models.ResponseRow) map[string]any {
	return map[string]any{
		"id":                  c.ID,
		"fecha_hora_registro": c.RegisteredAt.UTC().Format(time.RFC3339),
		"sede":                c.VenueName,
		"comedor":             c.CafeteriaName,
		"turno":               c.ShiftName,
		"comentario":          c.Comment,
	}
}

func (h *ReportingHandlers) toStruct(ctx context.Context, op string, m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, h.handleError(ctx, op, err)
	}
	return out, nil
}
