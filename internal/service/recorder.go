package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
)

const (
	dbTimeout = 2 * time.Second
)

// SubmissionInput holds the raw values posted by a capture point form.
type SubmissionInput struct {
	Ratings map[string]string
	Comment string
	Shift   string
}

// CaptureForm is everything the capture page needs to render.
type CaptureForm struct {
	CapturePoint models.CapturePoint
	Config       models.SurveyConfig
	ShiftContext
}

// RecorderService validates and stores survey submissions.
type RecorderService struct {
	catalog   CapturePointReader
	responses ResponseRepository
	configs   *SurveyConfigService
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

func NewRecorderService(catalog CapturePointReader, responses ResponseRepository, configs *SurveyConfigService, loc *time.Location, logger *zap.Logger) *RecorderService {
	if catalog == nil || responses == nil || configs == nil {
		panic("recorder dependencies must not be nil")
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &RecorderService{
		catalog:   catalog,
		responses: responses,
		configs:   configs,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// ActiveCapturePoints lists the capture points shown on the index page.
func (s *RecorderService) ActiveCapturePoints(ctx context.Context) ([]models.CapturePoint, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	points, err := s.catalog.ListCapturePoints(dbCtx, true)
	if err != nil {
		return nil, storageFailure(err)
	}
	return points, nil
}

func (s *RecorderService) capturePoint(ctx context.Context, identifier string) (models.CapturePoint, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p, err := s.catalog.GetCapturePointByIdentifier(dbCtx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		return models.CapturePoint{}, ErrNotFound
	}
	if err != nil {
		return models.CapturePoint{}, storageFailure(err)
	}
	if !p.Active || p.Cafeteria == nil {
		return models.CapturePoint{}, ErrNotFound
	}
	return p, nil
}

func (s *RecorderService) shiftContext(ctx context.Context, now time.Time) (ShiftContext, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	shifts, err := s.catalog.ListShifts(dbCtx, true)
	if err != nil {
		return ShiftContext{}, storageFailure(err)
	}
	return ResolveShiftContext(now.In(s.loc), shifts), nil
}

// Form returns the capture point, its configuration and the shift state for
// the current instant. Unknown or inactive points yield ErrNotFound.
func (s *RecorderService) Form(ctx context.Context, identifier string) (CaptureForm, error) {
	p, err := s.capturePoint(ctx, identifier)
	if err != nil {
		return CaptureForm{}, err
	}
	cfg, err := s.configs.Get(ctx)
	if err != nil {
		return CaptureForm{}, err
	}
	sc, err := s.shiftContext(ctx, s.now())
	if err != nil {
		return CaptureForm{}, err
	}
	return CaptureForm{CapturePoint: p, Config: cfg, ShiftContext: sc}, nil
}

// Submit validates one submission and stores it. On a validation error the
// returned CaptureForm is still usable to re-render the page.
func (s *RecorderService) Submit(ctx context.Context, identifier string, in SubmissionInput) (CaptureForm, models.SurveyResponse, error) {
	form, err := s.Form(ctx, identifier)
	if err != nil {
		return CaptureForm{}, models.SurveyResponse{}, err
	}

	var verr ValidationError
	ratings, err := ParseRatings(in.Ratings)
	verr.Merge(err)

	shift, err := AttributeShift(form.ShiftContext, in.Shift, form.CapturePoint.DefaultShift)
	verr.Merge(err)

	if err := verr.OrNil(); err != nil {
		return form, models.SurveyResponse{}, err
	}

	cafeteria := *form.CapturePoint.Cafeteria
	resp := models.SurveyResponse{
		VenueID:     cafeteria.VenueID,
		CafeteriaID: cafeteria.ID,
		Ratings:     ratings,
	}
	if shift != nil {
		resp.ShiftID = &shift.ID
	}
	if form.Config.OpenQuestionEnabled {
		resp.Comment = strings.TrimSpace(in.Comment)
	}
	if err := ValidateResponseConsistency(resp, cafeteria); err != nil {
		return form, models.SurveyResponse{}, err
	}

	resp.RegisteredAt = s.now()

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.responses.InsertResponse(dbCtx, &resp); err != nil {
		if _, ok := repository.AsConstraintViolation(err); ok {
			return form, models.SurveyResponse{}, NewValidationError(NonFieldErrors, msgConstraintFailed)
		}
		s.logger.Error("failed to store survey response", zap.String("capture_point", identifier), zap.Error(err))
		return form, models.SurveyResponse{}, storageFailure(err)
	}

	s.logger.Info("survey response stored",
		zap.Int64("id", resp.ID),
		zap.String("capture_point", identifier),
		zap.Bool("automatic_shift", form.Automatic != nil))

	return form, resp, nil
}

// Thanks returns the configuration for the thanks page of an active point.
func (s *RecorderService) Thanks(ctx context.Context, identifier string) (models.CapturePoint, models.SurveyConfig, error) {
	p, err := s.capturePoint(ctx, identifier)
	if err != nil {
		return models.CapturePoint{}, models.SurveyConfig{}, err
	}
	cfg, err := s.configs.Get(ctx)
	if err != nil {
		return models.CapturePoint{}, models.SurveyConfig{}, err
	}
	return p, cfg, nil
}
