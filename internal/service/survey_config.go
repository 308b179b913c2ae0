package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
)

// SurveyConfigService loads the main survey configuration, creating it with
// defaults on first access. Concurrent first accesses share one store call;
// nothing is retained between calls.
type SurveyConfigService struct {
	repo   SurveyConfigRepository
	group  singleflight.Group
	logger *zap.Logger
}

func NewSurveyConfigService(repo SurveyConfigRepository, logger *zap.Logger) *SurveyConfigService {
	if repo == nil {
		panic("repo must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SurveyConfigService{repo: repo, logger: logger}
}

func (s *SurveyConfigService) Get(ctx context.Context) (models.SurveyConfig, error) {
	v, err, shared := s.group.Do(models.MainSurveyConfigName, func() (any, error) {
		// The flight is shared, so one caller's cancellation must not fail the rest.
		dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dbTimeout)
		defer cancel()
		return s.repo.GetOrCreateSurveyConfig(dbCtx, models.DefaultSurveyConfig())
	})
	if err != nil {
		return models.SurveyConfig{}, storageFailure(err)
	}
	if shared {
		s.logger.Debug("survey config load shared")
	}
	return v.(models.SurveyConfig), nil
}

// Ensure creates the configuration row if it is missing. It runs once at
// startup.
func (s *SurveyConfigService) Ensure(ctx context.Context) error {
	cfg, err := s.Get(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("survey config ready", zap.String("name", cfg.Name), zap.Int64("id", cfg.ID))
	return nil
}

func (s *SurveyConfigService) Update(ctx context.Context, cfg models.SurveyConfig) (models.SurveyConfig, error) {
	var verr ValidationError
	for field, v := range map[string]string{
		"welcome_text":      cfg.WelcomeText,
		"instructions_text": cfg.InstructionsText,
		"thanks_text":       cfg.ThanksText,
	} {
		if strings.TrimSpace(v) == "" {
			verr.Add(field, msgRequired)
		}
	}
	if err := verr.OrNil(); err != nil {
		return models.SurveyConfig{}, err
	}

	current, err := s.Get(ctx)
	if err != nil {
		return models.SurveyConfig{}, err
	}
	cfg.ID = current.ID
	cfg.Name = current.Name

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.repo.UpdateSurveyConfig(dbCtx, cfg); err != nil {
		return models.SurveyConfig{}, storageFailure(err)
	}
	return cfg, nil
}
