// Package seed loads the demo catalog and generates synthetic survey
// datasets for local development and load testing.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service"
)

//go:embed demo_catalog.yaml
var demoCatalog []byte

type CafeteriaDef struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
}

type VenueDef struct {
	Name       string         `yaml:"name"`
	Cafeterias []CafeteriaDef `yaml:"cafeterias"`
}

type ShiftDef struct {
	Name  string `yaml:"name"`
	Mode  string `yaml:"mode"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type CapturePointDef struct {
	Identifier   string `yaml:"identifier"`
	Venue        string `yaml:"venue"`
	Cafeteria    string `yaml:"cafeteria"`
	DefaultShift string `yaml:"default_shift"`
}

type SurveyConfigDef struct {
	WelcomeText         string `yaml:"welcome_text"`
	InstructionsText    string `yaml:"instructions_text"`
	ThanksText          string `yaml:"thanks_text"`
	OpenQuestionEnabled bool   `yaml:"open_question_enabled"`
}

// Catalog is the YAML shape of a catalog definition.
type Catalog struct {
	Venues        []VenueDef        `yaml:"venues"`
	Shifts        []ShiftDef        `yaml:"shifts"`
	CapturePoints []CapturePointDef `yaml:"capture_points"`
	SurveyConfig  SurveyConfigDef   `yaml:"survey_config"`
}

// LoadDemoCatalog parses the embedded demo catalog.
func LoadDemoCatalog() (Catalog, error) {
	return ParseCatalog(demoCatalog)
}

// ParseCatalog decodes a catalog and checks every shift definition.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	for _, def := range c.Shifts {
		if _, err := def.Shift(); err != nil {
			return Catalog{}, err
		}
	}
	return c, nil
}

// Shift converts the definition into an active shift that passes validation.
func (d ShiftDef) Shift() (models.Shift, error) {
	sh := models.Shift{Name: d.Name, Mode: models.ShiftMode(d.Mode), Active: true}
	if sh.Mode == "" {
		sh.Mode = models.ShiftModeScheduled
	}
	for _, f := range []struct {
		raw string
		dst **models.TimeOfDay
	}{{d.Start, &sh.Start}, {d.End, &sh.End}} {
		if f.raw == "" {
			continue
		}
		tod, err := models.ParseTimeOfDay(f.raw)
		if err != nil {
			return models.Shift{}, fmt.Errorf("shift %q: %w", d.Name, err)
		}
		*f.dst = &tod
	}
	if err := service.ValidateShift(sh); err != nil {
		return models.Shift{}, fmt.Errorf("shift %q: %w", d.Name, err)
	}
	return sh, nil
}

func (d SurveyConfigDef) SurveyConfig() models.SurveyConfig {
	cfg := models.DefaultSurveyConfig()
	if d.WelcomeText != "" {
		cfg.WelcomeText = d.WelcomeText
	}
	if d.InstructionsText != "" {
		cfg.InstructionsText = d.InstructionsText
	}
	if d.ThanksText != "" {
		cfg.ThanksText = d.ThanksText
	}
	cfg.OpenQuestionEnabled = d.OpenQuestionEnabled
	return cfg
}

// CatalogStore is the subset of the catalog repository the seeder writes through.
type CatalogStore interface {
	FindVenueByName(ctx context.Context, name string) (models.Venue, error)
	CreateVenue(ctx context.Context, v *models.Venue) error
	UpdateVenue(ctx context.Context, v models.Venue) error
	FindCafeteria(ctx context.Context, venueID int64, name string) (models.Cafeteria, error)
	CreateCafeteria(ctx context.Context, c *models.Cafeteria) error
	UpdateCafeteria(ctx context.Context, c models.Cafeteria) error
	FindShiftByName(ctx context.Context, name string) (models.Shift, error)
	CreateShift(ctx context.Context, sh *models.Shift) error
	UpdateShift(ctx context.Context, sh models.Shift) error
	GetCapturePointByIdentifier(ctx context.Context, identifier string) (models.CapturePoint, error)
	CreateCapturePoint(ctx context.Context, p *models.CapturePoint) error
	GetOrCreateSurveyConfig(ctx context.Context, defaults models.SurveyConfig) (models.SurveyConfig, error)
}

// ResponseStore is the subset of the response repository used for datasets.
type ResponseStore interface {
	InsertResponsesBatch(ctx context.Context, batch []models.SurveyResponse) error
	DeleteResponsesBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type Seeder struct {
	catalog   CatalogStore
	responses ResponseStore
	logger    *zap.Logger
}

func NewSeeder(catalog CatalogStore, responses ResponseStore, logger *zap.Logger) *Seeder {
	if catalog == nil || responses == nil {
		panic("seeder stores must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{catalog: catalog, responses: responses, logger: logger.Named("seed")}
}

// ApplyCatalog creates whatever part of c is missing. Existing rows are
// reactivated but otherwise left alone, so the call is idempotent.
func (s *Seeder) ApplyCatalog(ctx context.Context, c Catalog) error {
	shifts := make(map[string]models.Shift, len(c.Shifts))
	for _, def := range c.Shifts {
		sh, err := s.ensureShift(ctx, def, false)
		if err != nil {
			return err
		}
		shifts[sh.Name] = sh
	}

	cafeterias := make(map[[2]string]models.Cafeteria)
	for _, vd := range c.Venues {
		venue, err := s.ensureVenue(ctx, vd.Name)
		if err != nil {
			return err
		}
		for _, cd := range vd.Cafeterias {
			caf, err := s.ensureCafeteria(ctx, venue, cd)
			if err != nil {
				return err
			}
			cafeterias[[2]string{vd.Name, cd.Name}] = caf
		}
	}

	for _, pd := range c.CapturePoints {
		caf, ok := cafeterias[[2]string{pd.Venue, pd.Cafeteria}]
		if !ok {
			return fmt.Errorf("capture point %q: unknown cafeteria %q at %q", pd.Identifier, pd.Cafeteria, pd.Venue)
		}
		var defaultShift *int64
		if pd.DefaultShift != "" {
			sh, ok := shifts[pd.DefaultShift]
			if !ok {
				return fmt.Errorf("capture point %q: unknown shift %q", pd.Identifier, pd.DefaultShift)
			}
			defaultShift = &sh.ID
		}
		if _, err := s.ensureCapturePoint(ctx, pd.Identifier, caf.ID, defaultShift); err != nil {
			return err
		}
	}

	if _, err := s.catalog.GetOrCreateSurveyConfig(ctx, c.SurveyConfig.SurveyConfig()); err != nil {
		return fmt.Errorf("ensure survey config: %w", err)
	}

	s.logger.Info("catalog applied",
		zap.Int("venues", len(c.Venues)),
		zap.Int("shifts", len(c.Shifts)),
		zap.Int("capture_points", len(c.CapturePoints)))
	return nil
}

func (s *Seeder) ensureVenue(ctx context.Context, name string) (models.Venue, error) {
	v, err := s.catalog.FindVenueByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		v = models.Venue{Name: name, Active: true}
		if err := s.catalog.CreateVenue(ctx, &v); err != nil {
			return models.Venue{}, fmt.Errorf("create venue %q: %w", name, err)
		}
		return v, nil
	case err != nil:
		return models.Venue{}, err
	}
	if !v.Active {
		v.Active = true
		if err := s.catalog.UpdateVenue(ctx, v); err != nil {
			return models.Venue{}, fmt.Errorf("activate venue %q: %w", name, err)
		}
	}
	return v, nil
}

func (s *Seeder) ensureCafeteria(ctx context.Context, venue models.Venue, def CafeteriaDef) (models.Cafeteria, error) {
	c, err := s.catalog.FindCafeteria(ctx, venue.ID, def.Name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c = models.Cafeteria{VenueID: venue.ID, VenueName: venue.Name, Name: def.Name, Location: def.Location, Active: true}
		if err := s.catalog.CreateCafeteria(ctx, &c); err != nil {
			return models.Cafeteria{}, fmt.Errorf("create cafeteria %q: %w", def.Name, err)
		}
		return c, nil
	case err != nil:
		return models.Cafeteria{}, err
	}
	if !c.Active {
		c.Active = true
		if err := s.catalog.UpdateCafeteria(ctx, c); err != nil {
			return models.Cafeteria{}, fmt.Errorf("activate cafeteria %q: %w", def.Name, err)
		}
	}
	return c, nil
}

// ensureShift creates the shift, or with overwrite resets an existing one to
// the definition.
func (s *Seeder) ensureShift(ctx context.Context, def ShiftDef, overwrite bool) (models.Shift, error) {
	want, err := def.Shift()
	if err != nil {
		return models.Shift{}, err
	}

	existing, err := s.catalog.FindShiftByName(ctx, def.Name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if err := s.catalog.CreateShift(ctx, &want); err != nil {
			return models.Shift{}, fmt.Errorf("create shift %q: %w", def.Name, err)
		}
		return want, nil
	case err != nil:
		return models.Shift{}, err
	case !overwrite:
		return existing, nil
	}

	want.ID = existing.ID
	if err := s.catalog.UpdateShift(ctx, want); err != nil {
		return models.Shift{}, fmt.Errorf("update shift %q: %w", def.Name, err)
	}
	return want, nil
}

func (s *Seeder) ensureCapturePoint(ctx context.Context, identifier string, cafeteriaID int64, defaultShift *int64) (models.CapturePoint, error) {
	p, err := s.catalog.GetCapturePointByIdentifier(ctx, identifier)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return models.CapturePoint{}, err
	}
	p = models.CapturePoint{Identifier: identifier, CafeteriaID: cafeteriaID, DefaultShiftID: defaultShift, Active: true}
	if err := s.catalog.CreateCapturePoint(ctx, &p); err != nil {
		return models.CapturePoint{}, fmt.Errorf("create capture point %q: %w", identifier, err)
	}
	return p, nil
}
