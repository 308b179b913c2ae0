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
	msgDuplicate          = "Ya existe un registro con este valor."
	msgDuplicateCafeteria = "Ya existe un comedor con este nombre en la sede."
	msgProtected          = "No se puede eliminar: el registro esta en uso."
	msgBadReference       = "La referencia indicada no existe."
	msgConstraintFailed   = "Los datos no cumplen las restricciones del registro."
	msgInvalidYear        = "Ingrese un año valido."
)

type writeOp int

const (
	opSave writeOp = iota
	opDelete
)

// mapWriteError turns store errors into the service taxonomy. Constraint
// violations become field errors.
func mapWriteError(err error, op writeOp) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}

	cv, ok := repository.AsConstraintViolation(err)
	if !ok {
		return storageFailure(err)
	}
	switch cv.Kind {
	case repository.ConstraintUnique:
		if len(cv.Columns) == 1 {
			return NewValidationError(cv.Columns[0], msgDuplicate)
		}
		if len(cv.Columns) == 2 && cv.Columns[0] == "venue_id" && cv.Columns[1] == "name" {
			return NewValidationError(NonFieldErrors, msgDuplicateCafeteria)
		}
		return NewValidationError(NonFieldErrors, msgDuplicate)
	case repository.ConstraintForeignKey:
		if op == opDelete {
			return NewValidationError(NonFieldErrors, msgProtected)
		}
		return NewValidationError(NonFieldErrors, msgBadReference)
	default:
		return NewValidationError(NonFieldErrors, msgConstraintFailed)
	}
}

func requireName(verr *ValidationError, field, v string) {
	if strings.TrimSpace(v) == "" {
		verr.Add(field, msgRequired)
	}
}

// CatalogService manages venues, cafeterias, shifts and capture points for
// staff. Every write is validated before it reaches the store.
type CatalogService struct {
	repo      CatalogRepository
	responses ResponseRepository
	loc       *time.Location
	logger    *zap.Logger
}

func NewCatalogService(repo CatalogRepository, responses ResponseRepository, loc *time.Location, logger *zap.Logger) *CatalogService {
	if repo == nil || responses == nil {
		panic("catalog dependencies must not be nil")
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, responses: responses, loc: loc, logger: logger}
}

func (s *CatalogService) ListVenues(ctx context.Context) ([]models.Venue, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := s.repo.ListVenues(dbCtx, false)
	if err != nil {
		return nil, storageFailure(err)
	}
	return out, nil
}

func (s *CatalogService) SaveVenue(ctx context.Context, v models.Venue) (models.Venue, error) {
	v.Name = strings.TrimSpace(v.Name)

	var verr ValidationError
	requireName(&verr, "name", v.Name)
	if err := verr.OrNil(); err != nil {
		return models.Venue{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var err error
	if v.ID == 0 {
		err = s.repo.CreateVenue(dbCtx, &v)
	} else {
		err = s.repo.UpdateVenue(dbCtx, v)
	}
	if err := mapWriteError(err, opSave); err != nil {
		return models.Venue{}, err
	}
	return v, nil
}

func (s *CatalogService) DeleteVenue(ctx context.Context, id int64) error {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return mapWriteError(s.repo.DeleteVenue(dbCtx, id), opDelete)
}

func (s *CatalogService) ListCafeterias(ctx context.Context) ([]models.Cafeteria, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := s.repo.ListCafeterias(dbCtx, false)
	if err != nil {
		return nil, storageFailure(err)
	}
	return out, nil
}

func (s *CatalogService) SaveCafeteria(ctx context.Context, c models.Cafeteria) (models.Cafeteria, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Location = strings.TrimSpace(c.Location)

	var verr ValidationError
	requireName(&verr, "name", c.Name)
	if c.VenueID == 0 {
		verr.Add("venue_id", msgRequired)
	}
	if err := verr.OrNil(); err != nil {
		return models.Cafeteria{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var err error
	if c.ID == 0 {
		err = s.repo.CreateCafeteria(dbCtx, &c)
	} else {
		err = s.repo.UpdateCafeteria(dbCtx, c)
	}
	if err := mapWriteError(err, opSave); err != nil {
		return models.Cafeteria{}, err
	}

	saved, err := s.repo.GetCafeteria(dbCtx, c.ID)
	if err != nil {
		return models.Cafeteria{}, mapWriteError(err, opSave)
	}
	return saved, nil
}

func (s *CatalogService) DeleteCafeteria(ctx context.Context, id int64) error {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return mapWriteError(s.repo.DeleteCafeteria(dbCtx, id), opDelete)
}

func (s *CatalogService) ListShifts(ctx context.Context) ([]models.Shift, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := s.repo.ListShifts(dbCtx, false)
	if err != nil {
		return nil, storageFailure(err)
	}
	return out, nil
}

func (s *CatalogService) SaveShift(ctx context.Context, sh models.Shift) (models.Shift, error) {
	sh.Name = strings.TrimSpace(sh.Name)
	if sh.Mode == "" {
		sh.Mode = models.ShiftModeScheduled
	}
	if err := ValidateShift(sh); err != nil {
		return models.Shift{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var err error
	if sh.ID == 0 {
		err = s.repo.CreateShift(dbCtx, &sh)
	} else {
		err = s.repo.UpdateShift(dbCtx, sh)
	}
	if err := mapWriteError(err, opSave); err != nil {
		return models.Shift{}, err
	}
	return sh, nil
}

// DeleteShift removes a shift. Capture point defaults and responses that
// pointed at it keep existing without a shift.
func (s *CatalogService) DeleteShift(ctx context.Context, id int64) error {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return mapWriteError(s.repo.DeleteShift(dbCtx, id), opDelete)
}

func (s *CatalogService) ListCapturePoints(ctx context.Context) ([]models.CapturePoint, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := s.repo.ListCapturePoints(dbCtx, false)
	if err != nil {
		return nil, storageFailure(err)
	}
	return out, nil
}

func (s *CatalogService) SaveCapturePoint(ctx context.Context, p models.CapturePoint) (models.CapturePoint, error) {
	p.Identifier = strings.TrimSpace(p.Identifier)

	var verr ValidationError
	requireName(&verr, "identifier", p.Identifier)
	if p.CafeteriaID == 0 {
		verr.Add("cafeteria_id", msgRequired)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if p.DefaultShiftID != nil {
		shift, err := s.repo.GetShift(dbCtx, *p.DefaultShiftID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			verr.Add("default_shift_id", msgInvalidChoice)
		case err != nil:
			return models.CapturePoint{}, storageFailure(err)
		default:
			verr.Merge(ValidateCapturePointDefaultShift(&shift))
		}
	}
	if err := verr.OrNil(); err != nil {
		return models.CapturePoint{}, err
	}

	var err error
	if p.ID == 0 {
		err = s.repo.CreateCapturePoint(dbCtx, &p)
	} else {
		err = s.repo.UpdateCapturePoint(dbCtx, p)
	}
	if err := mapWriteError(err, opSave); err != nil {
		return models.CapturePoint{}, err
	}

	saved, err := s.repo.GetCapturePoint(dbCtx, p.ID)
	if err != nil {
		return models.CapturePoint{}, mapWriteError(err, opSave)
	}
	return saved, nil
}

func (s *CatalogService) DeleteCapturePoint(ctx context.Context, id int64) error {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return mapWriteError(s.repo.DeleteCapturePoint(dbCtx, id), opDelete)
}

// ResetResponses deletes every response registered during year, in local
// time. It is the only way responses are removed.
func (s *CatalogService) ResetResponses(ctx context.Context, year int) (int64, error) {
	if year < 1 || year > 9999 {
		return 0, NewValidationError("year", msgInvalidYear)
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	to := from.AddDate(1, 0, 0)

	dbCtx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	n, err := s.responses.DeleteResponsesBetween(dbCtx, from, to)
	if err != nil {
		return 0, storageFailure(err)
	}
	s.logger.Info("survey responses deleted", zap.Int("year", year), zap.Int64("deleted", n))
	return n, nil
}
