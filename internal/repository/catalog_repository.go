package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
)

// CatalogRepository persists venues, cafeterias, shifts, capture points and
// the survey configuration.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func activeClause(activeOnly bool, column string) string {
	if activeOnly {
		return " WHERE " + column + " = 1"
	}
	return ""
}

// --- venues ---

func (r *CatalogRepository) ListVenues(ctx context.Context, activeOnly bool) ([]models.Venue, error) {
	query := `SELECT id, name, active FROM venues` + activeClause(activeOnly, "active") + ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ListVenues: %w", err)
	}
	defer rows.Close()

	var out []models.Venue
	for rows.Next() {
		var v models.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Active); err != nil {
			return nil, fmt.Errorf("scan ListVenues row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListVenues: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) GetVenue(ctx context.Context, id int64) (models.Venue, error) {
	var v models.Venue
	err := r.db.QueryRowContext(ctx, `SELECT id, name, active FROM venues WHERE id = ?`, id).
		Scan(&v.ID, &v.Name, &v.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Venue{}, ErrNotFound
	}
	if err != nil {
		return models.Venue{}, fmt.Errorf("query GetVenue: %w", err)
	}
	return v, nil
}

func (r *CatalogRepository) FindVenueByName(ctx context.Context, name string) (models.Venue, error) {
	var v models.Venue
	err := r.db.QueryRowContext(ctx, `SELECT id, name, active FROM venues WHERE name = ?`, name).
		Scan(&v.ID, &v.Name, &v.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Venue{}, ErrNotFound
	}
	if err != nil {
		return models.Venue{}, fmt.Errorf("query FindVenueByName: %w", err)
	}
	return v, nil
}

func (r *CatalogRepository) CreateVenue(ctx context.Context, v *models.Venue) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO venues (name, active) VALUES (?, ?)`, v.Name, boolToInt(v.Active))
	if err != nil {
		return fmt.Errorf("insert venue: %w", err)
	}
	v.ID, err = res.LastInsertId()
	return err
}

func (r *CatalogRepository) UpdateVenue(ctx context.Context, v models.Venue) error {
	res, err := r.db.ExecContext(ctx, `UPDATE venues SET name = ?, active = ? WHERE id = ?`, v.Name, boolToInt(v.Active), v.ID)
	if err != nil {
		return fmt.Errorf("update venue: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *CatalogRepository) DeleteVenue(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM venues WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete venue: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// --- cafeterias ---

const cafeteriaSelect = `
	SELECT c.id, c.venue_id, v.name, c.name, c.location, c.active
	FROM cafeterias AS c
	JOIN venues AS v ON v.id = c.venue_id`

func scanCafeteria(s interface{ Scan(...any) error }) (models.Cafeteria, error) {
	var c models.Cafeteria
	err := s.Scan(&c.ID, &c.VenueID, &c.VenueName, &c.Name, &c.Location, &c.Active)
	return c, err
}

func (r *CatalogRepository) ListCafeterias(ctx context.Context, activeOnly bool) ([]models.Cafeteria, error) {
	query := cafeteriaSelect + activeClause(activeOnly, "c.active") + ` ORDER BY v.name, c.name, c.id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ListCafeterias: %w", err)
	}
	defer rows.Close()

	var out []models.Cafeteria
	for rows.Next() {
		c, err := scanCafeteria(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ListCafeterias row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListCafeterias: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) GetCafeteria(ctx context.Context, id int64) (models.Cafeteria, error) {
	c, err := scanCafeteria(r.db.QueryRowContext(ctx, cafeteriaSelect+` WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Cafeteria{}, ErrNotFound
	}
	if err != nil {
		return models.Cafeteria{}, fmt.Errorf("query GetCafeteria: %w", err)
	}
	return c, nil
}

func (r *CatalogRepository) FindCafeteria(ctx context.Context, venueID int64, name string) (models.Cafeteria, error) {
	c, err := scanCafeteria(r.db.QueryRowContext(ctx, cafeteriaSelect+` WHERE c.venue_id = ? AND c.name = ?`, venueID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Cafeteria{}, ErrNotFound
	}
	if err != nil {
		return models.Cafeteria{}, fmt.Errorf("query FindCafeteria: %w", err)
	}
	return c, nil
}

func (r *CatalogRepository) CreateCafeteria(ctx context.Context, c *models.Cafeteria) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cafeterias (venue_id, name, location, active) VALUES (?, ?, ?, ?)`,
		c.VenueID, c.Name, c.Location, boolToInt(c.Active))
	if err != nil {
		return fmt.Errorf("insert cafeteria: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (r *CatalogRepository) UpdateCafeteria(ctx context.Context, c models.Cafeteria) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cafeterias SET venue_id = ?, name = ?, location = ?, active = ? WHERE id = ?`,
		c.VenueID, c.Name, c.Location, boolToInt(c.Active), c.ID)
	if err != nil {
		return fmt.Errorf("update cafeteria: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *CatalogRepository) DeleteCafeteria(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cafeterias WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete cafeteria: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// --- shifts ---

const shiftSelect = `SELECT id, name, mode, start_time, end_time, active FROM shifts`

func scanShift(s interface{ Scan(...any) error }) (models.Shift, error) {
	var (
		sh         models.Shift
		mode       string
		start, end sql.NullString
	)
	if err := s.Scan(&sh.ID, &sh.Name, &mode, &start, &end, &sh.Active); err != nil {
		return models.Shift{}, err
	}
	sh.Mode = models.ShiftMode(mode)

	var err error
	if sh.Start, err = timeOfDayPtr(start); err != nil {
		return models.Shift{}, err
	}
	if sh.End, err = timeOfDayPtr(end); err != nil {
		return models.Shift{}, err
	}
	return sh, nil
}

// ListShifts returns shifts ordered by name.
func (r *CatalogRepository) ListShifts(ctx context.Context, activeOnly bool) ([]models.Shift, error) {
	query := shiftSelect + activeClause(activeOnly, "active") + ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ListShifts: %w", err)
	}
	defer rows.Close()

	var out []models.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ListShifts row: %w", err)
		}
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListShifts: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) GetShift(ctx context.Context, id int64) (models.Shift, error) {
	sh, err := scanShift(r.db.QueryRowContext(ctx, shiftSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Shift{}, ErrNotFound
	}
	if err != nil {
		return models.Shift{}, fmt.Errorf("query GetShift: %w", err)
	}
	return sh, nil
}

func (r *CatalogRepository) FindShiftByName(ctx context.Context, name string) (models.Shift, error) {
	sh, err := scanShift(r.db.QueryRowContext(ctx, shiftSelect+` WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Shift{}, ErrNotFound
	}
	if err != nil {
		return models.Shift{}, fmt.Errorf("query FindShiftByName: %w", err)
	}
	return sh, nil
}

func (r *CatalogRepository) CreateShift(ctx context.Context, sh *models.Shift) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO shifts (name, mode, start_time, end_time, active) VALUES (?, ?, ?, ?, ?)`,
		sh.Name, string(sh.Mode), nullTimeOfDay(sh.Start), nullTimeOfDay(sh.End), boolToInt(sh.Active))
	if err != nil {
		return fmt.Errorf("insert shift: %w", err)
	}
	sh.ID, err = res.LastInsertId()
	return err
}

func (r *CatalogRepository) UpdateShift(ctx context.Context, sh models.Shift) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shifts SET name = ?, mode = ?, start_time = ?, end_time = ?, active = ? WHERE id = ?`,
		sh.Name, string(sh.Mode), nullTimeOfDay(sh.Start), nullTimeOfDay(sh.End), boolToInt(sh.Active), sh.ID)
	if err != nil {
		return fmt.Errorf("update shift: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// DeleteShift removes a shift; capture point defaults and responses that
// referenced it are set to NULL by the schema.
func (r *CatalogRepository) DeleteShift(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shifts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shift: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// --- capture points ---

const capturePointSelect = `
	SELECT p.id, p.identifier, p.cafeteria_id, p.default_shift_id, p.active,
		c.id, c.venue_id, v.name, c.name, c.location, c.active,
		s.id, s.name, s.mode, s.start_time, s.end_time, s.active
	FROM capture_points AS p
	JOIN cafeterias AS c ON c.id = p.cafeteria_id
	JOIN venues AS v ON v.id = c.venue_id
	LEFT JOIN shifts AS s ON s.id = p.default_shift_id`

func scanCapturePoint(s interface{ Scan(...any) error }) (models.CapturePoint, error) {
	var (
		p              models.CapturePoint
		c              models.Cafeteria
		defaultShiftID sql.NullInt64
		shID           sql.NullInt64
		shName, shMode sql.NullString
		shStart, shEnd sql.NullString
		shActive       sql.NullBool
	)
	err := s.Scan(&p.ID, &p.Identifier, &p.CafeteriaID, &defaultShiftID, &p.Active,
		&c.ID, &c.VenueID, &c.VenueName, &c.Name, &c.Location, &c.Active,
		&shID, &shName, &shMode, &shStart, &shEnd, &shActive)
	if err != nil {
		return models.CapturePoint{}, err
	}
	p.DefaultShiftID = int64Ptr(defaultShiftID)
	p.Cafeteria = &c

	if shID.Valid {
		sh := models.Shift{
			ID:     shID.Int64,
			Name:   shName.String,
			Mode:   models.ShiftMode(shMode.String),
			Active: shActive.Bool,
		}
		if sh.Start, err = timeOfDayPtr(shStart); err != nil {
			return models.CapturePoint{}, err
		}
		if sh.End, err = timeOfDayPtr(shEnd); err != nil {
			return models.CapturePoint{}, err
		}
		p.DefaultShift = &sh
	}
	return p, nil
}

func (r *CatalogRepository) ListCapturePoints(ctx context.Context, activeOnly bool) ([]models.CapturePoint, error) {
	query := capturePointSelect + activeClause(activeOnly, "p.active") + ` ORDER BY p.identifier`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ListCapturePoints: %w", err)
	}
	defer rows.Close()

	var out []models.CapturePoint
	for rows.Next() {
		p, err := scanCapturePoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ListCapturePoints row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListCapturePoints: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) GetCapturePoint(ctx context.Context, id int64) (models.CapturePoint, error) {
	p, err := scanCapturePoint(r.db.QueryRowContext(ctx, capturePointSelect+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.CapturePoint{}, ErrNotFound
	}
	if err != nil {
		return models.CapturePoint{}, fmt.Errorf("query GetCapturePoint: %w", err)
	}
	return p, nil
}

// GetCapturePointByIdentifier loads a capture point with its cafeteria,
// venue and default shift, regardless of the active flag.
func (r *CatalogRepository) GetCapturePointByIdentifier(ctx context.Context, identifier string) (models.CapturePoint, error) {
	p, err := scanCapturePoint(r.db.QueryRowContext(ctx, capturePointSelect+` WHERE p.identifier = ?`, identifier))
	if errors.Is(err, sql.ErrNoRows) {
		return models.CapturePoint{}, ErrNotFound
	}
	if err != nil {
		return models.CapturePoint{}, fmt.Errorf("query GetCapturePointByIdentifier: %w", err)
	}
	return p, nil
}

func (r *CatalogRepository) CreateCapturePoint(ctx context.Context, p *models.CapturePoint) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO capture_points (identifier, cafeteria_id, default_shift_id, active) VALUES (?, ?, ?, ?)`,
		p.Identifier, p.CafeteriaID, nullInt64(p.DefaultShiftID), boolToInt(p.Active))
	if err != nil {
		return fmt.Errorf("insert capture point: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (r *CatalogRepository) UpdateCapturePoint(ctx context.Context, p models.CapturePoint) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE capture_points SET identifier = ?, cafeteria_id = ?, default_shift_id = ?, active = ? WHERE id = ?`,
		p.Identifier, p.CafeteriaID, nullInt64(p.DefaultShiftID), boolToInt(p.Active), p.ID)
	if err != nil {
		return fmt.Errorf("update capture point: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *CatalogRepository) DeleteCapturePoint(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM capture_points WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete capture point: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// --- survey configuration ---

const surveyConfigSelect = `
	SELECT id, name, welcome_text, instructions_text, thanks_text, open_question_enabled
	FROM survey_configs WHERE name = ?`

func scanSurveyConfig(s interface{ Scan(...any) error }) (models.SurveyConfig, error) {
	var c models.SurveyConfig
	err := s.Scan(&c.ID, &c.Name, &c.WelcomeText, &c.InstructionsText, &c.ThanksText, &c.OpenQuestionEnabled)
	return c, err
}

// GetOrCreateSurveyConfig returns the named configuration, inserting
// defaults first if it is absent. The existence check and insert share a
// transaction.
func (r *CatalogRepository) GetOrCreateSurveyConfig(ctx context.Context, defaults models.SurveyConfig) (models.SurveyConfig, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.SurveyConfig{}, fmt.Errorf("begin GetOrCreateSurveyConfig: %w", err)
	}
	defer tx.Rollback()

	cfg, err := scanSurveyConfig(tx.QueryRowContext(ctx, surveyConfigSelect, defaults.Name))
	switch {
	case err == nil:
		return cfg, tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return models.SurveyConfig{}, fmt.Errorf("query survey config: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO survey_configs (name, welcome_text, instructions_text, thanks_text, open_question_enabled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING`,
		defaults.Name, defaults.WelcomeText, defaults.InstructionsText, defaults.ThanksText,
		boolToInt(defaults.OpenQuestionEnabled))
	if err != nil {
		return models.SurveyConfig{}, fmt.Errorf("insert survey config: %w", err)
	}

	cfg, err = scanSurveyConfig(tx.QueryRowContext(ctx, surveyConfigSelect, defaults.Name))
	if err != nil {
		return models.SurveyConfig{}, fmt.Errorf("reload survey config: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.SurveyConfig{}, fmt.Errorf("commit survey config: %w", err)
	}
	return cfg, nil
}

func (r *CatalogRepository) UpdateSurveyConfig(ctx context.Context, cfg models.SurveyConfig) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE survey_configs
		SET welcome_text = ?, instructions_text = ?, thanks_text = ?, open_question_enabled = ?
		WHERE name = ?`,
		cfg.WelcomeText, cfg.InstructionsText, cfg.ThanksText, boolToInt(cfg.OpenQuestionEnabled), cfg.Name)
	if err != nil {
		return fmt.Errorf("update survey config: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}
