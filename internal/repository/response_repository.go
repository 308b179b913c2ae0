package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
)

// ResponseRepository reads and writes survey responses. Every report query
// is built from one ResponseFilter through buildResponseWhere.
type ResponseRepository struct {
	db *sql.DB
	q  querier
}

func NewResponseRepository(db *sql.DB) *ResponseRepository {
	return &ResponseRepository{db: db, q: db}
}

// ResponseReader is the read side of ResponseRepository. It is bound either
// to the pool or to a Snapshot transaction.
type ResponseReader interface {
	Count(ctx context.Context, f models.ResponseFilter) (int64, error)
	Averages(ctx context.Context, f models.ResponseFilter) (models.RatingAverages, error)
	RankingByCafeteria(ctx context.Context, f models.ResponseFilter) ([]models.CafeteriaRanking, error)
	CommentedResponses(ctx context.Context, f models.ResponseFilter) ([]models.ResponseRow, error)
	StreamResponses(ctx context.Context, f models.ResponseFilter, commentedOnly bool, fn func(models.ResponseRow) error) error
}

// Snapshot runs fn against a reader bound to a single read transaction, so
// every query fn issues observes the same data.
func (r *ResponseRepository) Snapshot(ctx context.Context, fn func(ResponseReader) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&ResponseRepository{db: r.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// buildResponseWhere turns a filter into a WHERE clause over the alias "r".
func buildResponseWhere(f models.ResponseFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.VenueID != nil {
		conds = append(conds, "r.venue_id = ?")
		args = append(args, *f.VenueID)
	}
	if f.CafeteriaID != nil {
		conds = append(conds, "r.cafeteria_id = ?")
		args = append(args, *f.CafeteriaID)
	}
	switch f.Shift.Kind {
	case models.NoShift:
		conds = append(conds, "r.shift_id IS NULL")
	case models.SpecificShift:
		conds = append(conds, "r.shift_id = ?")
		args = append(args, f.Shift.ShiftID)
	}
	if f.From != nil {
		conds = append(conds, "r.registered_at >= ?")
		args = append(args, formatTimestamp(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "r.registered_at < ?")
		args = append(args, formatTimestamp(*f.To))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *ResponseRepository) Count(ctx context.Context, f models.ResponseFilter) (int64, error) {
	where, args := buildResponseWhere(f)

	var n int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM survey_responses AS r`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("query Count: %w", err)
	}
	return n, nil
}

// Averages returns nil means when no response matches the filter.
func (r *ResponseRepository) Averages(ctx context.Context, f models.ResponseFilter) (models.RatingAverages, error) {
	where, args := buildResponseWhere(f)
	query := `
		SELECT AVG(r.overall_satisfaction), AVG(r.food_quality), AVG(r.menu_variety),
			AVG(r.cleanliness), AVG(r.queue_time)
		FROM survey_responses AS r` + where

	var sat, food, variety, clean, queue sql.NullFloat64
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&sat, &food, &variety, &clean, &queue); err != nil {
		return models.RatingAverages{}, fmt.Errorf("query Averages: %w", err)
	}

	return models.RatingAverages{
		OverallSatisfaction: floatPtr(sat),
		FoodQuality:         floatPtr(food),
		MenuVariety:         floatPtr(variety),
		Cleanliness:         floatPtr(clean),
		QueueTime:           floatPtr(queue),
	}, nil
}

// RankingByCafeteria groups matching responses per cafeteria. Only
// cafeterias with at least one match appear.
func (r *ResponseRepository) RankingByCafeteria(ctx context.Context, f models.ResponseFilter) ([]models.CafeteriaRanking, error) {
	where, args := buildResponseWhere(f)
	query := `
		SELECT c.id, c.name, v.name, AVG(r.overall_satisfaction) AS avg_sat, COUNT(r.id) AS total
		FROM survey_responses AS r
		JOIN cafeterias AS c ON c.id = r.cafeteria_id
		JOIN venues AS v ON v.id = c.venue_id` + where + `
		GROUP BY c.id, c.name, v.name
		ORDER BY avg_sat DESC, total DESC, c.name ASC, c.id ASC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query RankingByCafeteria: %w", err)
	}
	defer rows.Close()

	var out []models.CafeteriaRanking
	for rows.Next() {
		var row models.CafeteriaRanking
		if err := rows.Scan(&row.CafeteriaID, &row.CafeteriaName, &row.VenueName, &row.AverageSatisfaction, &row.ResponseCount); err != nil {
			return nil, fmt.Errorf("scan RankingByCafeteria row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate RankingByCafeteria: %w", err)
	}
	return out, nil
}

// StreamResponses calls fn for every matching response, newest first. When
// commentedOnly is set, responses with an empty comment are skipped.
func (r *ResponseRepository) StreamResponses(ctx context.Context, f models.ResponseFilter, commentedOnly bool, fn func(models.ResponseRow) error) error {
	where, args := buildResponseWhere(f)
	if commentedOnly {
		if where == "" {
			where = " WHERE r.comment <> ''"
		} else {
			where += " AND r.comment <> ''"
		}
	}
	query := `
		SELECT r.id, r.registered_at, v.name, c.name, COALESCE(s.name, ''),
			r.overall_satisfaction, r.food_quality, r.menu_variety, r.cleanliness, r.queue_time,
			r.comment
		FROM survey_responses AS r
		JOIN venues AS v ON v.id = r.venue_id
		JOIN cafeterias AS c ON c.id = r.cafeteria_id
		LEFT JOIN shifts AS s ON s.id = r.shift_id` + where + `
		ORDER BY r.registered_at DESC, r.id DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query StreamResponses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			row models.ResponseRow
			ts  string
		)
		err := rows.Scan(&row.ID, &ts, &row.VenueName, &row.CafeteriaName, &row.ShiftName,
			&row.OverallSatisfaction, &row.FoodQuality, &row.MenuVariety, &row.Cleanliness, &row.QueueTime,
			&row.Comment)
		if err != nil {
			return fmt.Errorf("scan StreamResponses row: %w", err)
		}
		if row.RegisteredAt, err = parseTimestamp(ts); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate StreamResponses: %w", err)
	}
	return nil
}

func (r *ResponseRepository) CommentedResponses(ctx context.Context, f models.ResponseFilter) ([]models.ResponseRow, error) {
	var out []models.ResponseRow
	err := r.StreamResponses(ctx, f, true, func(row models.ResponseRow) error {
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

const insertResponseSQL = `
	INSERT INTO survey_responses (
		venue_id, cafeteria_id, shift_id, registered_at,
		overall_satisfaction, food_quality, menu_variety, cleanliness, queue_time, comment
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertArgs(resp *models.SurveyResponse) []any {
	return []any{
		resp.VenueID, resp.CafeteriaID, nullInt64(resp.ShiftID), formatTimestamp(resp.RegisteredAt),
		resp.OverallSatisfaction, resp.FoodQuality, resp.MenuVariety, resp.Cleanliness, resp.QueueTime,
		resp.Comment,
	}
}

// InsertResponse writes one response in its own transaction. RegisteredAt is
// set to now when zero.
func (r *ResponseRepository) InsertResponse(ctx context.Context, resp *models.SurveyResponse) error {
	if resp.RegisteredAt.IsZero() {
		resp.RegisteredAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin InsertResponse: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, insertResponseSQL, insertArgs(resp)...)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert response id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit InsertResponse: %w", err)
	}
	resp.ID = id
	return nil
}

// InsertResponsesBatch writes all responses in a single transaction.
func (r *ResponseRepository) InsertResponsesBatch(ctx context.Context, batch []models.SurveyResponse) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin InsertResponsesBatch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertResponseSQL)
	if err != nil {
		return fmt.Errorf("prepare InsertResponsesBatch: %w", err)
	}
	defer stmt.Close()

	for i := range batch {
		if _, err := stmt.ExecContext(ctx, insertArgs(&batch[i])...); err != nil {
			return fmt.Errorf("insert batch row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// DeleteResponsesBetween removes responses registered in [from, to).
func (r *ResponseRepository) DeleteResponsesBetween(ctx context.Context, from, to time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM survey_responses WHERE registered_at >= ? AND registered_at < ?`,
		formatTimestamp(from), formatTimestamp(to))
	if err != nil {
		return 0, fmt.Errorf("delete responses: %w", err)
	}
	return res.RowsAffected()
}
