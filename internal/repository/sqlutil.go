package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("record not found")

// timestampLayout is fixed width so that lexical order in SQLite equals time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(v string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return t, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullTimeOfDay(v *models.TimeOfDay) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

func timeOfDayPtr(v sql.NullString) (*models.TimeOfDay, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := models.ParseTimeOfDay(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func rowsAffectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type ConstraintKind int

const (
	ConstraintUnique ConstraintKind = iota + 1
	ConstraintForeignKey
	ConstraintCheck
	ConstraintNotNull
)

// ConstraintViolation describes a store-level integrity error.
type ConstraintViolation struct {
	Kind ConstraintKind
	// Columns are the bare column names SQLite reported, if any.
	Columns []string
}

// AsConstraintViolation classifies err as an SQLite constraint failure.
func AsConstraintViolation(err error) (ConstraintViolation, bool) {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return ConstraintViolation{}, false
	}

	cv := ConstraintViolation{Columns: constraintColumns(se.Error())}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		cv.Kind = ConstraintUnique
	case sqlite3.ErrConstraintForeignKey:
		cv.Kind = ConstraintForeignKey
	case sqlite3.ErrConstraintCheck:
		cv.Kind = ConstraintCheck
	case sqlite3.ErrConstraintNotNull:
		cv.Kind = ConstraintNotNull
	default:
		cv.Kind = ConstraintCheck
	}
	return cv, true
}

// constraintColumns parses "UNIQUE constraint failed: cafeterias.venue_id, cafeterias.name".
func constraintColumns(msg string) []string {
	_, list, ok := strings.Cut(msg, "failed: ")
	if !ok {
		return nil
	}
	var cols []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if i := strings.LastIndex(part, "."); i >= 0 {
			part = part[i+1:]
		}
		if part != "" {
			cols = append(cols, part)
		}
	}
	return cols
}
