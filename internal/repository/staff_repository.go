package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
)

type StaffRepository struct {
	db *sql.DB
}

func NewStaffRepository(db *sql.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) GetStaffByUsername(ctx context.Context, username string) (models.StaffUser, error) {
	var (
		u       models.StaffUser
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, active, created_at FROM staff_users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Active, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StaffUser{}, ErrNotFound
	}
	if err != nil {
		return models.StaffUser{}, fmt.Errorf("query GetStaffByUsername: %w", err)
	}
	if u.CreatedAt, err = parseTimestamp(created); err != nil {
		return models.StaffUser{}, err
	}
	return u, nil
}

// UpsertStaff creates the user or replaces the password hash and active flag
// of an existing one.
func (r *StaffRepository) UpsertStaff(ctx context.Context, u *models.StaffUser) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO staff_users (username, password_hash, active, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			password_hash = excluded.password_hash,
			active = excluded.active`,
		u.Username, u.PasswordHash, boolToInt(u.Active), formatTimestamp(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert staff: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, `SELECT id FROM staff_users WHERE username = ?`, u.Username).Scan(&u.ID); err != nil {
		return fmt.Errorf("reload staff id: %w", err)
	}
	return nil
}
