package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
)

const (
	sessionKeyPrefix   = "session:"
	msgPasswordTooLong = "La contraseña no puede superar 72 bytes."
)

// Session is the record kept in the session store for a logged-in staff user.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService is the staff gate. A caller is authorized when it presents a
// valid signed token whose session still exists in the store.
type AuthService struct {
	staff    StaffRepository
	sessions SessionStore
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewAuthService(staff StaffRepository, sessions SessionStore, secret []byte, ttl time.Duration, logger *zap.Logger) *AuthService {
	if staff == nil || sessions == nil {
		panic("auth dependencies must not be nil")
	}
	if len(secret) == 0 {
		panic("auth secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		staff:    staff,
		sessions: sessions,
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

// Login checks the credentials of an active staff user and opens a session.
// It returns the signed token to hand back to the client.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", Session{}, ErrUnauthorized
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	user, err := s.staff.GetStaffByUsername(dbCtx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return "", Session{}, ErrUnauthorized
	}
	if err != nil {
		return "", Session{}, storageFailure(err)
	}
	if !user.Active {
		return "", Session{}, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", Session{}, ErrUnauthorized
	}

	now := s.now()
	sess := Session{
		ID:        uuid.NewString(),
		Username:  user.Username,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Set(ctx, sessionKeyPrefix+sess.ID, sess, s.ttl); err != nil {
		return "", Session{}, fmt.Errorf("store session: %w", err)
	}

	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   sess.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}

	s.logger.Info("staff login", zap.String("username", sess.Username))
	return token, sess, nil
}

func (s *AuthService) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.ID == "" {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Authenticate resolves a token to its live session. The staff user must
// still exist and be active.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrUnauthorized
	}
	claims, err := s.parse(token)
	if err != nil {
		return Session{}, err
	}

	var sess Session
	if err := s.sessions.Get(ctx, sessionKeyPrefix+claims.ID, &sess); err != nil {
		s.logger.Debug("session lookup failed", zap.String("sid", claims.ID), zap.Error(err))
		return Session{}, ErrUnauthorized
	}
	if sess.Username != claims.Subject {
		return Session{}, ErrUnauthorized
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	user, err := s.staff.GetStaffByUsername(dbCtx, sess.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrUnauthorized
	}
	if err != nil {
		return Session{}, storageFailure(err)
	}
	if !user.Active {
		s.logger.Info("session of inactive staff rejected", zap.String("username", user.Username))
		return Session{}, ErrUnauthorized
	}
	return sess, nil
}

// Logout removes the session behind token. Invalid tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionKeyPrefix+claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CreateStaff creates a staff user or resets the password of an existing one.
func (s *AuthService) CreateStaff(ctx context.Context, username, password string) (models.StaffUser, error) {
	username = strings.TrimSpace(username)

	var verr ValidationError
	requireName(&verr, "username", username)
	switch {
	case password == "":
		verr.Add("password", msgRequired)
	case len(password) > 72:
		verr.Add("password", msgPasswordTooLong)
	}
	if err := verr.OrNil(); err != nil {
		return models.StaffUser{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.StaffUser{}, fmt.Errorf("hash password: %w", err)
	}

	u := models.StaffUser{Username: username, PasswordHash: string(hash), Active: true, CreatedAt: s.now()}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.staff.UpsertStaff(dbCtx, &u); err != nil {
		return models.StaffUser{}, storageFailure(err)
	}
	return u, nil
}
