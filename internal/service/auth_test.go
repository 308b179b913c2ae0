package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service/mocks"
)

func newStaffRepo() *mocks.MockStaffRepository {
	users := map[string]models.StaffUser{}
	return &mocks.MockStaffRepository{
		GetStaffByUsernameFunc: func(ctx context.Context, username string) (models.StaffUser, error) {
			u, ok := users[username]
			if !ok {
				return models.StaffUser{}, repository.ErrNotFound
			}
			return u, nil
		},
		UpsertStaffFunc: func(ctx context.Context, u *models.StaffUser) error {
			u.ID = int64(len(users) + 1)
			users[u.Username] = *u
			return nil
		},
	}
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	sessions := mocks.NewMemorySessionStore()
	staff := newStaffRepo()
	secret := []byte("test-secret")

	s := NewAuthService(staff, sessions, secret, time.Hour, zap.NewNop())
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, err := s.CreateStaff(ctx, "supervisora", "clave-segura")
	require.NoError(t, err)

	t.Run("login opens a session", func(t *testing.T) {
		token, sess, err := s.Login(ctx, "supervisora", "clave-segura")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)
		assert.Equal(t, time.Hour, sessions.TTLs[sessionKeyPrefix+sess.ID])

		got, err := s.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "supervisora", got.Username)
	})

	t.Run("bad credentials", func(t *testing.T) {
		for _, c := range [][2]string{{"supervisora", "otra"}, {"nadie", "clave-segura"}, {"", ""}} {
			_, _, err := s.Login(ctx, c[0], c[1])
			assert.ErrorIs(t, err, ErrUnauthorized)
		}
	})

	t.Run("inactive staff cannot log in", func(t *testing.T) {
		u, err := s.CreateStaff(ctx, "ex", "clave")
		require.NoError(t, err)
		u.Active = false
		require.NoError(t, staff.UpsertStaff(ctx, &u))

		_, _, err = s.Login(ctx, "ex", "clave")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("deactivated staff loses open sessions", func(t *testing.T) {
		u, err := s.CreateStaff(ctx, "turnante", "clave")
		require.NoError(t, err)
		token, _, err := s.Login(ctx, "turnante", "clave")
		require.NoError(t, err)
		_, err = s.Authenticate(ctx, token)
		require.NoError(t, err)

		u.Active = false
		require.NoError(t, staff.UpsertStaff(ctx, &u))
		_, err = s.Authenticate(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("staff lookup failure is not an auth failure", func(t *testing.T) {
		token, _, err := s.Login(ctx, "supervisora", "clave-segura")
		require.NoError(t, err)

		broken := *s
		broken.staff = &mocks.MockStaffRepository{
			GetStaffByUsernameFunc: func(ctx context.Context, username string) (models.StaffUser, error) {
				return models.StaffUser{}, errors.New("disk I/O error")
			},
		}
		_, err = broken.Authenticate(ctx, token)
		assert.ErrorIs(t, err, ErrStorageFailure)
	})

	t.Run("logout removes the session", func(t *testing.T) {
		token, _, err := s.Login(ctx, "supervisora", "clave-segura")
		require.NoError(t, err)

		require.NoError(t, s.Logout(ctx, token))
		_, err = s.Authenticate(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		token, _, err := s.Login(ctx, "supervisora", "clave-segura")
		require.NoError(t, err)

		later := *s
		later.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err = later.Authenticate(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("tampered and foreign tokens", func(t *testing.T) {
		token, _, err := s.Login(ctx, "supervisora", "clave-segura")
		require.NoError(t, err)

		_, err = s.Authenticate(ctx, token[:len(token)-2]+"xx")
		assert.ErrorIs(t, err, ErrUnauthorized)

		other := NewAuthService(staff, sessions, []byte("other"), time.Hour, nil)
		other.now = s.now
		_, err = other.Authenticate(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthorized)

		none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: "x", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))})
		unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = s.Authenticate(ctx, unsigned)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("session store failure on login", func(t *testing.T) {
		broken := NewAuthService(staff, &mocks.MockSessionStore{
			SetFunc: func(ctx context.Context, key string, value any, expiration time.Duration) error {
				return errors.New("redis: connection refused")
			},
		}, secret, time.Hour, nil)

		_, _, err := broken.Login(ctx, "supervisora", "clave-segura")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("create staff validation", func(t *testing.T) {
		_, err := s.CreateStaff(ctx, " ", "")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "username")
		assert.Contains(t, verr.Fields, "password")

		_, err = s.CreateStaff(ctx, "larga", strings.Repeat("a", 73))
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "password")
	})
}

func TestSurveyConfigService(t *testing.T) {
	ctx := context.Background()

	t.Run("update validates and keeps identity", func(t *testing.T) {
		var stored models.SurveyConfig
		repo := &mocks.MockSurveyConfigRepository{
			UpdateSurveyConfigFunc: func(ctx context.Context, cfg models.SurveyConfig) error {
				stored = cfg
				return nil
			},
		}
		s := NewSurveyConfigService(repo, zap.NewNop())

		_, err := s.Update(ctx, models.SurveyConfig{WelcomeText: "Hola"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Fields, 2)

		got, err := s.Update(ctx, models.SurveyConfig{Name: "otra", WelcomeText: "Hola", InstructionsText: "1 a 5", ThanksText: "Gracias"})
		require.NoError(t, err)
		assert.Equal(t, models.MainSurveyConfigName, got.Name)
		assert.Equal(t, int64(1), stored.ID)
	})

	t.Run("a canceled caller does not fail the shared load", func(t *testing.T) {
		repo := &mocks.MockSurveyConfigRepository{
			GetOrCreateSurveyConfigFunc: func(ctx context.Context, d models.SurveyConfig) (models.SurveyConfig, error) {
				if err := ctx.Err(); err != nil {
					return models.SurveyConfig{}, err
				}
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				d.ID = 1
				return d, nil
			},
		}
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		cfg, err := NewSurveyConfigService(repo, nil).Get(canceled)
		require.NoError(t, err)
		assert.Equal(t, int64(1), cfg.ID)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := &mocks.MockSurveyConfigRepository{
			GetOrCreateSurveyConfigFunc: func(ctx context.Context, d models.SurveyConfig) (models.SurveyConfig, error) {
				return models.SurveyConfig{}, errors.New("disk full")
			},
		}
		err := NewSurveyConfigService(repo, nil).Ensure(ctx)
		assert.ErrorIs(t, err, ErrStorageFailure)
	})
}
