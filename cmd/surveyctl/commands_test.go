package main

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/pkg/database"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSurveyctl(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "encuestas.db")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("APP_ENV", "production")

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Esquema actualizado.")

	out, err = run(t, "seed-demo")
	require.NoError(t, err)
	assert.Contains(t, out, "Datos de prueba cargados correctamente.")

	out, err = run(t, "generate-dataset", "--total", "1200", "--seed", "7", "--year", "2026")
	require.NoError(t, err)
	assert.Contains(t, out, "Insertadas 1000 / 1200 respuestas...")
	assert.Contains(t, out, "Insertadas: 1200")

	out, err = run(t, "create-staff", "--username", "supervisora", "--password", "clave-segura")
	require.NoError(t, err)
	assert.Contains(t, out, `Usuario "supervisora" listo.`)

	_, err = run(t, "create-staff", "--username", "sin-clave")
	assert.Error(t, err)

	out, err = run(t, "reset-responses", "--year", "2026")
	require.NoError(t, err)
	assert.Contains(t, out, "Respuestas 2026 eliminadas: 1200")

	db, err := database.New(database.WithDataSource("file:"+dbPath+"?_foreign_keys=on"), database.WithRetry(1, 0))
	require.NoError(t, err)
	defer db.Close()
	assertStore(t, db)
}

func assertStore(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()

	n, err := repository.NewResponseRepository(db).Count(ctx, models.ResponseFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)

	points, err := repository.NewCatalogRepository(db).ListCapturePoints(ctx, true)
	require.NoError(t, err)
	assert.Len(t, points, 17, "2 demo tablets plus 15 dataset tablets")

	u, err := repository.NewStaffRepository(db).GetStaffByUsername(ctx, "supervisora")
	require.NoError(t, err)
	assert.True(t, u.Active)
}
