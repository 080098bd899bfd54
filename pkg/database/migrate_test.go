package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreVersioned(t *testing.T) {
	goose.SetBaseFS(migrations)
	t.Cleanup(func() { goose.SetBaseFS(nil) })

	collected, err := goose.CollectMigrations(migrationsDir, 0, goose.MaxVersion)
	require.NoError(t, err)
	require.NotEmpty(t, collected)
	for i := 1; i < len(collected); i++ {
		assert.Greater(t, collected[i].Version, collected[i-1].Version)
	}

	files, err := fs.Glob(migrations, migrationsDir+"/*.sql")
	require.NoError(t, err)
	for _, name := range files {
		raw, err := fs.ReadFile(migrations, name)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "-- +goose Up", name)
		assert.Contains(t, string(raw), "-- +goose Down", name)
	}
}

func TestInitialMigrationCreatesRosterTables(t *testing.T) {
	raw, err := fs.ReadFile(migrations, migrationsDir+"/00001_roster_schema.sql")
	require.NoError(t, err)
	up := strings.SplitN(string(raw), "-- +goose Down", 2)[0]
	for _, table := range []string{"students", "classes", "class_students", "attendance_records", "attendance_presences", "allowed_users"} {
		assert.Contains(t, up, "CREATE TABLE "+table+" (", table)
	}
}

func stubGooseUp(t *testing.T, fn func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error) {
	t.Helper()
	original := gooseUp
	gooseUp = fn
	t.Cleanup(func() {
		gooseUp = original
		goose.SetBaseFS(nil)
	})
}

func TestMigrateRunsEmbeddedDirectory(t *testing.T) {
	raw, _, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "sqlmock")

	var gotDir string
	var gotDB *sql.DB
	stubGooseUp(t, func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDB, gotDir = db, dir
		return nil
	})

	require.NoError(t, Migrate(context.Background(), db))
	assert.Equal(t, migrationsDir, gotDir)
	assert.Same(t, raw, gotDB)
}

func TestMigrateWrapsFailure(t *testing.T) {
	raw, _, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()

	stubGooseUp(t, func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("permission denied")
	})

	err = Migrate(context.Background(), sqlx.NewDb(raw, "sqlmock"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate database: permission denied")
}
