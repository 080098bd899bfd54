package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// gooseUp is swapped in tests.
var gooseUp = goose.UpContext

// Migrate applies the embedded migrations that are newer than the version recorded in the
// goose_db_version table.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := gooseUp(ctx, db.DB, migrationsDir); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
