package store

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

// migrationsDir is the default migration path, relative to the repo root
// the binaries run from.
const migrationsDir = "internal/store/migrations"

// Migrate brings the schema up to date from the checked-in migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	return MigrateDir(ctx, db, migrationsDir)
}

// MigrateDir is Migrate with an explicit migration directory, for tests
// that run from a package working directory.
func MigrateDir(ctx context.Context, db *sql.DB, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	goose.SetTableName("schema_migrations")
	return goose.UpContext(ctx, db, dir)
}
