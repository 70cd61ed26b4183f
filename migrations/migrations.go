// Package migrations embeds the schema of every supported database.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/alexivanou/georef/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS // nolint:gochecknoglobals

// New returns a migrator bound to db. The caller must not Close it while db is
// still in use since that closes the database too.
func New(db *sql.DB, dbType config.DBType) (*migrate.Migrate, error) {
	dir, name := "postgres", "postgres"
	if dbType == config.DBTypeMemory || dbType == config.DBTypeSQLite {
		dir, name = "sqlite", "sqlite3"
	}

	src, err := iofs.New(files, dir)
	if err != nil {
		return nil, fmt.Errorf("could not open embedded migrations: %w", err)
	}

	var driver database.Driver
	if name == "sqlite3" {
		// Use driver instance directly to avoid DSN parsing issues with in-memory SQLite
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	} else {
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("could not create %s driver: %w", name, err)
	}

	return migrate.NewWithInstance("iofs", src, name, driver)
}

// Up applies every pending migration.
func Up(db *sql.DB, dbType config.DBType) error {
	m, err := New(db, dbType)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}
