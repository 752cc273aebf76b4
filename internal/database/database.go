// Package database owns the SQL schema and applies it with golang-migrate
// from migrations embedded in the binary.
package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Direction selects which way migrations are applied.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ErrInvalidDirection is returned for anything other than Up or Down.
var ErrInvalidDirection = errors.New("database: direction must be up or down")

// Migrate applies the embedded migrations to the database at dsn. Being
// already at the target version is not an error.
func Migrate(dsn string, dir Direction) error {
	if dir != Up && dir != Down {
		return ErrInvalidDirection
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("failed to close migrator", "source_error", srcErr, "db_error", dbErr)
		}
	}()

	if dir == Up {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, vErr := m.Version()
	if vErr == nil {
		slog.Info("database migrated", "direction", string(dir), "version", version, "dirty", dirty)
	}

	return nil
}
