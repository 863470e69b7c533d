package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SchemaVersion is the highest migration shipped with this binary.
const SchemaVersion uint = 2

// MigrationConfig holds configuration for running migrations.
type MigrationConfig struct {
	// DatabaseName is used by golang-migrate for internal tracking (default: "main")
	DatabaseName string
}

// DefaultMigrationConfig returns the default migration configuration.
func DefaultMigrationConfig() MigrationConfig {
	return MigrationConfig{DatabaseName: "main"}
}

// MigrateUp applies all pending migrations. ErrNoChange is not an error.
//
// golang-migrate takes ownership of conn and closes it when done; use
// MigrateUpFromPath when the caller wants to keep its own connection.
func MigrateUp(conn *sql.DB) error {
	m, err := newMigrator(conn, DefaultMigrationConfig())
	if err != nil {
		return fmt.Errorf("db: failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: migration up failed: %w", err)
	}
	return nil
}

// MigrateUpFromPath opens a dedicated connection to dbPath and migrates it up.
func MigrateUpFromPath(dbPath string) error {
	conn, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return err
	}
	return MigrateUp(conn)
}

// MigrateDownFromPath rolls back steps migrations, or all of them when steps
// is zero or negative. Rolling back an empty schema is not an error.
func MigrateDownFromPath(dbPath string, steps int) error {
	conn, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return err
	}
	m, err := newMigrator(conn, DefaultMigrationConfig())
	if err != nil {
		return fmt.Errorf("db: failed to create migrator: %w", err)
	}
	defer m.Close()

	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: migration down failed: %w", err)
	}
	return nil
}

// MigrationVersionFromPath reports the applied schema version of dbPath and
// whether the last migration left it dirty. A fresh database returns 0, false.
func MigrationVersionFromPath(dbPath string) (uint, bool, error) {
	conn, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return 0, false, err
	}
	m, err := newMigrator(conn, DefaultMigrationConfig())
	if err != nil {
		return 0, false, fmt.Errorf("db: failed to create migrator: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("db: failed to read migration version: %w", err)
	}
	return version, dirty, nil
}

func newMigrator(conn *sql.DB, config MigrationConfig) (*migrate.Migrate, error) {
	if conn == nil {
		return nil, fmt.Errorf("db: connection cannot be nil")
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: failed to load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{DatabaseName: config.DatabaseName})
	if err != nil {
		source.Close()
		conn.Close()
		return nil, fmt.Errorf("db: failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		source.Close()
		driver.Close()
		return nil, fmt.Errorf("db: failed to create migrate instance: %w", err)
	}
	return m, nil
}
