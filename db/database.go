package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Database owns the SQLite connection used by the repository. Opening it
// creates the parent directory and applies any pending migrations.
//
// Usage:
//
//	database, err := db.Open("./cache/trendmerch.db")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
//	repo, err := db.NewRepository(database)
type Database struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// DatabaseConfig holds configuration for Open.
type DatabaseConfig struct {
	// Path is the database file path
	Path string
	// SkipMigrations leaves the schema untouched (tests and read-only checks).
	SkipMigrations bool
	// ConnectionConfig allows customizing the SQLite connection
	ConnectionConfig *ConnectionConfig
}

// DefaultDatabaseConfig returns the default configuration for path.
func DefaultDatabaseConfig(path string) DatabaseConfig {
	return DatabaseConfig{Path: path}
}

// Open connects to path and migrates it to SchemaVersion.
func Open(path string) (*Database, error) {
	return OpenWithConfig(DefaultDatabaseConfig(path))
}

// OpenWithConfig connects using config.
func OpenWithConfig(config DatabaseConfig) (*Database, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("db: database path is required")
	}

	dir := filepath.Dir(config.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("db: failed to create database directory %s: %w", dir, err)
		}
	}

	// Migrations run on their own connection because golang-migrate closes it.
	if !config.SkipMigrations {
		if err := MigrateUpFromPath(config.Path); err != nil {
			return nil, err
		}
	}

	connConfig := DefaultConnectionConfig(config.Path)
	if config.ConnectionConfig != nil {
		connConfig = *config.ConnectionConfig
		connConfig.Path = config.Path
	}

	conn, err := NewSQLiteConnection(connConfig)
	if err != nil {
		return nil, err
	}

	return &Database{db: conn, path: config.Path}, nil
}

// DB returns the underlying connection. Do not close it directly.
func (d *Database) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// Close closes the connection. Calling Close twice is a no-op.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("db: failed to close database: %w", err)
	}
	d.db = nil
	return nil
}

// Ping verifies the connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return ErrClosed
	}
	return d.db.PingContext(ctx)
}

func (d *Database) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, ErrClosed
	}
	return d.db.ExecContext(ctx, query, args...)
}

func (d *Database) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, ErrClosed
	}
	return d.db.QueryContext(ctx, query, args...)
}

func (d *Database) queryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, ErrClosed
	}
	return d.db.QueryRowContext(ctx, query, args...), nil
}
