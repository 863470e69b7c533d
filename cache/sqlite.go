package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trendmerch/db"
)

// SQLiteStore keeps entries in the topic_cache table.
type SQLiteStore struct {
	mu       sync.Mutex
	repo     *db.Repository
	database *db.Database // non-nil only when the store owns the connection
	closed   bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore uses repo without taking ownership; Close leaves the
// database open.
func NewSQLiteStore(repo *db.Repository) (*SQLiteStore, error) {
	if repo == nil {
		return nil, fmt.Errorf("cache: repository cannot be nil")
	}
	return &SQLiteStore{repo: repo}, nil
}

// OpenSQLiteStore opens (and migrates) the database at path. Close closes it.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	repo, err := db.NewRepository(database)
	if err != nil {
		database.Close()
		return nil, err
	}
	return &SQLiteStore{repo: repo, database: database}, nil
}

// Lookup returns the recorded time for slug.
func (s *SQLiteStore) Lookup(ctx context.Context, slug string) (time.Time, bool, error) {
	if s.isClosed() {
		return time.Time{}, false, ErrClosed
	}
	return s.repo.LookupTopic(ctx, slug)
}

// Record upserts the time for slug.
func (s *SQLiteStore) Record(ctx context.Context, slug string, ts time.Time) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.repo.RecordTopic(ctx, slug, ts)
}

// Close releases the database if the store opened it.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.database != nil {
		return s.database.Close()
	}
	return nil
}

func (s *SQLiteStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
