package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in a map for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]time.Time)}
}

// Lookup returns the recorded time for slug.
func (s *MemoryStore) Lookup(_ context.Context, slug string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return time.Time{}, false, ErrClosed
	}
	ts, ok := s.entries[slug]
	return ts, ok, nil
}

// Record sets the time for slug.
func (s *MemoryStore) Record(_ context.Context, slug string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.entries[slug] = ts
	return nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close marks the store closed. Entries are dropped.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.entries = nil
	return nil
}
