package cache

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"trendmerch/logging"
)

// DefaultFileName is the cache file created inside the cache directory.
const DefaultFileName = "topics.jsonl"

// fileEntry is one line of the cache file.
type fileEntry struct {
	Slug       string    `json:"slug"`
	RecordedAt time.Time `json:"recorded_at"`
}

// FileStore is an append-only JSON lines file. The whole file is read once
// on open; each Record appends one line. The last line for a slug wins.
type FileStore struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	entries map[string]time.Time
	logger  *logging.Logger
}

var _ Store = (*FileStore)(nil)

// OpenFileStore opens or creates the cache file at path. Unparseable lines
// are skipped with a warning so a torn final write never blocks a run.
func OpenFileStore(path string, logger *logging.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("cache: file path is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cache: failed to create cache directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to open %s: %w", path, err)
	}

	store := &FileStore{
		path:    path,
		file:    f,
		entries: make(map[string]time.Time),
		logger:  logger.Named("cache"),
	}
	if err := store.load(); err != nil {
		f.Close()
		return nil, err
	}
	return store, nil
}

func (s *FileStore) load() error {
	scanner := bufio.NewScanner(s.file)
	line := 0
	skipped := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry fileEntry
		if err := json.Unmarshal(raw, &entry); err != nil || entry.Slug == "" {
			skipped++
			continue
		}
		s.entries[entry.Slug] = entry.RecordedAt
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("cache: failed to read %s: %w", s.path, err)
	}

	// Terminate a torn final line so the next append starts cleanly.
	if info, err := s.file.Stat(); err == nil && info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := s.file.ReadAt(last, info.Size()-1); err == nil && last[0] != '\n' {
			if _, err := s.file.Write([]byte{'\n'}); err != nil {
				return fmt.Errorf("cache: failed to repair %s: %w", s.path, err)
			}
		}
	}

	if skipped > 0 {
		s.logger.Warn("Skipped malformed cache lines",
			zap.String("path", s.path),
			zap.Int("skipped", skipped),
			zap.Int("lines", line))
	}
	s.logger.Debug("Cache loaded",
		zap.String("path", s.path),
		zap.Int("entries", len(s.entries)))
	return nil
}

// Path returns the cache file path.
func (s *FileStore) Path() string {
	return s.path
}

// Lookup returns the recorded time for slug.
func (s *FileStore) Lookup(_ context.Context, slug string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return time.Time{}, false, ErrClosed
	}
	ts, ok := s.entries[slug]
	return ts, ok, nil
}

// Record appends an entry for slug.
func (s *FileStore) Record(_ context.Context, slug string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrClosed
	}

	data, err := json.Marshal(fileEntry{Slug: slug, RecordedAt: ts.UTC()})
	if err != nil {
		return fmt.Errorf("cache: failed to encode entry: %w", err)
	}
	data = append(data, '\n')
	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("cache: failed to append to %s: %w", s.path, err)
	}

	s.entries[slug] = ts
	return nil
}

// Close flushes and closes the file. Calling Close twice is a no-op.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	f := s.file
	s.file = nil

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("cache: failed to sync %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cache: failed to close %s: %w", s.path, err)
	}
	return nil
}
