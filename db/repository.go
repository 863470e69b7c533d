package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrClosed is returned when the database has already been closed.
	ErrClosed = errors.New("db: database is closed")
	// ErrNotFound is returned when a lookup by id matches no row.
	ErrNotFound = errors.New("db: record not found")
)

// timeLayout is fixed-width so stored timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("db: malformed timestamp %q: %w", s, err)
	}
	return t, nil
}

// DesignRecord is one row of the designs table: a file written by a run.
type DesignRecord struct {
	ID        int64
	RunID     string
	Topic     string
	Slug      string
	Style     string
	Filename  string
	Path      string
	Width     int
	Height    int
	CreatedAt time.Time
}

// RunRecord summarizes one pipeline run.
type RunRecord struct {
	ID          string
	Mode        string
	Style       string
	Requested   int
	Succeeded   int
	Skipped     int
	Failed      int
	Aborted     bool
	AbortReason string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Repository provides typed access to the topic cache, design history and
// run tables.
type Repository struct {
	db *Database
}

// NewRepository wraps database.
func NewRepository(database *Database) (*Repository, error) {
	if database == nil {
		return nil, fmt.Errorf("db: database cannot be nil")
	}
	return &Repository{db: database}, nil
}

// Database returns the wrapped database.
func (r *Repository) Database() *Database {
	return r.db
}

// LookupTopic returns the most recently appended entry for slug.
func (r *Repository) LookupTopic(ctx context.Context, slug string) (time.Time, bool, error) {
	row, err := r.db.queryRow(ctx, `
		SELECT recorded_at FROM topic_cache
		WHERE slug = ? ORDER BY id DESC LIMIT 1`, slug)
	if err != nil {
		return time.Time{}, false, err
	}

	var recorded string
	if err := row.Scan(&recorded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("db: failed to look up topic %q: %w", slug, err)
	}

	ts, err := parseTime(recorded)
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}

// RecordTopic appends an entry for slug. Earlier entries are kept; lookups
// read the newest one.
func (r *Repository) RecordTopic(ctx context.Context, slug string, ts time.Time) error {
	_, err := r.db.exec(ctx, `INSERT INTO topic_cache (slug, recorded_at) VALUES (?, ?)`,
		slug, formatTime(ts))
	if err != nil {
		return fmt.Errorf("db: failed to record topic %q: %w", slug, err)
	}
	return nil
}

// InsertDesign appends a design to the history and returns its row id.
func (r *Repository) InsertDesign(ctx context.Context, record DesignRecord) (int64, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	result, err := r.db.exec(ctx, `
		INSERT INTO designs (
			run_id, topic, slug, style, filename, path, width, height, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID, record.Topic, record.Slug, record.Style, record.Filename,
		record.Path, record.Width, record.Height, formatTime(record.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("db: failed to insert design: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("db: failed to get last insert id: %w", err)
	}
	return id, nil
}

// QueryRecentDesigns returns up to limit designs, newest first.
func (r *Repository) QueryRecentDesigns(ctx context.Context, limit int) ([]DesignRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryDesigns(ctx, `
		SELECT id, run_id, topic, slug, style, filename, path, width, height, created_at
		FROM designs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

// QueryDesignsByRun returns the designs written by runID in insertion order.
func (r *Repository) QueryDesignsByRun(ctx context.Context, runID string) ([]DesignRecord, error) {
	return r.queryDesigns(ctx, `
		SELECT id, run_id, topic, slug, style, filename, path, width, height, created_at
		FROM designs WHERE run_id = ? ORDER BY id ASC`, runID)
}

func (r *Repository) queryDesigns(ctx context.Context, query string, args ...any) ([]DesignRecord, error) {
	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: failed to query designs: %w", err)
	}
	defer rows.Close()

	var records []DesignRecord
	for rows.Next() {
		var rec DesignRecord
		var created string
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Topic, &rec.Slug, &rec.Style,
			&rec.Filename, &rec.Path, &rec.Width, &rec.Height, &created); err != nil {
			return nil, fmt.Errorf("db: failed to scan design: %w", err)
		}
		if rec.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: error iterating designs: %w", err)
	}
	return records, nil
}

// CountDesigns returns the number of designs in the history.
func (r *Repository) CountDesigns(ctx context.Context) (int64, error) {
	row, err := r.db.queryRow(ctx, `SELECT COUNT(*) FROM designs`)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("db: failed to count designs: %w", err)
	}
	return count, nil
}

// InsertRun stores the summary of a finished run. Re-inserting the same id
// replaces the earlier summary.
func (r *Repository) InsertRun(ctx context.Context, run RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("db: run id is required")
	}

	aborted := 0
	if run.Aborted {
		aborted = 1
	}
	_, err := r.db.exec(ctx, `
		INSERT OR REPLACE INTO runs (
			id, mode, style, requested, succeeded, skipped, failed,
			aborted, abort_reason, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Mode, run.Style, run.Requested, run.Succeeded, run.Skipped, run.Failed,
		aborted, nullString(run.AbortReason), formatTime(run.StartedAt), formatTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("db: failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun loads a run summary by id. It returns ErrNotFound for unknown ids.
func (r *Repository) GetRun(ctx context.Context, id string) (RunRecord, error) {
	row, err := r.db.queryRow(ctx, `
		SELECT id, mode, style, requested, succeeded, skipped, failed,
			aborted, abort_reason, started_at, finished_at
		FROM runs WHERE id = ?`, id)
	if err != nil {
		return RunRecord{}, err
	}

	var (
		run             RunRecord
		aborted         int
		reason          sql.NullString
		started, finish string
	)
	if err := row.Scan(&run.ID, &run.Mode, &run.Style, &run.Requested, &run.Succeeded,
		&run.Skipped, &run.Failed, &aborted, &reason, &started, &finish); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, ErrNotFound
		}
		return RunRecord{}, fmt.Errorf("db: failed to load run %s: %w", id, err)
	}

	run.Aborted = aborted != 0
	run.AbortReason = reason.String
	if run.StartedAt, err = parseTime(started); err != nil {
		return RunRecord{}, err
	}
	if run.FinishedAt, err = parseTime(finish); err != nil {
		return RunRecord{}, err
	}
	return run, nil
}

// nullString maps "" to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
