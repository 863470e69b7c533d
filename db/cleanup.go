package db

import (
	"context"
	"fmt"
	"time"
)

// CleanupResult contains statistics about a cleanup operation.
type CleanupResult struct {
	DesignsDeleted int64
	RunsDeleted    int64
	TotalDeleted   int64
	Duration       time.Duration
}

// retentionColumns maps each pruned table to its timestamp column. The topic
// cache is never pruned; entries age out through the freshness window.
var retentionColumns = []struct {
	table  string
	column string
}{
	{"designs", "created_at"},
	{"runs", "finished_at"},
}

// Cleanup deletes history older than retention, measured back from now, in a
// single transaction and then runs VACUUM. A zero retention keeps everything.
//
// Watch mode calls it once per cycle; there is no background scheduler.
func (d *Database) Cleanup(ctx context.Context, retention time.Duration, now time.Time) (CleanupResult, error) {
	start := time.Now()
	result := CleanupResult{}

	if retention < 0 {
		return result, fmt.Errorf("db: retention must be non-negative, got %v", retention)
	}
	if retention == 0 {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return result, ErrClosed
	}

	cutoff := formatTime(now.Add(-retention))

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("db: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleted := make(map[string]int64, len(retentionColumns))
	for _, rc := range retentionColumns {
		query := fmt.Sprintf("DELETE FROM %s WHERE %s < ?", rc.table, rc.column)
		res, err := tx.ExecContext(ctx, query, cutoff)
		if err != nil {
			return result, fmt.Errorf("db: failed to delete from %s: %w", rc.table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("db: failed to get rows affected for %s: %w", rc.table, err)
		}
		deleted[rc.table] = n
		result.TotalDeleted += n
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("db: failed to commit cleanup: %w", err)
	}

	result.DesignsDeleted = deleted["designs"]
	result.RunsDeleted = deleted["runs"]

	if result.TotalDeleted > 0 {
		if _, err := d.db.ExecContext(ctx, "VACUUM"); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("db: cleanup succeeded but VACUUM failed: %w", err)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}
