package pipeline

import (
	"context"
	"fmt"

	"trendmerch/db"
	"trendmerch/naming"
)

// HistoryRecorder persists written designs and run summaries.
type HistoryRecorder interface {
	RecordDesign(ctx context.Context, runID, slug string, record naming.OutputRecord) error
	RecordRun(ctx context.Context, result *RunResult) error
}

// DBHistory stores history in the SQLite database.
type DBHistory struct {
	repo *db.Repository
}

var _ HistoryRecorder = (*DBHistory)(nil)

// NewDBHistory wraps repo.
func NewDBHistory(repo *db.Repository) (*DBHistory, error) {
	if repo == nil {
		return nil, fmt.Errorf("pipeline: repository cannot be nil")
	}
	return &DBHistory{repo: repo}, nil
}

// RecordDesign inserts one designs row.
func (h *DBHistory) RecordDesign(ctx context.Context, runID, slug string, record naming.OutputRecord) error {
	_, err := h.repo.InsertDesign(ctx, db.DesignRecord{
		RunID:     runID,
		Topic:     record.Topic,
		Slug:      slug,
		Style:     record.Style,
		Filename:  record.Filename,
		Path:      record.Path,
		Width:     record.Width,
		Height:    record.Height,
		CreatedAt: record.CreatedAt,
	})
	return err
}

// RecordRun upserts the runs row for result.
func (h *DBHistory) RecordRun(ctx context.Context, result *RunResult) error {
	return h.repo.InsertRun(ctx, db.RunRecord{
		ID:          result.RunID,
		Mode:        result.Mode,
		Style:       string(result.Style),
		Requested:   result.Requested,
		Succeeded:   result.Succeeded(),
		Skipped:     result.Skipped(),
		Failed:      result.Failed(),
		Aborted:     result.Aborted,
		AbortReason: result.AbortReason,
		StartedAt:   result.StartedAt,
		FinishedAt:  result.FinishedAt,
	})
}
