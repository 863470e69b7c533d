package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRepository_NilDatabase(t *testing.T) {
	if _, err := NewRepository(nil); err == nil {
		t.Fatal("NewRepository(nil) expected error")
	}
}

func TestTopicCache(t *testing.T) {
	ctx := context.Background()
	repo, err := NewRepository(openTestDB(t))
	if err != nil {
		t.Fatal(err)
	}

	if _, ok, err := repo.LookupTopic(ctx, "solar-eclipse"); err != nil || ok {
		t.Fatalf("LookupTopic() on empty cache = ok=%v err=%v", ok, err)
	}

	first := time.Date(2024, 4, 8, 18, 20, 0, 0, time.UTC)
	if err := repo.RecordTopic(ctx, "solar-eclipse", first); err != nil {
		t.Fatalf("RecordTopic() error = %v", err)
	}
	got, ok, err := repo.LookupTopic(ctx, "solar-eclipse")
	if err != nil || !ok {
		t.Fatalf("LookupTopic() = ok=%v err=%v", ok, err)
	}
	if !got.Equal(first) {
		t.Errorf("LookupTopic() = %v, want %v", got, first)
	}

	// Recording again appends; the newest entry wins.
	second := first.Add(36 * time.Hour)
	if err := repo.RecordTopic(ctx, "solar-eclipse", second); err != nil {
		t.Fatalf("RecordTopic() second entry error = %v", err)
	}
	got, _, _ = repo.LookupTopic(ctx, "solar-eclipse")
	if !got.Equal(second) {
		t.Errorf("after append LookupTopic() = %v, want %v", got, second)
	}

	var rows int
	row, err := repo.db.queryRow(ctx, `SELECT COUNT(*) FROM topic_cache WHERE slug = ?`, "solar-eclipse")
	if err != nil {
		t.Fatalf("queryRow() error = %v", err)
	}
	if err := row.Scan(&rows); err != nil || rows != 2 {
		t.Errorf("topic_cache rows = %d, %v; want 2 appended entries", rows, err)
	}

	// Slugs are compared byte for byte.
	if _, ok, _ := repo.LookupTopic(ctx, "Solar-Eclipse"); ok {
		t.Error("lookup must be case sensitive")
	}
}

func TestDesignHistory(t *testing.T) {
	ctx := context.Background()
	repo, _ := NewRepository(openTestDB(t))

	base := time.Date(2024, 4, 8, 18, 0, 0, 0, time.UTC)
	records := []DesignRecord{
		{RunID: "run-1", Topic: "Solar Eclipse", Slug: "solar-eclipse", Style: "vaporwave",
			Filename: "solar-eclipse_20240408_180000.png", Path: "/out/a.png", Width: 4500, Height: 5400, CreatedAt: base},
		{RunID: "run-1", Topic: "Taylor Swift", Slug: "taylor-swift", Style: "vaporwave",
			Filename: "taylor-swift_20240408_180001.png", Path: "/out/b.png", Width: 4500, Height: 5400, CreatedAt: base.Add(time.Second)},
		{RunID: "run-2", Topic: "Moon", Slug: "moon", Style: "neon",
			Filename: "moon_20240409_090000.png", Path: "/out/c.png", Width: 1000, Height: 1200, CreatedAt: base.Add(15 * time.Hour)},
	}
	for i, rec := range records {
		id, err := repo.InsertDesign(ctx, rec)
		if err != nil {
			t.Fatalf("InsertDesign(%d) error = %v", i, err)
		}
		if id <= 0 {
			t.Errorf("InsertDesign(%d) id = %d", i, id)
		}
	}

	count, err := repo.CountDesigns(ctx)
	if err != nil || count != 3 {
		t.Fatalf("CountDesigns() = %d, %v; want 3", count, err)
	}

	recent, err := repo.QueryRecentDesigns(ctx, 2)
	if err != nil {
		t.Fatalf("QueryRecentDesigns() error = %v", err)
	}
	if len(recent) != 2 || recent[0].Slug != "moon" || recent[1].Slug != "taylor-swift" {
		t.Errorf("QueryRecentDesigns() order = %+v", recent)
	}

	byRun, err := repo.QueryDesignsByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("QueryDesignsByRun() error = %v", err)
	}
	if len(byRun) != 2 {
		t.Fatalf("QueryDesignsByRun() len = %d, want 2", len(byRun))
	}
	if byRun[0].Width != 4500 || byRun[0].Height != 5400 || !byRun[0].CreatedAt.Equal(base) {
		t.Errorf("round-tripped record = %+v", byRun[0])
	}
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	repo, _ := NewRepository(openTestDB(t))

	if _, err := repo.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRun(missing) = %v, want ErrNotFound", err)
	}
	if err := repo.InsertRun(ctx, RunRecord{}); err == nil {
		t.Fatal("InsertRun without id expected error")
	}

	started := time.Date(2024, 4, 8, 18, 0, 0, 0, time.UTC)
	run := RunRecord{
		ID: "run-1", Mode: "auto", Style: "vaporwave",
		Requested: 5, Succeeded: 1, Skipped: 1, Failed: 0,
		Aborted: true, AbortReason: "auth",
		StartedAt: started, FinishedAt: started.Add(2 * time.Minute),
	}
	if err := repo.InsertRun(ctx, run); err != nil {
		t.Fatalf("InsertRun() error = %v", err)
	}

	got, err := repo.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Mode != "auto" || got.Requested != 5 || !got.Aborted || got.AbortReason != "auth" {
		t.Errorf("GetRun() = %+v", got)
	}
	if !got.FinishedAt.Equal(run.FinishedAt) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, run.FinishedAt)
	}

	run.Aborted = false
	run.AbortReason = ""
	if err := repo.InsertRun(ctx, run); err != nil {
		t.Fatalf("InsertRun() replace error = %v", err)
	}
	got, _ = repo.GetRun(ctx, "run-1")
	if got.Aborted || got.AbortReason != "" {
		t.Errorf("replaced run = %+v", got)
	}
}

func TestRepository_ClosedDatabase(t *testing.T) {
	database := openTestDB(t)
	repo, _ := NewRepository(database)
	database.Close()

	if err := repo.RecordTopic(context.Background(), "x", time.Now()); !errors.Is(err, ErrClosed) {
		t.Errorf("RecordTopic() on closed db = %v, want ErrClosed", err)
	}
	if _, _, err := repo.LookupTopic(context.Background(), "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("LookupTopic() on closed db = %v, want ErrClosed", err)
	}
}
