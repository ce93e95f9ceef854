// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/todaywatch/internal/config"
	"github.com/tomtom215/todaywatch/internal/todaywatch"
)

// testDBSemaphore serializes DuckDB tests; concurrent CGO connections can
// hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates an in-memory database released on test cleanup.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 1})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return db
}

func TestDB_HistoryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	items := []todaywatch.WatchedItem{
		{ContentID: "BV1", CreatorID: 1, CreatorName: "A", ViewAt: 100, Progress: 60, Duration: 120},
		{ContentID: "BV2", CreatorID: 2, CreatorName: "B", ViewAt: 300, Progress: -1, Duration: 600},
		{ContentID: "", CreatorID: 3, ViewAt: 400},
		{ContentID: "BV3", CreatorID: 1, CreatorName: "A", ViewAt: 200, Progress: 30, Duration: 90},
	}
	n, err := db.UpsertHistory(ctx, items)
	if err != nil {
		t.Fatalf("UpsertHistory: %v", err)
	}
	if n != 3 {
		t.Errorf("written = %d, want 3 (blank id skipped)", n)
	}

	got, err := db.RecentHistory(ctx, 2)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	want := []todaywatch.WatchedItem{items[1], items[3]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RecentHistory mismatch (-want +got):\n%s", diff)
	}

	// Upsert replaces the row in place.
	if _, err := db.UpsertHistory(ctx, []todaywatch.WatchedItem{
		{ContentID: "BV1", CreatorID: 1, CreatorName: "A2", ViewAt: 999, Progress: 120, Duration: 120},
	}); err != nil {
		t.Fatal(err)
	}
	got, err = db.RecentHistory(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ContentID != "BV1" || got[0].CreatorName != "A2" {
		t.Errorf("after upsert first entry = %+v, want updated BV1", got[0])
	}
}

func TestDB_RecentHistoryZeroLimit(t *testing.T) {
	db := setupTestDB(t)
	got, err := db.RecentHistory(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d items, want 0", len(got))
	}
}

func TestDB_CandidatesIngestionOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	batch := []todaywatch.CandidateItem{
		{ContentID: "c3", Title: "third id first", CreatorID: 3, Duration: 300},
		{ContentID: "c1", Title: "first id second", CreatorID: 1, Duration: 600},
	}
	if _, err := db.UpsertCandidates(ctx, batch, false); err != nil {
		t.Fatalf("UpsertCandidates: %v", err)
	}
	if _, err := db.UpsertCandidates(ctx, []todaywatch.CandidateItem{
		{ContentID: "c2", Title: "later", CreatorID: 2},
		{ContentID: "c3", Title: "third id renamed", CreatorID: 3, Duration: 300},
	}, false); err != nil {
		t.Fatal(err)
	}

	got, err := db.Candidates(ctx, 0)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	var ids []string
	for _, c := range got {
		ids = append(ids, c.ContentID)
	}
	if diff := cmp.Diff([]string{"c3", "c1", "c2"}, ids); diff != "" {
		t.Errorf("ingestion order mismatch (-want +got):\n%s", diff)
	}
	if got[0].Title != "third id renamed" {
		t.Errorf("c3 title = %q, want updated title", got[0].Title)
	}

	limited, err := db.Candidates(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limited len = %d, want 2", len(limited))
	}
}

func TestDB_CandidatesReplace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.UpsertCandidates(ctx, []todaywatch.CandidateItem{{ContentID: "old", Title: "old"}}, false); err != nil {
		t.Fatal(err)
	}
	if _, err := db.UpsertCandidates(ctx, []todaywatch.CandidateItem{{ContentID: "new", Title: "new"}}, true); err != nil {
		t.Fatal(err)
	}
	got, err := db.Candidates(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ContentID != "new" {
		t.Errorf("after replace got %+v, want only 'new'", got)
	}
}

func TestDB_PruneCandidates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return base.Add(-48 * time.Hour) }
	if _, err := db.UpsertCandidates(ctx, []todaywatch.CandidateItem{{ContentID: "stale", Title: "stale"}}, false); err != nil {
		t.Fatal(err)
	}
	db.now = func() time.Time { return base }
	if _, err := db.UpsertCandidates(ctx, []todaywatch.CandidateItem{{ContentID: "fresh", Title: "fresh"}}, false); err != nil {
		t.Fatal(err)
	}

	removed, err := db.PruneCandidates(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PruneCandidates: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.CandidateCount != 1 {
		t.Errorf("CandidateCount = %d, want 1", stats.CandidateCount)
	}
	if stats.OldestCandidate != base.Unix() {
		t.Errorf("OldestCandidate = %d, want %d", stats.OldestCandidate, base.Unix())
	}
}

func TestDB_Stats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if *stats != (Stats{}) {
		t.Errorf("empty stats = %+v, want zero", stats)
	}

	if _, err := db.UpsertHistory(ctx, []todaywatch.WatchedItem{
		{ContentID: "a", CreatorID: 1, ViewAt: 10},
		{ContentID: "b", CreatorID: 1, ViewAt: 20},
		{ContentID: "c", CreatorID: 2, ViewAt: 15},
	}); err != nil {
		t.Fatal(err)
	}
	stats, err = db.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.HistoryCount != 3 || stats.CreatorCount != 2 || stats.LatestViewAt != 20 {
		t.Errorf("stats = %+v, want 3 rows, 2 creators, latest 20", stats)
	}
}

func TestDB_FilePersistence(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	dir, err := os.MkdirTemp("", "duckdb-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cfg := &config.DatabaseConfig{Path: filepath.Join(dir, "nested", "todaywatch.duckdb"), MaxMemory: "512MB", Threads: 1}
	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := db.UpsertHistory(context.Background(), []todaywatch.WatchedItem{{ContentID: "x", ViewAt: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = New(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	got, err := db.RecentHistory(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("after reopen got %d rows, want 1", len(got))
	}
}

func TestDB_ClosedConnection(t *testing.T) {
	db := &DB{now: time.Now}
	if err := db.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping error = %v, want ErrClosed", err)
	}
	if _, err := db.Candidates(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Candidates error = %v, want ErrClosed", err)
	}
}
