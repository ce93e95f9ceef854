// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/todaywatch/internal/todaywatch"
)

const upsertHistorySQL = `
INSERT INTO watch_history (content_id, creator_id, creator_name, view_at, progress, duration)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (content_id) DO UPDATE SET
	creator_id = excluded.creator_id,
	creator_name = excluded.creator_name,
	view_at = excluded.view_at,
	progress = excluded.progress,
	duration = excluded.duration`

// UpsertHistory inserts or replaces history entries keyed by content id.
// Entries with a blank content id are skipped. Returns the number written.
func (db *DB) UpsertHistory(ctx context.Context, items []todaywatch.WatchedItem) (_ int, err error) {
	defer observe("upsert", "watch_history", time.Now(), &err)
	if db.conn == nil {
		return 0, ErrClosed
	}
	if len(items) == 0 {
		return 0, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin history upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertHistorySQL)
	if err != nil {
		return 0, fmt.Errorf("prepare history upsert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	written := 0
	for i := range items {
		item := &items[i]
		if item.ContentID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, item.ContentID, item.CreatorID, item.CreatorName,
			item.ViewAt, item.Progress, item.Duration); err != nil {
			return 0, fmt.Errorf("upsert history %s: %w", item.ContentID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit history upsert: %w", err)
	}
	return written, nil
}

// RecentHistory returns up to limit entries, most recent first.
func (db *DB) RecentHistory(ctx context.Context, limit int) (_ []todaywatch.WatchedItem, err error) {
	defer observe("select", "watch_history", time.Now(), &err)
	if db.conn == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		return []todaywatch.WatchedItem{}, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT content_id, creator_id, creator_name, view_at, progress, duration
		FROM watch_history
		ORDER BY view_at DESC, content_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer closeWithLog(rows, "rows")

	items := make([]todaywatch.WatchedItem, 0, limit)
	for rows.Next() {
		var item todaywatch.WatchedItem
		if err := rows.Scan(&item.ContentID, &item.CreatorID, &item.CreatorName,
			&item.ViewAt, &item.Progress, &item.Duration); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return items, nil
}
