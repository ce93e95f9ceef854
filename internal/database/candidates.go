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

// DefaultCandidateLimit caps Candidates when no limit is given.
const DefaultCandidateLimit = 500

const upsertCandidateSQL = `
INSERT INTO candidates (content_id, title, creator_id, creator_name, duration, pubdate,
	view_count, danmaku_count, ingested_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (content_id) DO UPDATE SET
	title = excluded.title,
	creator_id = excluded.creator_id,
	creator_name = excluded.creator_name,
	duration = excluded.duration,
	pubdate = excluded.pubdate,
	view_count = excluded.view_count,
	danmaku_count = excluded.danmaku_count,
	ingested_at = excluded.ingested_at`

// UpsertCandidates adds candidates to the pool. A re-ingested candidate keeps
// its original position. When replace is set the previous pool is dropped
// first, inside the same transaction.
func (db *DB) UpsertCandidates(ctx context.Context, items []todaywatch.CandidateItem, replace bool) (_ int, err error) {
	defer observe("upsert", "candidates", time.Now(), &err)
	if db.conn == nil {
		return 0, ErrClosed
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin candidate upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM candidates"); err != nil {
			return 0, fmt.Errorf("clear candidates: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, upsertCandidateSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare candidate upsert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	ingestedAt := db.now().UTC()
	written := 0
	for i := range items {
		item := &items[i]
		if item.ContentID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, item.ContentID, item.Title, item.CreatorID, item.CreatorName,
			item.Duration, item.PubDate, item.ViewCount, item.DanmakuCount, ingestedAt); err != nil {
			return 0, fmt.Errorf("upsert candidate %s: %w", item.ContentID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit candidate upsert: %w", err)
	}
	return written, nil
}

// Candidates returns up to limit candidates in ingestion order.
func (db *DB) Candidates(ctx context.Context, limit int) (_ []todaywatch.CandidateItem, err error) {
	defer observe("select", "candidates", time.Now(), &err)
	if db.conn == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT content_id, title, creator_id, creator_name, duration, pubdate, view_count, danmaku_count
		FROM candidates
		ORDER BY ingest_seq
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer closeWithLog(rows, "rows")

	items := make([]todaywatch.CandidateItem, 0)
	for rows.Next() {
		var item todaywatch.CandidateItem
		if err := rows.Scan(&item.ContentID, &item.Title, &item.CreatorID, &item.CreatorName,
			&item.Duration, &item.PubDate, &item.ViewCount, &item.DanmakuCount); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return items, nil
}

// PruneCandidates deletes candidates ingested more than olderThan ago and
// returns how many were removed.
func (db *DB) PruneCandidates(ctx context.Context, olderThan time.Duration) (_ int64, err error) {
	defer observe("delete", "candidates", time.Now(), &err)
	if db.conn == nil {
		return 0, ErrClosed
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cutoff := db.now().UTC().Add(-olderThan)
	res, err := db.conn.ExecContext(ctx, "DELETE FROM candidates WHERE ingested_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune candidates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune candidates: %w", err)
	}
	return n, nil
}
