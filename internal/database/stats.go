// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package database

import (
	"context"
	"fmt"
)

// Stats summarizes stored data.
type Stats struct {
	HistoryCount    int64 `json:"history_count"`
	CandidateCount  int64 `json:"candidate_count"`
	CreatorCount    int64 `json:"creator_count"`
	LatestViewAt    int64 `json:"latest_view_at"`
	OldestCandidate int64 `json:"oldest_candidate_unix"`
}

// Stats returns row counts and time bounds.
func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	if db.conn == nil {
		return nil, ErrClosed
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var s Stats
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT creator_id), COALESCE(MAX(view_at), 0)
		FROM watch_history`).Scan(&s.HistoryCount, &s.CreatorCount, &s.LatestViewAt)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}

	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(CAST(epoch(MIN(ingested_at)) AS BIGINT), 0)
		FROM candidates`).Scan(&s.CandidateCount, &s.OldestCandidate)
	if err != nil {
		return nil, fmt.Errorf("candidate stats: %w", err)
	}
	return &s, nil
}
