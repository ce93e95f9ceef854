// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package database

import (
	"context"
	"fmt"
)

// Upserts rewrite every non-key column, so no secondary indexes are declared:
// DuckDB rejects ON CONFLICT updates to indexed columns.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS watch_history (
		content_id   VARCHAR PRIMARY KEY,
		creator_id   BIGINT NOT NULL DEFAULT 0,
		creator_name VARCHAR NOT NULL DEFAULT '',
		view_at      BIGINT NOT NULL DEFAULT 0,
		progress     BIGINT NOT NULL DEFAULT 0,
		duration     BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE SEQUENCE IF NOT EXISTS candidate_ingest_seq START 1`,
	`CREATE TABLE IF NOT EXISTS candidates (
		content_id    VARCHAR PRIMARY KEY,
		title         VARCHAR NOT NULL DEFAULT '',
		creator_id    BIGINT NOT NULL DEFAULT 0,
		creator_name  VARCHAR NOT NULL DEFAULT '',
		duration      BIGINT NOT NULL DEFAULT 0,
		pubdate       BIGINT NOT NULL DEFAULT 0,
		view_count    BIGINT NOT NULL DEFAULT 0,
		danmaku_count BIGINT NOT NULL DEFAULT 0,
		ingest_seq    BIGINT NOT NULL DEFAULT nextval('candidate_ingest_seq'),
		ingested_at   TIMESTAMP NOT NULL
	)`,
}

// createTables creates the schema if it does not exist yet.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
