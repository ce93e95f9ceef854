// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

// Package store persists the personalization signals Today Watch learns
// over time: per-creator watch progress, negative feedback and the card
// settings.
//
// Two backends are provided. BadgerStore keeps everything in an embedded
// BadgerDB so signals survive restarts; MemoryStore is used in tests and
// when storage.backend is "memory".
package store

import (
	"context"
	"errors"
	"io"
	"sort"

	"github.com/tomtom215/todaywatch/internal/models"
	"github.com/tomtom215/todaywatch/internal/todaywatch"
)

// Backend selects the store implementation.
type Backend string

const (
	// BackendMemory keeps signals in process memory only.
	BackendMemory Backend = "memory"

	// BackendBadger persists signals in BadgerDB.
	BackendBadger Backend = "badger"
)

// ErrUnknownBackend is returned by NewStore for an unsupported backend.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Progress scoring. Each watched second is worth 1/300 of a point and a
// call of at least 30 seconds counts as one watch.
const (
	ProgressSecondsPerPoint = 300.0
	MinCountedWatchSeconds  = 30
)

// ProfileStore accumulates creator affinity from playback progress.
type ProfileStore interface {
	// RecordWatchProgress credits deltaSec seconds of viewing to a creator.
	// Non-positive creator ids or deltas are ignored.
	RecordWatchProgress(ctx context.Context, creatorID int64, name string, deltaSec int64) error

	// CreatorSignals returns up to limit signals, highest score first.
	CreatorSignals(ctx context.Context, limit int) ([]todaywatch.CreatorSignal, error)

	Clear(ctx context.Context) error
}

// FeedbackStore keeps the user's negative feedback.
type FeedbackStore interface {
	Snapshot(ctx context.Context) (models.FeedbackSnapshot, error)
	RecordDislike(ctx context.Context, contentID string, creatorID int64, keywords []string) error
	Clear(ctx context.Context) error
}

// SettingsStore loads and saves the card settings. Load returns
// models.DefaultSettings when nothing was saved yet.
type SettingsStore interface {
	Load(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, settings models.Settings) error
}

// Store bundles the three stores behind one backend.
type Store interface {
	Profiles() ProfileStore
	Feedback() FeedbackStore
	Settings() SettingsStore
	io.Closer
}

// NewStore opens the configured backend. path is only used by badger.
func NewStore(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendBadger:
		return OpenBadgerStore(path)
	case BackendMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, ErrUnknownBackend
	}
}

// applyProgress updates a signal with one progress report.
func applyProgress(sig todaywatch.CreatorSignal, name string, deltaSec int64) todaywatch.CreatorSignal {
	if name != "" {
		sig.Name = name
	}
	sig.Score += float64(deltaSec) / ProgressSecondsPerPoint
	if deltaSec >= MinCountedWatchSeconds {
		sig.WatchCount++
	}
	return sig
}

// sortSignals orders signals by score descending, creator id ascending on
// ties, and truncates to limit when limit is positive.
func sortSignals(signals []todaywatch.CreatorSignal, limit int) []todaywatch.CreatorSignal {
	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].Score != signals[j].Score {
			return signals[i].Score > signals[j].Score
		}
		return signals[i].CreatorID < signals[j].CreatorID
	})
	if limit > 0 && len(signals) > limit {
		signals = signals[:limit]
	}
	return signals
}
