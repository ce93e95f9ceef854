// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package store

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/todaywatch/internal/models"
	"github.com/tomtom215/todaywatch/internal/todaywatch"
)

// MemoryStore implements Store in process memory.
// Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	creators map[int64]todaywatch.CreatorSignal
	feedback models.FeedbackSnapshot
	settings *models.Settings
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creators: make(map[int64]todaywatch.CreatorSignal)}
}

func (m *MemoryStore) Profiles() ProfileStore  { return memoryProfiles{m} }
func (m *MemoryStore) Feedback() FeedbackStore { return memoryFeedback{m} }
func (m *MemoryStore) Settings() SettingsStore { return memorySettings{m} }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

type memoryProfiles struct{ m *MemoryStore }

func (p memoryProfiles) RecordWatchProgress(_ context.Context, creatorID int64, name string, deltaSec int64) error {
	if creatorID <= 0 || deltaSec <= 0 {
		return nil
	}
	p.m.mu.Lock()
	defer p.m.mu.Unlock()

	sig, ok := p.m.creators[creatorID]
	if !ok {
		sig = todaywatch.CreatorSignal{CreatorID: creatorID}
	}
	p.m.creators[creatorID] = applyProgress(sig, name, deltaSec)
	return nil
}

func (p memoryProfiles) CreatorSignals(_ context.Context, limit int) ([]todaywatch.CreatorSignal, error) {
	p.m.mu.RLock()
	signals := make([]todaywatch.CreatorSignal, 0, len(p.m.creators))
	for _, sig := range p.m.creators {
		signals = append(signals, sig)
	}
	p.m.mu.RUnlock()
	return sortSignals(signals, limit), nil
}

func (p memoryProfiles) Clear(_ context.Context) error {
	p.m.mu.Lock()
	p.m.creators = make(map[int64]todaywatch.CreatorSignal)
	p.m.mu.Unlock()
	return nil
}

type memoryFeedback struct{ m *MemoryStore }

func (f memoryFeedback) Snapshot(_ context.Context) (models.FeedbackSnapshot, error) {
	f.m.mu.RLock()
	defer f.m.mu.RUnlock()
	return copyFeedback(f.m.feedback), nil
}

func (f memoryFeedback) RecordDislike(_ context.Context, contentID string, creatorID int64, keywords []string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.m.feedback.AddDislike(contentID, creatorID, keywords)
	f.m.feedback.UpdatedAt = time.Now()
	return nil
}

func (f memoryFeedback) Clear(_ context.Context) error {
	f.m.mu.Lock()
	f.m.feedback = models.FeedbackSnapshot{}
	f.m.mu.Unlock()
	return nil
}

type memorySettings struct{ m *MemoryStore }

func (s memorySettings) Load(_ context.Context) (models.Settings, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	if s.m.settings == nil {
		return models.DefaultSettings(), nil
	}
	return *s.m.settings, nil
}

func (s memorySettings) Save(_ context.Context, settings models.Settings) error {
	normalized := settings.Normalize()
	s.m.mu.Lock()
	s.m.settings = &normalized
	s.m.mu.Unlock()
	return nil
}

func copyFeedback(fb models.FeedbackSnapshot) models.FeedbackSnapshot {
	return models.FeedbackSnapshot{
		DislikedIDs:      append([]string(nil), fb.DislikedIDs...),
		DislikedCreators: append([]int64(nil), fb.DislikedCreators...),
		DislikedKeywords: append([]string(nil), fb.DislikedKeywords...),
		UpdatedAt:        fb.UpdatedAt,
	}
}
