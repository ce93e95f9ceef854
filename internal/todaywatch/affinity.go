// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package todaywatch

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

const secondsPerDay = 86400.0

// AffinityMap is the per-creator affinity built by AggregateAffinity.
// It remembers first-seen order so ranking ties stay deterministic.
type AffinityMap struct {
	byID  map[int64]*CreatorAffinity
	order []int64
}

func newAffinityMap(capacity int) *AffinityMap {
	return &AffinityMap{
		byID:  make(map[int64]*CreatorAffinity, capacity),
		order: make([]int64, 0, capacity),
	}
}

// getOrCreate returns the accumulator for id, creating it on first sight.
func (m *AffinityMap) getOrCreate(id int64, name string) *CreatorAffinity {
	if agg, ok := m.byID[id]; ok {
		return agg
	}
	agg := &CreatorAffinity{CreatorID: id, Name: creatorDisplayName(id, name)}
	m.byID[id] = agg
	m.order = append(m.order, id)
	return agg
}

// Score returns the creator's accumulated affinity, or 0 when unknown.
func (m *AffinityMap) Score(creatorID int64) float64 {
	if m == nil {
		return 0
	}
	if agg, ok := m.byID[creatorID]; ok {
		return agg.Score
	}
	return 0
}

// Get returns a copy of the creator's affinity entry.
func (m *AffinityMap) Get(creatorID int64) (CreatorAffinity, bool) {
	if m == nil {
		return CreatorAffinity{}, false
	}
	agg, ok := m.byID[creatorID]
	if !ok {
		return CreatorAffinity{}, false
	}
	return *agg, true
}

// Len returns the number of creators.
func (m *AffinityMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Ranked returns up to limit creators sorted by score descending.
// Equal scores keep first-seen order.
func (m *AffinityMap) Ranked(limit int) []CreatorRank {
	if m.Len() == 0 || limit <= 0 {
		return []CreatorRank{}
	}
	ranks := make([]CreatorRank, 0, len(m.order))
	for _, id := range m.order {
		agg := m.byID[id]
		ranks = append(ranks, CreatorRank{
			CreatorID:  agg.CreatorID,
			Name:       agg.Name,
			Score:      agg.Score,
			WatchCount: agg.WatchCount,
		})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Score > ranks[j].Score
	})
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks
}

// AggregateAffinity accumulates per-creator affinity from cleaned history
// and merges persisted cross-session signals into the same accumulator.
//
// History entries with a blank content id or a non-positive creator id are
// skipped. Each remaining entry adds 1.0 + completion*1.2 + recency bonus.
// Signals with a positive creator id add their score and max(watchCount, 1).
func AggregateAffinity(history []WatchedItem, signals []CreatorSignal, now time.Time) *AffinityMap {
	m := newAffinityMap(len(history) + len(signals))
	nowSec := now.Unix()

	for i := range history {
		item := &history[i]
		if !validHistoryItem(item) {
			continue
		}
		agg := m.getOrCreate(item.CreatorID, item.CreatorName)
		agg.WatchCount++
		agg.Score += 1.0 + CompletionRatio(item.Progress, item.Duration)*1.2 + RecencyBonus(item.ViewAt, nowSec)
	}

	for _, signal := range signals {
		if signal.CreatorID <= 0 {
			continue
		}
		agg := m.getOrCreate(signal.CreatorID, signal.Name)
		agg.WatchCount += max(signal.WatchCount, 1)
		agg.Score += signal.Score
	}

	return m
}

// CompletionRatio estimates how much of a video was watched.
// Unknown progress (negative) yields 0.35; unknown duration falls back to
// progress measured against a 10-minute reference.
func CompletionRatio(progress, duration int64) float64 {
	if progress < 0 {
		return 0.35
	}
	if duration <= 0 {
		return clamp(float64(progress)/600.0, 0, 1)
	}
	return clamp(float64(progress)/float64(duration), 0, 1)
}

// RecencyBonus rewards recent watches. An unknown timestamp yields 0.25.
func RecencyBonus(viewAt, nowSec int64) float64 {
	if viewAt <= 0 {
		return 0.25
	}
	days := ageInDays(viewAt, nowSec)
	switch {
	case days <= 1:
		return 1.0
	case days <= 3:
		return 0.8
	case days <= 7:
		return 0.6
	case days <= 30:
		return 0.35
	default:
		return 0.15
	}
}

func validHistoryItem(item *WatchedItem) bool {
	return strings.TrimSpace(item.ContentID) != "" && item.CreatorID > 0
}

func creatorDisplayName(id int64, name string) string {
	if strings.TrimSpace(name) == "" {
		return "Creator " + strconv.FormatInt(id, 10)
	}
	return name
}

// ageInDays returns the non-negative age of ts relative to nowSec.
func ageInDays(ts, nowSec int64) float64 {
	return float64(max(nowSec-ts, 0)) / secondsPerDay
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
