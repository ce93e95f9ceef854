// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package planner

import "sync"

const (
	// maxConsumedIDs bounds the session's consumed set; the oldest id is
	// forgotten first.
	maxConsumedIDs = 2000

	// maxTrackedSessions bounds the playback positions remembered for
	// progress deltas.
	maxTrackedSessions = 256

	// maxProgressDeltaSec caps the seconds credited by one progress report.
	maxProgressDeltaSec = 45
)

// consumedSet is an insertion-ordered set with FIFO eviction.
type consumedSet struct {
	mu    sync.Mutex
	limit int
	ids   map[string]struct{}
	order []string
}

func newConsumedSet(limit int) *consumedSet {
	return &consumedSet{limit: limit, ids: make(map[string]struct{})}
}

// Add records ids and returns how many were new.
func (c *consumedSet) Add(ids ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := c.ids[id]; ok {
			continue
		}
		if len(c.order) >= c.limit {
			delete(c.ids, c.order[0])
			c.order = c.order[1:]
		}
		c.ids[id] = struct{}{}
		c.order = append(c.order, id)
		added++
	}
	return added
}

func (c *consumedSet) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.ids[id]
	return ok
}

// IDs returns a copy in insertion order.
func (c *consumedSet) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

func (c *consumedSet) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *consumedSet) Reset() {
	c.mu.Lock()
	c.ids = make(map[string]struct{})
	c.order = nil
	c.mu.Unlock()
}

// positionTracker remembers the last reported playback position per
// playback session so progress reports can be turned into deltas.
type positionTracker struct {
	mu    sync.Mutex
	limit int
	last  map[string]int64
}

func newPositionTracker(limit int) *positionTracker {
	return &positionTracker{limit: limit, last: make(map[string]int64)}
}

// Delta records position for key and returns the seconds watched since the
// previous report, clamped to [0, maxProgressDeltaSec]. The first report of
// a session counts from zero.
func (p *positionTracker) Delta(key string, position int64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, seen := p.last[key]
	if !seen && len(p.last) >= p.limit {
		p.last = make(map[string]int64)
	}
	p.last[key] = position

	delta := position
	if seen {
		delta = position - prev
	}
	if delta < 0 {
		return 0
	}
	if delta > maxProgressDeltaSec {
		return maxProgressDeltaSec
	}
	return delta
}

func (p *positionTracker) Reset() {
	p.mu.Lock()
	p.last = make(map[string]int64)
	p.mu.Unlock()
}
