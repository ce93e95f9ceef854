// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestCacheGetSet(t *testing.T) {
	c := New[[]string](time.Minute)

	if _, ok := c.Get("history:80"); ok {
		t.Fatal("empty cache returned a hit")
	}

	c.Set("history:80", []string{"a", "b"})
	got, ok := c.Get("history:80")
	if !ok || len(got) != 2 || got[0] != "a" {
		t.Fatalf("Get() = %v, %v", got, ok)
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Keys != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if rate := c.HitRate(); rate != 50 {
		t.Errorf("HitRate() = %v, want 50", rate)
	}
}

func TestCacheExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New[int](2 * time.Minute)
	c.now = clock.Now

	c.Set("k", 7)
	clock.Advance(time.Minute)
	if v, ok := c.Get("k"); !ok || v != 7 {
		t.Fatalf("Get() before expiry = %v, %v", v, ok)
	}

	clock.Advance(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	if stats := c.GetStats(); stats.Evictions != 1 || stats.Keys != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCacheZeroTTLDisables(t *testing.T) {
	c := New[int](0)
	c.Set("k", 1)
	if _, ok := c.Get("k"); ok {
		t.Error("zero TTL cache should not store")
	}
}

func TestCacheDeleteClearCleanup(t *testing.T) {
	clock := newFakeClock()
	c := New[string](time.Minute)
	c.now = clock.Now

	c.Set("a", "1")
	c.Set("b", "2")
	c.SetWithTTL("c", "3", time.Hour)

	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}

	clock.Advance(5 * time.Minute)
	if removed := c.Cleanup(); removed != 1 {
		t.Errorf("Cleanup() = %d, want 1", removed)
	}
	if v, ok := c.Get("c"); !ok || v != "3" {
		t.Errorf("long TTL entry lost: %v %v", v, ok)
	}

	c.Clear()
	if stats := c.GetStats(); stats.Keys != 0 || stats.Evictions != 3 {
		t.Errorf("stats after Clear = %+v", stats)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Set("k", n)
				c.Get("k")
			}
		}(i)
	}
	wg.Wait()
	if _, ok := c.Get("k"); !ok {
		t.Error("key missing after concurrent writes")
	}
}
