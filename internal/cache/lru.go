// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package cache

import (
	"context"
	"sync"
	"time"
)

const (
	defaultLRUCapacity = 10000
	defaultLRUTTL      = 5 * time.Minute
)

type lruNode struct {
	key       string
	seenAt    time.Time
	expiresAt time.Time
	prev      *lruNode
	next      *lruNode
}

// LRUCache is a bounded set of recently seen keys with per-key expiry.
// The event router uses it to drop redelivered events by ID.
//
// Lookups and inserts are O(1): a map indexes a doubly-linked list whose
// head is the most recently used key.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[string]*lruNode
	head  *lruNode
	tail  *lruNode

	hits   int64
	misses int64
}

// NewLRUCache creates a cache holding at most capacity keys for ttl each.
// Non-positive arguments fall back to 10000 keys and 5 minutes.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = defaultLRUCapacity
	}
	if ttl <= 0 {
		ttl = defaultLRUTTL
	}
	c := &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*lruNode, capacity),
		head:     &lruNode{},
		tail:     &lruNode{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Seen returns when key was first recorded, if it is still live.
func (c *LRUCache) Seen(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok || c.now().After(n.expiresAt) {
		if ok {
			c.unlink(n)
		}
		c.misses++
		return time.Time{}, false
	}
	c.moveToFront(n)
	c.hits++
	return n.seenAt, true
}

// IsDuplicate reports whether key was recorded within the TTL. A new key is
// recorded before returning false.
//
// The signature matches watermill's ExpiringKeyRepository so the cache can
// back the router's Deduplicator middleware directly.
func (c *LRUCache) IsDuplicate(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if n, ok := c.items[key]; ok {
		if !now.After(n.expiresAt) {
			c.moveToFront(n)
			c.hits++
			return true, nil
		}
		c.unlink(n)
	}

	n := &lruNode{key: key, seenAt: now, expiresAt: now.Add(c.ttl)}
	c.pushFront(n)
	c.items[key] = n
	for len(c.items) > c.capacity {
		c.unlink(c.tail.prev)
	}
	c.misses++
	return false, nil
}

// Remove forgets key and reports whether it was present.
func (c *LRUCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.items[key]
	if ok {
		c.unlink(n)
	}
	return ok
}

// Len returns the number of recorded keys, expired ones included.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanupExpired drops expired keys and returns how many were removed.
func (c *LRUCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for n := c.tail.prev; n != c.head; {
		prev := n.prev
		if now.After(n.expiresAt) {
			c.unlink(n)
			removed++
		}
		n = prev
	}
	return removed
}

// Stats returns hit and miss counters and the current size.
func (c *LRUCache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// The helpers below require c.mu.

func (c *LRUCache) pushFront(n *lruNode) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *LRUCache) moveToFront(n *lruNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
	c.pushFront(n)
}

func (c *LRUCache) unlink(n *lruNode) {
	if n == c.head || n == c.tail {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	delete(c.items, n.key)
}
