// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package cache

import (
	"sync"
	"time"
)

// lruEntry is a node in the LRU list.
type lruEntry[K comparable, V any] struct {
	key       K
	value     V
	version   uint64
	expiresAt time.Time
	prev      *lruEntry[K, V]
	next      *lruEntry[K, V]
}

// LRU is a thread-safe least recently used cache with TTL support whose
// entries are tagged with the snapshot version they were computed against.
//
// Key features:
//   - O(1) Get, Add and eviction through a map plus doubly-linked list
//   - Lazy TTL expiration, with CleanupExpired for periodic sweeps
//   - Version floor: Purge raises it and Add refuses older entries
type LRU[K comparable, V any] struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration

	// floor is the lowest version Add accepts
	floor uint64

	items map[K]*lruEntry[K, V]

	// head.next is the most recently used, tail.prev the least
	head *lruEntry[K, V]
	tail *lruEntry[K, V]

	now func() time.Time
}

// NewLRU creates an LRU with the given capacity and TTL. A zero TTL keeps
// entries until they are evicted or purged.
func NewLRU[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	c := &LRU[K, V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[K]*lruEntry[K, V]),
		head:     &lruEntry[K, V]{},
		tail:     &lruEntry[K, V]{},
		now:      time.Now,
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value stored for key if it was computed against version
// and has not expired. Found entries become most recently used.
func (c *LRU[K, V]) Get(key K, version uint64) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if entry.version != version || c.expired(entry, c.now()) {
		c.removeEntry(entry)
		return zero, false
	}
	c.moveToFront(entry)
	return entry.value, true
}

// Add stores value for key. It reports whether the entry was stored and how
// many entries were evicted to make room. Entries older than the floor set
// by Purge are refused.
func (c *LRU[K, V]) Add(key K, value V, version uint64) (stored bool, evicted int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version < c.floor {
		return false, 0
	}

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.version = version
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return true, 0
	}

	entry := &lruEntry[K, V]{key: key, value: value, version: version, expiresAt: expiresAt}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
		evicted++
	}
	return true, evicted
}

// Remove deletes key and reports whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Purge drops every entry and refuses later inserts for versions below
// floor. The floor never moves backwards.
func (c *LRU[K, V]) Purge(floor uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if floor > c.floor {
		c.floor = floor
	}
	n := len(c.items)
	c.items = make(map[K]*lruEntry[K, V])
	c.head.next = c.tail
	c.tail.prev = c.head
	return n
}

// Len returns the current number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanupExpired removes all expired entries and returns how many were
// removed.
func (c *LRU[K, V]) CleanupExpired() int {
	if c.ttl <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if c.expired(entry, now) {
			c.removeEntry(entry)
			removed++
		}
		entry = prev
	}
	return removed
}

// Internal methods (must be called with lock held)

func (c *LRU[K, V]) expired(entry *lruEntry[K, V], now time.Time) bool {
	return !entry.expiresAt.IsZero() && now.After(entry.expiresAt)
}

func (c *LRU[K, V]) addToFront(entry *lruEntry[K, V]) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRU[K, V]) moveToFront(entry *lruEntry[K, V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *LRU[K, V]) removeEntry(entry *lruEntry[K, V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *LRU[K, V]) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
