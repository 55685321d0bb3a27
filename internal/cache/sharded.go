// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package cache

import (
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/tomtom215/mqtt-file-rbac/internal/metrics"
)

// DefaultShards is used when Config.Shards is not positive.
const DefaultShards = 16

// Config sizes a Sharded cache. MaxEntries of zero disables caching.
type Config struct {
	// Name labels the cache in metrics.
	Name       string
	MaxEntries int
	TTL        time.Duration
	Shards     int
}

// Sharded spreads entries over independently locked LRU shards so that
// concurrent decisions for different keys rarely contend.
type Sharded[K comparable, V any] struct {
	name   string
	shards []*LRU[K, V]
	mask   uint64
	hash   func(K) uint64
}

// NewSharded creates a sharded cache. hash must be stable for equal keys.
// A nil return value is a usable disabled cache.
func NewSharded[K comparable, V any](cfg Config, hash func(K) uint64) *Sharded[K, V] {
	if cfg.MaxEntries <= 0 {
		return nil
	}

	n := cfg.Shards
	if n <= 0 {
		n = DefaultShards
	}
	// Round up to a power of two for mask selection.
	size := 1
	for size < n {
		size <<= 1
	}
	if size > cfg.MaxEntries {
		size = 1
	}

	perShard := (cfg.MaxEntries + size - 1) / size
	s := &Sharded[K, V]{
		name:   cfg.Name,
		shards: make([]*LRU[K, V], size),
		mask:   uint64(size - 1),
		hash:   hash,
	}
	for i := range s.shards {
		s.shards[i] = NewLRU[K, V](perShard, cfg.TTL)
	}
	return s
}

// StringHash hashes string keys.
func StringHash(s string) uint64 {
	return xxhash.Sum64String(s)
}

func (s *Sharded[K, V]) shard(key K) *LRU[K, V] {
	return s.shards[s.hash(key)&s.mask]
}

// Enabled reports whether the cache stores anything.
func (s *Sharded[K, V]) Enabled() bool {
	return s != nil
}

// Get returns the value for key computed against version.
func (s *Sharded[K, V]) Get(key K, version uint64) (V, bool) {
	if s == nil {
		var zero V
		return zero, false
	}
	v, ok := s.shard(key).Get(key, version)
	metrics.RecordCacheLookup(s.name, ok)
	return v, ok
}

// Add stores value for key. Values computed against a purged version are
// dropped and reported as stale.
func (s *Sharded[K, V]) Add(key K, value V, version uint64) {
	if s == nil {
		return
	}
	stored, evicted := s.shard(key).Add(key, value, version)
	if !stored {
		metrics.RecordCacheStaleReject(s.name)
		return
	}
	metrics.RecordCacheEviction(s.name, "capacity", evicted)
}

// Purge empties every shard and raises the version floor.
func (s *Sharded[K, V]) Purge(floor uint64) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, sh := range s.shards {
		n += sh.Purge(floor)
	}
	metrics.SetCacheEntries(s.name, 0)
	return n
}

// CleanupExpired sweeps expired entries from every shard.
func (s *Sharded[K, V]) CleanupExpired() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, sh := range s.shards {
		n += sh.CleanupExpired()
	}
	metrics.RecordCacheEviction(s.name, "expired", n)
	metrics.SetCacheEntries(s.name, s.Len())
	return n
}

// Len returns the number of entries across all shards.
func (s *Sharded[K, V]) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, sh := range s.shards {
		n += sh.Len()
	}
	return n
}

// Name returns the metrics label of the cache.
func (s *Sharded[K, V]) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}
