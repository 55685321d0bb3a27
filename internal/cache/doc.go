// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

/*
Package cache provides the bounded decision caches used by the engine.

# Overview

The package provides:
  - LRU: a generic thread-safe LRU with TTL expiration
  - Sharded: a set of LRU shards selected by key hash (xxhash for strings)

Every entry carries the snapshot version it was computed against. A lookup
only hits when the caller asks for the same version, so a decision made
before a reload can never answer a request after it. Purge empties the
cache and raises a version floor below which inserts are refused; a slow
computation that started before a reload therefore cannot repopulate the
cache with a stale answer.

# Sizing

MaxEntries is split evenly across shards. A zero MaxEntries disables the
cache entirely: NewSharded returns nil and every method on a nil *Sharded
is a no-op or a miss.

# Metrics

Hits, misses, capacity and expiry evictions, stale inserts and the entry
count are exported with the cache name as the "cache" label.

# Example

	authz := cache.NewSharded[authzKey, rbac.Decision](cache.Config{
	    Name:       "authz",
	    MaxEntries: 100000,
	    TTL:        5 * time.Minute,
	}, authzKey.hash)

	if d, ok := authz.Get(key, version); ok {
	    return d
	}
	d := rbac.Evaluate(snapshot, id, req)
	authz.Add(key, d, version)
*/
package cache
