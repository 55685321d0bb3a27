// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package rbac

import (
	"sync"
	"sync/atomic"
)

// Store publishes the active snapshot. Reads are a single atomic load and
// never block; installs are serialized.
type Store struct {
	current atomic.Pointer[Snapshot]

	mu      sync.Mutex
	version uint64
}

// NewStore creates an empty store. Current returns nil until the first
// Install.
func NewStore() *Store {
	return &Store{}
}

// Install assigns s the next version and makes it current. s must not be
// modified afterwards.
func (st *Store) Install(s *Snapshot) uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.version++
	s.Version = st.version
	st.current.Store(s)
	return s.Version
}

// Current returns the active snapshot, or nil before the first Install.
func (st *Store) Current() *Snapshot {
	return st.current.Load()
}

// Version returns the active snapshot version, or 0 before the first Install.
func (st *Store) Version() uint64 {
	if s := st.current.Load(); s != nil {
		return s.Version
	}
	return 0
}
