// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package hooks

import (
	"sync"
	"time"

	"github.com/tomtom215/mqtt-file-rbac/internal/metrics"
	"github.com/tomtom215/mqtt-file-rbac/internal/rbac"
)

// Session is a connected, authenticated client.
type Session struct {
	Identity    rbac.Identity
	Listener    string
	ConnectedAt time.Time
}

// SessionRegistry maps client IDs to their sessions. A client ID holds at
// most one session; a reconnect replaces the previous one.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
	}
}

// Put stores s under its identity's client ID.
func (r *SessionRegistry) Put(s Session) {
	stored := s
	stored.Identity.Roles = append([]string(nil), s.Identity.Roles...)

	r.mu.Lock()
	r.sessions[s.Identity.ClientID] = &stored
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.SetActiveSessions(n)
}

// Get returns a copy of the session for clientID.
func (r *SessionRegistry) Get(clientID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[clientID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Refresh replaces the identity of an existing session after the access
// definition changed. It does nothing when the client is gone.
func (r *SessionRegistry) Refresh(clientID string, id rbac.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[clientID]; ok && s.Identity.Username == id.Username {
		s.Identity = id
	}
}

// Delete removes and returns the session for clientID.
func (r *SessionRegistry) Delete(clientID string) (Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[clientID]
	if ok {
		delete(r.sessions, clientID)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return Session{}, false
	}
	metrics.SetActiveSessions(n)
	return *s, true
}

// Len returns the number of sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
