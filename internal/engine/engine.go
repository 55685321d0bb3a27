// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

// Package engine is the entry point for access decisions. It owns the
// snapshot store and the decision caches and exposes Load, Authenticate and
// Authorize to the broker hooks and the HTTP API.
package engine

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/mqtt-file-rbac/internal/cache"
	"github.com/tomtom215/mqtt-file-rbac/internal/definition"
	"github.com/tomtom215/mqtt-file-rbac/internal/logging"
	"github.com/tomtom215/mqtt-file-rbac/internal/metrics"
	"github.com/tomtom215/mqtt-file-rbac/internal/rbac"
)

var (
	// ErrDenied is returned for unknown users and wrong credentials alike.
	ErrDenied = errors.New("authentication denied")

	// ErrNotReady is returned before any definition has been installed.
	ErrNotReady = errors.New("no access definition loaded")
)

// Config controls an Engine.
type Config struct {
	PasswordType definition.PasswordType

	// AuthnCache and AuthzCache size the decision caches; a zero
	// MaxEntries disables one.
	AuthnCache cache.Config
	AuthzCache cache.Config

	// MaxConcurrentAuthentications bounds credential hashing. Zero means
	// unbounded.
	MaxConcurrentAuthentications int64

	// MaintenanceInterval is how often expired cache entries are swept.
	MaintenanceInterval time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		PasswordType:        definition.PasswordHashed,
		AuthnCache:          cache.Config{MaxEntries: 1000, TTL: 30 * time.Second, Shards: cache.DefaultShards},
		AuthzCache:          cache.Config{MaxEntries: 10000, TTL: 5 * time.Minute, Shards: cache.DefaultShards},
		MaintenanceInterval: time.Minute,
	}
}

// Status describes the installed snapshot.
type Status struct {
	Ready    bool      `json:"ready"`
	Version  uint64    `json:"version"`
	Users    int       `json:"users"`
	Roles    int       `json:"roles"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
	Digest   string    `json:"digest,omitempty"`
}

// Engine answers authentication and authorization questions against the
// current snapshot. All methods are safe for concurrent use.
type Engine struct {
	cfg   Config
	store *rbac.Store

	authn *cache.Sharded[authnKey, authnResult]
	authz *cache.Sharded[authzKey, rbac.Decision]

	// cacheKey keys the credential digest so that cache keys reveal
	// nothing about passwords.
	cacheKey []byte

	flight singleflight.Group
	sem    *semaphore.Weighted

	// loadMu serializes Load so versions and cache floors move together.
	loadMu sync.Mutex

	logger zerolog.Logger
}

// New creates an Engine with no snapshot installed.
func New(cfg Config) (*Engine, error) {
	if cfg.MaxConcurrentAuthentications < 0 {
		return nil, fmt.Errorf("max concurrent authentications must not be negative: %d", cfg.MaxConcurrentAuthentications)
	}
	if cfg.MaintenanceInterval <= 0 {
		cfg.MaintenanceInterval = DefaultConfig().MaintenanceInterval
	}
	cfg.AuthnCache.Name = "authn"
	cfg.AuthzCache.Name = "authz"

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate cache key: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		store:    rbac.NewStore(),
		authn:    cache.NewSharded[authnKey, authnResult](cfg.AuthnCache, authnKey.hash),
		authz:    cache.NewSharded[authzKey, rbac.Decision](cfg.AuthzCache, authzKey.hash),
		cacheKey: key,
		logger:   logging.WithComponent("engine"),
	}
	if cfg.MaxConcurrentAuthentications > 0 {
		e.sem = semaphore.NewWeighted(cfg.MaxConcurrentAuthentications)
	}
	return e, nil
}

// Load parses raw and, if valid, installs it as the current snapshot and
// returns its version. An invalid definition leaves the previous snapshot
// in place; the error wraps definition.ErrDefinitionInvalid.
func (e *Engine) Load(raw []byte) (uint64, error) {
	snap, err := definition.Parse(raw, definition.Options{PasswordType: e.cfg.PasswordType})
	if err != nil {
		return 0, err
	}
	return e.Install(snap), nil
}

// Install makes snap the current snapshot and invalidates cached decisions
// made against older versions.
func (e *Engine) Install(snap *rbac.Snapshot) uint64 {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	version := e.store.Install(snap)
	e.authn.Purge(version)
	e.authz.Purge(version)

	metrics.SetSnapshot(version, len(snap.Users), len(snap.Roles), snap.LoadedAt)
	e.logger.Info().
		Uint64("version", version).
		Int("users", len(snap.Users)).
		Int("roles", len(snap.Roles)).
		Str("digest", shortDigest(snap.Digest)).
		Msg("Access definition installed")
	return version
}

// Version returns the installed snapshot version, 0 before the first load.
func (e *Engine) Version() uint64 {
	return e.store.Version()
}

// Ready reports whether a snapshot has been installed.
func (e *Engine) Ready() bool {
	return e.store.Current() != nil
}

// Status describes the installed snapshot.
func (e *Engine) Status() Status {
	s := e.store.Current()
	if s == nil {
		return Status{}
	}
	return Status{
		Ready:    true,
		Version:  s.Version,
		Users:    len(s.Users),
		Roles:    len(s.Roles),
		LoadedAt: s.LoadedAt,
		Digest:   s.Digest,
	}
}

// Resolve brings id up to date with the current snapshot. It reports false
// when the user no longer exists or nothing is loaded.
func (e *Engine) Resolve(id rbac.Identity) (rbac.Identity, bool) {
	s := e.store.Current()
	if s == nil {
		return rbac.Identity{}, false
	}
	if id.Version == s.Version {
		return id, true
	}
	return s.Resolve(id.Username, id.ClientID)
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
