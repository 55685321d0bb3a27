// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/tomtom215/mqtt-file-rbac/internal/credentials"
	"github.com/tomtom215/mqtt-file-rbac/internal/logging"
	"github.com/tomtom215/mqtt-file-rbac/internal/metrics"
	"github.com/tomtom215/mqtt-file-rbac/internal/rbac"
)

// Authentication outcomes as recorded in metrics and debug logs.
const (
	authnAllowed       = "allowed"
	authnUnknownUser   = "unknown_user"
	authnBadCredential = "bad_credential"
	authnNotReady      = "not_ready"
	authnError         = "error"
)

// authnKey is a keyed digest of a username and presented credential.
type authnKey [blake2b.Size256]byte

func (k authnKey) hash() uint64 {
	return binary.LittleEndian.Uint64(k[:8])
}

// authnResult is a cached verification outcome.
type authnResult struct {
	ok     bool
	reason string
	roles  []string
}

// Authenticate verifies credential for username and returns an identity
// bound to the current snapshot. Unknown users and wrong credentials both
// return ErrDenied after the same amount of hashing work. ctx bounds only
// the wait for a hashing slot when MaxConcurrentAuthentications is set.
func (e *Engine) Authenticate(ctx context.Context, username string, credential []byte, clientID string) (rbac.Identity, error) {
	start := time.Now()

	s := e.store.Current()
	if s == nil {
		metrics.RecordAuthn(authnNotReady, false, time.Since(start))
		return rbac.Identity{}, ErrNotReady
	}

	key := e.digest(username, credential)
	res, cached := e.authn.Get(key, s.Version)
	if !cached {
		var err error
		if res, err = e.shared(ctx, s, username, credential, key); err != nil {
			metrics.RecordAuthn(authnError, false, time.Since(start))
			return rbac.Identity{}, err
		}
	}

	metrics.RecordAuthn(res.reason, cached, time.Since(start))
	if !res.ok {
		e.logger.Debug().
			Str("username", logging.SanitizeUsername(username)).
			Str("reason", res.reason).
			Bool("cached", cached).
			Msg("Authentication denied")
		return rbac.Identity{}, ErrDenied
	}

	return rbac.Identity{
		Username: username,
		ClientID: clientID,
		Roles:    res.roles,
		Version:  s.Version,
	}, nil
}

// shared runs verify once for concurrent identical attempts. Each caller
// waits on its own ctx; a caller whose result failed only because another
// caller's ctx ended runs the verification again.
func (e *Engine) shared(ctx context.Context, s *rbac.Snapshot, username string, credential []byte, key authnKey) (authnResult, error) {
	for {
		ch := e.flight.DoChan(flightKey(key, s.Version), func() (interface{}, error) {
			return e.verify(ctx, s, username, credential, key)
		})

		select {
		case <-ctx.Done():
			return authnResult{}, fmt.Errorf("wait for authentication: %w", ctx.Err())
		case r := <-ch:
			if r.Err == nil {
				return r.Val.(authnResult), nil
			}
			if isContextError(r.Err) && ctx.Err() == nil {
				continue
			}
			return authnResult{}, r.Err
		}
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// verify hashes credential against the user's stored credential, or the
// snapshot's decoy when the user does not exist, and caches the outcome.
func (e *Engine) verify(ctx context.Context, s *rbac.Snapshot, username string, credential []byte, key authnKey) (authnResult, error) {
	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return authnResult{}, fmt.Errorf("wait for authentication slot: %w", err)
		}
		defer e.sem.Release(1)
	}

	metrics.TrackHashing(true)
	defer metrics.TrackHashing(false)

	u, known := s.Users[username]
	stored := s.Decoy
	if known {
		stored = u.Credential
	}
	match := credentials.Verify(credential, stored)

	var res authnResult
	switch {
	case !known:
		res = authnResult{reason: authnUnknownUser}
	case !match:
		res = authnResult{reason: authnBadCredential}
	default:
		res = authnResult{ok: true, reason: authnAllowed, roles: u.Roles}
	}

	e.authn.Add(key, res, s.Version)
	return res, nil
}

// digest derives the cache key for a username and credential. The random
// per-engine key keeps the digest useless outside this process.
func (e *Engine) digest(username string, credential []byte) authnKey {
	// New256 only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(e.cacheKey)

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(username)))
	h.Write(n[:])
	h.Write([]byte(username))
	h.Write(credential)

	var k authnKey
	h.Sum(k[:0])
	return k
}

func flightKey(k authnKey, version uint64) string {
	return string(k[:]) + ":" + strconv.FormatUint(version, 10)
}
