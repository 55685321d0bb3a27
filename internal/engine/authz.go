// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package engine

import (
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/tomtom215/mqtt-file-rbac/internal/metrics"
	"github.com/tomtom215/mqtt-file-rbac/internal/rbac"
)

// authzKey identifies one decision. Roles are not part of the key: within
// a snapshot version they are fixed by the username.
type authzKey struct {
	username string
	clientID string
	topic    string
	activity rbac.Activity
	qos      uint8
	retain   bool
}

func (k authzKey) hash() uint64 {
	var d xxhash.Digest
	d.Reset()
	_, _ = d.WriteString(k.username)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(k.clientID)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(k.topic)
	flags := []byte{byte(k.activity), k.qos, 0}
	if k.retain {
		flags[2] = 1
	}
	_, _ = d.Write(flags)
	return d.Sum64()
}

// Authorize decides req for id. An identity resolved against an older
// snapshot is re-resolved by username first; if the user was removed the
// request is denied with ReasonUserRemoved. Authorize never blocks on I/O.
func (e *Engine) Authorize(id rbac.Identity, req rbac.Request) rbac.Decision {
	start := time.Now()

	s := e.store.Current()
	if s == nil {
		return e.record(req, rbac.Deny(rbac.ReasonNotReady), false, start)
	}

	if id.Version != s.Version {
		fresh, ok := s.Resolve(id.Username, id.ClientID)
		metrics.RecordStaleIdentity(!ok)
		if !ok {
			return e.record(req, rbac.Deny(rbac.ReasonUserRemoved), false, start)
		}
		id = fresh
	}

	key := authzKey{
		username: id.Username,
		clientID: id.ClientID,
		topic:    req.Topic,
		activity: req.Activity,
		qos:      req.QoS,
		retain:   req.Retain,
	}
	if d, ok := e.authz.Get(key, s.Version); ok {
		return e.record(req, d, true, start)
	}

	d := rbac.Evaluate(s, id, req)
	e.authz.Add(key, d, s.Version)
	return e.record(req, d, false, start)
}

func (e *Engine) record(req rbac.Request, d rbac.Decision, cached bool, start time.Time) rbac.Decision {
	metrics.RecordAuthz(req.Activity.String(), d.Allowed, d.Reason.String(), cached, time.Since(start))
	return d
}
