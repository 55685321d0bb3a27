// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

// Package rbac holds the immutable access model (users, roles and ordered
// topic permissions), the first-match permission evaluator and the store
// that publishes model snapshots to concurrent readers.
package rbac

import (
	"fmt"
	"time"

	"github.com/tomtom215/mqtt-file-rbac/internal/credentials"
)

// Activity is the MQTT operation a permission applies to.
type Activity int

const (
	ActivityPublish Activity = iota + 1
	ActivitySubscribe
	// ActivityAll applies to both publish and subscribe.
	ActivityAll
)

func (a Activity) String() string {
	switch a {
	case ActivityPublish:
		return "publish"
	case ActivitySubscribe:
		return "subscribe"
	case ActivityAll:
		return "all"
	default:
		return fmt.Sprintf("Activity(%d)", int(a))
	}
}

// Includes reports whether a permission for a covers the request operation op.
func (a Activity) Includes(op Activity) bool {
	return a == ActivityAll || a == op
}

// Effect is the outcome of a matching permission.
type Effect int

const (
	EffectAllow Effect = iota + 1
	EffectDeny
)

func (e Effect) String() string {
	switch e {
	case EffectAllow:
		return "allow"
	case EffectDeny:
		return "deny"
	default:
		return fmt.Sprintf("Effect(%d)", int(e))
	}
}

// MaxQoS is the highest MQTT quality of service level.
const MaxQoS = 2

// QoSRange is an inclusive range of QoS levels.
type QoSRange struct {
	Min uint8
	Max uint8
}

// AllQoS permits every QoS level.
var AllQoS = QoSRange{Min: 0, Max: MaxQoS}

// Contains reports whether qos lies in the range.
func (r QoSRange) Contains(qos uint8) bool {
	return qos >= r.Min && qos <= r.Max
}

// Valid reports whether the range bounds are legal.
func (r QoSRange) Valid() bool {
	return r.Min <= r.Max && r.Max <= MaxQoS
}

// RetainPolicy constrains the retain flag of a publish.
type RetainPolicy int

const (
	// RetainAll accepts retained and non-retained publishes.
	RetainAll RetainPolicy = iota
	// RetainRetained accepts only retained publishes.
	RetainRetained
	// RetainNotRetained accepts only non-retained publishes.
	RetainNotRetained
)

// Accepts reports whether a publish with the given retain flag satisfies p.
func (p RetainPolicy) Accepts(retain bool) bool {
	switch p {
	case RetainRetained:
		return retain
	case RetainNotRetained:
		return !retain
	default:
		return true
	}
}

// SharedPolicy constrains whether a subscription may be shared.
type SharedPolicy int

const (
	SharedAll SharedPolicy = iota
	SharedShared
	SharedNotShared
)

// Accepts reports whether a subscription with the given shared flag satisfies p.
func (p SharedPolicy) Accepts(shared bool) bool {
	switch p {
	case SharedShared:
		return shared
	case SharedNotShared:
		return !shared
	default:
		return true
	}
}

// AnySharedGroup matches every share group.
const AnySharedGroup = "#"

// Permission is one ordered topic rule of a role.
type Permission struct {
	// Filter is the MQTT topic filter. It may hold ${{clientid}} and
	// ${{username}} placeholders when Templated is set.
	Filter    string
	Templated bool

	Activity Activity
	Effect   Effect
	QoS      QoSRange
	Retain   RetainPolicy

	Shared      SharedPolicy
	SharedGroup string
}

// Role is a named, ordered list of permissions.
type Role struct {
	ID          string
	Permissions []Permission
}

// User is an account in the access definition.
type User struct {
	Name       string
	Credential credentials.Credential

	// Roles lists role IDs in declaration order.
	Roles []string
}

// Snapshot is an immutable, validated view of the access definition.
// Readers may hold a snapshot for as long as they like.
type Snapshot struct {
	// Version is assigned by the Store when the snapshot is installed.
	Version uint64

	Users map[string]*User
	Roles map[string]*Role

	// Decoy is verified in place of a missing user's credential.
	Decoy credentials.Credential

	LoadedAt time.Time

	// Digest is the hex SHA-256 of the source document.
	Digest string
}

// Resolve builds an identity for username bound to this snapshot.
func (s *Snapshot) Resolve(username, clientID string) (Identity, bool) {
	u, ok := s.Users[username]
	if !ok {
		return Identity{}, false
	}
	return Identity{
		Username: username,
		ClientID: clientID,
		Roles:    u.Roles,
		Version:  s.Version,
	}, true
}

// Identity is an authenticated principal. It is valid only for the snapshot
// Version it was resolved against; callers holding it across a reload have
// it re-resolved by the engine.
type Identity struct {
	Username string
	ClientID string
	Roles    []string
	Version  uint64
}

// Request is an operation to authorize.
type Request struct {
	// Topic is the publish topic name or the subscription filter, which
	// may carry a $share/<group>/ prefix.
	Topic    string
	Activity Activity
	QoS      uint8

	// Retain is the retain flag of a publish. It is ignored for subscriptions.
	Retain bool
}
