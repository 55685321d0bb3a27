// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package rbac

import (
	"github.com/tomtom215/mqtt-file-rbac/internal/topic"
)

// Evaluate decides req for id against snapshot s.
//
// Roles are visited in the identity's order and permissions in declaration
// order. The first permission whose filter matches and whose constraints
// accept the request decides; when none does the request is denied.
// Evaluate is pure and safe for concurrent use.
func Evaluate(s *Snapshot, id Identity, req Request) Decision {
	if s == nil {
		return Deny(ReasonNotReady)
	}

	target, err := parseTarget(req)
	if err != nil {
		return Deny(ReasonInvalidTopic)
	}

	// Templated rules never apply when a substituted value holds a wildcard.
	substitutable := !topic.ContainsWildcard(id.ClientID) && !topic.ContainsWildcard(id.Username)

	for _, roleID := range id.Roles {
		role, ok := s.Roles[roleID]
		if !ok {
			continue
		}
		for i := range role.Permissions {
			p := &role.Permissions[i]
			if !p.accepts(req, target) {
				continue
			}

			filter := p.Filter
			if p.Templated {
				if !substitutable {
					continue
				}
				filter = topic.Substitute(filter, id.ClientID, id.Username)
			}
			if !target.matchedBy(filter, req.Activity) {
				continue
			}

			if p.Effect == EffectDeny {
				return Decision{Reason: ReasonDeniedByRule, Role: roleID, Rule: i}
			}
			return Decision{Allowed: true, Reason: ReasonAllowed, Role: roleID, Rule: i}
		}
	}

	return Deny(ReasonNoMatchingPermission)
}

// target is a request topic split into its matchable parts.
type target struct {
	name   string
	group  string
	shared bool
}

func parseTarget(req Request) (target, error) {
	switch req.Activity {
	case ActivityPublish:
		if err := topic.ValidateTopic(req.Topic); err != nil {
			return target{}, err
		}
		return target{name: req.Topic}, nil
	case ActivitySubscribe:
		sub, err := topic.ParseSubscription(req.Topic)
		if err != nil {
			return target{}, err
		}
		return target{name: sub.Filter, group: sub.Group, shared: sub.Shared}, nil
	default:
		return target{}, topic.ErrInvalidTopic
	}
}

// matchedBy reports whether filter grants the target for op. Publishes need
// the filter to match the topic name; subscriptions need it to cover the
// requested filter.
func (t target) matchedBy(filter string, op Activity) bool {
	if op == ActivitySubscribe {
		return topic.Covers(filter, t.name)
	}
	return topic.Matches(filter, t.name)
}

// accepts checks every constraint except the topic filter.
func (p *Permission) accepts(req Request, t target) bool {
	if !p.Activity.Includes(req.Activity) {
		return false
	}
	if !p.QoS.Contains(req.QoS) {
		return false
	}
	if req.Activity == ActivityPublish {
		return p.Retain.Accepts(req.Retain)
	}
	if !p.Shared.Accepts(t.shared) {
		return false
	}
	if t.shared && p.SharedGroup != AnySharedGroup && p.SharedGroup != t.group {
		return false
	}
	return true
}
