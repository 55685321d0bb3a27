// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package rbac

// Reason explains a decision.
type Reason int

const (
	ReasonAllowed Reason = iota
	// ReasonDeniedByRule means a DENY permission matched first.
	ReasonDeniedByRule
	// ReasonNoMatchingPermission means no permission matched.
	ReasonNoMatchingPermission
	// ReasonUserRemoved means the identity's user is gone after a reload.
	ReasonUserRemoved
	// ReasonInvalidTopic means the topic or subscription was malformed.
	ReasonInvalidTopic
	// ReasonNotReady means no access definition has ever been loaded.
	ReasonNotReady
	// ReasonUnknownClient means no authenticated session exists for the client.
	ReasonUnknownClient
)

var reasonNames = [...]string{
	ReasonAllowed:              "allowed",
	ReasonDeniedByRule:         "denied_by_rule",
	ReasonNoMatchingPermission: "no_matching_permission",
	ReasonUserRemoved:          "user_removed",
	ReasonInvalidTopic:         "invalid_topic",
	ReasonNotReady:             "not_ready",
	ReasonUnknownClient:        "unknown_client",
}

func (r Reason) String() string {
	if r >= 0 && int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Decision is the result of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason

	// Role and Rule identify the matching permission when one matched.
	// Rule is the zero-based position within the role.
	Role string
	Rule int
}

// Deny returns a denial with the given reason.
func Deny(reason Reason) Decision {
	return Decision{Reason: reason, Rule: -1}
}
