// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package topic

import (
	"fmt"
	"strings"
)

const sharePrefix = "$share/"

// Subscription is a parsed SUBSCRIBE topic filter.
type Subscription struct {
	// Filter is the topic filter without any $share prefix.
	Filter string

	// Group is the shared subscription group, empty when not shared.
	Group string

	// Shared is true for $share/<group>/<filter> subscriptions.
	Shared bool
}

// ParseSubscription splits a subscription into its shared group and filter
// and validates the filter.
func ParseSubscription(s string) (Subscription, error) {
	if !strings.HasPrefix(s, sharePrefix) {
		if err := ValidateFilter(s); err != nil {
			return Subscription{}, err
		}
		return Subscription{Filter: s}, nil
	}

	group, filter, ok := strings.Cut(s[len(sharePrefix):], Separator)
	if !ok || group == "" {
		return Subscription{}, fmt.Errorf("%w: %q has no share group", ErrInvalidFilter, s)
	}
	if ContainsWildcard(group) {
		return Subscription{}, fmt.Errorf("%w: share group %q contains a wildcard", ErrInvalidFilter, group)
	}
	if err := ValidateFilter(filter); err != nil {
		return Subscription{}, err
	}
	return Subscription{Filter: filter, Group: group, Shared: true}, nil
}
