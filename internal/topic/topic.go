// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

// Package topic implements MQTT topic filter validation and matching.
//
// Matching follows MQTT 3.1.1 and 5.0: '+' matches exactly one level
// (including an empty one), '#' matches the parent level and any number of
// child levels, and topics beginning with '$' are never matched by a filter
// whose first level is a wildcard.
package topic

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Separator divides topic levels.
	Separator = "/"

	// SingleLevelWildcard matches one level.
	SingleLevelWildcard = "+"

	// MultiLevelWildcard matches any number of trailing levels.
	MultiLevelWildcard = "#"
)

var (
	// ErrEmpty is returned for empty topics and filters.
	ErrEmpty = errors.New("topic is empty")

	// ErrInvalidFilter is returned for malformed topic filters.
	ErrInvalidFilter = errors.New("invalid topic filter")

	// ErrInvalidTopic is returned for topic names containing wildcards.
	ErrInvalidTopic = errors.New("invalid topic name")
)

// ValidateFilter checks that f is a well-formed topic filter.
func ValidateFilter(f string) error {
	if f == "" {
		return ErrEmpty
	}
	if strings.ContainsRune(f, 0) {
		return fmt.Errorf("%w: %q contains a null character", ErrInvalidFilter, f)
	}
	rest := f
	for {
		level, tail, more := strings.Cut(rest, Separator)
		switch {
		case level == MultiLevelWildcard:
			if more {
				return fmt.Errorf("%w: %q has '#' before the last level", ErrInvalidFilter, f)
			}
		case level == SingleLevelWildcard:
		case strings.ContainsAny(level, "+#"):
			return fmt.Errorf("%w: %q mixes a wildcard with other characters in one level", ErrInvalidFilter, f)
		}
		if !more {
			return nil
		}
		rest = tail
	}
}

// ValidateTopic checks that t is a publishable topic name.
func ValidateTopic(t string) error {
	if t == "" {
		return ErrEmpty
	}
	if strings.ContainsAny(t, "+#") {
		return fmt.Errorf("%w: %q contains a wildcard", ErrInvalidTopic, t)
	}
	if strings.ContainsRune(t, 0) {
		return fmt.Errorf("%w: %q contains a null character", ErrInvalidTopic, t)
	}
	return nil
}

// ContainsWildcard reports whether s contains '+' or '#'.
func ContainsWildcard(s string) bool {
	return strings.ContainsAny(s, "+#")
}

// Matches reports whether the concrete topic name is matched by filter.
// Both are assumed valid; an empty filter or topic never matches.
func Matches(filter, topic string) bool {
	if filter == "" || topic == "" {
		return false
	}
	if skipsDollar(filter, topic) {
		return false
	}
	for {
		fl, frest, fmore := strings.Cut(filter, Separator)
		if fl == MultiLevelWildcard {
			return true
		}
		tl, trest, tmore := strings.Cut(topic, Separator)
		if fl != SingleLevelWildcard && fl != tl {
			return false
		}
		if !fmore {
			return !tmore
		}
		if !tmore {
			// "a/#" also matches "a".
			return frest == MultiLevelWildcard
		}
		filter, topic = frest, trest
	}
}

// Covers reports whether every topic matched by sub is also matched by
// permission. It decides whether a subscription filter is allowed by a
// permission filter: '+' in sub is covered only by '+' or '#', and '#' in
// sub only by '#'. For a wildcard-free sub it equals Matches.
func Covers(permission, sub string) bool {
	if permission == "" || sub == "" {
		return false
	}
	if skipsDollar(permission, sub) {
		return false
	}
	for {
		pl, prest, pmore := strings.Cut(permission, Separator)
		if pl == MultiLevelWildcard {
			return true
		}
		sl, srest, smore := strings.Cut(sub, Separator)
		switch {
		case sl == MultiLevelWildcard:
			return false
		case pl == SingleLevelWildcard:
		case sl == SingleLevelWildcard || pl != sl:
			return false
		}
		if !pmore {
			return !smore
		}
		if !smore {
			return prest == MultiLevelWildcard
		}
		permission, sub = prest, srest
	}
}

// skipsDollar reports whether a '$' topic must be excluded from filter.
func skipsDollar(filter, topic string) bool {
	return strings.HasPrefix(topic, "$") && !strings.HasPrefix(filter, "$")
}
