// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package topic

import "strings"

const (
	placeholderPrefix = "${{"
	placeholderSuffix = "}}"

	// placeholderEscape before a placeholder keeps it literal.
	placeholderEscape = "§"

	clientIDKey = "clientid"
	usernameKey = "username"
)

// HasPlaceholder reports whether filter contains a substitution placeholder.
func HasPlaceholder(filter string) bool {
	return strings.Contains(filter, placeholderPrefix)
}

// Substitute replaces ${{clientid}} and ${{username}} in filter. Keys are
// case-insensitive. Unknown keys and unterminated placeholders are left as
// they are, and "§${{...}}" produces the literal placeholder.
func Substitute(filter, clientID, username string) string {
	if !HasPlaceholder(filter) {
		return filter
	}

	var b strings.Builder
	b.Grow(len(filter) + len(clientID) + len(username))

	rest := filter
	for {
		start := strings.Index(rest, placeholderPrefix)
		if start < 0 {
			b.WriteString(rest)
			return b.String()
		}

		if strings.HasSuffix(rest[:start], placeholderEscape) {
			b.WriteString(rest[:start-len(placeholderEscape)])
			b.WriteString(placeholderPrefix)
			rest = rest[start+len(placeholderPrefix):]
			continue
		}

		body := rest[start+len(placeholderPrefix):]
		end := strings.Index(body, placeholderSuffix)
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}

		b.WriteString(rest[:start])
		switch strings.ToLower(body[:end]) {
		case clientIDKey:
			b.WriteString(clientID)
		case usernameKey:
			b.WriteString(username)
		default:
			b.WriteString(rest[start : start+len(placeholderPrefix)+end+len(placeholderSuffix)])
		}
		rest = body[end+len(placeholderSuffix):]
	}
}
