// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package logging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent is an access control event for audit logging.
type SecurityEvent struct {
	// Event is the type of event (e.g., "connect", "publish_denied").
	Event string
	// Username is the MQTT username (sanitized before logging).
	Username string
	// ClientID is the MQTT client identifier.
	ClientID string
	// Listener is the broker listener the client used.
	Listener string
	// Topic is the topic or subscription filter involved.
	Topic string
	// Success indicates if the operation was allowed.
	Success bool
	// Reason is the machine-readable decision reason.
	Reason string
	// Error is the error message if the operation failed.
	Error string
	// Details contains additional fields.
	Details map[string]string
}

// SecurityLogger logs authentication and authorization outcomes with
// sensitive values masked.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a new security logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str("component", "security").Logger(),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "security").Logger(),
	}
}

// LogEvent logs a security event. Allowed events are logged at debug level
// and denials at info so that a busy broker does not flood the log.
func (l *SecurityLogger) LogEvent(ctx context.Context, event *SecurityEvent) {
	var e *zerolog.Event
	if event.Success {
		e = l.logger.Debug().Str("status", "allowed")
	} else {
		e = l.logger.Info().Str("status", "denied")
	}
	e = e.Str("event", event.Event)

	if id := CorrelationIDFromContext(ctx); id != "" {
		e = e.Str("correlation_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		e = e.Str("request_id", id)
	}
	if event.Username != "" {
		e = e.Str("username", SanitizeUsername(event.Username))
	}
	if event.ClientID != "" {
		e = e.Str("client_id", truncateString(event.ClientID, 128))
	}
	if event.Listener != "" {
		e = e.Str("listener", event.Listener)
	}
	if event.Topic != "" {
		e = e.Str("topic", truncateString(event.Topic, 256))
	}
	if event.Reason != "" {
		e = e.Str("reason", event.Reason)
	}
	if event.Error != "" && !event.Success {
		e = e.Str("error", SanitizeError(event.Error))
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg(event.Event)
}

// LogConnect logs the outcome of a connection attempt.
func (l *SecurityLogger) LogConnect(ctx context.Context, username, clientID, listener string, success bool, reason string) {
	l.LogEvent(ctx, &SecurityEvent{
		Event:    "connect",
		Username: username,
		ClientID: clientID,
		Listener: listener,
		Success:  success,
		Reason:   reason,
	})
}

// LogDecision logs a publish or subscribe decision.
func (l *SecurityLogger) LogDecision(ctx context.Context, activity, username, clientID, topic string, allowed bool, reason string) {
	l.LogEvent(ctx, &SecurityEvent{
		Event:    activity,
		Username: username,
		ClientID: clientID,
		Topic:    topic,
		Success:  allowed,
		Reason:   reason,
	})
}

// LogDisconnect logs the end of a client session.
func (l *SecurityLogger) LogDisconnect(ctx context.Context, username, clientID string) {
	l.LogEvent(ctx, &SecurityEvent{
		Event:    "disconnect",
		Username: username,
		ClientID: clientID,
		Success:  true,
	})
}

// SanitizeUsername masks a username, keeping the first 2 characters.
// Example: "johndoe" -> "jo***"
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}

// sanitizeSecret never returns any part of a password or credential.
func sanitizeSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "[REDACTED]"
}

// SanitizeError replaces error messages that may carry secrets.
func SanitizeError(err string) string {
	lowerErr := strings.ToLower(err)
	for _, pattern := range []string{"password", "secret", "credential", "token"} {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}
	return truncateString(err, 200)
}

// sensitiveKeys are detail keys whose values are always redacted.
var sensitiveKeys = map[string]bool{
	"password":   true,
	"credential": true,
	"secret":     true,
	"salt":       true,
	"hash":       true,
	"token":      true,
}

// SanitizeValue sanitizes a detail value based on its key name.
func SanitizeValue(key, value string) string {
	lowerKey := strings.ToLower(key)
	if sensitiveKeys[lowerKey] {
		return sanitizeSecret(value)
	}
	if lowerKey == "username" {
		return SanitizeUsername(value)
	}
	return truncateString(value, 256)
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
