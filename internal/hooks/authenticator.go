// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

// Package hooks adapts the engine to the callbacks an MQTT broker makes on
// connect, publish, subscribe and disconnect.
package hooks

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/mqtt-file-rbac/internal/engine"
	"github.com/tomtom215/mqtt-file-rbac/internal/logging"
	"github.com/tomtom215/mqtt-file-rbac/internal/metrics"
	"github.com/tomtom215/mqtt-file-rbac/internal/rbac"
	"github.com/tomtom215/mqtt-file-rbac/internal/topic"
)

// Engine is the part of *engine.Engine the hooks depend on.
type Engine interface {
	Authenticate(ctx context.Context, username string, credential []byte, clientID string) (rbac.Identity, error)
	Authorize(id rbac.Identity, req rbac.Request) rbac.Decision
	Resolve(id rbac.Identity) (rbac.Identity, bool)
}

// Outcome is the verdict of a connect hook.
type Outcome int

const (
	// OutcomeSuccess accepts the connection.
	OutcomeSuccess Outcome = iota
	// OutcomeFail rejects the connection with a reason code.
	OutcomeFail
	// OutcomeNext defers the decision to the next authenticator.
	OutcomeNext
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFail:
		return "fail"
	case OutcomeNext:
		return "next"
	default:
		return "unknown"
	}
}

// ReasonCode is an MQTT 5 CONNACK reason code.
type ReasonCode byte

const (
	ReasonSuccess                  ReasonCode = 0x00
	ReasonClientIdentifierNotValid ReasonCode = 0x85
	ReasonBadUserNameOrPassword    ReasonCode = 0x86
	ReasonNotAuthorized            ReasonCode = 0x87
	ReasonServerUnavailable        ReasonCode = 0x88
)

// Connect failure messages.
const (
	msgMissingCredentials  = "Authentication failed because username or password are missing"
	msgWildcardClientID    = "The characters '#' and '+' are not allowed in the client identifier"
	msgWildcardUsername    = "The characters '#' and '+' are not allowed in the username"
	msgInvalidCredentials  = "Authentication failed because of invalid credentials"
	msgDefinitionNotLoaded = "Authentication failed because no access definition is loaded"
	msgAuthUnavailable     = "Authentication could not be completed"
)

// Config controls an Authenticator.
type Config struct {
	// ListenerNames restricts the authenticator to connections arriving on
	// these listeners. Empty means every listener.
	ListenerNames []string

	// NextExtensionInsteadOfFail defers to the next authenticator wherever
	// a connection would otherwise be rejected.
	NextExtensionInsteadOfFail bool
}

// ConnectRequest carries the fields of a CONNECT packet.
type ConnectRequest struct {
	ClientID string
	Username string

	// Password is nil when the packet carried none.
	Password []byte

	// Listener names the broker listener; empty when unknown.
	Listener string
}

// ConnectResult is the verdict for a ConnectRequest.
type ConnectResult struct {
	Outcome    Outcome
	ReasonCode ReasonCode
	Reason     string
}

// Authenticator implements the broker callbacks on top of an Engine and
// tracks the identity of every connected client.
type Authenticator struct {
	engine    Engine
	cfg       Config
	listeners map[string]struct{}
	sessions  *SessionRegistry
	security  *logging.SecurityLogger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(eng Engine, cfg Config) *Authenticator {
	a := &Authenticator{
		engine:   eng,
		cfg:      cfg,
		sessions: NewSessionRegistry(),
		security: logging.NewSecurityLogger(),
	}
	if len(cfg.ListenerNames) > 0 {
		a.listeners = make(map[string]struct{}, len(cfg.ListenerNames))
		for _, name := range cfg.ListenerNames {
			a.listeners[name] = struct{}{}
		}
	}
	return a
}

// Sessions returns the registry of connected clients.
func (a *Authenticator) Sessions() *SessionRegistry {
	return a.sessions
}

// OnConnect authenticates a connecting client. On success the client's
// identity is registered for later publish and subscribe checks.
func (a *Authenticator) OnConnect(ctx context.Context, req ConnectRequest) ConnectResult {
	if a.listeners != nil && req.Listener != "" {
		if _, ok := a.listeners[req.Listener]; !ok {
			return a.connectResult(ctx, req, ConnectResult{Outcome: OutcomeNext}, "listener_skipped")
		}
	}

	if req.Username == "" || req.Password == nil {
		return a.reject(ctx, req, ReasonBadUserNameOrPassword, msgMissingCredentials, "missing_credentials")
	}
	if topic.ContainsWildcard(req.ClientID) {
		return a.reject(ctx, req, ReasonClientIdentifierNotValid, msgWildcardClientID, "invalid_client_id")
	}
	if topic.ContainsWildcard(req.Username) {
		return a.reject(ctx, req, ReasonBadUserNameOrPassword, msgWildcardUsername, "invalid_username")
	}

	id, err := a.engine.Authenticate(ctx, req.Username, req.Password, req.ClientID)
	switch {
	case errors.Is(err, engine.ErrDenied):
		return a.reject(ctx, req, ReasonNotAuthorized, msgInvalidCredentials, "denied")
	case errors.Is(err, engine.ErrNotReady):
		return a.reject(ctx, req, ReasonServerUnavailable, msgDefinitionNotLoaded, "not_ready")
	case err != nil:
		logging.Ctx(ctx).Warn().Err(err).Str("component", "hooks").Str("client_id", req.ClientID).
			Msg("Authentication could not be completed")
		return a.reject(ctx, req, ReasonServerUnavailable, msgAuthUnavailable, "error")
	}

	a.sessions.Put(Session{Identity: id, Listener: req.Listener, ConnectedAt: time.Now()})
	return a.connectResult(ctx, req, ConnectResult{Outcome: OutcomeSuccess, ReasonCode: ReasonSuccess}, "success")
}

func (a *Authenticator) reject(ctx context.Context, req ConnectRequest, code ReasonCode, msg, outcome string) ConnectResult {
	if a.cfg.NextExtensionInsteadOfFail {
		return a.connectResult(ctx, req, ConnectResult{Outcome: OutcomeNext}, outcome)
	}
	return a.connectResult(ctx, req, ConnectResult{Outcome: OutcomeFail, ReasonCode: code, Reason: msg}, outcome)
}

func (a *Authenticator) connectResult(ctx context.Context, req ConnectRequest, res ConnectResult, outcome string) ConnectResult {
	metrics.RecordHook("connect", outcome)
	if outcome != "listener_skipped" {
		a.security.LogConnect(ctx, req.Username, req.ClientID, req.Listener, res.Outcome == OutcomeSuccess, outcome)
	}
	return res
}

// OnPublish authorizes a PUBLISH from clientID.
func (a *Authenticator) OnPublish(ctx context.Context, clientID, topicName string, qos uint8, retain bool) rbac.Decision {
	return a.authorize(ctx, clientID, rbac.Request{
		Topic:    topicName,
		Activity: rbac.ActivityPublish,
		QoS:      qos,
		Retain:   retain,
	})
}

// OnSubscribe authorizes a subscription, which may be a $share filter.
func (a *Authenticator) OnSubscribe(ctx context.Context, clientID, subscription string, qos uint8) rbac.Decision {
	return a.authorize(ctx, clientID, rbac.Request{
		Topic:    subscription,
		Activity: rbac.ActivitySubscribe,
		QoS:      qos,
	})
}

func (a *Authenticator) authorize(ctx context.Context, clientID string, req rbac.Request) rbac.Decision {
	hook := req.Activity.String()

	sess, ok := a.sessions.Get(clientID)
	if !ok {
		d := rbac.Deny(rbac.ReasonUnknownClient)
		metrics.RecordHook(hook, d.Reason.String())
		a.security.LogDecision(ctx, hook, "", clientID, req.Topic, false, d.Reason.String())
		return d
	}

	id := sess.Identity
	if fresh, ok := a.engine.Resolve(id); ok && fresh.Version != id.Version {
		a.sessions.Refresh(clientID, fresh)
		id = fresh
	}

	d := a.engine.Authorize(id, req)
	metrics.RecordHook(hook, d.Reason.String())
	a.security.LogDecision(ctx, hook, id.Username, clientID, req.Topic, d.Allowed, d.Reason.String())
	return d
}

// OnDisconnect forgets clientID.
func (a *Authenticator) OnDisconnect(ctx context.Context, clientID string) {
	sess, ok := a.sessions.Delete(clientID)
	if !ok {
		metrics.RecordHook("disconnect", "unknown_client")
		return
	}
	metrics.RecordHook("disconnect", "success")
	a.security.LogDisconnect(ctx, sess.Identity.Username, clientID)
}
