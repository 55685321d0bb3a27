// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package api

import (
	"net/http"

	"github.com/tomtom215/mqtt-file-rbac/internal/engine"
	"github.com/tomtom215/mqtt-file-rbac/internal/hooks"
	"github.com/tomtom215/mqtt-file-rbac/internal/rbac"
)

// Handler serves the decision endpoints.
type Handler struct {
	auth   *hooks.Authenticator
	status StatusSource
}

// ConnectRequest is the body of POST /v1/connect. A null or absent
// password means the CONNECT packet carried none.
type ConnectRequest struct {
	ClientID string  `json:"client_id"`
	Username string  `json:"username"`
	Password *string `json:"password"`
	Listener string  `json:"listener"`
}

// ConnectResponse carries the connect verdict. ReasonCode is the MQTT 5
// CONNACK reason code to send when Result is "fail".
type ConnectResponse struct {
	Result     string `json:"result"`
	ReasonCode uint8  `json:"reason_code"`
	Reason     string `json:"reason,omitempty"`
}

// PublishRequest is the body of POST /v1/publish.
type PublishRequest struct {
	ClientID string `json:"client_id" validate:"required"`
	Topic    string `json:"topic" validate:"required"`
	QoS      uint8  `json:"qos" validate:"lte=2"`
	Retain   bool   `json:"retain"`
}

// SubscribeRequest is the body of POST /v1/subscribe. Topic may be a
// $share subscription.
type SubscribeRequest struct {
	ClientID string `json:"client_id" validate:"required"`
	Topic    string `json:"topic" validate:"required"`
	QoS      uint8  `json:"qos" validate:"lte=2"`
}

// DisconnectRequest is the body of POST /v1/disconnect.
type DisconnectRequest struct {
	ClientID string `json:"client_id" validate:"required"`
}

// DecisionResponse carries a publish or subscribe verdict. A denial is a
// normal answer, so it is sent with status 200.
type DecisionResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	Role    string `json:"role,omitempty"`
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	engine.Status
	Sessions int `json:"sessions"`
}

// Connect handles POST /v1/connect.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	connect := hooks.ConnectRequest{
		ClientID: req.ClientID,
		Username: req.Username,
		Listener: req.Listener,
	}
	if req.Password != nil {
		connect.Password = []byte(*req.Password)
	}

	res := h.auth.OnConnect(r.Context(), connect)
	writeJSON(w, http.StatusOK, ConnectResponse{
		Result:     res.Outcome.String(),
		ReasonCode: uint8(res.ReasonCode),
		Reason:     res.Reason,
	})
}

// Publish handles POST /v1/publish.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	d := h.auth.OnPublish(r.Context(), req.ClientID, req.Topic, req.QoS, req.Retain)
	writeJSON(w, http.StatusOK, decisionResponse(d))
}

// Subscribe handles POST /v1/subscribe.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	d := h.auth.OnSubscribe(r.Context(), req.ClientID, req.Topic, req.QoS)
	writeJSON(w, http.StatusOK, decisionResponse(d))
}

// Disconnect handles POST /v1/disconnect.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	var req DisconnectRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	h.auth.OnDisconnect(r.Context(), req.ClientID)
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /v1/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:   h.status.Status(),
		Sessions: h.auth.Sessions().Len(),
	})
}

// Health handles GET /healthz. The process is live whenever it answers.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	s := h.status.Status()
	if !s.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready", "version": s.Version})
}

func decisionResponse(d rbac.Decision) DecisionResponse {
	return DecisionResponse{Allowed: d.Allowed, Reason: d.Reason.String(), Role: d.Role}
}
