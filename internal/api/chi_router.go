// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

// Package api exposes the broker hooks as an HTTP decision API using the
// chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/mqtt-file-rbac/internal/engine"
	"github.com/tomtom215/mqtt-file-rbac/internal/hooks"
	"github.com/tomtom215/mqtt-file-rbac/internal/metrics"
	"github.com/tomtom215/mqtt-file-rbac/internal/middleware"
)

// Config holds the API's rate limit settings.
type Config struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// StatusSource reports the engine's snapshot state.
type StatusSource interface {
	Status() engine.Status
}

// chiMiddleware adapts http.HandlerFunc middleware to chi's
// func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// NewRouter builds the decision API.
//
//	POST /v1/connect     authenticate a CONNECT
//	POST /v1/publish     authorize a PUBLISH
//	POST /v1/subscribe   authorize a SUBSCRIBE
//	POST /v1/disconnect  forget a client
//	GET  /v1/status      snapshot and session state
//	GET  /healthz        liveness
//	GET  /readyz         503 until a definition is loaded
//	GET  /metrics        Prometheus
func NewRouter(auth *hooks.Authenticator, status StatusSource, cfg Config) http.Handler {
	h := &Handler{auth: auth, status: status}

	r := chi.NewRouter()
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.Recoverer)
	r.Use(chiMiddleware(middleware.PrometheusMetrics))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(rateLimit(cfg))
		r.Use(chimiddleware.AllowContentType("application/json"))

		r.Post("/connect", h.Connect)
		r.Post("/publish", h.Publish)
		r.Post("/subscribe", h.Subscribe)
		r.Post("/disconnect", h.Disconnect)
		r.Get("/status", h.Status)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no such endpoint", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return r
}

// rateLimit limits the decision endpoints per client IP.
func rateLimit(cfg Config) func(http.Handler) http.Handler {
	if cfg.RateLimitDisabled || cfg.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.Limit(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRateLimitHit(limitedEndpoint(r.URL.Path))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
		}),
	)
}

var decisionEndpoints = map[string]struct{}{
	"/v1/connect":    {},
	"/v1/publish":    {},
	"/v1/subscribe":  {},
	"/v1/disconnect": {},
	"/v1/status":     {},
}

// limitedEndpoint keeps unknown paths out of the metric labels.
func limitedEndpoint(path string) string {
	if _, ok := decisionEndpoints[path]; ok {
		return path
	}
	return "/v1/*"
}
