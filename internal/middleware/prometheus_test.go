// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/mqtt-file-rbac/internal/metrics"
)

func TestPrometheusMetrics(t *testing.T) {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return PrometheusMetrics(next.ServeHTTP)
	})
	r.Get("/v1/clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Post("/v1/publish", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	tests := []struct {
		method, path string
		pattern      string
		status       string
	}{
		{http.MethodGet, "/v1/clients/abc", "/v1/clients/{id}", "418"},
		{http.MethodPost, "/v1/publish", "/v1/publish", "200"},
		{http.MethodGet, "/no/such/route", unmatchedRoute, "404"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			counter := metrics.APIRequestsTotal.WithLabelValues(tt.method, tt.pattern, tt.status)
			before := testutil.ToFloat64(counter)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if got := testutil.ToFloat64(counter); got != before+1 {
				t.Errorf("requests{%s %s %s} = %v, want %v", tt.method, tt.pattern, tt.status, got, before+1)
			}
		})
	}
}

func TestPrometheusMetrics_WithoutRouter(t *testing.T) {
	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "200")
	before := testutil.ToFloat64(counter)

	handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {})
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", nil))

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("unmatched requests = %v, want %v", got, before+1)
	}
}
