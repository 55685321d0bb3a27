// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

/*
Package middleware provides HTTP middleware for the decision API.

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request counts and latency per route pattern

Both use the http.HandlerFunc form; the api package adapts them to chi.
*/
package middleware
