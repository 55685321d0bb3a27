// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
exposed by the decision API at /metrics.

# Available Metrics

Authentication:
  - rbac_authn_attempts_total: Attempts by result (allowed, unknown_user, bad_credential, not_ready, error)
  - rbac_authn_duration_seconds: Latency, labelled by cache use (histogram)
  - rbac_authn_hashing_in_flight: Verifications currently hashing (gauge)

Authorization:
  - rbac_authz_decisions_total: Decisions by activity, result and reason (counter)
  - rbac_authz_duration_seconds: Decision latency (histogram)
  - rbac_stale_identities_total: Identities re-resolved after a reload (counter)

Decision caches (label cache is "authn" or "authz"):
  - rbac_cache_hits_total, rbac_cache_misses_total
  - rbac_cache_evictions_total (label cause: capacity, expired)
  - rbac_cache_stale_rejects_total
  - rbac_cache_entries

Definition reloads:
  - rbac_reloads_total: Attempts by result (installed, unchanged, invalid, error)
  - rbac_reload_duration_seconds
  - rbac_archive_failures_total
  - rbac_snapshot_version, rbac_snapshot_users, rbac_snapshot_roles
  - rbac_snapshot_loaded_timestamp_seconds

Broker hooks and API:
  - rbac_hook_events_total (labels hook, outcome)
  - rbac_active_sessions
  - rbac_api_requests_total, rbac_api_request_duration_seconds
  - rbac_api_rate_limit_hits_total

# Example Queries

Denial rate over five minutes:

	sum(rate(rbac_authz_decisions_total{result="denied"}[5m]))

Authorization cache hit ratio:

	rate(rbac_cache_hits_total{cache="authz"}[5m]) /
	  (rate(rbac_cache_hits_total{cache="authz"}[5m]) + rate(rbac_cache_misses_total{cache="authz"}[5m]))
*/
package metrics
