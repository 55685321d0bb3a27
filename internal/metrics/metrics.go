// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Authentication Metrics
	AuthnAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_authn_attempts_total",
			Help: "Total number of authentication attempts by result",
		},
		[]string{"result"}, // "allowed", "unknown_user", "bad_credential", "not_ready", "error"
	)

	AuthnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rbac_authn_duration_seconds",
			Help:    "Authentication latency in seconds, including credential hashing",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"cached"},
	)

	AuthnInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rbac_authn_hashing_in_flight",
			Help: "Number of credential verifications currently hashing",
		},
	)

	// Authorization Metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_authz_decisions_total",
			Help: "Total number of publish and subscribe decisions",
		},
		[]string{"activity", "result", "reason"},
	)

	AuthzDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rbac_authz_duration_seconds",
			Help:    "Authorization decision latency in seconds",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		},
		[]string{"activity", "cached"},
	)

	StaleIdentities = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_stale_identities_total",
			Help: "Identities re-resolved after a definition reload",
		},
		[]string{"outcome"}, // "refreshed", "removed"
	)

	// Decision Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_cache_hits_total",
			Help: "Total number of decision cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_cache_misses_total",
			Help: "Total number of decision cache misses",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_cache_evictions_total",
			Help: "Entries evicted from a decision cache by capacity or expiry",
		},
		[]string{"cache", "cause"}, // "capacity", "expired"
	)

	CacheStaleRejects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_cache_stale_rejects_total",
			Help: "Inserts rejected because they were computed against a replaced snapshot",
		},
		[]string{"cache"},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rbac_cache_entries",
			Help: "Current number of entries in a decision cache",
		},
		[]string{"cache"},
	)

	// Definition Reload Metrics
	ReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_reloads_total",
			Help: "Definition reload attempts by result",
		},
		[]string{"result"}, // "installed", "unchanged", "invalid", "error"
	)

	ReloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rbac_reload_duration_seconds",
			Help:    "Time to read, parse and install a definition",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	ArchiveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rbac_archive_failures_total",
			Help: "Superseded definitions that could not be archived",
		},
	)

	SnapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rbac_snapshot_version",
			Help: "Version of the installed access snapshot",
		},
	)

	SnapshotUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rbac_snapshot_users",
			Help: "Users in the installed access snapshot",
		},
	)

	SnapshotRoles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rbac_snapshot_roles",
			Help: "Roles in the installed access snapshot",
		},
	)

	SnapshotLoadedTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rbac_snapshot_loaded_timestamp_seconds",
			Help: "Unix time the installed access snapshot was loaded",
		},
	)

	// Broker Hook Metrics
	HookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_hook_events_total",
			Help: "Broker hook invocations by hook and outcome",
		},
		[]string{"hook", "outcome"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rbac_active_sessions",
			Help: "Connected clients with a resolved identity",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_api_requests_total",
			Help: "Total number of decision API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rbac_api_request_duration_seconds",
			Help:    "Decision API request duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)
)

func cachedLabel(cached bool) string {
	if cached {
		return "true"
	}
	return "false"
}

// RecordAuthn records an authentication attempt.
func RecordAuthn(result string, cached bool, duration time.Duration) {
	AuthnAttempts.WithLabelValues(result).Inc()
	AuthnDuration.WithLabelValues(cachedLabel(cached)).Observe(duration.Seconds())
}

// TrackHashing adjusts the in-flight hashing gauge.
func TrackHashing(inc bool) {
	if inc {
		AuthnInFlight.Inc()
	} else {
		AuthnInFlight.Dec()
	}
}

// RecordAuthz records a publish or subscribe decision.
func RecordAuthz(activity string, allowed bool, reason string, cached bool, duration time.Duration) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	AuthzDecisions.WithLabelValues(activity, result, reason).Inc()
	AuthzDuration.WithLabelValues(activity, cachedLabel(cached)).Observe(duration.Seconds())
}

// RecordStaleIdentity records an identity carried across a reload.
func RecordStaleIdentity(removed bool) {
	if removed {
		StaleIdentities.WithLabelValues("removed").Inc()
		return
	}
	StaleIdentities.WithLabelValues("refreshed").Inc()
}

// RecordCacheLookup records a hit or miss in the named cache.
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
	} else {
		CacheMisses.WithLabelValues(cache).Inc()
	}
}

// RecordCacheEviction records entries dropped from the named cache.
func RecordCacheEviction(cache, cause string, n int) {
	if n > 0 {
		CacheEvictions.WithLabelValues(cache, cause).Add(float64(n))
	}
}

// RecordCacheStaleReject records an insert refused for an old version.
func RecordCacheStaleReject(cache string) {
	CacheStaleRejects.WithLabelValues(cache).Inc()
}

// SetCacheEntries sets the current size of the named cache.
func SetCacheEntries(cache string, n int) {
	CacheEntries.WithLabelValues(cache).Set(float64(n))
}

// RecordReload records a reload attempt and its duration.
func RecordReload(result string, duration time.Duration) {
	ReloadsTotal.WithLabelValues(result).Inc()
	ReloadDuration.Observe(duration.Seconds())
}

// RecordArchiveFailure counts a definition that could not be archived.
func RecordArchiveFailure() {
	ArchiveFailures.Inc()
}

// SetSnapshot publishes the gauges describing the installed snapshot.
func SetSnapshot(version uint64, users, roles int, loadedAt time.Time) {
	SnapshotVersion.Set(float64(version))
	SnapshotUsers.Set(float64(users))
	SnapshotRoles.Set(float64(roles))
	SnapshotLoadedTimestamp.Set(float64(loadedAt.Unix()))
}

// RecordHook records a broker hook invocation.
func RecordHook(hook, outcome string) {
	HookEvents.WithLabelValues(hook, outcome).Inc()
}

// SetActiveSessions sets the number of tracked client sessions.
func SetActiveSessions(n int) {
	ActiveSessions.Set(float64(n))
}

// RecordAPIRequest records a decision API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRateLimitHit records a rejected API request.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}
