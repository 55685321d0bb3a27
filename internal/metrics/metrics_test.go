// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// histogramCount extracts the sample count from a histogram child.
func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	h, ok := o.(prometheus.Histogram)
	if !ok {
		t.Fatalf("observer %T is not a histogram", o)
	}
	var m io_prometheus_client.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestRecordAuthn(t *testing.T) {
	tests := []struct {
		name   string
		result string
		cached bool
	}{
		{"allowed uncached", "allowed", false},
		{"denied cached", "denied", true},
		{"not ready", "not_ready", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label := cachedLabel(tt.cached)
			beforeCount := testutil.ToFloat64(AuthnAttempts.WithLabelValues(tt.result))
			beforeObs := histogramCount(t, AuthnDuration.WithLabelValues(label))

			RecordAuthn(tt.result, tt.cached, 3*time.Millisecond)

			if got := testutil.ToFloat64(AuthnAttempts.WithLabelValues(tt.result)); got != beforeCount+1 {
				t.Errorf("attempts = %v, want %v", got, beforeCount+1)
			}
			if got := histogramCount(t, AuthnDuration.WithLabelValues(label)); got != beforeObs+1 {
				t.Errorf("observations = %d, want %d", got, beforeObs+1)
			}
		})
	}
}

func TestRecordAuthz(t *testing.T) {
	before := testutil.ToFloat64(AuthzDecisions.WithLabelValues("publish", "denied", "denied_by_rule"))
	RecordAuthz("publish", false, "denied_by_rule", false, time.Microsecond)
	after := testutil.ToFloat64(AuthzDecisions.WithLabelValues("publish", "denied", "denied_by_rule"))
	if after != before+1 {
		t.Errorf("denied decisions = %v, want %v", after, before+1)
	}

	before = testutil.ToFloat64(AuthzDecisions.WithLabelValues("subscribe", "allowed", "allowed"))
	RecordAuthz("subscribe", true, "allowed", true, time.Microsecond)
	after = testutil.ToFloat64(AuthzDecisions.WithLabelValues("subscribe", "allowed", "allowed"))
	if after != before+1 {
		t.Errorf("allowed decisions = %v, want %v", after, before+1)
	}
}

func TestRecordCache(t *testing.T) {
	hits := testutil.ToFloat64(CacheHits.WithLabelValues("test"))
	misses := testutil.ToFloat64(CacheMisses.WithLabelValues("test"))

	RecordCacheLookup("test", true)
	RecordCacheLookup("test", false)
	RecordCacheLookup("test", false)

	if got := testutil.ToFloat64(CacheHits.WithLabelValues("test")); got != hits+1 {
		t.Errorf("hits = %v, want %v", got, hits+1)
	}
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("test")); got != misses+2 {
		t.Errorf("misses = %v, want %v", got, misses+2)
	}

	evictions := testutil.ToFloat64(CacheEvictions.WithLabelValues("test", "capacity"))
	RecordCacheEviction("test", "capacity", 3)
	RecordCacheEviction("test", "capacity", 0)
	if got := testutil.ToFloat64(CacheEvictions.WithLabelValues("test", "capacity")); got != evictions+3 {
		t.Errorf("evictions = %v, want %v", got, evictions+3)
	}

	SetCacheEntries("test", 42)
	if got := testutil.ToFloat64(CacheEntries.WithLabelValues("test")); got != 42 {
		t.Errorf("entries = %v, want 42", got)
	}
}

func TestSetSnapshot(t *testing.T) {
	loaded := time.Unix(1700000000, 0)
	SetSnapshot(7, 3, 2, loaded)

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"version", SnapshotVersion, 7},
		{"users", SnapshotUsers, 3},
		{"roles", SnapshotRoles, 2},
		{"loaded", SnapshotLoadedTimestamp, 1700000000},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestRecordReload(t *testing.T) {
	before := testutil.ToFloat64(ReloadsTotal.WithLabelValues("invalid"))
	RecordReload("invalid", 2*time.Millisecond)
	if got := testutil.ToFloat64(ReloadsTotal.WithLabelValues("invalid")); got != before+1 {
		t.Errorf("invalid reloads = %v, want %v", got, before+1)
	}

	archive := testutil.ToFloat64(ArchiveFailures)
	RecordArchiveFailure()
	if got := testutil.ToFloat64(ArchiveFailures); got != archive+1 {
		t.Errorf("archive failures = %v, want %v", got, archive+1)
	}
}

func TestTrackHashing_Concurrent(t *testing.T) {
	start := testutil.ToFloat64(AuthnInFlight)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			TrackHashing(true)
			TrackHashing(false)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(AuthnInFlight); got != start {
		t.Errorf("in flight = %v, want %v after balanced calls", got, start)
	}
}

func TestRecordHookAndAPI(t *testing.T) {
	before := testutil.ToFloat64(HookEvents.WithLabelValues("connect", "success"))
	RecordHook("connect", "success")
	if got := testutil.ToFloat64(HookEvents.WithLabelValues("connect", "success")); got != before+1 {
		t.Errorf("hook events = %v, want %v", got, before+1)
	}

	SetActiveSessions(5)
	if got := testutil.ToFloat64(ActiveSessions); got != 5 {
		t.Errorf("active sessions = %v, want 5", got)
	}

	before = testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/v1/publish", "200"))
	RecordAPIRequest("POST", "/v1/publish", "200", time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/v1/publish", "200")); got != before+1 {
		t.Errorf("api requests = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(APIRateLimitHits.WithLabelValues("/v1/connect"))
	RecordRateLimitHit("/v1/connect")
	if got := testutil.ToFloat64(APIRateLimitHits.WithLabelValues("/v1/connect")); got != before+1 {
		t.Errorf("rate limit hits = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(StaleIdentities.WithLabelValues("removed"))
	RecordStaleIdentity(true)
	if got := testutil.ToFloat64(StaleIdentities.WithLabelValues("removed")); got != before+1 {
		t.Errorf("stale removed = %v, want %v", got, before+1)
	}
}
