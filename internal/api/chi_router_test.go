// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/mqtt-file-rbac/internal/engine"
	"github.com/tomtom215/mqtt-file-rbac/internal/hooks"
	"github.com/tomtom215/mqtt-file-rbac/internal/metrics"
)

const pass1Hash = "c2FsdA==:100:MAK8JjJQh/c4uYbwkAm33TRXCbeuBC+meeK9ww3Mu4KTv08+8ywTKgF24MNHotOESjDmsutrEk+38PaZVX2TFA=="

const testDefinition = `<file-rbac>
  <users>
    <user><name>user1</name><password>` + pass1Hash + `</password><roles><id>devices</id></roles></user>
  </users>
  <roles>
    <role>
      <id>devices</id>
      <permissions>
        <permission><topic>devices/${{clientid}}/#</topic></permission>
        <permission><topic>devices/+/config</topic><activity>SUBSCRIBE</activity><effect>DENY</effect></permission>
        <permission><topic>broadcast</topic><activity>SUBSCRIBE</activity></permission>
      </permissions>
    </role>
  </roles>
</file-rbac>`

type testServer struct {
	engine  *engine.Engine
	handler http.Handler
}

func newTestServer(t *testing.T, load bool, cfg Config) *testServer {
	t.Helper()
	eng, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if load {
		if _, err := eng.Load([]byte(testDefinition)); err != nil {
			t.Fatal(err)
		}
	}
	auth := hooks.NewAuthenticator(eng, hooks.Config{})
	return &testServer{engine: eng, handler: NewRouter(auth, eng, cfg)}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestConnect(t *testing.T) {
	s := newTestServer(t, true, Config{RateLimitDisabled: true})

	tests := []struct {
		name       string
		body       string
		wantResult string
		wantCode   uint8
	}{
		{"valid credentials", `{"client_id":"sensor-1","username":"user1","password":"pass1"}`, "success", 0x00},
		{"wrong password", `{"client_id":"sensor-1","username":"user1","password":"nope"}`, "fail", 0x87},
		{"missing password", `{"client_id":"sensor-1","username":"user1"}`, "fail", 0x86},
		{"empty password is present", `{"client_id":"sensor-1","username":"user1","password":""}`, "fail", 0x87},
		{"wildcard client id", `{"client_id":"a/#","username":"user1","password":"pass1"}`, "fail", 0x85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/v1/connect", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
			}
			got := decode[ConnectResponse](t, rec)
			if got.Result != tt.wantResult || got.ReasonCode != tt.wantCode {
				t.Errorf("response = %+v, want %s/0x%02x", got, tt.wantResult, tt.wantCode)
			}
		})
	}
}

func TestPublishSubscribeDisconnect(t *testing.T) {
	s := newTestServer(t, true, Config{RateLimitDisabled: true})
	if rec := s.do(t, http.MethodPost, "/v1/connect", `{"client_id":"sensor-1","username":"user1","password":"pass1"}`); rec.Code != http.StatusOK {
		t.Fatalf("connect status = %d", rec.Code)
	}

	tests := []struct {
		name    string
		path    string
		body    string
		allowed bool
		reason  string
	}{
		{"own topic", "/v1/publish", `{"client_id":"sensor-1","topic":"devices/sensor-1/temp","qos":1}`, true, "allowed"},
		{"other client", "/v1/publish", `{"client_id":"sensor-1","topic":"devices/sensor-2/temp"}`, false, "no_matching_permission"},
		{"invalid topic", "/v1/publish", `{"client_id":"sensor-1","topic":"devices/sensor-1/#"}`, false, "invalid_topic"},
		{"subscribe broadcast", "/v1/subscribe", `{"client_id":"sensor-1","topic":"broadcast","qos":2}`, true, "allowed"},
		{"unknown client", "/v1/subscribe", `{"client_id":"ghost","topic":"broadcast"}`, false, "unknown_client"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
			}
			got := decode[DecisionResponse](t, rec)
			if got.Allowed != tt.allowed || got.Reason != tt.reason {
				t.Errorf("response = %+v, want allowed=%v reason=%s", got, tt.allowed, tt.reason)
			}
			if got.Allowed && got.Role != "devices" {
				t.Errorf("role = %q, want devices", got.Role)
			}
		})
	}

	rec := s.do(t, http.MethodPost, "/v1/disconnect", `{"client_id":"sensor-1"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("disconnect status = %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/v1/publish", `{"client_id":"sensor-1","topic":"devices/sensor-1/temp"}`)
	if got := decode[DecisionResponse](t, rec); got.Reason != "unknown_client" {
		t.Errorf("after disconnect: %+v, want unknown_client", got)
	}
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t, true, Config{RateLimitDisabled: true})

	tests := []struct {
		name     string
		path     string
		body     string
		status   int
		code     string
		hasField string
	}{
		{"malformed JSON", "/v1/publish", `{"client_id":`, http.StatusBadRequest, "INVALID_JSON", ""},
		{"empty body", "/v1/connect", ` `, http.StatusBadRequest, "INVALID_JSON", ""},
		{"unknown field", "/v1/publish", `{"client_id":"a","topic":"t","colour":"red"}`, http.StatusBadRequest, "INVALID_JSON", ""},
		{"missing topic", "/v1/publish", `{"client_id":"a"}`, http.StatusBadRequest, "VALIDATION_ERROR", "topic"},
		{"qos out of range", "/v1/subscribe", `{"client_id":"a","topic":"t","qos":3}`, http.StatusBadRequest, "VALIDATION_ERROR", "qos"},
		{"missing client id", "/v1/disconnect", `{}`, http.StatusBadRequest, "VALIDATION_ERROR", "client_id"},
		{"body too large", "/v1/disconnect", `{"client_id":"` + strings.Repeat("a", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.status, rec.Body)
			}
			got := decode[ErrorResponse](t, rec)
			if got.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Error.Code, tt.code)
			}
			if tt.hasField != "" {
				if _, ok := got.Error.Fields[tt.hasField]; !ok {
					t.Errorf("fields = %v, want %s", got.Error.Fields, tt.hasField)
				}
			}
		})
	}

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/publish", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", rec.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		if rec := s.do(t, http.MethodGet, "/v1/publish", ""); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		if rec := s.do(t, http.MethodGet, "/v2/publish", ""); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t, false, Config{RateLimitDisabled: true})

	if rec := s.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before load = %d, want 503", rec.Code)
	}

	// Connect is refused as unavailable, not as bad credentials.
	rec := s.do(t, http.MethodPost, "/v1/connect", `{"client_id":"c","username":"user1","password":"pass1"}`)
	if got := decode[ConnectResponse](t, rec); got.Result != "fail" || got.ReasonCode != 0x88 {
		t.Errorf("connect before load = %+v, want fail/0x88", got)
	}

	if _, err := s.engine.Load([]byte(testDefinition)); err != nil {
		t.Fatal(err)
	}
	if rec := s.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz after load = %d, want 200", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, true, Config{RateLimitDisabled: true})
	s.do(t, http.MethodPost, "/v1/connect", `{"client_id":"sensor-1","username":"user1","password":"pass1"}`)

	rec := s.do(t, http.MethodGet, "/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[StatusResponse](t, rec)
	if !got.Ready || got.Version != 1 || got.Users != 1 || got.Roles != 1 || got.Sessions != 1 {
		t.Errorf("status = %+v", got)
	}
	if len(got.Digest) != 64 {
		t.Errorf("digest = %q, want a sha256 hex digest", got.Digest)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, true, Config{RateLimitDisabled: true})
	s.do(t, http.MethodGet, "/healthz", "")

	rec := s.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rbac_api_requests_total") {
		t.Error("metrics output is missing rbac_api_requests_total")
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, true, Config{RateLimitDisabled: true})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "broker-42")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "broker-42" {
		t.Errorf("X-Request-ID = %q, want broker-42", got)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, true, Config{RateLimitRequests: 2, RateLimitWindow: time.Minute})
	before := testutil.ToFloat64(metrics.APIRateLimitHits.WithLabelValues("/v1/status"))

	for i := 0; i < 2; i++ {
		if rec := s.do(t, http.MethodGet, "/v1/status", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i, rec.Code)
		}
	}
	rec := s.do(t, http.MethodGet, "/v1/status", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Error.Code != "RATE_LIMITED" {
		t.Errorf("code = %q", got.Error.Code)
	}
	if got := testutil.ToFloat64(metrics.APIRateLimitHits.WithLabelValues("/v1/status")); got != before+1 {
		t.Errorf("rate limit hits = %v, want %v", got, before+1)
	}

	// Health checks are not limited.
	if rec := s.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", rec.Code)
	}
}

func TestLimitedEndpoint(t *testing.T) {
	if got := limitedEndpoint("/v1/publish"); got != "/v1/publish" {
		t.Errorf("limitedEndpoint(/v1/publish) = %q", got)
	}
	if got := limitedEndpoint("/v1/../../etc"); got != "/v1/*" {
		t.Errorf("limitedEndpoint(unknown) = %q, want /v1/*", got)
	}
}
