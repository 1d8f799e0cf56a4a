package integration

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/fearvana/gate/internal/adapter/inbound/http"
	"github.com/fearvana/gate/internal/adapter/outbound/memory"
	"github.com/fearvana/gate/internal/domain/auth"
	"github.com/fearvana/gate/internal/domain/csrf"
	"github.com/fearvana/gate/internal/domain/gate"
	"github.com/fearvana/gate/internal/domain/origin"
	"github.com/fearvana/gate/internal/domain/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// buildGatekeeper wires the full production pipeline in front of next:
// memory store -> rate limit -> origin -> CSRF -> auth -> next.
func buildGatekeeper(t *testing.T, next http.Handler) *httpadapter.Gatekeeper {
	t.Helper()

	logger := testLogger()
	store := memory.NewRateLimitStore()

	pipeline := gate.NewPipeline(logger,
		gate.NewRateLimitStage(ratelimit.DefaultRules(), store, logger),
		gate.NewOriginStage(origin.NewAllowList("https://app.fearvana.ai", nil, true)),
		gate.NewCSRFStage(&csrf.Validator{}),
		gate.NewAuthStage(auth.NewDemoAuthenticator(), []string{"/api/ai-coach", "/api/payments"}, logger),
	)

	return httpadapter.NewGatekeeper(pipeline, next, logger)
}

// TestGateFullPath_ForwardsToUpstream validates the whole allowed path:
// pipeline passes -> identity injected -> reverse proxy forwards -> upstream
// response and headers reach the client.
func TestGateFullPath_ForwardsToUpstream(t *testing.T) {
	var seenUserID string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = r.Header.Get("X-User-Id")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"data": "hello"})
	}))
	defer upstream.Close()

	proxy, err := httpadapter.NewUpstreamProxy(upstream.URL, 5*time.Second, testLogger())
	if err != nil {
		t.Fatalf("NewUpstreamProxy() error = %v", err)
	}

	gk := buildGatekeeper(t, proxy)

	req := httptest.NewRequest(http.MethodGet, "/api/ai-coach/sessions", nil)
	req.Header.Set("Authorization", "Bearer token_abc123xyz")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	rec := httptest.NewRecorder()
	gk.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if seenUserID != auth.DemoUserID {
		t.Errorf("upstream saw X-User-Id = %q, want %q", seenUserID, auth.DemoUserID)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode upstream body: %v", err)
	}
	if body["data"] != "hello" {
		t.Errorf("body = %v, want upstream payload passed through", body)
	}
	if rec.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("expected rate limit headers on the proxied response")
	}
}

// TestGateFullPath_UpstreamDown validates the proxy error path: the pipeline
// allows the request but the upstream is unreachable, so the client gets a
// JSON 502 rather than a hung connection.
func TestGateFullPath_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // nothing listening anymore

	proxy, err := httpadapter.NewUpstreamProxy(upstream.URL, time.Second, testLogger())
	if err != nil {
		t.Fatalf("NewUpstreamProxy() error = %v", err)
	}

	gk := buildGatekeeper(t, proxy)

	req := httptest.NewRequest(http.MethodGet, "/api/ai-coach/sessions", nil)
	req.Header.Set("Authorization", "Bearer token_abc123xyz")
	req.Header.Set("X-Forwarded-For", "203.0.113.8")

	rec := httptest.NewRecorder()
	gk.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Error != "Upstream unavailable" {
		t.Errorf("error = %q, want %q", body.Error, "Upstream unavailable")
	}
}

// TestGateFullPath_RejectionStopsAtGate validates that a rejected request
// never reaches the upstream.
func TestGateFullPath_RejectionStopsAtGate(t *testing.T) {
	upstreamHits := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHits++
	}))
	defer upstream.Close()

	proxy, err := httpadapter.NewUpstreamProxy(upstream.URL, 5*time.Second, testLogger())
	if err != nil {
		t.Fatalf("NewUpstreamProxy() error = %v", err)
	}

	gk := buildGatekeeper(t, proxy)

	// No Authorization header on a protected route.
	req := httptest.NewRequest(http.MethodGet, "/api/payments", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	rec := httptest.NewRecorder()
	gk.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if upstreamHits != 0 {
		t.Errorf("upstream hits = %d, want 0 for a rejected request", upstreamHits)
	}
}
