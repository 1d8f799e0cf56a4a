package http

import (
	"encoding/json"
	"net/http"

	"github.com/fearvana/gate/internal/adapter/outbound/memory"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// HealthChecker verifies component health.
type HealthChecker struct {
	store    *memory.RateLimitStore
	upstream string
	version  string
}

// NewHealthChecker creates a HealthChecker. Pass a nil store when the gate
// runs on the Redis backend.
func NewHealthChecker(store *memory.RateLimitStore, upstream, version string) *HealthChecker {
	return &HealthChecker{store: store, upstream: upstream, version: version}
}

// Check performs health checks on all components.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)

	// Size() acquires the store lock; if this hangs, we have a problem.
	if h.store != nil {
		_ = h.store.Size()
		checks["rate_limit_store"] = "ok"
	} else {
		checks["rate_limit_store"] = "redis"
	}

	if h.upstream != "" {
		checks["upstream"] = h.upstream
	} else {
		checks["upstream"] = "not configured"
	}

	return HealthResponse{
		Status:  "healthy",
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns the /health HTTP handler.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(h.Check())
	})
}
