package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fearvana/gate/internal/domain/csrf"
	"github.com/fearvana/gate/internal/domain/gate"
	"github.com/fearvana/gate/internal/domain/ratelimit"
)

// apiPrefix marks the routes the gate pipeline applies to.
const apiPrefix = "/api/"

// defaultPublicPaths bypass every check: static assets and the
// unauthenticated marketing/auth pages.
var defaultPublicPaths = []string{
	"/_next",
	"/static",
	"/public",
	"/auth/login",
	"/auth/register",
	"/landing",
}

// userIDHeader carries the resolved identity to the upstream handler.
const userIDHeader = "X-User-Id"

// errorResponse is the JSON body for every gate rejection.
type errorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// Gatekeeper applies the full check pipeline to every inbound request and
// either rejects it or forwards it to the next handler.
//
// Order per request: security headers (always), public-path bypass, then
// for API routes the domain pipeline (rate limit, origin, CSRF, auth).
// Every rejection is terminal and synchronous. Non-API, non-public paths
// pass through with headers only.
type Gatekeeper struct {
	pipeline    *gate.Pipeline
	next        http.Handler
	publicPaths []string
	metrics     *Metrics
	logger      *slog.Logger
}

// GatekeeperOption configures a Gatekeeper.
type GatekeeperOption func(*Gatekeeper)

// WithPublicPaths overrides the public path prefixes.
func WithPublicPaths(paths []string) GatekeeperOption {
	return func(g *Gatekeeper) {
		g.publicPaths = paths
	}
}

// WithMetrics attaches Prometheus metrics to the gatekeeper.
func WithMetrics(m *Metrics) GatekeeperOption {
	return func(g *Gatekeeper) {
		g.metrics = m
	}
}

// NewGatekeeper creates a Gatekeeper running the given pipeline in front of
// next.
func NewGatekeeper(pipeline *gate.Pipeline, next http.Handler, logger *slog.Logger, opts ...GatekeeperOption) *Gatekeeper {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gatekeeper{
		pipeline:    pipeline,
		next:        next,
		publicPaths: defaultPublicPaths,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ServeHTTP implements http.Handler.
func (g *Gatekeeper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	SetSecurityHeaders(w)

	path := r.URL.Path

	if g.isPublic(path) {
		g.next.ServeHTTP(w, r)
		return
	}

	if !strings.HasPrefix(path, apiPrefix) {
		// Non-API, non-public: headers only.
		g.next.ServeHTTP(w, r)
		return
	}

	decision := g.pipeline.Evaluate(r.Context(), g.gateRequest(r))
	g.record(decision)

	if !decision.Allowed() {
		g.reject(w, r, decision)
		return
	}

	if decision.RateLimit != nil {
		setRateLimitHeaders(w, decision.RateLimit)
	}

	// Mint a CSRF token on safe methods so the frontend has one to mirror
	// on its next state-changing call.
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		csrf.EnsureCookie(w, r)
	}

	if decision.UserID != "" {
		r.Header.Set(userIDHeader, decision.UserID)
	} else {
		// Never trust a client-supplied identity header.
		r.Header.Del(userIDHeader)
	}

	g.next.ServeHTTP(w, r)
}

// gateRequest assembles the transport-independent request view.
// The rate limit path keeps the query string: distinct query strings form
// distinct buckets.
func (g *Gatekeeper) gateRequest(r *http.Request) *gate.Request {
	cookieToken := ""
	if cookie, err := r.Cookie(csrf.CookieName); err == nil {
		cookieToken = cookie.Value
	}

	return &gate.Request{
		Method:          r.Method,
		Path:            r.URL.RequestURI(),
		ClientIP:        ClientIP(r),
		Origin:          r.Header.Get("Origin"),
		CSRFHeaderToken: r.Header.Get(csrf.HeaderName),
		CSRFCookieToken: cookieToken,
		Authorization:   r.Header.Get("Authorization"),
	}
}

// isPublic reports whether the path bypasses all checks.
func (g *Gatekeeper) isPublic(path string) bool {
	if path == "/" {
		return true
	}
	for _, prefix := range g.publicPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// reject writes the terminal JSON error for a non-allow decision.
func (g *Gatekeeper) reject(w http.ResponseWriter, r *http.Request, d gate.Decision) {
	logger := LoggerFromContext(r.Context())

	// The limiter ran before whichever stage rejected, so its window state
	// is attached even on origin/CSRF/auth rejections.
	if d.Outcome != gate.OutcomeRateLimited && d.RateLimit != nil {
		setRateLimitHeaders(w, d.RateLimit)
	}

	switch d.Outcome {
	case gate.OutcomeRateLimited:
		retryAfter := retryAfterSeconds(d.RateLimit)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.RateLimit.Limit))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.RateLimit.ResetAt.Unix(), 10))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:      "Too many requests. Please try again later.",
			RetryAfter: retryAfter,
		})

	case gate.OutcomeOriginRejected:
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Origin not allowed"})

	case gate.OutcomeCSRFRejected:
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Invalid CSRF token"})

	case gate.OutcomeUnauthenticated:
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Authentication required"})

	case gate.OutcomeInvalidToken:
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid authentication token"})

	default:
		// Unknown outcome: reject rather than pass.
		logger.Error("unmapped gate outcome", "outcome", string(d.Outcome))
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Request rejected"})
	}
}

// record counts the decision in Prometheus, when metrics are attached.
func (g *Gatekeeper) record(d gate.Decision) {
	if g.metrics == nil {
		return
	}
	stage := d.Stage
	if stage == "" {
		stage = "none"
	}
	g.metrics.DecisionsTotal.WithLabelValues(stage, string(d.Outcome)).Inc()
}

// setRateLimitHeaders attaches the in-flight window state to an allowed
// API response.
func setRateLimitHeaders(w http.ResponseWriter, result *ratelimit.Result) {
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// retryAfterSeconds converts the retry duration to whole seconds,
// rounding up so the client never retries early. Minimum 1.
func retryAfterSeconds(result *ratelimit.Result) int {
	if result == nil {
		return 1
	}
	secs := int((result.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
