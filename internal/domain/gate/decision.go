// Package gate contains the core domain logic for the request gatekeeper:
// the per-request decision model and the ordered stage pipeline that
// produces it.
package gate

import (
	"github.com/fearvana/gate/internal/domain/ratelimit"
)

// Outcome classifies the gate's verdict for one request.
type Outcome string

const (
	// OutcomeAllow passes the request through to the upstream handler.
	OutcomeAllow Outcome = "allow"

	// OutcomeRateLimited rejects with HTTP 429.
	OutcomeRateLimited Outcome = "rate_limited"

	// OutcomeOriginRejected rejects a disallowed cross-origin request (403).
	OutcomeOriginRejected Outcome = "origin_rejected"

	// OutcomeCSRFRejected rejects a failed CSRF check (403).
	OutcomeCSRFRejected Outcome = "csrf_rejected"

	// OutcomeUnauthenticated rejects a protected request with no usable
	// Authorization header (401).
	OutcomeUnauthenticated Outcome = "unauthenticated"

	// OutcomeInvalidToken rejects a protected request whose bearer token
	// failed verification (401).
	OutcomeInvalidToken Outcome = "invalid_token"
)

// Decision is the gate's verdict for one request. Computed fresh per
// request, never stored.
type Decision struct {
	// Outcome is the verdict.
	Outcome Outcome

	// Stage names the stage that produced a terminal outcome; empty on allow.
	Stage string

	// UserID is the authenticated identity, set only when a protected route
	// passed token verification. Forwarded downstream as X-User-Id.
	UserID string

	// RateLimit carries the limiter result whenever the limiter ran,
	// feeding the X-RateLimit-* response headers on both allow and reject.
	RateLimit *ratelimit.Result
}

// Allowed reports whether the request passes through.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// Request is the transport-independent view of one inbound request,
// assembled by the HTTP adapter before pipeline evaluation.
type Request struct {
	// Method is the HTTP method.
	Method string

	// Path is the exact request path including any query string. Used
	// verbatim for rate limit bucketing.
	Path string

	// ClientIP is the derived caller address; "unknown" when no source
	// could be established (which collapses all unidentified clients into
	// one shared rate limit bucket).
	ClientIP string

	// Origin is the Origin header value; empty when absent.
	Origin string

	// CSRFHeaderToken is the X-CSRF-Token header value.
	CSRFHeaderToken string

	// CSRFCookieToken is the csrf-token cookie value.
	CSRFCookieToken string

	// Authorization is the raw Authorization header value.
	Authorization string
}
