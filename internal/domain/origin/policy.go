// Package origin decides whether a cross-origin request's declared Origin
// header is acceptable.
package origin

import "strings"

// Policy decides whether an Origin header value is acceptable.
// Implementations are pure: no state mutation, no side effects.
type Policy interface {
	// IsAllowed reports whether the given origin may make cross-origin
	// requests. An empty origin is never allowed; callers skip the check
	// entirely when the header is absent (same-origin or non-browser).
	IsAllowed(origin string) bool
}

// loopbackPrefixes are accepted in non-production mode regardless of the
// allow list, so local frontends on any port can talk to a dev gate.
var loopbackPrefixes = []string{
	"http://localhost",
	"http://127.0.0.1",
}

// AllowList is the environment-aware origin policy.
//
// In production mode only exact allow-list membership passes. In any other
// mode a loopback origin also passes, which keeps local development
// frictionless without widening the production surface.
type AllowList struct {
	allowed    map[string]struct{}
	production bool
}

// NewAllowList builds a policy from the configured application URL plus any
// extra origins. The two standard local development URLs are always seeded.
func NewAllowList(appURL string, extra []string, production bool) *AllowList {
	origins := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	if appURL != "" {
		origins = append(origins, appURL)
	}
	origins = append(origins, extra...)

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimSuffix(o, "/")] = struct{}{}
	}

	return &AllowList{allowed: allowed, production: production}
}

// IsAllowed implements Policy.
func (a *AllowList) IsAllowed(origin string) bool {
	if origin == "" {
		return false
	}

	if _, ok := a.allowed[strings.TrimSuffix(origin, "/")]; ok {
		return true
	}

	if a.production {
		return false
	}

	for _, prefix := range loopbackPrefixes {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

// Compile-time interface verification.
var _ Policy = (*AllowList)(nil)
