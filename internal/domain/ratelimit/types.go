// Package ratelimit provides rate limiting domain types.
package ratelimit

import (
	"fmt"
	"time"
)

// Rule defines the fixed-window parameters for one limit class.
type Rule struct {
	// Requests is the number of allowed requests in the window.
	Requests int

	// Window is the length of the fixed window.
	Window time.Duration
}

// Result contains the outcome of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is allowed.
	Allowed bool

	// Limit is the configured request budget for the matched class.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAt is the absolute time the current window expires.
	ResetAt time.Time

	// RetryAfter is the duration until the window resets.
	// Only meaningful when Allowed is false.
	RetryAfter time.Duration
}

// Class identifies a limit class selected by route classification.
type Class string

const (
	// ClassAuth covers login/registration endpoints (brute-force surface).
	ClassAuth Class = "auth"

	// ClassAI covers the coaching endpoints (expensive upstream LLM calls).
	ClassAI Class = "ai"

	// ClassPayment covers payment and subscription endpoints.
	ClassPayment Class = "payment"

	// ClassDefault covers every other API route.
	ClassDefault Class = "default"
)

// Key returns the store key for a client/route pair.
// Format: "{ip}:{path}". The path is used exactly as received: query strings
// and trailing slashes create distinct buckets. Normalizing here would change
// bucketing for deployed clients, so the key stays byte-for-byte.
func Key(ip, path string) string {
	return fmt.Sprintf("%s:%s", ip, path)
}
