package ratelimit

import "context"

// Store is the interface for rate limit counter backends.
//
// Implementations use a fixed-window counter: the first request for a key
// opens a window and subsequent requests increment the counter until the
// window expires, at which point the record is replaced rather than
// incremented.
//
// The check-and-increment must be atomic per key: concurrent requests for
// the same key must never push the counter past Rule.Requests by more than
// the one request that trips the limit. The in-memory implementation holds
// a mutex across the read-modify-write; the Redis implementation relies on
// a Lua script executing atomically server-side.
type Store interface {
	// Allow checks and consumes one request against the rule for key.
	// A rejected request does not increment the counter further.
	Allow(ctx context.Context, key string, rule Rule) (Result, error)
}
