// Package redis provides Redis-backed implementations of outbound ports.
//
// The Redis rate limit store is the multi-process backend: the fixed-window
// check-and-increment runs inside a Lua script, which Redis executes
// atomically, preserving the same "never exceeded under concurrency"
// guarantee the in-memory store gets from its mutex.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fearvana/gate/internal/domain/ratelimit"
)

// fixedWindowScript checks the counter against the limit before
// incrementing, so rejected requests never touch the window. The expiry is
// set only when the window opens; later increments never extend it.
//
// KEYS[1] = counter key
// ARGV[1] = request budget, ARGV[2] = window in milliseconds
// Returns {allowed, remaining, pttl_ms}.
const fixedWindowScript = `
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= limit then
  return {0, 0, redis.call("PTTL", KEYS[1])}
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], window)
end
return {1, limit - current, redis.call("PTTL", KEYS[1])}
`

// keyPrefix namespaces gate counters in a shared Redis instance.
const keyPrefix = "gate:ratelimit:"

// RateLimitStore implements ratelimit.Store on a Redis counter.
type RateLimitStore struct {
	client *redis.Client
	script *redis.Script
}

// NewRateLimitStore creates a Redis-backed store using the given client.
func NewRateLimitStore(client *redis.Client) *RateLimitStore {
	return &RateLimitStore{
		client: client,
		script: redis.NewScript(fixedWindowScript),
	}
}

// Allow checks and consumes one request against the rule for key.
// Returns an error when Redis is unreachable or the script reply is
// malformed; the caller decides the failure posture (the gate rejects).
func (s *RateLimitStore) Allow(ctx context.Context, key string, rule ratelimit.Rule) (ratelimit.Result, error) {
	reply, err := s.script.Run(ctx, s.client,
		[]string{keyPrefix + key},
		rule.Requests, rule.Window.Milliseconds(),
	).Result()
	if err != nil {
		return ratelimit.Result{}, fmt.Errorf("rate limit script: %w", err)
	}

	return mapScriptReply(reply, rule, time.Now())
}

// mapScriptReply converts the raw Lua reply into a Result.
// Split out so the mapping is testable without a Redis server.
func mapScriptReply(reply interface{}, rule ratelimit.Rule, now time.Time) (ratelimit.Result, error) {
	arr, ok := reply.([]interface{})
	if !ok || len(arr) != 3 {
		return ratelimit.Result{}, fmt.Errorf("rate limit script: unexpected reply %T", reply)
	}

	allowed, okA := arr[0].(int64)
	remaining, okB := arr[1].(int64)
	pttlMs, okC := arr[2].(int64)
	if !okA || !okB || !okC {
		return ratelimit.Result{}, fmt.Errorf("rate limit script: non-integer reply")
	}

	// PTTL returns -1/-2 when the key has no expiry or vanished between
	// script and reply; fall back to a full window.
	ttl := time.Duration(pttlMs) * time.Millisecond
	if pttlMs < 0 {
		ttl = rule.Window
	}

	result := ratelimit.Result{
		Allowed:   allowed == 1,
		Limit:     rule.Requests,
		Remaining: int(remaining),
		ResetAt:   now.Add(ttl),
	}
	if !result.Allowed {
		result.RetryAfter = ttl
	}
	return result, nil
}

// Compile-time interface verification.
var _ ratelimit.Store = (*RateLimitStore)(nil)
