// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fearvana/gate/internal/domain/ratelimit"
)

// record tracks one fixed-window counter.
type record struct {
	count   int
	resetAt time.Time
}

// RateLimitStore implements ratelimit.Store with fixed-window counters in
// process memory. Thread-safe: the check-and-increment happens under one
// mutex, so a concurrent burst for the same key can never push the counter
// past the rule's budget.
//
// Expired records are deleted by a background sweep goroutine. There is no
// size cap beyond the sweep, so the map grows with the number of distinct
// (ip, path) keys seen between sweeps.
type RateLimitStore struct {
	records       map[string]*record
	mu            sync.Mutex
	stopChan      chan struct{}
	wg            sync.WaitGroup
	once          sync.Once
	sweepInterval time.Duration
	logger        *slog.Logger
}

// NewRateLimitStore creates a store with the default one-minute sweep.
func NewRateLimitStore() *RateLimitStore {
	return NewRateLimitStoreWithConfig(time.Minute, slog.Default())
}

// NewRateLimitStoreWithConfig creates a store with a custom sweep interval.
func NewRateLimitStoreWithConfig(sweepInterval time.Duration, logger *slog.Logger) *RateLimitStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimitStore{
		records:       make(map[string]*record),
		stopChan:      make(chan struct{}),
		sweepInterval: sweepInterval,
		logger:        logger,
	}
}

// Allow checks and consumes one request against the rule for key.
func (s *RateLimitStore) Allow(ctx context.Context, key string, rule ratelimit.Rule) (ratelimit.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	rec, ok := s.records[key]
	if !ok || now.After(rec.resetAt) {
		// First request for this key, or the window elapsed: a stale record
		// is replaced, never incremented.
		resetAt := now.Add(rule.Window)
		s.records[key] = &record{count: 1, resetAt: resetAt}
		return ratelimit.Result{
			Allowed:   true,
			Limit:     rule.Requests,
			Remaining: rule.Requests - 1,
			ResetAt:   resetAt,
		}, nil
	}

	if rec.count >= rule.Requests {
		// Rejected requests do not count further against the limit.
		retryAfter := time.Until(rec.resetAt)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return ratelimit.Result{
			Allowed:    false,
			Limit:      rule.Requests,
			Remaining:  0,
			ResetAt:    rec.resetAt,
			RetryAfter: retryAfter,
		}, nil
	}

	rec.count++
	return ratelimit.Result{
		Allowed:   true,
		Limit:     rule.Requests,
		Remaining: rule.Requests - rec.count,
		ResetAt:   rec.resetAt,
	}, nil
}

// StartSweep starts the background sweep goroutine. The goroutine deletes
// every record whose window has already expired, bounding memory growth.
// It stops when ctx is cancelled or Stop() is called.
func (s *RateLimitStore) StartSweep(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// sweep removes expired records. Deletion-only: it never touches a live
// window, so it cannot race an increment into a stale record.
func (s *RateLimitStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	swept := 0

	for key, rec := range s.records {
		if now.After(rec.resetAt) {
			delete(s.records, key)
			swept++
		}
	}

	if swept > 0 {
		s.logger.Debug("rate limit sweep completed",
			"swept_keys", swept,
			"remaining_keys", len(s.records))
	}
}

// Sweep runs one sweep pass immediately. Exposed for tests and for callers
// that manage their own timer.
func (s *RateLimitStore) Sweep() {
	s.sweep()
}

// Stop gracefully stops the sweep goroutine and waits for it to exit.
// Safe to call multiple times.
func (s *RateLimitStore) Stop() {
	s.once.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

// Size returns the current number of tracked keys.
func (s *RateLimitStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Compile-time interface verification.
var _ ratelimit.Store = (*RateLimitStore)(nil)
