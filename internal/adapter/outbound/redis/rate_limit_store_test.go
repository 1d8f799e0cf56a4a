package redis

import (
	"testing"
	"time"

	"github.com/fearvana/gate/internal/domain/ratelimit"
)

func TestMapScriptReply_Allowed(t *testing.T) {
	t.Parallel()

	rule := ratelimit.Rule{Requests: 20, Window: time.Hour}
	now := time.Now()

	reply := []interface{}{int64(1), int64(19), int64(3_600_000)}
	result, err := mapScriptReply(reply, rule, now)
	if err != nil {
		t.Fatalf("mapScriptReply() error: %v", err)
	}
	if !result.Allowed {
		t.Error("Allowed = false, want true")
	}
	if result.Remaining != 19 {
		t.Errorf("Remaining = %d, want 19", result.Remaining)
	}
	if result.Limit != 20 {
		t.Errorf("Limit = %d, want 20", result.Limit)
	}
	if got := result.ResetAt.Sub(now); got != time.Hour {
		t.Errorf("ResetAt offset = %v, want 1h", got)
	}
	if result.RetryAfter != 0 {
		t.Errorf("RetryAfter = %v, want 0 on allow", result.RetryAfter)
	}
}

func TestMapScriptReply_Rejected(t *testing.T) {
	t.Parallel()

	rule := ratelimit.Rule{Requests: 5, Window: 15 * time.Minute}
	now := time.Now()

	reply := []interface{}{int64(0), int64(0), int64(90_000)}
	result, err := mapScriptReply(reply, rule, now)
	if err != nil {
		t.Fatalf("mapScriptReply() error: %v", err)
	}
	if result.Allowed {
		t.Error("Allowed = true, want false")
	}
	if result.RetryAfter != 90*time.Second {
		t.Errorf("RetryAfter = %v, want 90s", result.RetryAfter)
	}
}

func TestMapScriptReply_MissingTTLFallsBackToWindow(t *testing.T) {
	t.Parallel()

	rule := ratelimit.Rule{Requests: 5, Window: time.Minute}
	now := time.Now()

	reply := []interface{}{int64(1), int64(4), int64(-1)}
	result, err := mapScriptReply(reply, rule, now)
	if err != nil {
		t.Fatalf("mapScriptReply() error: %v", err)
	}
	if got := result.ResetAt.Sub(now); got != time.Minute {
		t.Errorf("ResetAt offset = %v, want full window on missing TTL", got)
	}
}

func TestMapScriptReply_MalformedReply(t *testing.T) {
	t.Parallel()

	rule := ratelimit.Rule{Requests: 5, Window: time.Minute}

	for _, reply := range []interface{}{
		"nope",
		[]interface{}{int64(1)},
		[]interface{}{"a", "b", "c"},
	} {
		if _, err := mapScriptReply(reply, rule, time.Now()); err == nil {
			t.Errorf("mapScriptReply(%v) should fail", reply)
		}
	}
}
