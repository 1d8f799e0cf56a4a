package ratelimit

import (
	"testing"
	"time"
)

func TestClassifyPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want Class
	}{
		{"auth login", "/api/auth/login", ClassAuth},
		{"auth register", "/api/auth/register", ClassAuth},
		{"ai coach", "/api/ai-coach", ClassAI},
		{"antarctica variant", "/api/antarctica-ai", ClassAI},
		{"payments", "/api/payments", ClassPayment},
		{"subscriptions", "/api/subscriptions", ClassPayment},
		{"plain api route", "/api/users/profile", ClassDefault},
		{"root", "/", ClassDefault},
		{"query string ignored by classifier", "/api/ai-coach?x=1", ClassAI},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyPath(tt.path); got != tt.want {
				t.Errorf("ClassifyPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// Classification is order-sensitive: auth wins over ai when a path carries
// both substrings.
func TestClassifyPath_OrderSensitive(t *testing.T) {
	t.Parallel()

	if got := ClassifyPath("/api/auth/ai-coach"); got != ClassAuth {
		t.Errorf("ClassifyPath(/api/auth/ai-coach) = %q, want %q", got, ClassAuth)
	}
}

func TestDefaultRules(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()

	tests := []struct {
		class    Class
		requests int
		window   time.Duration
	}{
		{ClassAuth, 5, 15 * time.Minute},
		{ClassAI, 20, time.Hour},
		{ClassPayment, 10, time.Hour},
		{ClassDefault, 100, time.Minute},
	}

	for _, tt := range tests {
		rule := rules.Rule(tt.class)
		if rule.Requests != tt.requests || rule.Window != tt.window {
			t.Errorf("Rule(%q) = %d/%v, want %d/%v",
				tt.class, rule.Requests, rule.Window, tt.requests, tt.window)
		}
	}
}

func TestRules_RuleFallback(t *testing.T) {
	t.Parallel()

	rules := Rules{ClassDefault: {Requests: 42, Window: time.Minute}}
	rule := rules.Rule(ClassAI)
	if rule.Requests != 42 {
		t.Errorf("Rule for unconfigured class = %d requests, want default 42", rule.Requests)
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	if got := Key("203.0.113.7", "/api/ai-coach"); got != "203.0.113.7:/api/ai-coach" {
		t.Errorf("Key() = %q", got)
	}

	// Distinct query strings intentionally yield distinct keys.
	a := Key("203.0.113.7", "/api/ai-coach?x=1")
	b := Key("203.0.113.7", "/api/ai-coach?x=2")
	if a == b {
		t.Error("keys for distinct query strings should differ")
	}
}
