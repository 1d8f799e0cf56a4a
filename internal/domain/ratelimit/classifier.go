package ratelimit

import (
	"strings"
	"time"
)

// Rules maps each limit class to its fixed-window rule.
type Rules map[Class]Rule

// DefaultRules returns the standard per-class budgets:
// auth 5/15min, ai 20/hour, payment 10/hour, default 100/min.
func DefaultRules() Rules {
	return Rules{
		ClassAuth:    {Requests: 5, Window: 15 * time.Minute},
		ClassAI:      {Requests: 20, Window: time.Hour},
		ClassPayment: {Requests: 10, Window: time.Hour},
		ClassDefault: {Requests: 100, Window: time.Minute},
	}
}

// ClassifyPath selects the limit class for a request path.
// Matching is substring-based and order-sensitive: auth is checked before ai,
// ai before payment, so a path containing both "/auth" and "/ai-coach"
// resolves to ClassAuth. The ai class matches both the "/ai-coach" and
// "/antarctica-ai" route variants.
func ClassifyPath(path string) Class {
	switch {
	case strings.Contains(path, "/auth"):
		return ClassAuth
	case strings.Contains(path, "/ai-coach"), strings.Contains(path, "/antarctica-ai"):
		return ClassAI
	case strings.Contains(path, "/payment"), strings.Contains(path, "/subscription"):
		return ClassPayment
	default:
		return ClassDefault
	}
}

// Rule returns the rule for a class, falling back to the default class
// when the class has no explicit rule configured.
func (r Rules) Rule(class Class) Rule {
	if rule, ok := r[class]; ok {
		return rule
	}
	return r[ClassDefault]
}
