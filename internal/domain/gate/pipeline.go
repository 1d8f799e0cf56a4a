package gate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fearvana/gate/internal/domain/auth"
	"github.com/fearvana/gate/internal/domain/csrf"
	"github.com/fearvana/gate/internal/domain/origin"
	"github.com/fearvana/gate/internal/domain/ratelimit"
)

// Stage is one ordered check in the gate pipeline.
//
// A stage returns nil to continue, or a terminal Decision to stop the
// pipeline. Stages record pass-through state (limiter results, resolved
// identity) on the Evaluation so later stages and the final verdict can
// use it.
type Stage interface {
	// Name identifies the stage in decisions, logs, and metrics.
	Name() string

	// Evaluate runs the check. Returns nil to continue to the next stage.
	Evaluate(ctx context.Context, req *Request, ev *Evaluation) *Decision
}

// Evaluation accumulates state across stages of a single request.
type Evaluation struct {
	// RateLimit is set by the rate limit stage when the request is allowed.
	RateLimit *ratelimit.Result

	// UserID is set by the auth stage on successful token verification.
	UserID string
}

// Pipeline runs stages in a fixed order and produces one Decision.
// The order is construction-time only; there is no per-request routing.
type Pipeline struct {
	stages []Stage
	logger *slog.Logger
}

// NewPipeline creates a pipeline running the given stages in order.
func NewPipeline(logger *slog.Logger, stages ...Stage) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{stages: stages, logger: logger}
}

// Evaluate runs every stage in order. The first terminal decision wins;
// if all stages continue, the request is allowed.
func (p *Pipeline) Evaluate(ctx context.Context, req *Request) Decision {
	ev := &Evaluation{}

	for _, stage := range p.stages {
		if d := stage.Evaluate(ctx, req, ev); d != nil {
			d.Stage = stage.Name()
			if d.RateLimit == nil {
				d.RateLimit = ev.RateLimit
			}
			p.logger.Debug("request rejected",
				"stage", d.Stage,
				"outcome", string(d.Outcome),
				"method", req.Method,
				"path", req.Path,
				"ip", req.ClientIP,
			)
			return *d
		}
	}

	return Decision{
		Outcome:   OutcomeAllow,
		UserID:    ev.UserID,
		RateLimit: ev.RateLimit,
	}
}

// RateLimitStage bounds request volume per client IP per route class.
// It runs first so abusive traffic never reaches the later checks.
type RateLimitStage struct {
	rules  ratelimit.Rules
	store  ratelimit.Store
	logger *slog.Logger
}

// NewRateLimitStage creates the rate limit stage.
func NewRateLimitStage(rules ratelimit.Rules, store ratelimit.Store, logger *slog.Logger) *RateLimitStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimitStage{rules: rules, store: store, logger: logger}
}

// Name implements Stage.
func (s *RateLimitStage) Name() string { return "rate_limit" }

// Evaluate implements Stage. A store failure rejects rather than passes:
// when the gate cannot compute a decision it defaults to the most
// restrictive outcome.
func (s *RateLimitStage) Evaluate(ctx context.Context, req *Request, ev *Evaluation) *Decision {
	class := ratelimit.ClassifyPath(req.Path)
	rule := s.rules.Rule(class)

	result, err := s.store.Allow(ctx, ratelimit.Key(req.ClientIP, req.Path), rule)
	if err != nil {
		s.logger.Error("rate limit check failed",
			"ip", req.ClientIP,
			"class", string(class),
			"error", err,
		)
		return &Decision{
			Outcome: OutcomeRateLimited,
			RateLimit: &ratelimit.Result{
				Allowed:    false,
				Limit:      rule.Requests,
				ResetAt:    time.Now().Add(time.Second),
				RetryAfter: time.Second,
			},
		}
	}

	if !result.Allowed {
		s.logger.Warn("rate limited",
			"ip", req.ClientIP,
			"class", string(class),
			"retry_after", result.RetryAfter,
		)
		return &Decision{Outcome: OutcomeRateLimited, RateLimit: &result}
	}

	ev.RateLimit = &result
	return nil
}

// OriginStage rejects cross-origin requests from disallowed origins.
// Requests without an Origin header skip the check (same-origin or
// non-browser callers).
type OriginStage struct {
	policy origin.Policy
}

// NewOriginStage creates the origin stage.
func NewOriginStage(policy origin.Policy) *OriginStage {
	return &OriginStage{policy: policy}
}

// Name implements Stage.
func (s *OriginStage) Name() string { return "origin" }

// Evaluate implements Stage.
func (s *OriginStage) Evaluate(_ context.Context, req *Request, _ *Evaluation) *Decision {
	if req.Origin == "" {
		return nil
	}
	if !s.policy.IsAllowed(req.Origin) {
		return &Decision{Outcome: OutcomeOriginRejected}
	}
	return nil
}

// CSRFStage rejects state-changing requests whose double-submit tokens do
// not match.
type CSRFStage struct {
	validator *csrf.Validator
}

// NewCSRFStage creates the CSRF stage.
func NewCSRFStage(validator *csrf.Validator) *CSRFStage {
	return &CSRFStage{validator: validator}
}

// Name implements Stage.
func (s *CSRFStage) Name() string { return "csrf" }

// Evaluate implements Stage.
func (s *CSRFStage) Evaluate(_ context.Context, req *Request, _ *Evaluation) *Decision {
	if !s.validator.VerifyTokens(req.Method, req.CSRFHeaderToken, req.CSRFCookieToken) {
		return &Decision{Outcome: OutcomeCSRFRejected}
	}
	return nil
}

// AuthStage requires a valid bearer token on protected route prefixes and
// resolves the caller identity. Non-protected routes pass untouched.
type AuthStage struct {
	authenticator auth.Authenticator
	protected     []string
	logger        *slog.Logger
}

// NewAuthStage creates the auth stage for the given protected prefixes.
func NewAuthStage(authenticator auth.Authenticator, protected []string, logger *slog.Logger) *AuthStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthStage{authenticator: authenticator, protected: protected, logger: logger}
}

// Name implements Stage.
func (s *AuthStage) Name() string { return "auth" }

// Evaluate implements Stage. A verification backend failure rejects as an
// invalid token rather than passing.
func (s *AuthStage) Evaluate(ctx context.Context, req *Request, ev *Evaluation) *Decision {
	if !s.isProtected(req.Path) {
		return nil
	}

	token, ok := bearerToken(req.Authorization)
	if !ok {
		return &Decision{Outcome: OutcomeUnauthenticated}
	}

	result, err := s.authenticator.Verify(ctx, token)
	if err != nil {
		s.logger.Error("token verification failed",
			"ip", req.ClientIP,
			"token_fp", auth.Fingerprint(token),
			"error", err,
		)
		return &Decision{Outcome: OutcomeInvalidToken}
	}
	if !result.Valid {
		return &Decision{Outcome: OutcomeInvalidToken}
	}

	ev.UserID = result.UserID
	return nil
}

// isProtected reports whether the path falls under a protected prefix.
func (s *AuthStage) isProtected(path string) bool {
	for _, prefix := range s.protected {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// bearerToken extracts the token from an Authorization header.
// Returns false on a missing or malformed header.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", false
	}
	return token, true
}

// Compile-time checks that all stages implement Stage.
var (
	_ Stage = (*RateLimitStage)(nil)
	_ Stage = (*OriginStage)(nil)
	_ Stage = (*CSRFStage)(nil)
	_ Stage = (*AuthStage)(nil)
)
