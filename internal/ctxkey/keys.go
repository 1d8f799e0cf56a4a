// Package ctxkey defines shared context key types used across adapter
// packages, avoiding import cycles between them.
package ctxkey

// RequestIDKey is the context key for the per-request correlation ID.
type RequestIDKey struct{}

// LoggerKey is the context key for the request-enriched logger.
type LoggerKey struct{}
