// Package auth contains the domain types and logic for bearer token
// authentication.
package auth

import (
	"context"
	"time"
)

// Result is the outcome of verifying one bearer token. Ephemeral: computed
// fresh per request, never persisted.
type Result struct {
	// Valid indicates the token maps to a known identity.
	Valid bool
	// UserID is the resolved identity, set only when Valid is true.
	UserID string
}

// Authenticator establishes caller identity from a bearer token.
//
// Verify is a pure function consulted once per request, before any protected
// handler runs: no side effects, no state mutation. Implementations decide
// what a token is — the demo authenticator accepts a literal prefix
// convention, the keyring verifies hashed keys with expiry and revocation.
//
// An error means verification could not be computed (backend failure), which
// the gate treats as a rejection, never a pass.
type Authenticator interface {
	Verify(ctx context.Context, token string) (Result, error)
}

// Identity represents a user or service known to the keyring.
type Identity struct {
	// ID is the unique identifier for this identity.
	ID string
	// Name is the display name for this identity.
	Name string
}

// StoredKey is one keyring entry: a hashed credential bound to an identity.
type StoredKey struct {
	// Hash is the stored key hash: "sha256:<hex>" or Argon2id PHC format.
	Hash string
	// IdentityID maps this key to an Identity.
	IdentityID string
	// ExpiresAt is when the key expires (nil = never expires).
	ExpiresAt *time.Time
	// Revoked indicates the key has been revoked.
	Revoked bool
}

// IsExpired returns true if the key has expired.
// A key with nil ExpiresAt never expires.
func (k *StoredKey) IsExpired() bool {
	if k.ExpiresAt == nil {
		return false
	}
	return time.Now().UTC().After(*k.ExpiresAt)
}
