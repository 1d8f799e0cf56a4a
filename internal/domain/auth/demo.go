package auth

import (
	"context"
	"strings"
)

// minTokenLength rejects obviously malformed tokens before any prefix check.
const minTokenLength = 10

// demoTokenPrefix is the literal convention the demo authenticator accepts.
const demoTokenPrefix = "token_"

// DemoUserID is the fixed identity every accepted demo token resolves to.
const DemoUserID = "user_1"

// DemoAuthenticator is the development placeholder: it accepts any
// sufficiently long token carrying the demo prefix and maps it to a single
// fixed identity. It exists so the gate pipeline can run end-to-end without
// a keyring; production deployments configure the keyring authenticator
// instead.
type DemoAuthenticator struct{}

// NewDemoAuthenticator creates the placeholder authenticator.
func NewDemoAuthenticator() *DemoAuthenticator {
	return &DemoAuthenticator{}
}

// Verify implements Authenticator.
func (a *DemoAuthenticator) Verify(_ context.Context, token string) (Result, error) {
	if len(token) < minTokenLength {
		return Result{}, nil
	}
	if !strings.HasPrefix(token, demoTokenPrefix) {
		return Result{}, nil
	}
	return Result{Valid: true, UserID: DemoUserID}, nil
}

// Compile-time interface verification.
var _ Authenticator = (*DemoAuthenticator)(nil)
