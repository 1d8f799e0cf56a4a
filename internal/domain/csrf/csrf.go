// Package csrf validates double-submit CSRF tokens for state-changing
// requests.
//
// The token travels twice: once in the X-CSRF-Token header (attached by the
// frontend) and once in the csrf-token cookie (sent automatically by the
// browser). A cross-site attacker can make the browser send the cookie but
// cannot read it to forge the header, so equality proves same-origin intent.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// CookieName is the cookie carrying the CSRF token.
const CookieName = "csrf-token"

// HeaderName is the request header the frontend mirrors the cookie into.
const HeaderName = "X-CSRF-Token"

// Validator checks CSRF tokens on state-changing methods.
//
// When AllowMissing is false (the production default), a request missing
// either token is rejected. AllowMissing exists only for local development
// against clients that have not minted a token yet.
type Validator struct {
	// AllowMissing passes requests that carry neither token.
	// Must stay false in production.
	AllowMissing bool
}

// Verify reports whether the request passes CSRF validation.
func (v *Validator) Verify(r *http.Request) bool {
	cookieToken := ""
	if cookie, err := r.Cookie(CookieName); err == nil {
		cookieToken = cookie.Value
	}
	return v.VerifyTokens(r.Method, r.Header.Get(HeaderName), cookieToken)
}

// VerifyTokens is the transport-free core of Verify.
//
// Safe methods (GET, HEAD, OPTIONS, TRACE) trivially pass. For
// POST/PUT/DELETE/PATCH the header token must equal the cookie token;
// comparison is constant-time.
func (v *Validator) VerifyTokens(method, headerToken, cookieToken string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
	default:
		return true
	}

	if headerToken == "" || cookieToken == "" {
		return v.AllowMissing
	}

	return subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookieToken)) == 1
}

// EnsureCookie sets the csrf-token cookie if the request does not already
// carry one. Called on safe methods so the frontend always has a token to
// mirror into the header on its next state-changing request. The cookie is
// JS-readable (HttpOnly=false) by necessity.
func EnsureCookie(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(CookieName); err == nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    generateToken(),
		Path:     "/",
		HttpOnly: false, // JS must read this to send as header
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   86400,
	})
}

// generateToken returns a cryptographically random 32-byte hex string.
func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read should never fail on modern systems.
		return strings.Repeat("0", 64)
	}
	return hex.EncodeToString(b)
}
