package http

import "net/http"

// securityHeaders is the fixed set attached to every response the gate
// touches, rejection or pass-through alike.
var securityHeaders = map[string]string{
	"X-DNS-Prefetch-Control":    "on",
	"Strict-Transport-Security": "max-age=63072000; includeSubDomains; preload",
	"X-Frame-Options":           "SAMEORIGIN",
	"X-Content-Type-Options":    "nosniff",
	"X-XSS-Protection":          "1; mode=block",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
	"Content-Security-Policy": "default-src 'self'; script-src 'self' 'unsafe-eval' 'unsafe-inline'; " +
		"style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self' data:; " +
		"connect-src 'self' https://api.openai.com",
}

// SetSecurityHeaders writes the fixed security header set on a response.
// Unconditional: it runs before any gate decision and regardless of outcome.
func SetSecurityHeaders(w http.ResponseWriter) {
	for name, value := range securityHeaders {
		w.Header().Set(name, value)
	}
}
