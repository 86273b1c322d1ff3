package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeadersMiddleware adds HTTP security headers to all responses.
type SecurityHeadersMiddleware struct {
	isSecure bool
	csp      string
}

// NewSecurityHeadersMiddleware creates the middleware. isSecure enables HSTS
// and should be true whenever the site is served over HTTPS. assetOrigins
// are extra origins allowed for images, e.g. the public R2 domain.
func NewSecurityHeadersMiddleware(isSecure bool, assetOrigins ...string) *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{
		isSecure: isSecure,
		csp:      buildCSP(assetOrigins),
	}
}

// Handler returns middleware that sets security headers on all responses.
func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", m.csp)
		h.Set("Permissions-Policy", "geolocation=(), camera=()")

		if m.isSecure {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// buildCSP allows the bundled single-page app and data: images. The
// microphone stays available for pronunciation practice.
func buildCSP(assetOrigins []string) string {
	img := "img-src 'self' data: blob:"
	if len(assetOrigins) > 0 {
		img += " " + strings.Join(assetOrigins, " ")
	}

	return strings.Join([]string{
		"default-src 'self'",
		"script-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		img,
		"media-src 'self' blob:",
		"connect-src 'self'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}, "; ")
}
