package session

import (
	"net/http"
	"time"
)

// CookieOptions controls the attributes shared by issuance and clearing.
type CookieOptions struct {
	// Secure sets the Secure attribute. Off in development so the cookie
	// works over plain http://localhost.
	Secure bool
}

// SetCookie writes the session cookie carrying the raw token.
func (o CookieOptions) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = int(DefaultDuration.Seconds())
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     CookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie overwrites the session cookie with an empty value that
// expires immediately. The name, path and flags match SetCookie.
func (o CookieOptions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     CookiePath,
		MaxAge:   -1, // serialized as Max-Age=0
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest returns the raw session token from the auth-token cookie
// or, failing that, from an "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
