// Package session provides the session cookie contract and the server-side
// session stores shared by the handler and middleware packages.
package session

import "time"

const (
	// CookieName is the name of the cookie that stores the session token.
	CookieName = "auth-token"

	// CookiePath ensures the cookie is sent with all requests.
	// Clearing must use the same path or browsers keep the old cookie.
	CookiePath = "/"

	// DefaultDuration is how long a session stays valid when no
	// SESSION_DURATION is configured.
	DefaultDuration = 7 * 24 * time.Hour

	// TokenBytes is the number of random bytes in a raw session token.
	// The token is hex-encoded to TokenLength characters.
	TokenBytes  = 32
	TokenLength = TokenBytes * 2
)
