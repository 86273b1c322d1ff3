// Package middleware contains HTTP middleware for the Lingua server.
//
// Middleware follow the standard func(http.Handler) http.Handler shape and
// are composed with Stack.
package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/DukeRupert/lingua/internal/auth"
	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/handler"
	"github.com/DukeRupert/lingua/internal/metrics"
	"github.com/DukeRupert/lingua/internal/service"
	"github.com/DukeRupert/lingua/internal/session"
)

const (
	// LoginPath is where anonymous page requests are sent.
	LoginPath = "/auth/login"

	// RegisterPath is the sign-up page.
	RegisterPath = "/auth/register"

	// HomePath is the landing page for signed-in learners.
	HomePath = "/dashboard-new"

	// AdminPath is the landing page for administrators.
	AdminPath = "/admin"
)

// ProtectedPrefixes are the page routes that need a signed-in user.
var ProtectedPrefixes = []string{
	"/dashboard-new",
	"/dashboard",
	"/assessment",
	"/profile",
	"/admin",
}

// AuthMiddleware loads the session user and guards routes.
type AuthMiddleware struct {
	userService service.UserService
	cookies     session.CookieOptions
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(userService service.UserService, cookies session.CookieOptions, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		cookies:     cookies,
		logger:      logger,
	}
}

// WithUser resolves the session token, if any, and stores the user in the
// request context. It never rejects a request: an unknown or expired token
// is treated as anonymous and its cookie is cleared. When the lookup itself
// fails the request is anonymous too, but the cookie is kept.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := session.TokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.userService.GetBySessionToken(r.Context(), token)
		if err != nil {
			if domain.ErrorCode(err) != domain.EUNAUTHORIZED {
				// Store outage: the session may still be valid, keep the cookie.
				m.logger.Warn("session lookup failed", "error", err, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}
			metrics.AuthEvent(metrics.EventInvalidToken)
			if _, cookieErr := r.Cookie(session.CookieName); cookieErr == nil {
				m.cookies.ClearCookie(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// RequireUser rejects anonymous requests: 401 JSON for API calls, a
// redirect to the login page with return_to for everything else.
//
// Must run after WithUser.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			if isAPIRequest(r) {
				handler.UnauthorizedResponse(w, r, m.logger)
				return
			}
			http.Redirect(w, r, loginRedirect(r), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects users without the admin role. Must run after
// RequireUser.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil || !user.IsAdmin() {
			if isAPIRequest(r) {
				handler.ForbiddenResponse(w, r, m.logger)
				return
			}
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PageGuard applies the page-level routing rules to every request:
//   - anonymous requests to a protected prefix go to the login page
//   - non-admins under /admin go to the learner dashboard
//   - signed-in users on the login or register page go to their landing page
//
// Must run after WithUser.
func (m *AuthMiddleware) PageGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		user := auth.GetUser(r.Context())
		path := r.URL.Path

		switch {
		case isProtected(path) && user == nil:
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		case hasPathPrefix(path, AdminPath) && !user.IsAdmin():
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
			return
		case (path == LoginPath || path == RegisterPath) && user != nil:
			http.Redirect(w, r, landingPath(user.IsAdmin()), http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Stack composes middleware so the first argument is the outermost.
//
//	stack := Stack(logging.Handler, authMw.WithUser, authMw.RequireUser)
//	mux.Handle("GET /api/users/me", stack(meHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

func landingPath(isAdmin bool) string {
	if isAdmin {
		return AdminPath
	}
	return HomePath
}

func loginRedirect(r *http.Request) string {
	returnTo := r.URL.Path
	if r.URL.RawQuery != "" {
		returnTo += "?" + r.URL.RawQuery
	}
	return LoginPath + "?return_to=" + url.QueryEscape(returnTo)
}

func isProtected(path string) bool {
	for _, prefix := range ProtectedPrefixes {
		if hasPathPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// hasPathPrefix matches whole path segments, so /admin matches /admin/users
// but not /administrator.
func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// isAPIRequest reports whether the client expects JSON rather than a page.
func isAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).WithUser
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireUser
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireAdmin
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).PageGuard
)
