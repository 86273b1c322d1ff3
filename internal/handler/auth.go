package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/lingua/internal/auth"
	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/metrics"
	"github.com/DukeRupert/lingua/internal/service"
	"github.com/DukeRupert/lingua/internal/session"
)

// userJSON is the public view of a user.
type userJSON struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
	Bio      string `json:"bio"`
}

func toUserJSON(u *domain.User) userJSON {
	return userJSON{
		ID:       u.ID.String(),
		Email:    u.Email,
		FullName: u.FullName,
		Avatar:   u.AvatarURL,
		Role:     string(u.Role),
		Bio:      u.Bio,
	}
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type userResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	User    userJSON `json:"user"`
}

// AuthHandler serves the session endpoints.
//
// Routes:
//   - POST /api/auth/login
//   - POST /api/auth/register
//   - POST /api/auth/logout
//   - GET  /api/users/me (wrap with RequireUser)
type AuthHandler struct {
	userService service.UserService
	cookies     session.CookieOptions
	logger      *slog.Logger

	// onLogin runs after a successful login, e.g. to reset rate limits.
	onLogin func(r *http.Request)
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService service.UserService, cookies session.CookieOptions, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		cookies:     cookies,
		logger:      logger,
	}
}

// OnLogin registers fn to run after every successful login.
func (h *AuthHandler) OnLogin(fn func(r *http.Request)) {
	h.onLogin = fn
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials, opens a session and sets the auth-token
// cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if domain.ErrorCode(err) == domain.EUNAUTHORIZED {
			metrics.AuthEvent(metrics.EventLoginFailed)
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.cookies.SetCookie(w, result.Token, result.ExpiresAt)
	metrics.AuthEvent(metrics.EventLogin)
	if h.onLogin != nil {
		h.onLogin(r)
	}

	h.logger.Info("user logged in", "user_id", result.User.ID)
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: toUserJSON(result.User)})
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. It does not log the user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.userService.Register(r.Context(), domain.RegisterParams{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	metrics.AuthEvent(metrics.EventRegister)
	h.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, userResponse{
		Success: true,
		Message: "Registration successful",
		User:    toUserJSON(user),
	})
}

// Logout clears the auth-token cookie and answers 200 whether or not a
// session existed. Revoking the stored session is best-effort: a failure
// is logged and the cookie is cleared anyway.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if err := h.userService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("failed to revoke session", "error", err)
		}
	}

	h.cookies.ClearCookie(w)
	metrics.AuthEvent(metrics.EventLogout)

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out"})
}

// Me returns the signed-in user. The user is reloaded so avatar changes
// made by other sessions show up.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUser(r.Context())
	if current == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	user, err := h.userService.GetByID(r.Context(), current.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Success: true, User: toUserJSON(user)})
}
