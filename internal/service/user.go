// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, session stores,
// external APIs and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/repository"
	"github.com/DukeRupert/lingua/internal/session"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	//
	// SECURITY NOTE: This should NOT be configurable at runtime to prevent
	// accidental weakening. If you need to change it, do so here and redeploy.
	BcryptCost = 12

	// DefaultSessionDuration is used when the configured duration is zero.
	DefaultSessionDuration = session.DefaultDuration

	// MinSessionDuration and MaxSessionDuration bound configured durations.
	MinSessionDuration = 15 * time.Minute
	MaxSessionDuration = 30 * 24 * time.Hour

	// MinPasswordLength is the minimum password length.
	MinPasswordLength = 6

	// MaxPasswordLength prevents DoS via bcrypt on very long passwords.
	// bcrypt has a 72-byte limit anyway, but we cap earlier for clarity.
	MaxPasswordLength = 72

	// MaxNameLength caps the display name.
	MaxNameLength = 100
)

// Error messages returned to clients. Login deliberately uses one message
// for unknown email and wrong password.
const (
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidSession     = "Invalid or expired session"
	msgEmailTaken         = "Email already registered"
)

// dummyHash is a bcrypt hash of "dummy", compared against on unknown emails
// so both login failures take the same time.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the interface for user and session operations.
type UserService interface {
	// Register creates a new user account.
	// Returns domain.ECONFLICT if email already exists.
	// Returns domain.EINVALID for validation errors.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and creates a new session.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Logout revokes a session by its raw token.
	// Unknown, malformed and empty tokens are not an error.
	Logout(ctx context.Context, token string) error

	// GetByID returns domain.ENOTFOUND if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken validates a session and returns its user.
	// Returns domain.EUNAUTHORIZED if the token is invalid or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// UpdateAvatar stores a new avatar URL for the user.
	UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) error

	// EnsureAdmin creates an admin account or promotes the existing account
	// with the same email. created reports which of the two happened.
	EnsureAdmin(ctx context.Context, params domain.RegisterParams) (user *domain.User, created bool, err error)

	// DeleteExpiredSessions removes expired sessions from the store.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// UserStore is the subset of repository queries the user service needs.
// *repository.Queries satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, arg repository.CreateUserParams) (repository.User, error)
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	UpdateUserAvatar(ctx context.Context, arg repository.UpdateUserAvatarParams) error
	UpdateUserRole(ctx context.Context, arg repository.UpdateUserRoleParams) error
}

// UserServiceConfig holds the tunables of the user service.
type UserServiceConfig struct {
	SessionDuration time.Duration
	// AdminEmails register with the admin role. Compared lower-cased.
	AdminEmails []string
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	users       UserStore
	sessions    session.Store
	duration    time.Duration
	adminEmails []string
	logger      *slog.Logger
	now         func() time.Time
}

// NewUserService creates a new UserService instance.
func NewUserService(users UserStore, sessions session.Store, cfg UserServiceConfig, logger *slog.Logger) UserService {
	admins := make([]string, 0, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		admins = append(admins, strings.ToLower(strings.TrimSpace(e)))
	}

	return &userService{
		users:       users,
		sessions:    sessions,
		duration:    normalizeSessionDuration(cfg.SessionDuration),
		adminEmails: admins,
		logger:      logger,
		now:         time.Now,
	}
}

// normalizeSessionDuration applies the default and clamps to
// [MinSessionDuration, MaxSessionDuration].
func normalizeSessionDuration(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultSessionDuration
	case d < MinSessionDuration:
		return MinSessionDuration
	case d > MaxSessionDuration:
		return MaxSessionDuration
	default:
		return d
	}
}

// =============================================================================
// Register Implementation
// =============================================================================

// Register creates a new user account with the provided parameters.
//
// Security Considerations:
// - Timing attacks are mitigated by always hashing even on duplicate email
// - The raw password is never logged or stored
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "UserService.Register"

	params.Email = normalizeEmail(params.Email)
	params.FullName = normalizeName(params.FullName)

	if params.FullName == "" || params.Email == "" || params.Password == "" {
		return nil, domain.Invalid(op, "Missing fields")
	}
	if len([]rune(params.FullName)) > MaxNameLength {
		return nil, domain.Invalid(op, "Name must be 100 characters or less")
	}
	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}

	_, err := s.users.GetUserByEmail(ctx, params.Email)
	if err == nil {
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, msgEmailTaken)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}

	role := domain.RoleUser
	if s.isAdminEmail(params.Email) {
		role = domain.RoleAdmin
	}

	user, err := s.createUser(ctx, params, role)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict(op, msgEmailTaken)
		}
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email, "role", user.Role)

	return user, nil
}

func (s *userService) createUser(ctx context.Context, params domain.RegisterParams, role domain.Role) (*domain.User, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, err
	}

	repoUser, err := s.users.CreateUser(ctx, repository.CreateUserParams{
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		FullName:     params.FullName,
		Role:         string(role),
	})
	if err != nil {
		return nil, err
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""
	return user, nil
}

// =============================================================================
// Login Implementation
// =============================================================================

// Login authenticates a user and creates a new session.
//
// The raw token is returned once; only its SHA-256 hash is stored.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "UserService.Login"

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Invalid(op, "Missing fields")
	}

	repoUser, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, msgInvalidCredentials)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, msgInvalidCredentials)
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate session token")
	}

	expiresAt := s.now().Add(s.duration)
	err = s.sessions.Create(ctx, domain.Session{
		UserID:    repoUser.ID,
		TokenHash: hashSessionToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	s.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)

	return &domain.LoginResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// =============================================================================
// Logout Implementation
// =============================================================================

// Logout revokes a session.
//
// This operation is idempotent: an empty, malformed or already-deleted
// token does nothing. Store failures are returned so the caller can log
// them; callers must not let them change the logout response.
func (s *userService) Logout(ctx context.Context, token string) error {
	const op = "UserService.Logout"

	if len(token) != session.TokenLength {
		return nil
	}

	if err := s.sessions.Delete(ctx, hashSessionToken(token)); err != nil {
		return domain.Internal(err, op, "Failed to delete session")
	}

	s.logger.Debug("session invalidated")
	return nil
}

// =============================================================================
// Lookups
// =============================================================================

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "UserService.GetByID"

	repoUser, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""
	return user, nil
}

// GetBySessionToken retrieves a user by their session token.
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "UserService.GetBySessionToken"

	if len(token) != session.TokenLength {
		return nil, domain.Unauthorized(op, msgInvalidSession)
	}

	sess, err := s.sessions.Get(ctx, hashSessionToken(token))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, domain.Unauthorized(op, msgInvalidSession)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve session")
	}

	repoUser, err := s.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// User deleted after the session was issued
			return nil, domain.Unauthorized(op, msgInvalidSession)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""
	return user, nil
}

// =============================================================================
// Profile & administration
// =============================================================================

func (s *userService) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) error {
	const op = "UserService.UpdateAvatar"

	if avatarURL == "" {
		return domain.Invalid(op, "Avatar URL is required")
	}

	err := s.users.UpdateUserAvatar(ctx, repository.UpdateUserAvatarParams{
		ID:        userID,
		AvatarUrl: avatarURL,
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update avatar")
	}

	s.logger.Info("avatar updated", "user_id", userID)
	return nil
}

func (s *userService) EnsureAdmin(ctx context.Context, params domain.RegisterParams) (*domain.User, bool, error) {
	const op = "UserService.EnsureAdmin"

	params.Email = normalizeEmail(params.Email)
	params.FullName = normalizeName(params.FullName)
	if params.FullName == "" {
		params.FullName = "Admin"
	}

	if err := validateEmail(params.Email); err != nil {
		return nil, false, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}

	existing, err := s.users.GetUserByEmail(ctx, params.Email)
	switch {
	case err == nil:
		if existing.Role != string(domain.RoleAdmin) {
			err = s.users.UpdateUserRole(ctx, repository.UpdateUserRoleParams{
				ID:   existing.ID,
				Role: string(domain.RoleAdmin),
			})
			if err != nil {
				return nil, false, domain.Internal(err, op, "Failed to promote user")
			}
			existing.Role = string(domain.RoleAdmin)
			s.logger.Info("user promoted to admin", "user_id", existing.ID, "email", existing.Email)
		}
		user := repoUserToDomain(existing)
		user.PasswordHash = ""
		return user, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := validatePassword(params.Password); err != nil {
		return nil, false, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}

	user, err := s.createUser(ctx, params, domain.RoleAdmin)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, domain.Conflict(op, msgEmailTaken)
		}
		return nil, false, domain.Internal(err, op, "Failed to create admin")
	}

	s.logger.Info("admin created", "user_id", user.ID, "email", user.Email)
	return user, true, nil
}

// DeleteExpiredSessions removes all expired sessions.
// Called periodically by the purge_expired_sessions job.
func (s *userService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const op = "UserService.DeleteExpiredSessions"

	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to delete expired sessions")
	}

	s.logger.Info("expired sessions cleaned up", "deleted", n)
	return n, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// generateSessionToken returns 32 random bytes as a 64-character hex string.
func generateSessionToken() (string, error) {
	b := make([]byte, session.TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashSessionToken creates a SHA-256 hash of a session token.
//
// Session tokens are high-entropy random values, so a fast hash is enough.
func hashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func repoUserToDomain(u repository.User) *domain.User {
	avatar := u.AvatarUrl
	if avatar == "" {
		avatar = domain.DefaultAvatarURL
	}

	return &domain.User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FullName:     u.FullName,
		AvatarURL:    avatar,
		Bio:          u.Bio,
		Role:         domain.Role(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (s *userService) isAdminEmail(email string) bool {
	return slices.Contains(s.adminEmails, email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeName composes the name to NFC so visually identical names
// typed with combining marks compare equal.
func normalizeName(name string) string {
	return strings.TrimSpace(norm.NFC.String(name))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// validateEmail validates an email address format.
//
// Checks:
// - Length limits (RFC 5321: 254 chars max)
// - Exactly one @, not at either end
// - Domain part has a dot, no consecutive dots
func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("", "Email is required")
	}
	if len(email) > 254 {
		return domain.Invalid("", "Email must be 254 characters or less")
	}

	if strings.Count(email, "@") != 1 {
		return domain.Invalid("", "Email must contain exactly one @ symbol")
	}
	at := strings.IndexByte(email, '@')
	if at == 0 {
		return domain.Invalid("", "Email cannot start with @")
	}
	if at == len(email)-1 {
		return domain.Invalid("", "Email cannot end with @")
	}

	if !strings.Contains(email[at+1:], ".") {
		return domain.Invalid("", "Email domain must contain a dot")
	}
	if strings.Contains(email, "..") {
		return domain.Invalid("", "Email cannot contain consecutive dots")
	}

	return nil
}

// validatePassword validates password strength requirements.
//
// Rules:
// - Minimum length: 6 characters
// - Maximum length: 72 characters (bcrypt limit)
// - At least one special character (punctuation or symbol)
func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domain.Invalid("", "Password must be at least 6 characters")
	}
	if len(password) > MaxPasswordLength {
		return domain.Invalid("", "Password must be 72 characters or less")
	}

	hasSpecial := strings.IndexFunc(password, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}) >= 0
	if !hasSpecial {
		return domain.Invalid("", "Password must contain at least one special character")
	}

	return nil
}
