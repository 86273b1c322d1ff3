// Package domain contains core business types shared across layers.
//
// These types are separate from the repository models so that handlers and
// services never depend on database column types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// DefaultAvatarURL is shown until the user uploads an avatar.
const DefaultAvatarURL = "/avatar-placeholder.png"

// User is a registered learner or administrator.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string // Never expose this in API responses
	FullName     string
	AvatarURL    string
	Bio          string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin returns true if the user has the admin role. A nil user is not
// an admin.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DisplayName returns the user's full name or email if the name is empty.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// Session is a server-side record of an issued session token.
//
// Only the SHA-256 hash of the token is kept; the raw token lives in the
// client's auth-token cookie.
type Session struct {
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RegisterParams contains the parameters for user registration.
type RegisterParams struct {
	FullName string
	Email    string
	Password string // Raw password, hashed by the service
}

// LoginResult contains the result of a successful login.
type LoginResult struct {
	User      *User
	Token     string // Raw session token, only returned once
	ExpiresAt time.Time
}
