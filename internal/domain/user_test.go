package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"full name present", User{FullName: "Nguyen Van A", Email: "a@example.com"}, "Nguyen Van A"},
		{"falls back to email", User{Email: "a@example.com"}, "a@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.DisplayName())
		})
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("tutor").Valid())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
}

func TestSession_IsExpired(t *testing.T) {
	assert.True(t, (&Session{ExpiresAt: time.Now().Add(-time.Minute)}).IsExpired())
	assert.False(t, (&Session{ExpiresAt: time.Now().Add(time.Hour)}).IsExpired())
}

func TestErrorHelpers(t *testing.T) {
	base := errors.New("connection refused")

	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
		wantOp   string
	}{
		{
			name:     "nil error",
			err:      nil,
			wantCode: "",
			wantMsg:  "",
		},
		{
			name:     "plain error is internal",
			err:      base,
			wantCode: EINTERNAL,
			wantMsg:  "An internal error occurred. Please try again later.",
		},
		{
			name:     "internal message is hidden",
			err:      Internal(base, "UserService.Login", "Failed to create session"),
			wantCode: EINTERNAL,
			wantMsg:  "An internal error occurred. Please try again later.",
			wantOp:   "UserService.Login",
		},
		{
			name:     "unauthorized message is shown",
			err:      Unauthorized("UserService.Login", "Invalid credentials"),
			wantCode: EUNAUTHORIZED,
			wantMsg:  "Invalid credentials",
			wantOp:   "UserService.Login",
		},
		{
			name:     "wrapped with fmt",
			err:      errors.Join(Conflict("UserService.Register", "Email already registered")),
			wantCode: ECONFLICT,
			wantMsg:  "Email already registered",
			wantOp:   "UserService.Register",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, ErrorCode(tt.err))
			assert.Equal(t, tt.wantMsg, ErrorMessage(tt.err))
			assert.Equal(t, tt.wantOp, ErrorOp(tt.err))
		})
	}

	assert.ErrorIs(t, Unavailable(base, "op", "down"), base)
}
