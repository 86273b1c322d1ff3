// Package auth carries the authenticated user through a request context.
//
// It sits below both middleware and handler so neither has to import the
// other for this.
package auth

import (
	"context"

	"github.com/DukeRupert/lingua/internal/domain"
)

type contextKey struct{}

var userKey contextKey

// GetUser returns the user stored by SetUser, or nil for anonymous requests.
func GetUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}

// SetUser returns a copy of ctx carrying user.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}
