package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/google/uuid"
)

// mockUserService implements service.UserService with function fields.
type mockUserService struct {
	RegisterFunc          func(ctx context.Context, params domain.RegisterParams) (*domain.User, error)
	LoginFunc             func(ctx context.Context, email, password string) (*domain.LoginResult, error)
	LogoutFunc            func(ctx context.Context, token string) error
	GetByIDFunc           func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetBySessionTokenFunc func(ctx context.Context, token string) (*domain.User, error)
}

func (m *mockUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token)
	}
	return nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if m.GetBySessionTokenFunc != nil {
		return m.GetBySessionTokenFunc(ctx, token)
	}
	return nil, domain.Unauthorized("", "Invalid or expired session")
}

func (m *mockUserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) error {
	return nil
}

func (m *mockUserService) EnsureAdmin(ctx context.Context, params domain.RegisterParams) (*domain.User, bool, error) {
	return nil, false, errors.New("not implemented")
}

func (m *mockUserService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestUser() *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		Email:     "lan@example.com",
		FullName:  "Nguyễn Lan",
		AvatarURL: domain.DefaultAvatarURL,
		Role:      domain.RoleUser,
	}
}
