package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/repository"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultAPIKeyCacheTTL is how long a user's keys are served from
	// memory before the database is read again.
	DefaultAPIKeyCacheTTL = 5 * time.Minute

	// DefaultAPIKeyCacheSize caps the number of users cached.
	DefaultAPIKeyCacheSize = 1024
)

// APIKeyService manages the provider keys users bring themselves.
type APIKeyService interface {
	// Get returns the user's keys. A user without saved keys gets an
	// empty set, not an error.
	Get(ctx context.Context, userID uuid.UUID) (*domain.UserAPIKeys, error)

	// Save validates and stores the keys present in params.
	// Returns domain.EINVALID when a key has the wrong prefix.
	Save(ctx context.Context, userID uuid.UUID, params domain.SaveAPIKeysParams) (*domain.UserAPIKeys, error)

	// Delete removes the key of one provider, or all keys for "all".
	Delete(ctx context.Context, userID uuid.UUID, provider string) (*domain.UserAPIKeys, error)
}

// APIKeyStore is the subset of repository queries the key service needs.
// *repository.Queries satisfies it.
type APIKeyStore interface {
	GetUserAPIKeys(ctx context.Context, userID uuid.UUID) (repository.UserApiKey, error)
	UpsertUserAPIKeys(ctx context.Context, arg repository.UpsertUserAPIKeysParams) (repository.UserApiKey, error)
}

// APIKeyServiceConfig holds the cache tunables. Zero values use the
// defaults.
type APIKeyServiceConfig struct {
	CacheTTL  time.Duration
	CacheSize int
}

type apiKeyService struct {
	store  APIKeyStore
	cache  *expirable.LRU[uuid.UUID, *domain.UserAPIKeys]
	logger *slog.Logger
}

// NewAPIKeyService creates a new APIKeyService instance.
func NewAPIKeyService(store APIKeyStore, cfg APIKeyServiceConfig, logger *slog.Logger) APIKeyService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultAPIKeyCacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultAPIKeyCacheSize
	}
	return &apiKeyService{
		store:  store,
		cache:  expirable.NewLRU[uuid.UUID, *domain.UserAPIKeys](cfg.CacheSize, nil, cfg.CacheTTL),
		logger: logger,
	}
}

func (s *apiKeyService) Get(ctx context.Context, userID uuid.UUID) (*domain.UserAPIKeys, error) {
	const op = "APIKeyService.Get"

	if keys, ok := s.cache.Get(userID); ok {
		return keys, nil
	}

	row, err := s.store.GetUserAPIKeys(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Internal(err, op, "Failed to load API keys")
		}
		row = repository.UserApiKey{UserID: userID}
	}

	keys := repoKeysToDomain(row)
	s.cache.Add(userID, keys)
	return keys, nil
}

func (s *apiKeyService) Save(ctx context.Context, userID uuid.UUID, params domain.SaveAPIKeysParams) (*domain.UserAPIKeys, error) {
	const op = "APIKeyService.Save"

	fields := []struct {
		provider string
		key      *string
	}{
		{domain.ProviderOpenAI, params.OpenAI},
		{domain.ProviderGroq, params.Groq},
		{domain.ProviderGemini, params.Gemini},
	}
	for _, f := range fields {
		if f.key == nil {
			continue
		}
		*f.key = strings.TrimSpace(*f.key)
		if err := domain.ValidateAPIKey(f.provider, *f.key); err != nil {
			return nil, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
		}
	}

	return s.upsert(ctx, op, repository.UpsertUserAPIKeysParams{
		UserID:    userID,
		OpenaiKey: nullString(params.OpenAI),
		GroqKey:   nullString(params.Groq),
		GeminiKey: nullString(params.Gemini),
	})
}

func (s *apiKeyService) Delete(ctx context.Context, userID uuid.UUID, provider string) (*domain.UserAPIKeys, error) {
	const op = "APIKeyService.Delete"

	empty := sql.NullString{Valid: true}
	arg := repository.UpsertUserAPIKeysParams{UserID: userID}
	switch provider {
	case "all":
		arg.OpenaiKey, arg.GroqKey, arg.GeminiKey = empty, empty, empty
	case domain.ProviderOpenAI:
		arg.OpenaiKey = empty
	case domain.ProviderGroq:
		arg.GroqKey = empty
	case domain.ProviderGemini:
		arg.GeminiKey = empty
	default:
		return nil, domain.Invalid(op, "Unknown provider")
	}

	return s.upsert(ctx, op, arg)
}

func (s *apiKeyService) upsert(ctx context.Context, op string, arg repository.UpsertUserAPIKeysParams) (*domain.UserAPIKeys, error) {
	// Drop the cached copy even on failure; the row may have changed.
	defer s.cache.Remove(arg.UserID)

	row, err := s.store.UpsertUserAPIKeys(ctx, arg)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to save API keys")
	}

	s.logger.Info("user api keys updated", "user_id", arg.UserID)
	return repoKeysToDomain(row), nil
}

func repoKeysToDomain(k repository.UserApiKey) *domain.UserAPIKeys {
	return &domain.UserAPIKeys{
		UserID:    k.UserID,
		OpenAI:    k.OpenaiKey,
		Groq:      k.GroqKey,
		Gemini:    k.GeminiKey,
		UpdatedAt: k.UpdatedAt,
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
