package setup

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/lingua/internal/ai"
	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/google/uuid"
)

// KeySource looks up a user's own provider keys.
// service.APIKeyService satisfies it.
type KeySource interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.UserAPIKeys, error)
}

// Resolver picks, per user, between the shared server clients and
// clients built from the user's own keys.
type Resolver struct {
	clients *ai.Clients
	factory *Factory
	keys    KeySource
	logger  *slog.Logger
}

// NewResolver creates a Resolver. clients should come from factory.
func NewResolver(clients *ai.Clients, factory *Factory, keys KeySource, logger *slog.Logger) *Resolver {
	return &Resolver{clients: clients, factory: factory, keys: keys, logger: logger}
}

// UserHandles returns one unshared handle per provider the user has a key
// for. It returns nil for anonymous users, users without keys, and when
// the key lookup fails; callers then use the server clients.
func (r *Resolver) UserHandles(ctx context.Context, userID uuid.UUID) map[string]*ai.Lazy[ai.Completer] {
	if userID == uuid.Nil {
		return nil
	}

	keys, err := r.keys.Get(ctx, userID)
	if err != nil {
		r.logger.Warn("user api key lookup failed, using server keys", "user_id", userID, "error", err)
		return nil
	}

	var handles map[string]*ai.Lazy[ai.Completer]
	for _, provider := range domain.UserKeyProviders {
		key := keys.Key(provider)
		if key == "" {
			continue
		}
		if handles == nil {
			handles = make(map[string]*ai.Lazy[ai.Completer])
		}
		handles[provider] = r.factory.Lazy(provider, key)
	}
	return handles
}

// Check reports the status of every provider as seen by userID.
func (r *Resolver) Check(ctx context.Context, userID uuid.UUID, timeout time.Duration) []ai.ProviderStatus {
	return r.clients.Check(ctx, timeout, r.UserHandles(ctx, userID))
}

// DefaultName is the server default provider.
func (r *Resolver) DefaultName() string {
	return r.clients.DefaultName()
}
