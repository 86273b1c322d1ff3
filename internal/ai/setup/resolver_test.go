package setup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DukeRupert/lingua/internal/ai"
	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubKeys struct {
	keys  *domain.UserAPIKeys
	err   error
	calls int
}

func (s *stubKeys) Get(ctx context.Context, userID uuid.UUID) (*domain.UserAPIKeys, error) {
	s.calls++
	return s.keys, s.err
}

type buildCounter struct {
	mu     sync.Mutex
	builds map[string]int
}

func (b *buildCounter) observe(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.builds[name]++
}

func (b *buildCounter) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds[name]
}

// newTestResolver points Groq at a local server that only accepts the
// "gsk_user" key.
func newTestResolver(t *testing.T, keys KeySource) (*Resolver, *ai.Clients, *buildCounter) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gsk_user" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"OK"}}]}`))
	}))
	t.Cleanup(srv.Close)

	counter := &buildCounter{builds: map[string]int{}}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	factory := NewFactory(Config{Default: "groq", GroqBaseURL: srv.URL, Provider: ai.ProviderConfig{MaxRetries: 1}}, logger, counter.observe)
	clients := factory.Clients()
	return NewResolver(clients, factory, keys, logger), clients, counter
}

func statusOf(t *testing.T, results []ai.ProviderStatus, provider string) ai.ProviderStatus {
	t.Helper()
	for _, r := range results {
		if r.Provider == provider {
			return r
		}
	}
	t.Fatalf("no status for %s", provider)
	return ai.ProviderStatus{}
}

func TestResolver_UserHandles(t *testing.T) {
	keys := &stubKeys{keys: &domain.UserAPIKeys{Groq: "gsk_user", Gemini: ""}}
	r, _, _ := newTestResolver(t, keys)

	handles := r.UserHandles(context.Background(), uuid.New())
	require.Len(t, handles, 1)
	assert.Equal(t, "groq", handles["groq"].Name())

	assert.Nil(t, r.UserHandles(context.Background(), uuid.Nil))
	assert.Equal(t, 1, keys.calls, "anonymous users skip the lookup")
}

func TestResolver_UserKeyBuildsFreshClient(t *testing.T) {
	keys := &stubKeys{keys: &domain.UserAPIKeys{Groq: "gsk_user"}}
	r, clients, counter := newTestResolver(t, keys)

	results := r.Check(context.Background(), uuid.New(), time.Second)

	groq := statusOf(t, results, "groq")
	assert.Equal(t, ai.SourceUser, groq.Source)
	assert.True(t, groq.Available, groq.Error)
	assert.Empty(t, groq.State)
	assert.Equal(t, 1, counter.count("groq"))

	shared, _ := clients.Get("groq")
	assert.Equal(t, ai.StateEmpty, shared.State(), "a user key never fills the shared slot")

	// Providers without a user key fall back to the server clients.
	openai := statusOf(t, results, "openai")
	assert.Equal(t, ai.SourceServer, openai.Source)
	assert.Equal(t, ai.ErrMissingAPIKey.Error(), openai.Error)
	mock := statusOf(t, results, "mock")
	assert.Equal(t, ai.SourceServer, mock.Source)
	assert.True(t, mock.Available)
}

func TestResolver_FallsBackToServerClients(t *testing.T) {
	tests := []struct {
		name   string
		keys   *stubKeys
		userID uuid.UUID
	}{
		{"anonymous", &stubKeys{keys: &domain.UserAPIKeys{Groq: "gsk_user"}}, uuid.Nil},
		{"no keys saved", &stubKeys{keys: &domain.UserAPIKeys{}}, uuid.New()},
		{"lookup failure", &stubKeys{err: errors.New("db down")}, uuid.New()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestResolver(t, tt.keys)

			results := r.Check(context.Background(), tt.userID, time.Second)
			assert.Len(t, results, len(Providers))
			for _, res := range results {
				assert.Equal(t, ai.SourceServer, res.Source, res.Provider)
			}
			assert.Equal(t, "groq", r.DefaultName())
		})
	}
}
