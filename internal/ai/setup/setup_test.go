package setup

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/DukeRupert/lingua/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_Clients(t *testing.T) {
	var mu sync.Mutex
	builds := map[string]int{}
	observe := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		builds[name]++
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	clients := NewFactory(Config{Default: "groq", OpenAIAPIKey: "sk-test"}, logger, observe).Clients()

	assert.Equal(t, []string{"openai", "groq", "gemini", "anthropic", "mock"}, clients.Names())
	assert.Empty(t, builds, "nothing is built at startup")

	// keys that were not configured fail on every call
	groq, ok := clients.Default()
	require.True(t, ok)
	for i := 0; i < 2; i++ {
		_, err := groq.Shared(context.Background())
		assert.ErrorIs(t, err, ai.ErrMissingAPIKey)
	}
	assert.Equal(t, ai.StateFailed, groq.State())
	assert.Equal(t, 2, builds["groq"])

	for _, name := range []string{"gemini", "anthropic"} {
		l, _ := clients.Get(name)
		_, err := l.Shared(context.Background())
		assert.ErrorIs(t, err, ai.ErrMissingAPIKey, name)
	}

	openai, _ := clients.Get("openai")
	shared, err := openai.Shared(context.Background())
	require.NoError(t, err)
	again, _ := openai.Shared(context.Background())
	fresh, _ := openai.Fresh(context.Background())
	assert.Same(t, shared, again)
	assert.NotSame(t, shared, fresh)
	assert.Equal(t, "openai", shared.Name())

	mockLazy, _ := clients.Get("mock")
	c, err := mockLazy.Shared(context.Background())
	require.NoError(t, err)
	out, err := c.Complete(context.Background(), ai.CompletionRequest{Messages: []ai.Message{{Role: ai.RoleUser, Content: "ping"}}})
	require.NoError(t, err)
	assert.Equal(t, "mock: ping", out.Text)
}

func TestFactory_LazyUnknownProvider(t *testing.T) {
	f := NewFactory(Config{}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), nil)
	assert.Nil(t, f.Lazy("cohere", "key"))
}
