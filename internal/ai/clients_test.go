package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	name string
	err  error
}

func (s *stubCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Completion{Text: "OK"}, nil
}
func (s *stubCompleter) Name() string  { return s.name }
func (s *stubCompleter) Model() string { return s.name + "-model" }

func stubLazy(name string, buildErr, completeErr error) *Lazy[Completer] {
	return NewLazy(name, func(ctx context.Context) (Completer, error) {
		if buildErr != nil {
			return nil, buildErr
		}
		return &stubCompleter{name: name, err: completeErr}, nil
	}, nil)
}

func TestClients_Registry(t *testing.T) {
	c := NewClients("groq")
	c.Register(stubLazy("openai", nil, nil))
	c.Register(stubLazy("groq", nil, nil))
	c.Register(stubLazy("openai", nil, nil))

	assert.Equal(t, []string{"openai", "groq"}, c.Names())

	def, ok := c.Default()
	require.True(t, ok)
	assert.Equal(t, "groq", def.Name())

	_, ok = c.Get("cohere")
	assert.False(t, ok)
}

func TestClients_Check(t *testing.T) {
	c := NewClients("ok")
	c.Register(stubLazy("ok", nil, nil))
	c.Register(stubLazy("nokey", ErrMissingAPIKey, nil))
	c.Register(stubLazy("limited", nil, WrapError("execute request", ErrRateLimit)))
	c.Register(stubLazy("leaky", nil, errors.New("upstream said: secret body")))

	results := c.Check(context.Background(), time.Second, nil)
	require.Len(t, results, 4)

	assert.Equal(t, ProviderStatus{Provider: "ok", Model: "ok-model", Source: SourceServer, Available: true, State: "ready", ResponseTimeMs: results[0].ResponseTimeMs}, results[0])

	assert.False(t, results[1].Available)
	assert.Equal(t, "failed", results[1].State)
	assert.Equal(t, ErrMissingAPIKey.Error(), results[1].Error)

	assert.False(t, results[2].Available)
	assert.Equal(t, ErrRateLimit.Error(), results[2].Error)

	assert.Equal(t, "request failed", results[3].Error)

	// checks go through the shared handle
	lazy, _ := c.Get("ok")
	assert.Equal(t, StateReady, lazy.State())
}

func TestClients_CheckWithUserHandles(t *testing.T) {
	c := NewClients("openai")
	c.Register(stubLazy("openai", ErrMissingAPIKey, nil))
	c.Register(stubLazy("groq", nil, nil))

	var userBuilds int
	own := NewLazy("openai", func(ctx context.Context) (Completer, error) {
		userBuilds++
		return &stubCompleter{name: "openai-user"}, nil
	}, nil)

	results := c.Check(context.Background(), time.Second, map[string]*Lazy[Completer]{"openai": own})
	require.Len(t, results, 2)

	assert.True(t, results[0].Available)
	assert.Equal(t, SourceUser, results[0].Source)
	assert.Equal(t, "openai-user-model", results[0].Model)
	assert.Empty(t, results[0].State)

	assert.True(t, results[1].Available)
	assert.Equal(t, SourceServer, results[1].Source)

	// the user's client is built fresh and never lands in a shared slot
	assert.Equal(t, 1, userBuilds)
	assert.Equal(t, StateEmpty, own.State())
	server, _ := c.Get("openai")
	assert.Equal(t, StateEmpty, server.State())
}
