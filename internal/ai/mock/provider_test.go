package mock

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DukeRupert/lingua/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider(t *testing.T) {
	p := New(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	out, err := p.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hola"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "mock: hola", out.Text)
	assert.Equal(t, Model, out.Usage.Model)

	p.Err = ai.ErrRateLimit
	_, err = p.Complete(context.Background(), ai.CompletionRequest{})
	assert.True(t, errors.Is(err, ai.ErrRateLimit))
	assert.Equal(t, int64(2), p.Calls())
}
