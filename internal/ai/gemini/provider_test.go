package gemini

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DukeRupert/lingua/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), Config{}, newTestLogger())
	assert.ErrorIs(t, err, ai.ErrMissingAPIKey)

	p, err := New(context.Background(), Config{APIKey: "test-key"}, newTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())
	assert.Equal(t, DefaultModel, p.Model())
}

func TestMapError(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, mapError(ctx, nil))
	assert.ErrorIs(t, mapError(ctx, genai.APIError{Code: 429, Message: "quota"}), ai.ErrRateLimit)
	assert.ErrorIs(t, mapError(ctx, genai.APIError{Code: 403, Message: "denied"}), ai.ErrUnauthorized)
	assert.ErrorIs(t, mapError(ctx, errors.New("connection reset")), ai.ErrUnavailable)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, mapError(cancelled, errors.New("whatever")), context.Canceled)
}
