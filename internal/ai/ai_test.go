package ai

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimit},
		{http.StatusRequestTimeout, ErrTimeout},
		{http.StatusGatewayTimeout, ErrTimeout},
		{http.StatusServiceUnavailable, ErrUnavailable},
		{529, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.ErrorIs(t, MapHTTPStatus(tt.status, ""), tt.want)
		})
	}

	err := MapHTTPStatus(http.StatusBadRequest, "bad model")
	assert.False(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "bad model")
}

func TestRetry(t *testing.T) {
	cfg := ProviderConfig{MaxRetries: 3, RetryBaseDelay: time.Millisecond}

	t.Run("retries transient errors then succeeds", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), cfg, newTestLogger(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return ErrRateLimit
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), cfg, newTestLogger(), func(ctx context.Context) error {
			calls++
			return ErrUnavailable
		})
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), cfg, newTestLogger(), func(ctx context.Context) error {
			calls++
			return ErrUnauthorized
		})
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := ProviderConfig{MaxRetries: 5, RetryBaseDelay: time.Hour}
		err := Retry(ctx, slow, newTestLogger(), func(ctx context.Context) error {
			cancel()
			return ErrTimeout
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError("op", nil))
	err := WrapError("execute request", ErrRateLimit)
	assert.ErrorIs(t, err, ErrRateLimit)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(errors.New("other")))
}

func TestCompletionRequest_LastUserMessage(t *testing.T) {
	req := CompletionRequest{Messages: []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
		{Role: RoleAssistant, Content: "reply 2"},
	}}
	assert.Equal(t, "second", req.LastUserMessage())
	assert.Equal(t, "", CompletionRequest{}.LastUserMessage())
}
