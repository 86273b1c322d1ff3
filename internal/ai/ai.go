// Package ai defines the chat completion contract shared by every AI
// provider and the lazily constructed, process-scoped client handles.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Completer is a handle to one external AI service.
type Completer interface {
	// Complete runs a single chat completion.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// Name identifies the provider, e.g. "openai" or "groq".
	Name() string

	// Model is the model every request is sent to.
	Model() string
}

// Role of a chat message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest contains parameters for a chat completion.
type CompletionRequest struct {
	System    string    // Optional system prompt
	Messages  []Message // Conversation, oldest first
	MaxTokens int       // Upper bound on generated tokens; 0 uses the provider default
}

// Completion is the generated reply.
type Completion struct {
	Text  string
	Usage UsageInfo
}

// UsageInfo tracks API usage for monitoring
type UsageInfo struct {
	Model        string        // AI model used
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	Duration     time.Duration // Request duration
}

// DefaultMaxTokens is used when a request leaves MaxTokens unset.
const DefaultMaxTokens = 1024

// ProviderConfig contains common configuration for AI providers
type ProviderConfig struct {
	MaxRetries     int           // Maximum attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// WithDefaults fills zero fields.
func (c ProviderConfig) WithDefaults() ProviderConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	return c
}

// Error codes for AI provider operations
var (
	// ErrMissingAPIKey is a configuration error: the provider's key is unset.
	ErrMissingAPIKey = errors.New("ai provider API key is not configured")

	// ErrUnauthorized indicates invalid API credentials
	ErrUnauthorized = errors.New("ai provider authentication failed")

	// ErrRateLimit indicates the API rate limit has been exceeded
	ErrRateLimit = errors.New("ai provider rate limit exceeded")

	// ErrTimeout indicates the request timed out
	ErrTimeout = errors.New("ai request timed out")

	// ErrUnavailable indicates the AI service is temporarily unavailable
	ErrUnavailable = errors.New("ai service temporarily unavailable")

	// ErrEmptyResponse indicates the provider returned no text
	ErrEmptyResponse = errors.New("ai provider returned an empty response")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnavailable)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}

// MapHTTPStatus maps a non-2xx provider response onto the package errors.
func MapHTTPStatus(status int, message string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrTimeout
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, 529:
		return fmt.Errorf("%w (status %d)", ErrUnavailable, status)
	default:
		return fmt.Errorf("API error (status %d): %s", status, message)
	}
}

// Retry calls attempt until it succeeds, returns a non-retryable error or
// cfg.MaxRetries attempts are used. The delay doubles after every attempt.
func Retry(ctx context.Context, cfg ProviderConfig, logger *slog.Logger, attempt func(ctx context.Context) error) error {
	cfg = cfg.WithDefaults()

	var lastErr error
	for i := 1; i <= cfg.MaxRetries; i++ {
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) || i == cfg.MaxRetries {
			break
		}

		delay := cfg.RetryBaseDelay * time.Duration(1<<(i-1))
		logger.Info("retrying AI request", "attempt", i, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}

// LastUserMessage returns the content of the most recent user turn.
func (r CompletionRequest) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}
