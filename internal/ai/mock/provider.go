// Package mock provides a deterministic ai.Completer for development and tests.
package mock

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/DukeRupert/lingua/internal/ai"
)

// Model is the model name reported by the mock provider.
const Model = "mock-v1"

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing. Set before first use.
	Response *ai.Completion
	Err      error

	calls atomic.Int64
}

// New creates a new mock AI provider
func New(logger *slog.Logger) *Provider {
	return &Provider{logger: logger}
}

func (p *Provider) Name() string  { return "mock" }
func (p *Provider) Model() string { return Model }

// Complete echoes the last user message unless a canned response or error
// is configured.
func (p *Provider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	p.calls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Response != nil {
		return p.Response, nil
	}

	text := "mock: " + req.LastUserMessage()
	p.logger.Debug("mock completion", "chars", len(text))

	return &ai.Completion{
		Text: text,
		Usage: ai.UsageInfo{
			Model:        Model,
			InputTokens:  len(req.LastUserMessage()) / 4,
			OutputTokens: len(text) / 4,
			Duration:     time.Millisecond,
		},
	}, nil
}

// Calls returns how many times Complete ran.
func (p *Provider) Calls() int64 {
	return p.calls.Load()
}
