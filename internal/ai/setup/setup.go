// Package setup builds the process-wide AI client registry from configuration
// and resolves the per-user clients built from a user's own keys.
package setup

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/lingua/internal/ai"
	"github.com/DukeRupert/lingua/internal/ai/anthropic"
	"github.com/DukeRupert/lingua/internal/ai/gemini"
	"github.com/DukeRupert/lingua/internal/ai/mock"
	"github.com/DukeRupert/lingua/internal/ai/openai"
)

// Config carries the keys read once at startup. Empty keys are allowed
// here; the matching builder fails with ai.ErrMissingAPIKey on use.
type Config struct {
	Default string

	OpenAIAPIKey    string
	OpenAIModel     string
	GroqAPIKey      string
	GroqModel       string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string

	// Endpoint overrides for OpenAI-compatible servers. Empty means the
	// public API.
	OpenAIBaseURL string
	GroqBaseURL   string

	Provider ai.ProviderConfig
}

// Providers in registration order.
var Providers = []string{"openai", "groq", "gemini", "anthropic", "mock"}

// Factory creates lazy handles for a provider and key.
type Factory struct {
	cfg     Config
	logger  *slog.Logger
	observe ai.BuildObserver
}

// NewFactory creates a Factory. observe may be nil.
func NewFactory(cfg Config, logger *slog.Logger, observe ai.BuildObserver) *Factory {
	return &Factory{cfg: cfg, logger: logger, observe: observe}
}

// Lazy returns an unbuilt handle for provider using apiKey. Unknown
// providers return nil.
func (f *Factory) Lazy(provider, apiKey string) *ai.Lazy[ai.Completer] {
	build := f.builder(provider, apiKey)
	if build == nil {
		return nil
	}
	return ai.NewLazy(provider, build, f.observe)
}

// serverKey returns the configured key for provider.
func (f *Factory) serverKey(provider string) string {
	switch provider {
	case "openai":
		return f.cfg.OpenAIAPIKey
	case "groq":
		return f.cfg.GroqAPIKey
	case "gemini":
		return f.cfg.GeminiAPIKey
	case "anthropic":
		return f.cfg.AnthropicAPIKey
	}
	return ""
}

func (f *Factory) builder(provider, apiKey string) ai.BuildFunc[ai.Completer] {
	cfg, logger := f.cfg, f.logger

	switch provider {
	case "openai", "groq":
		model, baseURL := cfg.OpenAIModel, orDefault(cfg.OpenAIBaseURL, openai.OpenAIBaseURL)
		if provider == "groq" {
			model, baseURL = cfg.GroqModel, orDefault(cfg.GroqBaseURL, openai.GroqBaseURL)
		}
		return func(ctx context.Context) (ai.Completer, error) {
			p, err := openai.New(openai.Config{
				Name:           provider,
				APIKey:         apiKey,
				Model:          model,
				BaseURL:        baseURL,
				ProviderConfig: cfg.Provider,
			}, logger)
			if err != nil {
				return nil, err
			}
			return p, nil
		}

	case "gemini":
		return func(ctx context.Context) (ai.Completer, error) {
			p, err := gemini.New(ctx, gemini.Config{
				APIKey:         apiKey,
				Model:          cfg.GeminiModel,
				ProviderConfig: cfg.Provider,
			}, logger)
			if err != nil {
				return nil, err
			}
			return p, nil
		}

	case "anthropic":
		return func(ctx context.Context) (ai.Completer, error) {
			p, err := anthropic.New(anthropic.Config{
				APIKey:         apiKey,
				Model:          cfg.AnthropicModel,
				ProviderConfig: cfg.Provider,
			}, logger)
			if err != nil {
				return nil, err
			}
			return p, nil
		}

	case "mock":
		return func(ctx context.Context) (ai.Completer, error) {
			return mock.New(logger), nil
		}
	}
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Clients registers a lazy handle for every supported provider using the
// configured server keys. Nothing is constructed until a handle is first
// requested.
func (f *Factory) Clients() *ai.Clients {
	clients := ai.NewClients(f.cfg.Default)
	for _, name := range Providers {
		clients.Register(f.Lazy(name, f.serverKey(name)))
	}
	return clients
}
