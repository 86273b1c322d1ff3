// Package gemini implements ai.Completer with the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DukeRupert/lingua/internal/ai"
	"google.golang.org/genai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.0-flash"

// Config contains configuration for the Gemini provider.
type Config struct {
	APIKey         string
	Model          string
	ProviderConfig ai.ProviderConfig
}

// Provider wraps a genai.Client.
type Provider struct {
	client *genai.Client
	model  string
	config ai.ProviderConfig
	logger *slog.Logger
}

// New creates the SDK client. The SDK does not contact the API here.
func New(ctx context.Context, config Config, logger *slog.Logger) (*Provider, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("gemini: %w", ai.ErrMissingAPIKey)
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	cfg := config.ProviderConfig.WithDefaults()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Provider{
		client: client,
		model:  config.Model,
		config: cfg,
		logger: logger.With("provider", "gemini"),
	}, nil
}

func (p *Provider) Name() string  { return "gemini" }
func (p *Provider) Model() string { return p.model }

// Complete runs GenerateContent with the conversation mapped onto Gemini
// roles ("model" for assistant turns).
func (p *Provider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	start := time.Now()

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == ai.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = ai.DefaultMaxTokens
	}
	genCfg := &genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	var resp *genai.GenerateContentResponse
	err := ai.Retry(ctx, p.config, p.logger, func(ctx context.Context) error {
		var err error
		resp, err = p.client.Models.GenerateContent(ctx, p.model, contents, genCfg)
		return mapError(ctx, err)
	})
	if err != nil {
		return nil, ai.WrapError("generate content", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, ai.WrapError("parse response", ai.ErrEmptyResponse)
	}

	usage := ai.UsageInfo{Model: p.model, Duration: time.Since(start)}
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &ai.Completion{Text: text, Usage: usage}, nil
}

// mapError converts SDK errors onto the ai sentinels.
func mapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return ai.MapHTTPStatus(apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return ai.MapHTTPStatus(apiErrPtr.Code, apiErrPtr.Message)
	}

	return fmt.Errorf("%w: %v", ai.ErrUnavailable, err)
}
