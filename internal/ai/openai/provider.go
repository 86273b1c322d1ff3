// Package openai implements ai.Completer against the OpenAI Chat Completions
// API and compatible services such as Groq.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DukeRupert/lingua/internal/ai"
)

const (
	// OpenAIBaseURL is the base URL for the OpenAI API
	OpenAIBaseURL = "https://api.openai.com/v1"

	// GroqBaseURL is Groq's OpenAI-compatible endpoint
	GroqBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is used when Config.Model is empty
	DefaultModel = "gpt-4o-mini"
)

// Config contains configuration for the provider
type Config struct {
	Name           string // "openai" or "groq"; defaults to "openai"
	APIKey         string
	Model          string
	BaseURL        string // defaults to OpenAIBaseURL
	ProviderConfig ai.ProviderConfig
}

// Provider implements ai.Completer over HTTP.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new provider. It performs no network I/O.
// Returns ai.ErrMissingAPIKey if the key is empty.
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.Name == "" {
		config.Name = "openai"
	}
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w", config.Name, ai.ErrMissingAPIKey)
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = OpenAIBaseURL
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	config.ProviderConfig = config.ProviderConfig.WithDefaults()

	return &Provider{
		config: config,
		client: &http.Client{Timeout: config.ProviderConfig.RequestTimeout},
		logger: logger.With("provider", config.Name),
	}, nil
}

func (p *Provider) Name() string  { return p.config.Name }
func (p *Provider) Model() string { return p.config.Model }

// Complete sends a chat completion request, retrying transient failures.
func (p *Provider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	start := time.Now()

	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, ai.WrapError("build request", err)
	}

	var resp *apiResponse
	err = ai.Retry(ctx, p.config.ProviderConfig, p.logger, func(ctx context.Context) error {
		var err error
		resp, err = p.executeRequest(ctx, body)
		return err
	})
	if err != nil {
		return nil, ai.WrapError("execute request", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ai.WrapError("parse response", ai.ErrEmptyResponse)
	}

	return &ai.Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: ai.UsageInfo{
			Model:        p.config.Model,
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			Duration:     time.Since(start),
		},
	}, nil
}

func (p *Provider) buildRequest(req ai.CompletionRequest) apiRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = ai.DefaultMaxTokens
	}

	messages := make([]apiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, apiMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, apiMessage{Role: string(m.Role), Content: m.Content})
	}

	return apiRequest{
		Model:     p.config.Model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
}

// executeRequest executes a single HTTP request. The body is rebuilt per
// attempt so retries never send a drained reader.
func (p *Provider) executeRequest(ctx context.Context, body []byte) (*apiResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Network errors are typically retryable
		return nil, fmt.Errorf("%w: %v", ai.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiErrorResponse
		_ = json.Unmarshal(respBody, &errResp)
		return nil, ai.MapHTTPStatus(resp.StatusCode, errResp.Error.Message)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &apiResp, nil
}

// API request/response types

type apiRequest struct {
	Model     string       `json:"model"`
	Messages  []apiMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	ID      string      `json:"id"`
	Model   string      `json:"model"`
	Choices []apiChoice `json:"choices"`
	Usage   apiUsage    `json:"usage"`
}

type apiChoice struct {
	Index        int        `json:"index"`
	Message      apiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
