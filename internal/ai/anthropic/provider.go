package anthropic

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
	// APIBaseURL is the base URL for the Anthropic API
	APIBaseURL = "https://api.anthropic.com/v1/messages"

	// APIVersion is the Anthropic API version
	APIVersion = "2023-06-01"

	// DefaultModel is the default Claude model to use
	DefaultModel = "claude-3-5-haiku-20241022"
)

// Config contains configuration for the Anthropic provider
type Config struct {
	APIKey         string
	Model          string
	Endpoint       string // defaults to APIBaseURL
	ProviderConfig ai.ProviderConfig
}

// Provider implements ai.Completer using Anthropic's Messages API
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Anthropic AI provider
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("anthropic: %w", ai.ErrMissingAPIKey)
	}

	// Set defaults
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Endpoint == "" {
		config.Endpoint = APIBaseURL
	}
	config.ProviderConfig = config.ProviderConfig.WithDefaults()

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		logger: logger.With("provider", "anthropic"),
	}, nil
}

func (p *Provider) Name() string  { return "anthropic" }
func (p *Provider) Model() string { return p.config.Model }

// Complete sends the conversation to Claude and returns the first text block.
func (p *Provider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	startTime := time.Now()

	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, ai.WrapError("build request", err)
	}

	// Execute with retry logic
	var resp *apiResponse
	err = ai.Retry(ctx, p.config.ProviderConfig, p.logger, func(ctx context.Context) error {
		var err error
		resp, err = p.executeRequest(ctx, body)
		return err
	})
	if err != nil {
		return nil, ai.WrapError("execute request", err)
	}

	// Get the text content
	var text string
	for _, content := range resp.Content {
		if content.Type == "text" {
			text = content.Text
			break
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, ai.WrapError("parse response", ai.ErrEmptyResponse)
	}

	return &ai.Completion{
		Text: text,
		Usage: ai.UsageInfo{
			Model:        p.config.Model,
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			Duration:     time.Since(startTime),
		},
	}, nil
}

func (p *Provider) buildRequest(req ai.CompletionRequest) apiRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = ai.DefaultMaxTokens
	}

	messages := make([]apiMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, apiMessage{
			Role:    string(m.Role),
			Content: []apiContent{{Type: "text", Text: m.Content}},
		})
	}

	return apiRequest{
		Model:     p.config.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  messages,
	}
}

// executeRequest executes a single HTTP request
func (p *Provider) executeRequest(ctx context.Context, body []byte) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", APIVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ai.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiErrorResponse
		_ = json.Unmarshal(bodyBytes, &errResp)
		return nil, ai.MapHTTPStatus(resp.StatusCode, errResp.Error.Message)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &apiResp, nil
}

// API request/response types

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string       `json:"role"`
	Content []apiContent `json:"content"`
}

type apiContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiResponse struct {
	ID      string       `json:"id"`
	Type    string       `json:"type"`
	Role    string       `json:"role"`
	Content []apiContent `json:"content"`
	Model   string       `json:"model"`
	Usage   apiUsage     `json:"usage"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
