package ai

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// Clients holds one Lazy handle per configured provider.
type Clients struct {
	order       []string
	byName      map[string]*Lazy[Completer]
	defaultName string
}

// NewClients creates an empty registry whose default is defaultName.
func NewClients(defaultName string) *Clients {
	return &Clients{
		byName:      make(map[string]*Lazy[Completer]),
		defaultName: defaultName,
	}
}

// Register adds a provider. Registering a name twice replaces the handle.
func (c *Clients) Register(l *Lazy[Completer]) {
	if _, ok := c.byName[l.Name()]; !ok {
		c.order = append(c.order, l.Name())
	}
	c.byName[l.Name()] = l
}

// Get returns the handle registered under name.
func (c *Clients) Get(name string) (*Lazy[Completer], bool) {
	l, ok := c.byName[name]
	return l, ok
}

// Default returns the handle selected by AI_PROVIDER.
func (c *Clients) Default() (*Lazy[Completer], bool) {
	return c.Get(c.defaultName)
}

// DefaultName is the provider Default returns.
func (c *Clients) DefaultName() string {
	return c.defaultName
}

// Names lists providers in registration order.
func (c *Clients) Names() []string {
	return append([]string(nil), c.order...)
}

// ProviderStatus reports whether one provider answered a trivial prompt.
type ProviderStatus struct {
	Provider       string `json:"provider"`
	Model          string `json:"model,omitempty"`
	Source         string `json:"source"`
	Available      bool   `json:"available"`
	State          string `json:"state,omitempty"`
	Error          string `json:"error,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
}

// Key sources reported by Check.
const (
	SourceServer = "server"
	SourceUser   = "user"
)

// pingRequest is the prompt Check sends to every provider.
var pingRequest = CompletionRequest{
	Messages:  []Message{{Role: RoleUser, Content: "Reply with OK."}},
	MaxTokens: 5,
}

// Check tests every provider in parallel. A provider with an entry in
// perUser is checked through a fresh client from that handle and never
// touches the shared slot; the others go through their shared handle.
// Each check is bounded by timeout. Failures are reported, never returned.
func (c *Clients) Check(ctx context.Context, timeout time.Duration, perUser map[string]*Lazy[Completer]) []ProviderStatus {
	results := make([]ProviderStatus, len(c.order))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range c.order {
		lazy := c.byName[name]
		own := perUser[name]
		g.Go(func() error {
			results[i] = check(ctx, lazy, own, timeout)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func check(ctx context.Context, lazy, own *Lazy[Completer], timeout time.Duration) (result ProviderStatus) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result.Provider = lazy.Name()
	start := time.Now()
	defer func() {
		result.ResponseTimeMs = time.Since(start).Milliseconds()
	}()

	var client Completer
	var err error
	if own != nil {
		result.Source = SourceUser
		client, err = own.Fresh(ctx)
	} else {
		result.Source = SourceServer
		client, err = lazy.Shared(ctx)
		result.State = lazy.State().String()
	}
	if err != nil {
		result.Error = statusError(err)
		return result
	}
	if client == nil {
		result.Error = "request failed"
		return result
	}
	result.Model = client.Model()

	if _, err := client.Complete(ctx, pingRequest); err != nil {
		result.Error = statusError(err)
		return result
	}

	result.Available = true
	return result
}

// statusError keeps upstream response bodies out of the status page.
func statusError(err error) string {
	for _, known := range []error{ErrMissingAPIKey, ErrUnauthorized, ErrRateLimit, ErrTimeout, ErrUnavailable, ErrEmptyResponse, context.DeadlineExceeded} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "request failed"
}
