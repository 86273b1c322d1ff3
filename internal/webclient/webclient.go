// Package webclient is the Go client for the Lingua session API. It keeps
// the same client-side markers a browser front-end keeps and implements the
// logout action on top of them.
package webclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/DukeRupert/lingua/internal/session"
)

const (
	// MarkerToken holds the raw session token.
	MarkerToken = "token"

	// MarkerUser holds the signed-in user as JSON.
	MarkerUser = "user"

	LoginAPIPath  = "/api/auth/login"
	LogoutAPIPath = "/api/auth/logout"

	// LoginPagePath is where TriggerLogout navigates.
	LoginPagePath = "/auth/login"

	// DefaultNotifyTimeout bounds the background logout request.
	DefaultNotifyTimeout = 5 * time.Second
)

// MarkerStore holds client-side auth markers.
type MarkerStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Config configures a Client.
type Config struct {
	BaseURL       string
	HTTPClient    *http.Client  // defaults to a client with no timeout of its own
	NotifyTimeout time.Duration // defaults to DefaultNotifyTimeout
}

// Client talks to the session endpoints.
type Client struct {
	baseURL       string
	http          *http.Client
	notifyTimeout time.Duration
	markers       MarkerStore
	nav           Navigator
	logger        *slog.Logger

	wg sync.WaitGroup
}

// New creates a Client.
func New(cfg Config, markers MarkerStore, nav Navigator, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("webclient: base URL is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}

	return &Client{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		http:          cfg.HTTPClient,
		notifyTimeout: cfg.NotifyTimeout,
		markers:       markers,
		nav:           nav,
		logger:        logger,
	}, nil
}

// User is the user returned by the login endpoint.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    *User  `json:"user"`
}

// Login signs in and stores the session token and user markers.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LoginAPIPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success || out.User == nil {
		return nil, fmt.Errorf("login failed (status %d): %s", resp.StatusCode, out.Message)
	}

	var token string
	for _, ck := range resp.Cookies() {
		if ck.Name == session.CookieName {
			token = ck.Value
		}
	}
	if token == "" {
		return nil, errors.New("login response did not set a session cookie")
	}

	userJSON, err := json.Marshal(out.User)
	if err != nil {
		return nil, err
	}
	if err := c.markers.Set(MarkerToken, token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	if err := c.markers.Set(MarkerUser, string(userJSON)); err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}

	return out.User, nil
}

// TriggerLogout signs the user out locally and moves on without waiting
// for the server:
//  1. the token and user markers are removed
//  2. the server is told in the background; a failure is only logged
//  3. the navigator is sent to the login page
//
// Call Close before exit to let the background request finish.
func (c *Client) TriggerLogout() {
	token, _ := c.markers.Get(MarkerToken)

	for _, key := range []string{MarkerToken, MarkerUser} {
		if err := c.markers.Remove(key); err != nil {
			c.logger.Warn("failed to clear auth marker", "key", key, "error", err)
		}
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.notifyLogout(token); err != nil {
			c.logger.Warn("logout notification failed", "error", err)
		}
	}()

	c.nav.Navigate(LoginPagePath)
}

// Close waits for background logout notifications.
func (c *Client) Close() {
	c.wg.Wait()
}

func (c *Client) notifyLogout(token string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during logout notification: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.notifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LogoutAPIPath, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
