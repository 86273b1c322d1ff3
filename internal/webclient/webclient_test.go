package webclient

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/DukeRupert/lingua/internal/session"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func newTestClient(t *testing.T, baseURL string, markers MarkerStore, nav Navigator) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, NotifyTimeout: time.Second}, markers, nav, newTestLogger())
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, NewMemoryMarkers(), &recordingNavigator{}, newTestLogger())
	assert.Error(t, err)
}

func TestTriggerLogout_ClearsMarkersAndNotifiesServer(t *testing.T) {
	defer goleak.VerifyNone(t)

	gotCookie := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, LogoutAPIPath, r.URL.Path)
		if ck, err := r.Cookie(session.CookieName); err == nil {
			gotCookie <- ck.Value
		} else {
			gotCookie <- ""
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Logged out"}`))
	}))
	defer srv.Close()

	markers := NewMemoryMarkers()
	require.NoError(t, markers.Set(MarkerToken, "tok-123"))
	require.NoError(t, markers.Set(MarkerUser, `{"id":"u1"}`))
	nav := &recordingNavigator{}

	c := newTestClient(t, srv.URL, markers, nav)
	c.TriggerLogout()

	_, hasToken := markers.Get(MarkerToken)
	_, hasUser := markers.Get(MarkerUser)
	assert.False(t, hasToken)
	assert.False(t, hasUser)
	assert.Equal(t, []string{LoginPagePath}, nav.Paths())

	c.Close()
	assert.Equal(t, "tok-123", <-gotCookie)
	c.http.CloseIdleConnections()
}

func TestTriggerLogout_NavigatesBeforeServerResponds(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	markers := NewMemoryMarkers()
	require.NoError(t, markers.Set(MarkerToken, "tok"))
	nav := &recordingNavigator{}

	c := newTestClient(t, srv.URL, markers, nav)
	c.TriggerLogout()

	// Navigation happened while the request is still blocked.
	assert.Equal(t, []string{LoginPagePath}, nav.Paths())
	_, hasToken := markers.Get(MarkerToken)
	assert.False(t, hasToken)

	close(release)
	c.Close()
	c.http.CloseIdleConnections()
	assert.Equal(t, int32(1), hits.Load())
}

func TestTriggerLogout_NetworkFailureIsSwallowed(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Start and stop a server so the address refuses connections.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	markers := NewMemoryMarkers()
	require.NoError(t, markers.Set(MarkerToken, "tok"))
	require.NoError(t, markers.Set(MarkerUser, "{}"))
	nav := &recordingNavigator{}

	c := newTestClient(t, url, markers, nav)
	assert.NotPanics(t, c.TriggerLogout)
	c.Close()

	_, hasToken := markers.Get(MarkerToken)
	_, hasUser := markers.Get(MarkerUser)
	assert.False(t, hasToken)
	assert.False(t, hasUser)
	assert.Equal(t, []string{LoginPagePath}, nav.Paths())
}

func TestTriggerLogout_WithoutTokenStillNotifies(t *testing.T) {
	defer goleak.VerifyNone(t)

	var withCookie atomic.Bool
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, err := r.Cookie(session.CookieName)
		withCookie.Store(err == nil)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	nav := &recordingNavigator{}
	c := newTestClient(t, srv.URL, NewMemoryMarkers(), nav)

	c.TriggerLogout()
	c.TriggerLogout()
	c.Close()
	c.http.CloseIdleConnections()

	assert.Equal(t, int32(2), hits.Load())
	assert.False(t, withCookie.Load())
	assert.Equal(t, []string{LoginPagePath, LoginPagePath}, nav.Paths())
}

func TestLogin_StoresMarkers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body["password"] != "correct-horse" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"code":"EUNAUTHORIZED","message":"Invalid email or password"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "fresh-token", Path: "/"})
		_, _ = w.Write([]byte(`{"success":true,"message":"Login successful","user":{"id":"u1","email":"a@example.com","fullName":"Ana","role":"learner"}}`))
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid credentials", password: "correct-horse"},
		{name: "wrong password", password: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markers := NewMemoryMarkers()
			c := newTestClient(t, srv.URL, markers, &recordingNavigator{})

			user, err := c.Login(t.Context(), "a@example.com", tt.password)
			if tt.wantErr {
				assert.Error(t, err)
				_, ok := markers.Get(MarkerToken)
				assert.False(t, ok)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "u1", user.ID)
			token, _ := markers.Get(MarkerToken)
			assert.Equal(t, "fresh-token", token)
			raw, _ := markers.Get(MarkerUser)
			assert.Contains(t, raw, `"email":"a@example.com"`)
		})
	}
}

func TestFileMarkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	m := NewFileMarkers(path)

	_, ok := m.Get(MarkerToken)
	assert.False(t, ok)
	assert.NoError(t, m.Remove(MarkerToken))

	require.NoError(t, m.Set(MarkerToken, "abc"))
	require.NoError(t, m.Set(MarkerUser, "{}"))

	// A second handle on the same file sees the values.
	other := NewFileMarkers(path)
	v, ok := other.Get(MarkerToken)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	require.NoError(t, other.Remove(MarkerToken))
	_, ok = m.Get(MarkerToken)
	assert.False(t, ok)
	_, ok = m.Get(MarkerUser)
	assert.True(t, ok)
}
