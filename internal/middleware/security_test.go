package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		secure   bool
		wantHSTS bool
	}{
		{"development", false, false},
		{"production", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSecurityHeadersMiddleware(tt.secure, "https://cdn.lingua.example")
			rec := httptest.NewRecorder()
			m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			h := rec.Header()
			assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
			assert.Contains(t, h.Get("Content-Security-Policy"), "img-src 'self' data: blob: https://cdn.lingua.example")
			assert.Contains(t, h.Get("Content-Security-Policy"), "frame-ancestors 'none'")
			assert.Equal(t, tt.wantHSTS, h.Get("Strict-Transport-Security") != "")
		})
	}
}
