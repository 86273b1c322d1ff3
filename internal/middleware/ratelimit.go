package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/handler"
)

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*rateLimitEntry

	stop     chan struct{}
	stopOnce sync.Once
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a limiter allowing maxAttempts per window and
// starts a janitor goroutine that Close stops.
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
		entries:     make(map[string]*rateLimitEntry),
		stop:        make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow records one attempt for key and reports whether it is within the
// limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.entries[key]
	if !ok || now.Sub(entry.windowStart) > rl.window {
		rl.entries[key] = &rateLimitEntry{count: 1, windowStart: now}
		return true
	}

	if entry.count < rl.maxAttempts {
		entry.count++
		return true
	}
	return false
}

// Reset forgets key, e.g. after a successful login.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, key)
}

// RetryAfter returns how long until key's window ends.
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[key]
	if !ok {
		return 0
	}
	remaining := rl.window - rl.now().Sub(entry.windowStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Close stops the janitor goroutine.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, entry := range rl.entries {
				if now.Sub(entry.windowStart) > rl.window {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Limit returns middleware that answers 429 once the client IP is over the
// limit.
func (rl *RateLimiter) Limit(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if rl.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := int(rl.RetryAfter(ip).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			handler.ErrorResponse(w, r, logger,
				domain.Errorf(domain.ERATELIMIT, "", "Too many requests. Please try again later."))
		})
	}
}

// AuthRateLimiter bundles the limits for the credential endpoints:
// 5 logins per 15 minutes, 3 registrations per hour and 5 emailed codes
// per 15 minutes per IP.
type AuthRateLimiter struct {
	login    *RateLimiter
	register *RateLimiter
	otp      *RateLimiter
	logger   *slog.Logger
}

// NewAuthRateLimiter creates the credential endpoint limiters.
func NewAuthRateLimiter(logger *slog.Logger) *AuthRateLimiter {
	return &AuthRateLimiter{
		login:    NewRateLimiter(5, 15*time.Minute),
		register: NewRateLimiter(3, time.Hour),
		otp:      NewRateLimiter(5, 15*time.Minute),
		logger:   logger,
	}
}

// LimitLogin rate limits login attempts.
func (a *AuthRateLimiter) LimitLogin(next http.Handler) http.Handler {
	return a.login.Limit(a.logger)(next)
}

// LimitRegister rate limits registrations.
func (a *AuthRateLimiter) LimitRegister(next http.Handler) http.Handler {
	return a.register.Limit(a.logger)(next)
}

// LimitOTP rate limits sending and verifying emailed codes.
func (a *AuthRateLimiter) LimitOTP(next http.Handler) http.Handler {
	return a.otp.Limit(a.logger)(next)
}

// ResetLogin clears the login counter for the request's IP after a
// successful login.
func (a *AuthRateLimiter) ResetLogin(r *http.Request) {
	a.login.Reset(clientIP(r))
}

// Close stops the janitors.
func (a *AuthRateLimiter) Close() {
	a.login.Close()
	a.register.Close()
	a.otp.Close()
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
