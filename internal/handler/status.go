package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/lingua/internal/ai"
	"github.com/DukeRupert/lingua/internal/auth"
	"github.com/google/uuid"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ProviderChecker reports AI provider status as seen by a user.
// *setup.Resolver satisfies it.
type ProviderChecker interface {
	Check(ctx context.Context, userID uuid.UUID, timeout time.Duration) []ai.ProviderStatus
	DefaultName() string
}

// StatusHandler serves liveness, readiness and AI provider status.
type StatusHandler struct {
	db           Pinger
	providers    ProviderChecker
	checkTimeout time.Duration
	logger       *slog.Logger
}

// NewStatusHandler creates a new StatusHandler. checkTimeout bounds each
// provider check.
func NewStatusHandler(db Pinger, providers ProviderChecker, checkTimeout time.Duration, logger *slog.Logger) *StatusHandler {
	if checkTimeout <= 0 {
		checkTimeout = 10 * time.Second
	}
	return &StatusHandler{
		db:           db,
		providers:    providers,
		checkTimeout: checkTimeout,
		logger:       logger,
	}
}

// Live answers GET /health.
func (h *StatusHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type healthResponse struct {
	Status    string `json:"status"`
	DB        string `json:"db"`
	Latency   string `json:"latency,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Health answers GET /api/health by pinging the database.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)
	now := time.Now().UTC().Format(time.RFC3339)

	if err != nil {
		h.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, healthResponse{
			Status:    "error",
			DB:        "disconnected",
			Error:     "database unreachable",
			Timestamp: now,
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		DB:        "connected",
		Latency:   latency.Round(time.Millisecond).String(),
		Timestamp: now,
	})
}

type apiStatusResponse struct {
	Success   bool                `json:"success"`
	Default   string              `json:"default"`
	Summary   apiStatusSummary    `json:"summary"`
	Providers []ai.ProviderStatus `json:"providers"`
}

type apiStatusSummary struct {
	TotalProviders     int `json:"totalProviders"`
	AvailableProviders int `json:"availableProviders"`
}

// CheckAPIStatus answers GET /api/check-api-status. Every provider is
// checked in parallel. A signed-in user's own keys take precedence over
// the server keys. A provider whose client cannot be built is reported as
// unavailable, never as a request failure.
func (h *StatusHandler) CheckAPIStatus(w http.ResponseWriter, r *http.Request) {
	userID := uuid.Nil
	if user := auth.GetUser(r.Context()); user != nil {
		userID = user.ID
	}
	results := h.providers.Check(r.Context(), userID, h.checkTimeout)

	available := 0
	for _, res := range results {
		if res.Available {
			available++
		}
	}

	writeJSON(w, http.StatusOK, apiStatusResponse{
		Success: true,
		Default: h.providers.DefaultName(),
		Summary: apiStatusSummary{
			TotalProviders:     len(results),
			AvailableProviders: available,
		},
		Providers: results,
	})
}
