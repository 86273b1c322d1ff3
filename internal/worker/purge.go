package worker

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/lingua/internal/metrics"
)

// SessionPurger deletes expired sessions. Implemented by service.UserService.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// PurgeSessionsHandler removes expired sessions from the session store.
type PurgeSessionsHandler struct {
	purger SessionPurger
	logger *slog.Logger
}

// NewPurgeSessionsHandler creates the purge_expired_sessions handler.
func NewPurgeSessionsHandler(purger SessionPurger, logger *slog.Logger) *PurgeSessionsHandler {
	return &PurgeSessionsHandler{purger: purger, logger: logger}
}

func (h *PurgeSessionsHandler) Type() string { return JobTypePurgeExpiredSessions }

func (h *PurgeSessionsHandler) Handle(ctx context.Context, payload []byte) error {
	n, err := h.purger.DeleteExpiredSessions(ctx)
	if err != nil {
		return err
	}

	metrics.SessionsPurged.Add(float64(n))
	h.logger.Info("purged expired sessions", "count", n)
	return nil
}

// OTPPurger deletes expired one-time codes. Implemented by service.OTPService.
type OTPPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// PurgeOTPsHandler removes expired one-time codes.
type PurgeOTPsHandler struct {
	purger OTPPurger
	logger *slog.Logger
}

// NewPurgeOTPsHandler creates the purge_expired_otps handler.
func NewPurgeOTPsHandler(purger OTPPurger, logger *slog.Logger) *PurgeOTPsHandler {
	return &PurgeOTPsHandler{purger: purger, logger: logger}
}

func (h *PurgeOTPsHandler) Type() string { return JobTypePurgeExpiredOTPs }

func (h *PurgeOTPsHandler) Handle(ctx context.Context, payload []byte) error {
	n, err := h.purger.DeleteExpired(ctx)
	if err != nil {
		return err
	}

	metrics.OTPsPurged.Add(float64(n))
	h.logger.Info("purged expired otps", "count", n)
	return nil
}
