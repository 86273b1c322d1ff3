package email

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/lingua/internal/domain"
)

// LogSender writes codes to the log instead of sending mail. Only meant
// for development without an SMTP server.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendOTP(ctx context.Context, to, code string, purpose domain.OTPPurpose) error {
	s.logger.Warn("email delivery disabled, logging otp instead", "to", to, "purpose", purpose, "code", code)
	return nil
}

var _ Sender = (*LogSender)(nil)
