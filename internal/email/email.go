// Package email sends the transactional mail of the Lingua application.
//
// SMTPSender delivers through any SMTP server (Mailpit or Mailhog in
// development, a relay such as Postmark in production). LogSender only logs
// the message and is used when no SMTP host is configured.
package email

import (
	"context"

	"github.com/DukeRupert/lingua/internal/domain"
)

// Sender sends transactional emails.
type Sender interface {
	// SendOTP mails a one-time code for the given flow.
	SendOTP(ctx context.Context, to, code string, purpose domain.OTPPurpose) error
}

// Email represents a single email message.
type Email struct {
	To       string // Recipient email address
	Subject  string // Email subject line
	HTMLBody string // HTML content of the email
	TextBody string // Plain text fallback content
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailpit)
	Port     int    // SMTP server port (e.g., 1025 for Mailpit)
	Username string // Empty for servers without authentication
	Password string
	From     string // Default sender email address
	FromName string // Default sender display name
}

const (
	// DefaultFromEmail is the default sender email for transactional emails.
	DefaultFromEmail = "noreply@lingua.app"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Lingua"
)
