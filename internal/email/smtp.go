package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"mime/quotedprintable"
	"net/smtp"
	"time"

	"github.com/DukeRupert/lingua/internal/domain"
)

const boundary = "===============LINGUA_BOUNDARY==============="

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 500px; margin: 0 auto; padding: 20px;">
    <h2 style="text-align: center;">{{.Heading}}</h2>
    <p style="text-align: center;">Your code is:</p>
    <div style="font-size: 32px; font-weight: bold; letter-spacing: 8px; text-align: center; padding: 20px;">{{.Code}}</div>
    <p style="text-align: center;">It expires in <strong>{{.Minutes}} minutes</strong>.</p>
    <p style="font-size: 14px;">Never share this code. Lingua staff will never ask for it.</p>
    <p style="text-align: center; color: #999; font-size: 12px;">If you did not request this code, you can ignore this email.<br>&copy; {{.Year}} Lingua</p>
  </div>
</body>
</html>
`))

// SMTPSender sends emails via SMTP.
type SMTPSender struct {
	config SMTPConfig
	logger *slog.Logger

	// sendMail is smtp.SendMail; replaced in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates an SMTP-based sender.
func NewSMTPSender(config SMTPConfig, logger *slog.Logger) *SMTPSender {
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}
	return &SMTPSender{config: config, logger: logger, sendMail: smtp.SendMail}
}

// SendOTP mails a one-time code.
func (s *SMTPSender) SendOTP(ctx context.Context, to, code string, purpose domain.OTPPurpose) error {
	msg, err := otpEmail(to, code, purpose)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

func otpEmail(to, code string, purpose domain.OTPPurpose) (Email, error) {
	subject := fmt.Sprintf("[Lingua] Your sign-up code: %s", code)
	heading := "Confirm your account"
	action := "finish creating your account"
	if purpose == domain.OTPResetPassword {
		subject = fmt.Sprintf("[Lingua] Your password reset code: %s", code)
		heading = "Reset your password"
		action = "reset your password"
	}
	minutes := int(domain.OTPDuration / time.Minute)

	var html bytes.Buffer
	err := otpTemplate.Execute(&html, map[string]any{
		"Heading": heading,
		"Code":    code,
		"Minutes": minutes,
		"Year":    time.Now().Year(),
	})
	if err != nil {
		return Email{}, fmt.Errorf("failed to render otp email template: %w", err)
	}

	text := fmt.Sprintf(`Hi,

Use this code to %s:

%s

The code expires in %d minutes. Never share it with anyone.

If you did not request this code, you can ignore this email.

The Lingua Team
`, action, code, minutes)

	return Email{To: to, Subject: subject, HTMLBody: html.String(), TextBody: text}, nil
}

// send sends an email via SMTP.
func (s *SMTPSender) send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := s.buildMessage(email)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	// No auth for local catch-all servers
	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if err := s.sendMail(addr, auth, s.config.From, []string{email.To}, msg); err != nil {
		s.logger.Error("failed to send email", "to", email.To, "subject", email.Subject, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", "to", email.To, "subject", email.Subject)
	return nil
}

// buildMessage constructs the raw multipart message with headers.
func (s *SMTPSender) buildMessage(email Email) ([]byte, error) {
	var buf bytes.Buffer

	fromHeader := fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.config.FromName), s.config.From)
	fmt.Fprintf(&buf, "From: %s\r\n", fromHeader)
	fmt.Fprintf(&buf, "To: %s\r\n", email.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", email.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	parts := []struct{ contentType, body string }{
		{"text/plain", email.TextBody},
		{"text/html", email.HTMLBody},
	}
	for _, part := range parts {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: %s; charset=utf-8\r\n", part.contentType)
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")

		qp := quotedprintable.NewWriter(&buf)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	return buf.Bytes(), nil
}

var _ Sender = (*SMTPSender)(nil)
