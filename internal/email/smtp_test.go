package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"

	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

type capturedMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  []byte
}

func newCapturingSender(config SMTPConfig, err error) (*SMTPSender, *capturedMail) {
	s := NewSMTPSender(config, newTestLogger())
	got := &capturedMail{}
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*got = capturedMail{addr, a, from, to, msg}
		return err
	}
	return s, got
}

// parts reads the multipart body of a sent message keyed by content type.
func parts(t *testing.T, raw []byte) (*mail.Message, map[string]string) {
	t.Helper()
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	out := map[string]string{}
	mr := multipart.NewReader(msg.Body, boundary)
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(p) // quoted-printable is decoded by NextPart
		require.NoError(t, err)
		ct := strings.SplitN(p.Header.Get("Content-Type"), ";", 2)[0]
		out[ct] = string(body)
	}
	return msg, out
}

func TestSendOTP_Message(t *testing.T) {
	s, got := newCapturingSender(SMTPConfig{Host: "localhost", Port: 1025}, nil)

	require.NoError(t, s.SendOTP(context.Background(), "lan@example.com", "482913", domain.OTPRegister))

	assert.Equal(t, "localhost:1025", got.addr)
	assert.Nil(t, got.auth, "no auth without credentials")
	assert.Equal(t, DefaultFromEmail, got.from)
	assert.Equal(t, []string{"lan@example.com"}, got.to)

	msg, bodies := parts(t, got.msg)
	assert.Equal(t, "Lingua <noreply@lingua.app>", msg.Header.Get("From"))
	assert.Equal(t, "[Lingua] Your sign-up code: 482913", msg.Header.Get("Subject"))
	assert.Contains(t, msg.Header.Get("Content-Type"), "multipart/alternative")

	assert.Contains(t, bodies["text/plain"], "482913")
	assert.Contains(t, bodies["text/plain"], "10 minutes")
	assert.Contains(t, bodies["text/html"], "482913")
	assert.Contains(t, bodies["text/html"], "Confirm your account")
}

func TestSendOTP_ResetPassword(t *testing.T) {
	s, got := newCapturingSender(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "hello@lingua.app", FromName: "Lingua Team"}, nil)

	require.NoError(t, s.SendOTP(context.Background(), "lan@example.com", "111222", domain.OTPResetPassword))

	assert.NotNil(t, got.auth)
	assert.Equal(t, "hello@lingua.app", got.from)

	msg, bodies := parts(t, got.msg)
	assert.Equal(t, "[Lingua] Your password reset code: 111222", msg.Header.Get("Subject"))
	assert.Contains(t, bodies["text/html"], "Reset your password")
}

func TestSendOTP_Failures(t *testing.T) {
	s, _ := newCapturingSender(SMTPConfig{Host: "localhost", Port: 1025}, errors.New("connection refused"))
	err := s.SendOTP(context.Background(), "lan@example.com", "123456", domain.OTPRegister)
	assert.ErrorContains(t, err, "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, got := newCapturingSender(SMTPConfig{Host: "localhost", Port: 1025}, nil)
	assert.ErrorIs(t, s.SendOTP(ctx, "lan@example.com", "123456", domain.OTPRegister), context.Canceled)
	assert.Nil(t, got.msg, "nothing is sent once the context is done")
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, s.SendOTP(context.Background(), "lan@example.com", "654321", domain.OTPRegister))
	assert.Contains(t, buf.String(), "code=654321")
}
