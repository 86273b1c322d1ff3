package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/email"
	"github.com/DukeRupert/lingua/internal/repository"
	"github.com/google/uuid"
)

const msgInvalidOTP = "Invalid or expired code"

// OTPService issues and checks the one-time codes mailed during sign-up
// and password reset.
type OTPService interface {
	// Send replaces any pending code for the email and purpose with a new
	// one and mails it.
	// Returns domain.ECONFLICT when registering an email already in use.
	Send(ctx context.Context, params domain.SendOTPParams) (*domain.SendOTPResult, error)

	// Verify consumes a pending code.
	// Returns domain.EINVALID for unknown, expired or used codes.
	Verify(ctx context.Context, params domain.VerifyOTPParams) error

	// DeleteExpired removes expired codes.
	DeleteExpired(ctx context.Context) (int64, error)
}

// OTPStore is the subset of repository queries the OTP service needs.
// *repository.Queries satisfies it.
type OTPStore interface {
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	CreateOTP(ctx context.Context, arg repository.CreateOTPParams) (repository.Otp, error)
	DeleteOTPsForEmail(ctx context.Context, arg repository.DeleteOTPsForEmailParams) error
	GetActiveOTP(ctx context.Context, arg repository.GetActiveOTPParams) (repository.Otp, error)
	MarkOTPVerified(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteExpiredOTPs(ctx context.Context) (int64, error)
}

// OTPServiceConfig holds the tunables of the OTP service.
type OTPServiceConfig struct {
	// ExposeDevCode returns the raw code in SendOTPResult. Only for
	// development without a mail server.
	ExposeDevCode bool
}

type otpService struct {
	store         OTPStore
	sender        email.Sender
	exposeDevCode bool
	logger        *slog.Logger
	now           func() time.Time
	generate      func() (string, error)
}

// NewOTPService creates a new OTPService instance.
func NewOTPService(store OTPStore, sender email.Sender, cfg OTPServiceConfig, logger *slog.Logger) OTPService {
	return &otpService{
		store:         store,
		sender:        sender,
		exposeDevCode: cfg.ExposeDevCode,
		logger:        logger,
		now:           time.Now,
		generate:      generateOTP,
	}
}

func (s *otpService) Send(ctx context.Context, params domain.SendOTPParams) (*domain.SendOTPResult, error) {
	const op = "OTPService.Send"

	addr := normalizeEmail(params.Email)
	purpose, err := otpPurpose(op, params.Purpose)
	if err != nil {
		return nil, err
	}
	if err := validateEmail(addr); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}

	if purpose == domain.OTPRegister {
		_, err := s.store.GetUserByEmail(ctx, addr)
		if err == nil {
			return nil, domain.Conflict(op, msgEmailTaken)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Internal(err, op, "Failed to check email availability")
		}
	}

	err = s.store.DeleteOTPsForEmail(ctx, repository.DeleteOTPsForEmailParams{
		Email:   addr,
		Purpose: string(purpose),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to send code")
	}

	code, err := s.generate()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to send code")
	}

	expiresAt := s.now().Add(domain.OTPDuration)
	_, err = s.store.CreateOTP(ctx, repository.CreateOTPParams{
		Email:     addr,
		Purpose:   string(purpose),
		CodeHash:  hashSessionToken(code),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to send code")
	}

	if err := s.sender.SendOTP(ctx, addr, code, purpose); err != nil {
		return nil, domain.Internal(err, op, "Failed to send code")
	}

	s.logger.Info("otp sent", "email", addr, "purpose", purpose)

	result := &domain.SendOTPResult{ExpiresAt: expiresAt}
	if s.exposeDevCode {
		result.DevCode = code
	}
	return result, nil
}

func (s *otpService) Verify(ctx context.Context, params domain.VerifyOTPParams) error {
	const op = "OTPService.Verify"

	addr := normalizeEmail(params.Email)
	code := strings.TrimSpace(params.Code)
	if addr == "" || code == "" {
		return domain.Invalid(op, "Missing fields")
	}
	purpose, err := otpPurpose(op, params.Purpose)
	if err != nil {
		return err
	}

	otp, err := s.store.GetActiveOTP(ctx, repository.GetActiveOTPParams{
		Email:    addr,
		Purpose:  string(purpose),
		CodeHash: hashSessionToken(code),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Invalid(op, msgInvalidOTP)
		}
		return domain.Internal(err, op, "Failed to verify code")
	}

	// A concurrent Verify may have consumed the code first.
	n, err := s.store.MarkOTPVerified(ctx, otp.ID)
	if err != nil {
		return domain.Internal(err, op, "Failed to verify code")
	}
	if n == 0 {
		return domain.Invalid(op, msgInvalidOTP)
	}

	s.logger.Info("otp verified", "email", addr, "purpose", purpose)
	return nil
}

// DeleteExpired is called periodically by the purge_expired_otps job.
func (s *otpService) DeleteExpired(ctx context.Context) (int64, error) {
	const op = "OTPService.DeleteExpired"

	n, err := s.store.DeleteExpiredOTPs(ctx)
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to delete expired codes")
	}

	s.logger.Info("expired otps cleaned up", "deleted", n)
	return n, nil
}

func otpPurpose(op string, p domain.OTPPurpose) (domain.OTPPurpose, error) {
	if p == "" {
		return domain.OTPRegister, nil
	}
	if !p.Valid() {
		return "", domain.Invalid(op, "Unknown code type")
	}
	return p, nil
}

// generateOTP returns a uniformly random code of domain.OTPDigits digits
// without a leading zero.
func generateOTP() (string, error) {
	low := big.NewInt(100000)
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", domain.OTPDigits, n.Add(n, low)), nil
}
