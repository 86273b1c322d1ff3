package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/service"
)

// OTPHandler serves the emailed one-time code endpoints.
//
// Routes:
//   - POST /api/auth/send-otp
//   - POST /api/auth/verify-otp
type OTPHandler struct {
	otpService service.OTPService
	logger     *slog.Logger
}

// NewOTPHandler creates a new OTPHandler.
func NewOTPHandler(otpService service.OTPService, logger *slog.Logger) *OTPHandler {
	return &OTPHandler{otpService: otpService, logger: logger}
}

type sendOTPRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

type sendOTPResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
	DevOTP    string    `json:"devOtp,omitempty"`
}

// SendOTP mails a new code, replacing any pending one.
func (h *OTPHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.otpService.Send(r.Context(), domain.SendOTPParams{
		Email:   req.Email,
		Purpose: domain.OTPPurpose(req.Type),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, sendOTPResponse{
		Success:   true,
		Message:   "A code has been sent to your email",
		ExpiresAt: result.ExpiresAt,
		DevOTP:    result.DevCode,
	})
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
	Type  string `json:"type"`
}

// VerifyOTP consumes a pending code.
func (h *OTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err := h.otpService.Verify(r.Context(), domain.VerifyOTPParams{
		Email:   req.Email,
		Code:    req.OTP,
		Purpose: domain.OTPPurpose(req.Type),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Verified"})
}
