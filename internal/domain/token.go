package domain

import "time"

// =============================================================================
// One-time codes
// =============================================================================

// OTPPurpose says which flow a one-time code belongs to.
//
// A code is stored only as its SHA-256 hash. Sending a new code for the
// same email and purpose replaces the previous one, and a code can be
// verified once.
type OTPPurpose string

const (
	OTPRegister      OTPPurpose = "register"
	OTPResetPassword OTPPurpose = "reset-password"
)

// Valid reports whether p is a known purpose.
func (p OTPPurpose) Valid() bool {
	return p == OTPRegister || p == OTPResetPassword
}

const (
	// OTPDuration is how long an emailed code stays valid.
	OTPDuration = 10 * time.Minute

	// OTPDigits is the length of a code.
	OTPDigits = 6
)

// SendOTPParams contains parameters for sending a code.
type SendOTPParams struct {
	Email   string
	Purpose OTPPurpose // defaults to OTPRegister
}

// SendOTPResult is returned after a code was issued.
type SendOTPResult struct {
	ExpiresAt time.Time
	// DevCode is the raw code, set only when no mail transport is
	// configured in development.
	DevCode string
}

// VerifyOTPParams contains parameters for verifying a code.
type VerifyOTPParams struct {
	Email   string
	Code    string
	Purpose OTPPurpose // defaults to OTPRegister
}
