package models

import (
	"errors"
	"fmt"
)

// ==============================================
// CUSTOM ERROR TYPES
// ==============================================

// AppError represents a structured application error
type AppError struct {
	Code    string // Error code for client
	Message string // Human-readable message
	Err     error  // Underlying error (for logging)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ==============================================
// PREDEFINED ERRORS
// ==============================================

// Input Errors
var (
	ErrInvalidPhone = errors.New("invalid phone number")
)

// User Errors
var (
	ErrUserNotFound = errors.New("user not found")
)

// OTP Errors
var (
	ErrOTPExpired              = errors.New("OTP has expired")
	ErrOTPInvalid              = errors.New("invalid OTP")
	ErrOTPMaxAttempts          = errors.New("maximum OTP attempts exceeded")
	ErrOTPNotFound             = errors.New("OTP not found")
	ErrOTPResendCooldown       = errors.New("OTP already sent, wait for the existing one to expire")
	ErrVerificationUnavailable = errors.New("verification temporarily unavailable")
)

// Messaging Errors
var (
	ErrDeliveryFailed   = errors.New("message delivery failed")
	ErrDuplicateMessage = errors.New("message already logged")
)

// Job Errors
var (
	ErrRunInProgress = errors.New("a run is already in progress")
)

// Session Errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ==============================================
// ERROR CODES (for API responses)
// ==============================================
const (
	// OTP error codes
	ErrCodeInvalidPhone        = "INVALID_PHONE"
	ErrCodeOTPRateLimited      = "OTP_RATE_LIMITED"
	ErrCodeOTPNotFound         = "OTP_NOT_FOUND"
	ErrCodeOTPExpired          = "OTP_EXPIRED"
	ErrCodeOTPInvalid          = "OTP_INVALID"
	ErrCodeOTPMaxAttempts      = "OTP_MAX_ATTEMPTS"
	ErrCodeDeliveryFailed      = "DELIVERY_FAILED"
	ErrCodeVerificationOffline = "VERIFICATION_UNAVAILABLE"
	ErrCodeRunInProgress       = "RUN_IN_PROGRESS"

	// Generic error codes
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
)

// ==============================================
// HELPER FUNCTIONS
// ==============================================

// IsOTPError reports whether err is a user-actionable OTP failure
func IsOTPError(err error) bool {
	return errors.Is(err, ErrOTPExpired) ||
		errors.Is(err, ErrOTPInvalid) ||
		errors.Is(err, ErrOTPMaxAttempts) ||
		errors.Is(err, ErrOTPNotFound) ||
		errors.Is(err, ErrOTPResendCooldown)
}

// IsAuthError checks if error is authentication-related
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenExpired)
}
