package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
)

// ==============================================
// RESPONSE HELPERS
// ==============================================

// respondSuccess sends a successful JSON response
func respondSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// respondError sends an error JSON response. Only use it for errors that are
// safe to echo back, such as request binding failures.
func respondError(c *gin.Context, statusCode int, message string, err error) {
	body := gin.H{
		"error": message,
		"code":  models.ErrCodeValidationFailed,
	}
	if err != nil {
		body["message"] = err.Error()
	}
	c.JSON(statusCode, body)
}

// respondServiceError maps service errors to status codes. The underlying
// error is attached to the gin context for the request logger and never sent.
func respondServiceError(c *gin.Context, err error) {
	statusCode, appErr := mapServiceError(err)
	_ = c.Error(err)
	c.JSON(statusCode, gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

// mapServiceError maps service errors to HTTP status codes and user-friendly
// messages. No message tells the caller whether an account exists.
func mapServiceError(err error) (int, *models.AppError) {
	switch {
	// Input errors (400 Bad Request)
	case errors.Is(err, models.ErrInvalidPhone):
		return http.StatusBadRequest, models.NewAppError(models.ErrCodeInvalidPhone, "Invalid phone number", err)

	// OTP errors
	case errors.Is(err, models.ErrOTPResendCooldown):
		return http.StatusTooManyRequests, models.NewAppError(models.ErrCodeOTPRateLimited, "OTP already sent, wait for the existing one to expire", err)
	case errors.Is(err, models.ErrOTPNotFound):
		return http.StatusBadRequest, models.NewAppError(models.ErrCodeOTPNotFound, "Invalid or already used code, request a new one", err)
	case errors.Is(err, models.ErrOTPExpired):
		return http.StatusBadRequest, models.NewAppError(models.ErrCodeOTPExpired, "Code expired, request a new one", err)
	case errors.Is(err, models.ErrOTPInvalid):
		return http.StatusBadRequest, models.NewAppError(models.ErrCodeOTPInvalid, "Incorrect code", err)
	case errors.Is(err, models.ErrOTPMaxAttempts):
		return http.StatusTooManyRequests, models.NewAppError(models.ErrCodeOTPMaxAttempts, "Too many attempts, request a new code", err)

	// Session errors (401 Unauthorized)
	case models.IsAuthError(err):
		return http.StatusUnauthorized, models.NewAppError(models.ErrCodeUnauthorized, "Invalid or expired token", err)
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusUnauthorized, models.NewAppError(models.ErrCodeUnauthorized, "Invalid or expired token", err)

	// Conflicts (409 Conflict)
	case errors.Is(err, models.ErrRunInProgress):
		return http.StatusConflict, models.NewAppError(models.ErrCodeRunInProgress, "A reminder run is already in progress", err)

	// Upstream errors
	case errors.Is(err, models.ErrDeliveryFailed):
		return http.StatusBadGateway, models.NewAppError(models.ErrCodeDeliveryFailed, "Could not deliver the code, try again shortly", err)
	case errors.Is(err, models.ErrVerificationUnavailable):
		return http.StatusServiceUnavailable, models.NewAppError(models.ErrCodeVerificationOffline, "Verification temporarily unavailable", err)

	// Default (500 Internal Server Error)
	default:
		return http.StatusInternalServerError, models.NewAppError(models.ErrCodeInternalError, "Internal server error", err)
	}
}
