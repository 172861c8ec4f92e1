package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/innovative-enterprises/whatsapp-agent/internal/api/dto"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"github.com/innovative-enterprises/whatsapp-agent/internal/service"
)

// ==============================================
// SERVICE INTERFACE (for testing)
// ==============================================

type OTPService interface {
	IssueOTP(ctx context.Context, phone string) (*service.IssueResult, error)
	VerifyOTP(ctx context.Context, phone, code string) (*service.VerifyResult, error)
	GetUser(ctx context.Context, userID string) (*models.UserAccount, error)
}

// ==============================================
// HANDLER (HTTP Layer ONLY)
// ==============================================

type AuthHandler struct {
	service OTPService
	tokens  TokenValidator
}

func NewAuthHandler(service OTPService, tokens TokenValidator) *AuthHandler {
	return &AuthHandler{service: service, tokens: tokens}
}

// ==============================================
// ENDPOINTS
// ==============================================

// RequestOTP handles POST /api/v1/auth/otp/request
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req dto.RequestOTPRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid phone number", err)
		return
	}

	result, err := h.service.IssueOTP(c.Request.Context(), req.Phone)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, dto.RequestOTPResponse{
		Success:   true,
		Message:   "Verification code sent via WhatsApp",
		ExpiresIn: result.ExpiresIn,
	})
}

// VerifyOTP handles POST /api/v1/auth/otp/verify
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	result, err := h.service.VerifyOTP(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, dto.LoginResponse{
		User:        toUserDTO(result.User),
		AccessToken: result.Token,
		ExpiresIn:   result.ExpiresIn,
		TokenType:   "Bearer",
	})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), c.GetString(ContextUserID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, toUserDTO(user))
}

// ==============================================
// ROUTE REGISTRATION
// ==============================================

func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1/auth")
	{
		v1.POST("/otp/request", h.RequestOTP)
		v1.POST("/otp/verify", h.VerifyOTP)
		v1.GET("/me", RequireAuth(h.tokens), h.Me)
	}
}

func toUserDTO(u *models.UserAccount) *dto.UserDTO {
	if u == nil {
		return nil
	}
	return dto.NewUserDTO(u.ID, u.PhoneNumber, u.CreatedAt, u.LastLogin)
}
