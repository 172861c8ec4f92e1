package dto

import "time"

// ==============================================
// AUTH REQUEST DTOs
// ==============================================

// RequestOTPRequest - Phone-only login, the code goes out over WhatsApp
type RequestOTPRequest struct {
	Phone string `json:"phone" binding:"required"` // normalized by the service
}

// VerifyOTPRequest
type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// ==============================================
// AUTH RESPONSE DTOs
// ==============================================

// RequestOTPResponse
type RequestOTPResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"` // seconds until the code expires
}

// LoginResponse
type LoginResponse struct {
	User        *UserDTO `json:"user"`
	AccessToken string   `json:"access_token"`
	ExpiresIn   int      `json:"expires_in"` // seconds
	TokenType   string   `json:"token_type"` // "Bearer"
}

// ==============================================
// SUPPORTING DTOs
// ==============================================

// UserDTO - Safe user representation
type UserDTO struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
	CreatedAt   string `json:"created_at"` // RFC 3339
	LastLogin   string `json:"last_login"`
}

func NewUserDTO(id, phone string, createdAt, lastLogin time.Time) *UserDTO {
	return &UserDTO{
		ID:          id,
		PhoneNumber: phone,
		CreatedAt:   createdAt.UTC().Format(time.RFC3339),
		LastLogin:   lastLogin.UTC().Format(time.RFC3339),
	}
}
