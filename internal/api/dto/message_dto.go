package dto

import "encoding/json"

// ==============================================
// MESSAGE DTOs
// ==============================================

// ListMessagesQuery - GET /api/v1/whatsapp/messages
type ListMessagesQuery struct {
	Phone string `form:"phone" binding:"required"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

// SendMessageRequest - Free text to one recipient
type SendMessageRequest struct {
	To   string `json:"to" binding:"required"`
	Body string `json:"body" binding:"required,max=4096"`
}

// MessageDTO mirrors one message log entry
type MessageDTO struct {
	ID                string          `json:"id"`
	Direction         string          `json:"direction"`
	From              string          `json:"from"`
	To                string          `json:"to"`
	Body              string          `json:"body"`
	MessageType       string          `json:"message_type"`
	ProviderMessageID string          `json:"provider_message_id,omitempty"`
	ProviderResponse  json.RawMessage `json:"provider_response,omitempty"`
	Timestamp         string          `json:"timestamp"`
}

// ListMessagesResponse
type ListMessagesResponse struct {
	Messages []MessageDTO `json:"messages"`
	Count    int          `json:"count"`
}

// ==============================================
// REMINDER DTOs
// ==============================================

// ReminderRunResponse - Summary of a manual reminder run
type ReminderRunResponse struct {
	Success           bool          `json:"success"`
	NotificationsSent int           `json:"notifications_sent"`
	Failed            int           `json:"failed"`
	Details           []ReminderDTO `json:"details"`
	RanAt             string        `json:"ran_at"`
}

type ReminderDTO struct {
	Name            string `json:"name"`
	PhoneNumber     string `json:"phone_number"`
	Tier            string `json:"tier"`
	Expiry          string `json:"expiry"` // YYYY-MM-DD
	DaysUntilExpiry int    `json:"days_until_expiry"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
}
