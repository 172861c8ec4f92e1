package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/innovative-enterprises/whatsapp-agent/internal/api/dto"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
)

type MessageService interface {
	SendText(ctx context.Context, to, body string) (*models.MessageLog, error)
	ListRecent(ctx context.Context, phone string, limit int) ([]models.MessageLog, error)
}

type MessageHandler struct {
	service MessageService
	tokens  TokenValidator
}

func NewMessageHandler(service MessageService, tokens TokenValidator) *MessageHandler {
	return &MessageHandler{service: service, tokens: tokens}
}

// ListMessages handles GET /api/v1/whatsapp/messages
func (h *MessageHandler) ListMessages(c *gin.Context) {
	var query dto.ListMessagesQuery

	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	msgs, err := h.service.ListRecent(c.Request.Context(), query.Phone, query.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := dto.ListMessagesResponse{
		Messages: make([]dto.MessageDTO, 0, len(msgs)),
		Count:    len(msgs),
	}
	for i := range msgs {
		resp.Messages = append(resp.Messages, toMessageDTO(&msgs[i]))
	}
	respondSuccess(c, http.StatusOK, resp)
}

// SendMessage handles POST /api/v1/whatsapp/send
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	entry, err := h.service.SendText(c.Request.Context(), req.To, req.Body)
	if err != nil {
		if errors.Is(err, models.ErrDeliveryFailed) {
			_ = c.Error(err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Could not deliver the message, try again shortly",
				"code":  models.ErrCodeDeliveryFailed,
			})
			return
		}
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, dto.SuccessResponse{
		Success: true,
		Message: "Message sent",
		Data:    toMessageDTO(entry),
	})
}

func (h *MessageHandler) RegisterRoutes(router *gin.Engine) {
	wa := router.Group("/api/v1/whatsapp", RequireAuth(h.tokens))
	{
		wa.GET("/messages", h.ListMessages)
		wa.POST("/send", h.SendMessage)
	}
}

func toMessageDTO(m *models.MessageLog) dto.MessageDTO {
	out := dto.MessageDTO{
		ID:                m.ID,
		Direction:         string(m.Direction),
		From:              m.From,
		To:                m.To,
		Body:              m.Body,
		MessageType:       m.MessageType,
		ProviderMessageID: m.ProviderMessageID,
		ProviderResponse:  m.ProviderResponse,
	}
	if !m.Timestamp.IsZero() {
		out.Timestamp = m.Timestamp.UTC().Format(time.RFC3339)
	}
	return out
}
