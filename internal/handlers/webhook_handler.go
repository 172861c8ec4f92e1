package handlers

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/innovative-enterprises/whatsapp-agent/internal/webhook"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type EventHandler interface {
	HandleEvent(ctx context.Context, ev webhook.Event) error
}

type WebhookHandler struct {
	events      EventHandler
	verifyToken string
	appSecret   string
	logger      *zap.Logger
}

// NewWebhookHandler builds the provider webhook. When appSecret is empty,
// POST bodies are not signature checked.
func NewWebhookHandler(events EventHandler, verifyToken, appSecret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		events:      events,
		verifyToken: verifyToken,
		appSecret:   appSecret,
		logger:      logger.Named("webhook"),
	}
}

// Verify handles GET /api/whatsapp/webhook, the subscription handshake.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) != 1 {
		h.logger.Warn("webhook verification rejected", zap.String("mode", mode))
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	h.logger.Info("webhook verified")
	c.String(http.StatusOK, challenge)
}

// Receive handles POST /api/whatsapp/webhook. A 500 makes the provider
// redeliver, so it is only returned when the event was not recorded.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if h.appSecret != "" && !webhook.VerifySignature(h.appSecret, body, c.GetHeader(webhook.SignatureHeader)) {
		h.logger.Warn("webhook signature mismatch")
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	ev, err := webhook.Parse(body)
	if err != nil {
		h.logger.Error("failed to parse webhook payload", zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if err := h.events.HandleEvent(c.Request.Context(), ev); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	c.String(http.StatusOK, "EVENT_RECEIVED")
}

func (h *WebhookHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/whatsapp/webhook", h.Verify)
	router.POST("/api/whatsapp/webhook", h.Receive)
}
