package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/innovative-enterprises/whatsapp-agent/internal/auth"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"github.com/innovative-enterprises/whatsapp-agent/internal/webhook"
	"go.uber.org/zap"
)

type TextSender interface {
	SendText(ctx context.Context, to, body string) (*models.MessageLog, error)
}

// ==============================================
// WEBHOOK SERVICE
// ==============================================

type WebhookService struct {
	messages  MessageLogRepository
	sender    TextSender
	autoReply string
	logger    *zap.Logger
}

func NewWebhookService(messages MessageLogRepository, sender TextSender, autoReply string, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		messages:  messages,
		sender:    sender,
		autoReply: autoReply,
		logger:    logger.Named("webhook"),
	}
}

// HandleEvent processes one parsed notification. It fails only when an
// inbound message could not be logged, so the provider redelivers it.
func (s *WebhookService) HandleEvent(ctx context.Context, ev webhook.Event) error {
	switch e := ev.(type) {
	case webhook.MessageEvent:
		return s.handleMessage(ctx, e)
	case webhook.StatusEvent:
		s.logger.Debug("delivery status",
			zap.String("provider_message_id", e.MessageID),
			zap.String("status", e.Status),
		)
	default:
		s.logger.Debug("ignoring webhook event", zap.String("event", fmt.Sprintf("%T", ev)))
	}
	return nil
}

func (s *WebhookService) handleMessage(ctx context.Context, e webhook.MessageEvent) error {
	log := s.logger.With(
		zap.String("from", auth.MaskPhone(e.From)),
		zap.String("provider_message_id", e.MessageID),
	)

	to := e.To
	if to == "" {
		to = e.PhoneNumberID
	}

	entry := &models.MessageLog{
		Direction:         models.DirectionIncoming,
		From:              e.From,
		To:                to,
		Body:              e.Body,
		MessageType:       e.Type,
		ProviderMessageID: e.MessageID,
	}
	if err := s.messages.Append(ctx, entry); err != nil {
		if errors.Is(err, models.ErrDuplicateMessage) {
			log.Info("duplicate inbound message ignored")
			return nil
		}
		log.Error("failed to log inbound message", zap.Error(err))
		return fmt.Errorf("failed to log inbound message: %w", err)
	}
	log.Info("inbound message logged", zap.String("type", e.Type))

	if s.autoReply == "" {
		return nil
	}
	if _, err := s.sender.SendText(ctx, e.From, s.autoReply); err != nil {
		log.Warn("auto-reply failed", zap.Error(err))
	}
	return nil
}
