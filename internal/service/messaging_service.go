package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/innovative-enterprises/whatsapp-agent/internal/auth"
	"github.com/innovative-enterprises/whatsapp-agent/internal/gateway"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"go.uber.org/zap"
)

// ==============================================
// INTERFACES (for testing)
// ==============================================

type Gateway interface {
	SendText(ctx context.Context, to, body string) (*gateway.SendResult, error)
	SendTemplate(ctx context.Context, to string, tpl gateway.Template) (*gateway.SendResult, error)
}

type MessageLogRepository interface {
	Append(ctx context.Context, msg *models.MessageLog) error
	ListRecent(ctx context.Context, phone string, limit int) ([]models.MessageLog, error)
}

// ==============================================
// MESSAGING SERVICE
// ==============================================

// MessagingService sends through the gateway and records every successful
// send in the message log.
type MessagingService struct {
	gateway  Gateway
	messages MessageLogRepository
	sender   string // business phone number id
	logger   *zap.Logger
}

func NewMessagingService(gw Gateway, messages MessageLogRepository, sender string, logger *zap.Logger) *MessagingService {
	return &MessagingService{
		gateway:  gw,
		messages: messages,
		sender:   sender,
		logger:   logger.Named("messaging"),
	}
}

// SendText sends a free-form message. to is normalized first.
func (s *MessagingService) SendText(ctx context.Context, to, body string) (*models.MessageLog, error) {
	to, err := auth.NormalizePhone(to)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.SendText(ctx, to, body)
	if err != nil {
		return nil, deliveryError(err)
	}

	return s.record(ctx, to, body, models.MessageTypeText, result), nil
}

// SendTemplate sends a template message. summary is what gets logged as the
// body, so template parameters such as codes never reach the log.
func (s *MessagingService) SendTemplate(ctx context.Context, to string, tpl gateway.Template, summary string) (*models.MessageLog, error) {
	result, err := s.gateway.SendTemplate(ctx, to, tpl)
	if err != nil {
		return nil, deliveryError(err)
	}

	return s.record(ctx, to, summary, models.MessageTypeTemplate, result), nil
}

// ListRecent returns logged messages, newest first.
func (s *MessagingService) ListRecent(ctx context.Context, phone string, limit int) ([]models.MessageLog, error) {
	if phone != "" {
		normalized, err := auth.NormalizePhone(phone)
		if err != nil {
			return nil, err
		}
		phone = normalized
	}

	msgs, err := s.messages.ListRecent(ctx, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if msgs == nil {
		msgs = []models.MessageLog{}
	}
	return msgs, nil
}

// record appends the outgoing entry. The message already left, so a failed
// append is logged and otherwise ignored.
func (s *MessagingService) record(ctx context.Context, to, body, msgType string, result *gateway.SendResult) *models.MessageLog {
	entry := &models.MessageLog{
		Direction:         models.DirectionOutgoing,
		From:              s.sender,
		To:                to,
		Body:              body,
		MessageType:       msgType,
		ProviderMessageID: result.MessageID,
		ProviderResponse:  result.Raw,
	}

	if err := s.messages.Append(ctx, entry); err != nil && !errors.Is(err, models.ErrDuplicateMessage) {
		s.logger.Warn("failed to log outgoing message",
			zap.String("to", auth.MaskPhone(to)),
			zap.String("provider_message_id", result.MessageID),
			zap.Error(err),
		)
	}
	return entry
}

func deliveryError(err error) error {
	if errors.Is(err, models.ErrDeliveryFailed) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrDeliveryFailed, err)
}
