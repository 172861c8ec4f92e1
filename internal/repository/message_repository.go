package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ==============================================
// MESSAGE LOG REPOSITORY (append-only)
// ==============================================

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append writes a log entry. An entry whose provider message id was already
// logged in the same direction is not written again and yields
// models.ErrDuplicateMessage.
func (r *MessageRepository) Append(ctx context.Context, msg *models.MessageLog) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	query := `
		INSERT INTO whatsapp_messages (
			id, direction, from_phone, to_phone, body, message_type,
			provider_message_id, provider_response
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (direction, provider_message_id) WHERE provider_message_id IS NOT NULL
		DO NOTHING
		RETURNING created_at
	`

	var response any
	if len(msg.ProviderResponse) > 0 {
		response = string(msg.ProviderResponse)
	}

	rows, err := r.db.Query(ctx, query,
		msg.ID,
		string(msg.Direction),
		msg.From,
		msg.To,
		msg.Body,
		msg.MessageType,
		nullIfEmpty(msg.ProviderMessageID),
		response,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}
		return models.ErrDuplicateMessage
	}
	if err := rows.Scan(&msg.Timestamp); err != nil {
		return fmt.Errorf("failed to scan message: %w", err)
	}

	return rows.Err()
}

// ListRecent returns the newest entries first, optionally filtered to one phone.
func (r *MessageRepository) ListRecent(ctx context.Context, phone string, limit int) ([]models.MessageLog, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}

	query := `
		SELECT id::text, direction, from_phone, to_phone, body, message_type,
		       provider_message_id, provider_response, created_at
		FROM whatsapp_messages
		WHERE $1 = '' OR from_phone = $1 OR to_phone = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.MessageLog
	for rows.Next() {
		var (
			msg        models.MessageLog
			direction  string
			providerID *string
			response   []byte
		)
		err := rows.Scan(
			&msg.ID,
			&direction,
			&msg.From,
			&msg.To,
			&msg.Body,
			&msg.MessageType,
			&providerID,
			&response,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.Direction = models.Direction(direction)
		if providerID != nil {
			msg.ProviderMessageID = *providerID
		}
		msg.ProviderResponse = response
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
