package models

import (
	"encoding/json"
	"time"
)

// ==============================================
// WHATSAPP MESSAGE LOG
// ==============================================

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Message types
const (
	MessageTypeText     = "text"
	MessageTypeTemplate = "template"
)

// MessageLog is an append-only record of a message sent or received.
type MessageLog struct {
	ID                string          `db:"id" json:"id"`
	Direction         Direction       `db:"direction" json:"direction"`
	From              string          `db:"from_phone" json:"from"`
	To                string          `db:"to_phone" json:"to"`
	Body              string          `db:"body" json:"body"`
	MessageType       string          `db:"message_type" json:"type"`
	ProviderMessageID string          `db:"provider_message_id" json:"provider_message_id,omitempty"`
	ProviderResponse  json.RawMessage `db:"provider_response" json:"provider_response,omitempty"` // outgoing only
	Timestamp         time.Time       `db:"created_at" json:"timestamp"`
}
