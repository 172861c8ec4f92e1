// Package webhook decodes WhatsApp Cloud API webhook notifications.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// SignatureHeader carries the HMAC-SHA256 of the raw body keyed by the app secret.
const SignatureHeader = "X-Hub-Signature-256"

// ==============================================
// EVENTS
// ==============================================

// Event is one of MessageEvent, StatusEvent or UnknownEvent.
type Event interface {
	isEvent()
}

// MessageEvent is an inbound user message.
type MessageEvent struct {
	MessageID     string
	From          string
	To            string // business display number, when present
	PhoneNumberID string
	ContactName   string
	Type          string
	Body          string // text body, or "[type]" for non-text messages
	Timestamp     string
}

// StatusEvent is a delivery receipt for an outbound message.
type StatusEvent struct {
	MessageID   string
	RecipientID string
	Status      string // sent, delivered, read, failed
}

// UnknownEvent covers any well-formed payload that carries neither.
type UnknownEvent struct {
	Field string
}

func (MessageEvent) isEvent() {}
func (StatusEvent) isEvent()  {}
func (UnknownEvent) isEvent() {}

// ==============================================
// WIRE FORMAT
// ==============================================

type notification struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	ID      string   `json:"id"`
	Changes []change `json:"changes"`
}

type change struct {
	Field string `json:"field"`
	Value value  `json:"value"`
}

type value struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []struct {
		ID        string `json:"id"`
		From      string `json:"from"`
		Timestamp string `json:"timestamp"`
		Type      string `json:"type"`
		Text      *struct {
			Body string `json:"body"`
		} `json:"text"`
	} `json:"messages"`
	Statuses []struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		RecipientID string `json:"recipient_id"`
	} `json:"statuses"`
}

// ==============================================
// PARSE
// ==============================================

// Parse decodes a webhook body. Only the first entry's first change is
// inspected, and only its first message. Malformed JSON is an error; any
// decodable payload without a message or status is an UnknownEvent.
func Parse(body []byte) (Event, error) {
	var n notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	if len(n.Entry) == 0 || len(n.Entry[0].Changes) == 0 {
		return UnknownEvent{}, nil
	}

	ch := n.Entry[0].Changes[0]
	v := ch.Value

	if len(v.Messages) > 0 {
		m := v.Messages[0]
		ev := MessageEvent{
			MessageID:     m.ID,
			From:          m.From,
			To:            v.Metadata.DisplayPhoneNumber,
			PhoneNumberID: v.Metadata.PhoneNumberID,
			Type:          m.Type,
			Timestamp:     m.Timestamp,
		}
		if m.Text != nil {
			ev.Body = m.Text.Body
		} else {
			ev.Body = "[" + m.Type + "]"
		}
		for _, c := range v.Contacts {
			if c.WaID == m.From {
				ev.ContactName = c.Profile.Name
				break
			}
		}
		return ev, nil
	}

	if len(v.Statuses) > 0 {
		s := v.Statuses[0]
		return StatusEvent{MessageID: s.ID, RecipientID: s.RecipientID, Status: s.Status}, nil
	}

	return UnknownEvent{Field: ch.Field}, nil
}

// ==============================================
// SIGNATURE
// ==============================================

// VerifySignature checks a "sha256=<hex>" header against the body.
func VerifySignature(appSecret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(appSecret, body))
}

// Sign returns the raw HMAC-SHA256 of body.
func Sign(appSecret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureHeaderValue formats a signature the way the provider sends it.
func SignatureHeaderValue(appSecret string, body []byte) string {
	return "sha256=" + hex.EncodeToString(Sign(appSecret, body))
}
