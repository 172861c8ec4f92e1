package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/innovative-enterprises/whatsapp-agent/internal/auth"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"go.uber.org/zap"
)

// ==============================================
// CONFIG & TYPES
// ==============================================

const (
	DefaultTimeout      = 10 * time.Second
	DefaultRetryBackoff = 300 * time.Millisecond
	maxResponseBytes    = 1 << 20
)

type Config struct {
	APIURL        string // e.g. https://graph.facebook.com/v19.0
	AccessToken   string
	PhoneNumberID string
	Timeout       time.Duration
	MaxRetries    int // extra attempts after the first, 5xx and network errors only
	RetryBackoff  time.Duration
}

// Template is a pre-approved WhatsApp message template.
type Template struct {
	Name       string
	Language   string
	BodyParams []string
	// ButtonURLParam fills the dynamic suffix of a url button at index 0.
	// Authentication templates require it to carry the code.
	ButtonURLParam string
}

type SendResult struct {
	MessageID string
	Raw       json.RawMessage
}

// StatusError is a non-2xx answer from the Cloud API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("whatsapp api returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return models.ErrDeliveryFailed
}

// ==============================================
// WIRE FORMAT
// ==============================================

type sendRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *textPayload     `json:"text,omitempty"`
	Template         *templatePayload `json:"template,omitempty"`
}

type textPayload struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type templatePayload struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	SubType    string              `json:"sub_type,omitempty"`
	Index      string              `json:"index,omitempty"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// ==============================================
// CLIENT
// ==============================================

type WhatsAppClient struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewWhatsAppClient(cfg Config, logger *zap.Logger) *WhatsAppClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	return &WhatsAppClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("whatsapp"),
	}
}

// SendText delivers a free-form text message.
func (c *WhatsAppClient) SendText(ctx context.Context, to, body string) (*SendResult, error) {
	return c.send(ctx, &sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             models.MessageTypeText,
		Text:             &textPayload{Body: body},
	})
}

// SendTemplate delivers a template message.
func (c *WhatsAppClient) SendTemplate(ctx context.Context, to string, tpl Template) (*SendResult, error) {
	payload := &templatePayload{
		Name:     tpl.Name,
		Language: templateLanguage{Code: tpl.Language},
	}

	if len(tpl.BodyParams) > 0 {
		params := make([]templateParameter, 0, len(tpl.BodyParams))
		for _, p := range tpl.BodyParams {
			params = append(params, templateParameter{Type: "text", Text: p})
		}
		payload.Components = append(payload.Components, templateComponent{Type: "body", Parameters: params})
	}
	if tpl.ButtonURLParam != "" {
		payload.Components = append(payload.Components, templateComponent{
			Type:       "button",
			SubType:    "url",
			Index:      "0",
			Parameters: []templateParameter{{Type: "text", Text: tpl.ButtonURLParam}},
		})
	}

	return c.send(ctx, &sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             models.MessageTypeTemplate,
		Template:         payload,
	})
}

func (c *WhatsAppClient) send(ctx context.Context, msg *sendRequest) (*SendResult, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal WhatsApp payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.cfg.APIURL, c.cfg.PhoneNumberID)
	log := c.logger.With(zap.String("recipient", auth.MaskPhone(msg.To)), zap.String("type", msg.Type))

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", models.ErrDeliveryFailed, ctx.Err())
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		result, retryable, err := c.do(ctx, url, body)
		if err == nil {
			log.Info("message sent",
				zap.String("message_id", result.MessageID),
				zap.Int("attempt", attempt+1),
				zap.Duration("duration", time.Since(start)),
			)
			return result, nil
		}

		lastErr = err
		log.Warn("send attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Bool("retryable", retryable),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		if !retryable || ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

// do performs one HTTP round trip. The bool reports whether a retry may help.
func (c *WhatsAppClient) do(ctx context.Context, url string, body []byte) (*SendResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create WhatsApp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", models.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read response: %v", models.ErrDeliveryFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode >= 500, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed sendResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, false, fmt.Errorf("%w: decode response: %v", models.ErrDeliveryFailed, err)
	}

	result := &SendResult{Raw: json.RawMessage(raw)}
	if len(parsed.Messages) > 0 {
		result.MessageID = parsed.Messages[0].ID
	}
	return result, false, nil
}

// IsDeliveryFailure reports whether err came from a failed send.
func IsDeliveryFailure(err error) bool {
	return errors.Is(err, models.ErrDeliveryFailed)
}
