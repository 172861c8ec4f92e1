package handlers

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/innovative-enterprises/whatsapp-agent/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

const (
	testVerifyToken = "verify-me"
	webhookPath     = "/api/whatsapp/webhook"
	inboundPayload  = `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{"metadata":{"display_phone_number":"96824000000","phone_number_id":"PNID"},"messages":[{"id":"wamid.1","from":"96891234567","type":"text","text":{"body":"hello"}}]}}]}]}`
	emptyPayload    = `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{"messages":[]}}]}]}`
)

func setupWebhookTest(appSecret string) (*gin.Engine, *MockEventHandler) {
	router := newRouter()
	events := new(MockEventHandler)
	NewWebhookHandler(events, testVerifyToken, appSecret, zap.NewNop()).RegisterRoutes(router)
	return router, events
}

// ==============================================
// HANDSHAKE
// ==============================================

func TestWebhookVerify(t *testing.T) {
	router, _ := setupWebhookTest("")

	w := doRequest(router, http.MethodGet,
		webhookPath+"?hub.mode=subscribe&hub.verify_token="+testVerifyToken+"&hub.challenge=xyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "xyz", w.Body.String())

	w = doRequest(router, http.MethodGet,
		webhookPath+"?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=xyz", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "xyz")

	w = doRequest(router, http.MethodGet,
		webhookPath+"?hub.mode=unsubscribe&hub.verify_token="+testVerifyToken+"&hub.challenge=xyz", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(router, http.MethodGet, webhookPath, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// ==============================================
// EVENTS
// ==============================================

func TestWebhookReceive_InboundMessage(t *testing.T) {
	router, events := setupWebhookTest("")
	events.On("HandleEvent", mock.Anything, mock.MatchedBy(func(ev webhook.Event) bool {
		msg, ok := ev.(webhook.MessageEvent)
		return ok && msg.MessageID == "wamid.1" && msg.From == "96891234567" && msg.Body == "hello"
	})).Return(nil).Once()

	w := doRequest(router, http.MethodPost, webhookPath, inboundPayload, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	events.AssertExpectations(t)
}

func TestWebhookReceive_NoMessages(t *testing.T) {
	router, events := setupWebhookTest("")
	events.On("HandleEvent", mock.Anything, mock.IsType(webhook.UnknownEvent{})).Return(nil).Once()

	w := doRequest(router, http.MethodPost, webhookPath, emptyPayload, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	events.AssertExpectations(t)
}

func TestWebhookReceive_MalformedJSON(t *testing.T) {
	router, events := setupWebhookTest("")

	w := doRequest(router, http.MethodPost, webhookPath, `{"entry":[`, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	events.AssertNotCalled(t, "HandleEvent", mock.Anything, mock.Anything)
}

func TestWebhookReceive_OversizedBody(t *testing.T) {
	router, events := setupWebhookTest("")

	body := `{"object":"` + strings.Repeat("x", maxWebhookBody) + `"}`
	w := doRequest(router, http.MethodPost, webhookPath, body, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	events.AssertNotCalled(t, "HandleEvent", mock.Anything, mock.Anything)
}

func TestWebhookReceive_ProcessingFailureAsksForRedelivery(t *testing.T) {
	router, events := setupWebhookTest("")
	events.On("HandleEvent", mock.Anything, mock.Anything).Return(errors.New("log append failed"))

	w := doRequest(router, http.MethodPost, webhookPath, inboundPayload, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "log append")
}

func TestWebhookReceive_Signature(t *testing.T) {
	const secret = "app-secret"
	router, events := setupWebhookTest(secret)
	events.On("HandleEvent", mock.Anything, mock.Anything).Return(nil).Once()

	w := doRequest(router, http.MethodPost, webhookPath, inboundPayload, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "missing signature")

	w = doRequest(router, http.MethodPost, webhookPath, inboundPayload,
		map[string]string{webhook.SignatureHeader: webhook.SignatureHeaderValue("other-secret", []byte(inboundPayload))})
	assert.Equal(t, http.StatusForbidden, w.Code, "wrong secret")

	w = doRequest(router, http.MethodPost, webhookPath, inboundPayload,
		map[string]string{webhook.SignatureHeader: webhook.SignatureHeaderValue(secret, []byte(inboundPayload))})
	assert.Equal(t, http.StatusOK, w.Code)

	events.AssertNumberOfCalls(t, "HandleEvent", 1)
}

func TestWebhook_OtherVerbsNotFound(t *testing.T) {
	router, _ := setupWebhookTest("")

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		w := doRequest(router, method, webhookPath, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, method)
	}
}
