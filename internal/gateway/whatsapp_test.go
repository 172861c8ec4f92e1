package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(url string, retries int) *WhatsAppClient {
	return NewWhatsAppClient(Config{
		APIURL:        url,
		AccessToken:   "test-token",
		PhoneNumberID: "12345",
		Timeout:       time.Second,
		MaxRetries:    retries,
		RetryBackoff:  time.Millisecond,
	}, zap.NewNop())
}

const okResponse = `{"messaging_product":"whatsapp","contacts":[{"input":"96891234567","wa_id":"96891234567"}],"messages":[{"id":"wamid.ABC"}]}`

func TestSendText_Success(t *testing.T) {
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	result, err := newTestClient(server.URL+"/", 0).SendText(context.Background(), "96891234567", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.ABC", result.MessageID)
	assert.JSONEq(t, okResponse, string(result.Raw))

	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "96891234567", got["to"])
	assert.Equal(t, "text", got["type"])
	assert.Equal(t, "hello", got["text"].(map[string]any)["body"])
	assert.NotContains(t, got, "template")
}

func TestSendTemplate_Components(t *testing.T) {
	var got sendRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 0).SendTemplate(context.Background(), "96891234567", Template{
		Name:           "otp_verification",
		Language:       "en_US",
		BodyParams:     []string{"123456"},
		ButtonURLParam: "123456",
	})
	require.NoError(t, err)

	assert.Equal(t, "template", got.Type)
	require.NotNil(t, got.Template)
	assert.Nil(t, got.Text)
	assert.Equal(t, "otp_verification", got.Template.Name)
	assert.Equal(t, "en_US", got.Template.Language.Code)
	require.Len(t, got.Template.Components, 2)

	assert.Equal(t, "body", got.Template.Components[0].Type)
	assert.Equal(t, "123456", got.Template.Components[0].Parameters[0].Text)

	button := got.Template.Components[1]
	assert.Equal(t, "button", button.Type)
	assert.Equal(t, "url", button.SubType)
	assert.Equal(t, "0", button.Index)
	assert.Equal(t, "123456", button.Parameters[0].Text)
}

func TestSend_RetriesServerErrors(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	result, err := newTestClient(server.URL, 2).SendText(context.Background(), "96891234567", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.ABC", result.MessageID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSend_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 2).SendText(context.Background(), "96891234567", "hello")
	assert.ErrorIs(t, err, models.ErrDeliveryFailed)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestSend_ClientErrorNotRetried(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 3).SendText(context.Background(), "96891234567", "hello")
	assert.ErrorIs(t, err, models.ErrDeliveryFailed)
	assert.True(t, IsDeliveryFailure(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Contains(t, err.Error(), "Invalid parameter")
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewWhatsAppClient(Config{
		APIURL:        server.URL,
		AccessToken:   "test-token",
		PhoneNumberID: "12345",
		Timeout:       50 * time.Millisecond,
	}, zap.NewNop())

	_, err := client.SendText(context.Background(), "96891234567", "hello")
	assert.ErrorIs(t, err, models.ErrDeliveryFailed)
}

func TestSend_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL, 5).SendText(ctx, "96891234567", "hello")
	assert.ErrorIs(t, err, models.ErrDeliveryFailed)
}

func TestSend_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 0).SendText(context.Background(), "96891234567", "hello")
	assert.ErrorIs(t, err, models.ErrDeliveryFailed)
}
