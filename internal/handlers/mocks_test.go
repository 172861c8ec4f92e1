package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/innovative-enterprises/whatsapp-agent/internal/auth"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"github.com/innovative-enterprises/whatsapp-agent/internal/service"
	"github.com/innovative-enterprises/whatsapp-agent/internal/webhook"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==============================================
// MOCK SERVICES
// ==============================================

type MockOTPService struct {
	mock.Mock
}

func (m *MockOTPService) IssueOTP(ctx context.Context, phone string) (*service.IssueResult, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IssueResult), args.Error(1)
}

func (m *MockOTPService) VerifyOTP(ctx context.Context, phone, code string) (*service.VerifyResult, error) {
	args := m.Called(ctx, phone, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VerifyResult), args.Error(1)
}

func (m *MockOTPService) GetUser(ctx context.Context, userID string) (*models.UserAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccount), args.Error(1)
}

type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) SendText(ctx context.Context, to, body string) (*models.MessageLog, error) {
	args := m.Called(ctx, to, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageLog), args.Error(1)
}

func (m *MockMessageService) ListRecent(ctx context.Context, phone string, limit int) ([]models.MessageLog, error) {
	args := m.Called(ctx, phone, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MessageLog), args.Error(1)
}

type MockReminderRunner struct {
	mock.Mock
}

func (m *MockReminderRunner) RunDailyCheck(ctx context.Context) (*models.ReminderSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReminderSummary), args.Error(1)
}

type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) HandleEvent(ctx context.Context, ev webhook.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// ==============================================
// TEST SETUP
// ==============================================

const testPhone = "96891234567"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func newTestIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer("test-secret", "test-issuer", time.Hour)
}

func bearer(t *testing.T, issuer *auth.TokenIssuer, userID string) string {
	t.Helper()
	token, _, err := issuer.GenerateJWT(userID, testPhone)
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
