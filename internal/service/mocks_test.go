package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/innovative-enterprises/whatsapp-agent/internal/gateway"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
)

// ==============================================
// MOCK CREDENTIAL STORE
// ==============================================

type MockCredentialStore struct {
	CreateIfAbsentOrExpiredFunc func(ctx context.Context, rec *models.OTPRecord) error
	GetFunc                     func(ctx context.Context, phone string) (*models.OTPRecord, error)
	IncrementAttemptsFunc       func(ctx context.Context, phone string, createdAt time.Time) (int, error)
	DeleteIfUnchangedFunc       func(ctx context.Context, phone string, createdAt time.Time) (bool, error)
}

func (m *MockCredentialStore) CreateIfAbsentOrExpired(ctx context.Context, rec *models.OTPRecord) error {
	if m.CreateIfAbsentOrExpiredFunc != nil {
		return m.CreateIfAbsentOrExpiredFunc(ctx, rec)
	}
	return nil
}

func (m *MockCredentialStore) Get(ctx context.Context, phone string) (*models.OTPRecord, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, phone)
	}
	return nil, models.ErrOTPNotFound
}

func (m *MockCredentialStore) IncrementAttempts(ctx context.Context, phone string, createdAt time.Time) (int, error) {
	if m.IncrementAttemptsFunc != nil {
		return m.IncrementAttemptsFunc(ctx, phone, createdAt)
	}
	return 0, errors.New("not implemented")
}

func (m *MockCredentialStore) DeleteIfUnchanged(ctx context.Context, phone string, createdAt time.Time) (bool, error) {
	if m.DeleteIfUnchangedFunc != nil {
		return m.DeleteIfUnchangedFunc(ctx, phone, createdAt)
	}
	return true, nil
}

// ==============================================
// MOCK USER REPOSITORY
// ==============================================

// MockUserRepository keeps accounts in memory unless a func is set.
type MockUserRepository struct {
	UpsertLoginFunc func(ctx context.Context, phone string, now time.Time) (*models.UserAccount, error)
	GetUserByIDFunc func(ctx context.Context, userID string) (*models.UserAccount, error)

	mu      sync.Mutex
	byPhone map[string]*models.UserAccount
}

func (m *MockUserRepository) UpsertLogin(ctx context.Context, phone string, now time.Time) (*models.UserAccount, error) {
	if m.UpsertLoginFunc != nil {
		return m.UpsertLoginFunc(ctx, phone, now)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byPhone == nil {
		m.byPhone = make(map[string]*models.UserAccount)
	}

	user, ok := m.byPhone[phone]
	if !ok {
		user = &models.UserAccount{ID: uuid.NewString(), PhoneNumber: phone, CreatedAt: now}
		m.byPhone[phone] = user
	}
	user.LastLogin = now
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, userID string) (*models.UserAccount, error) {
	if m.GetUserByIDFunc != nil {
		return m.GetUserByIDFunc(ctx, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byPhone {
		if u.ID == userID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (m *MockUserRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byPhone)
}

// ==============================================
// MOCK TOKEN ISSUER
// ==============================================

type MockTokenIssuer struct {
	GenerateJWTFunc func(userID, phone string) (string, int, error)
}

func (m *MockTokenIssuer) GenerateJWT(userID, phone string) (string, int, error) {
	if m.GenerateJWTFunc != nil {
		return m.GenerateJWTFunc(userID, phone)
	}
	return "token-for-" + userID, 86400, nil
}

// ==============================================
// MOCK SENDERS
// ==============================================

type sentTemplate struct {
	To       string
	Template gateway.Template
	Summary  string
}

type sentText struct {
	To   string
	Body string
}

// MockSender records every send; SendTemplateFunc/SendTextFunc override the result.
type MockSender struct {
	SendTemplateFunc func(ctx context.Context, to string, tpl gateway.Template, summary string) (*models.MessageLog, error)
	SendTextFunc     func(ctx context.Context, to, body string) (*models.MessageLog, error)

	mu        sync.Mutex
	templates []sentTemplate
	texts     []sentText
}

func (m *MockSender) SendTemplate(ctx context.Context, to string, tpl gateway.Template, summary string) (*models.MessageLog, error) {
	m.mu.Lock()
	m.templates = append(m.templates, sentTemplate{To: to, Template: tpl, Summary: summary})
	m.mu.Unlock()

	if m.SendTemplateFunc != nil {
		return m.SendTemplateFunc(ctx, to, tpl, summary)
	}
	return &models.MessageLog{To: to, Body: summary, MessageType: models.MessageTypeTemplate}, nil
}

func (m *MockSender) SendText(ctx context.Context, to, body string) (*models.MessageLog, error) {
	m.mu.Lock()
	m.texts = append(m.texts, sentText{To: to, Body: body})
	m.mu.Unlock()

	if m.SendTextFunc != nil {
		return m.SendTextFunc(ctx, to, body)
	}
	return &models.MessageLog{To: to, Body: body, MessageType: models.MessageTypeText}, nil
}

func (m *MockSender) Templates() []sentTemplate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentTemplate(nil), m.templates...)
}

func (m *MockSender) Texts() []sentText {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentText(nil), m.texts...)
}

// ==============================================
// MOCK GATEWAY
// ==============================================

type MockGateway struct {
	SendTextFunc     func(ctx context.Context, to, body string) (*gateway.SendResult, error)
	SendTemplateFunc func(ctx context.Context, to string, tpl gateway.Template) (*gateway.SendResult, error)
}

func (m *MockGateway) SendText(ctx context.Context, to, body string) (*gateway.SendResult, error) {
	if m.SendTextFunc != nil {
		return m.SendTextFunc(ctx, to, body)
	}
	return &gateway.SendResult{MessageID: "wamid." + uuid.NewString(), Raw: []byte(`{}`)}, nil
}

func (m *MockGateway) SendTemplate(ctx context.Context, to string, tpl gateway.Template) (*gateway.SendResult, error) {
	if m.SendTemplateFunc != nil {
		return m.SendTemplateFunc(ctx, to, tpl)
	}
	return &gateway.SendResult{MessageID: "wamid." + uuid.NewString(), Raw: []byte(`{}`)}, nil
}

// ==============================================
// MOCK MESSAGE LOG
// ==============================================

// MockMessageLog is an in-memory log that rejects repeated provider ids.
type MockMessageLog struct {
	AppendFunc     func(ctx context.Context, msg *models.MessageLog) error
	ListRecentFunc func(ctx context.Context, phone string, limit int) ([]models.MessageLog, error)

	mu      sync.Mutex
	entries []models.MessageLog
}

func (m *MockMessageLog) Append(ctx context.Context, msg *models.MessageLog) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, msg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ProviderMessageID != "" {
		for _, e := range m.entries {
			if e.Direction == msg.Direction && e.ProviderMessageID == msg.ProviderMessageID {
				return models.ErrDuplicateMessage
			}
		}
	}
	msg.ID = uuid.NewString()
	msg.Timestamp = time.Now()
	m.entries = append(m.entries, *msg)
	return nil
}

func (m *MockMessageLog) ListRecent(ctx context.Context, phone string, limit int) ([]models.MessageLog, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, phone, limit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MessageLog
	for i := len(m.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		e := m.entries[i]
		if phone == "" || e.From == phone || e.To == phone {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockMessageLog) Entries() []models.MessageLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.MessageLog(nil), m.entries...)
}

// ==============================================
// MOCK SUBSCRIBER DIRECTORY
// ==============================================

type MockSubscriberDirectory struct {
	ListReminderCandidatesFunc func(ctx context.Context) ([]models.ProviderSubscription, error)
}

func (m *MockSubscriberDirectory) ListReminderCandidates(ctx context.Context) ([]models.ProviderSubscription, error) {
	if m.ListReminderCandidatesFunc != nil {
		return m.ListReminderCandidatesFunc(ctx)
	}
	return nil, nil
}
