package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/innovative-enterprises/whatsapp-agent/internal/auth"
	"github.com/innovative-enterprises/whatsapp-agent/internal/gateway"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"go.uber.org/zap"
)

// ==============================================
// INTERFACES (for testing)
// ==============================================

// CredentialStore holds at most one OTP record per phone.
type CredentialStore interface {
	// CreateIfAbsentOrExpired stores rec unless a live record exists, in which
	// case it returns models.ErrOTPResendCooldown. rec.CreatedAt is "now".
	CreateIfAbsentOrExpired(ctx context.Context, rec *models.OTPRecord) error
	Get(ctx context.Context, phone string) (*models.OTPRecord, error)
	// IncrementAttempts and DeleteIfUnchanged act only on the record created
	// at createdAt, so a verifier holding a stale read never touches a newer
	// code. A replaced record counts as missing.
	IncrementAttempts(ctx context.Context, phone string, createdAt time.Time) (int, error)
	// DeleteIfUnchanged reports whether this call removed the record.
	DeleteIfUnchanged(ctx context.Context, phone string, createdAt time.Time) (bool, error)
}

type UserRepository interface {
	UpsertLogin(ctx context.Context, phone string, now time.Time) (*models.UserAccount, error)
	GetUserByID(ctx context.Context, userID string) (*models.UserAccount, error)
}

type TokenIssuer interface {
	GenerateJWT(userID, phone string) (string, int, error)
}

type TemplateSender interface {
	SendTemplate(ctx context.Context, to string, tpl gateway.Template, summary string) (*models.MessageLog, error)
}

// ==============================================
// CONFIG & RESULTS
// ==============================================

type OTPConfig struct {
	TTL          time.Duration
	MaxAttempts  int // 0 means unlimited
	TemplateName string
	Language     string
}

type IssueResult struct {
	Delivered bool
	ExpiresIn int // seconds
}

type VerifyResult struct {
	Token     string
	ExpiresIn int // seconds
	User      *models.UserAccount
}

// ==============================================
// SERVICE
// ==============================================

type OTPService struct {
	store  CredentialStore
	users  UserRepository
	tokens TokenIssuer
	sender TemplateSender
	cfg    OTPConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewOTPService(
	store CredentialStore,
	users UserRepository,
	tokens TokenIssuer,
	sender TemplateSender,
	cfg OTPConfig,
	logger *zap.Logger,
) *OTPService {
	if cfg.TTL <= 0 {
		cfg.TTL = models.OTPDefaultTTL
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}

	return &OTPService{
		store:  store,
		users:  users,
		tokens: tokens,
		sender: sender,
		cfg:    cfg,
		logger: logger.Named("otp"),
		now:    time.Now,
	}
}

// ==============================================
// ISSUE OTP
// ==============================================

// IssueOTP creates a code for the phone and delivers it over WhatsApp.
// A live code blocks reissue until it expires. If delivery fails the record
// stays, so the user may still receive and use it.
func (s *OTPService) IssueOTP(ctx context.Context, rawPhone string) (*IssueResult, error) {
	phone, err := auth.NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("phone", auth.MaskPhone(phone)))

	code, err := auth.GenerateOTP()
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec := &models.OTPRecord{
		Phone:     phone,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}

	if err := s.store.CreateIfAbsentOrExpired(ctx, rec); err != nil {
		if errors.Is(err, models.ErrOTPResendCooldown) {
			log.Info("otp issuance blocked by live code")
			return nil, err
		}
		log.Error("failed to store otp", zap.Error(err))
		return nil, storeError(err)
	}

	tpl := gateway.Template{
		Name:           s.cfg.TemplateName,
		Language:       s.cfg.Language,
		BodyParams:     []string{code},
		ButtonURLParam: code,
	}
	if _, err := s.sender.SendTemplate(ctx, phone, tpl, "[template:"+s.cfg.TemplateName+"]"); err != nil {
		log.Warn("otp delivery failed, record kept", zap.Error(err))
		return nil, deliveryError(err)
	}

	log.Info("otp issued", zap.Time("expires_at", rec.ExpiresAt))
	return &IssueResult{
		Delivered: true,
		ExpiresIn: int(s.cfg.TTL.Seconds()),
	}, nil
}

// ==============================================
// VERIFY OTP
// ==============================================

// VerifyOTP checks the code, consumes it and returns a session token for the
// account behind the phone, creating the account on first login.
func (s *OTPService) VerifyOTP(ctx context.Context, rawPhone, code string) (*VerifyResult, error) {
	phone, err := auth.NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	if !isOTPFormat(code) {
		return nil, models.ErrOTPInvalid
	}
	log := s.logger.With(zap.String("phone", auth.MaskPhone(phone)))

	rec, err := s.store.Get(ctx, phone)
	if err != nil {
		if errors.Is(err, models.ErrOTPNotFound) {
			return nil, err
		}
		log.Error("failed to read otp", zap.Error(err))
		return nil, storeError(err)
	}

	now := s.now()
	if rec.IsExpired(now) {
		if _, err := s.store.DeleteIfUnchanged(ctx, phone, rec.CreatedAt); err != nil {
			log.Warn("failed to delete expired otp", zap.Error(err))
		}
		return nil, models.ErrOTPExpired
	}

	if !auth.CompareOTP(rec.Code, code) {
		return nil, s.recordMismatch(ctx, phone, rec.CreatedAt, log)
	}

	removed, err := s.store.DeleteIfUnchanged(ctx, phone, rec.CreatedAt)
	if err != nil {
		log.Error("failed to consume otp", zap.Error(err))
		return nil, storeError(err)
	}
	if !removed {
		// Consumed by a concurrent verification, possibly already replaced.
		return nil, models.ErrOTPNotFound
	}

	user, err := s.users.UpsertLogin(ctx, phone, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	token, expiresIn, err := s.tokens.GenerateJWT(user.ID, user.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	log.Info("otp verified", zap.String("user_id", user.ID))
	return &VerifyResult{
		Token:     token,
		ExpiresIn: expiresIn,
		User:      user,
	}, nil
}

func (s *OTPService) recordMismatch(ctx context.Context, phone string, createdAt time.Time, log *zap.Logger) error {
	attempts, err := s.store.IncrementAttempts(ctx, phone, createdAt)
	if err != nil {
		if errors.Is(err, models.ErrOTPNotFound) {
			return err
		}
		log.Error("failed to record otp attempt", zap.Error(err))
		return storeError(err)
	}

	if s.cfg.MaxAttempts > 0 && attempts >= s.cfg.MaxAttempts {
		if _, err := s.store.DeleteIfUnchanged(ctx, phone, createdAt); err != nil {
			log.Warn("failed to delete exhausted otp", zap.Error(err))
		}
		log.Info("otp attempts exhausted", zap.Int("attempts", attempts))
		return models.ErrOTPMaxAttempts
	}

	log.Info("otp mismatch", zap.Int("attempts", attempts))
	return models.ErrOTPInvalid
}

// ==============================================
// CLEANUP
// ==============================================

// ExpiredRecordPurger is implemented by stores without native key expiry.
type ExpiredRecordPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// CanPurge reports whether the configured store needs PurgeExpired runs.
func (s *OTPService) CanPurge() bool {
	_, ok := s.store.(ExpiredRecordPurger)
	return ok
}

// PurgeExpired deletes records that expired more than
// models.OTPRecordRetention ago. It is a no-op for stores that expire keys
// themselves.
func (s *OTPService) PurgeExpired(ctx context.Context) error {
	purger, ok := s.store.(ExpiredRecordPurger)
	if !ok {
		return nil
	}

	n, err := purger.PurgeExpired(ctx, s.now().Add(-models.OTPRecordRetention))
	if err != nil {
		return fmt.Errorf("failed to purge expired otps: %w", err)
	}
	if n > 0 {
		s.logger.Info("purged expired otps", zap.Int64("count", n))
	}
	return nil
}

// ==============================================
// ACCOUNT LOOKUP
// ==============================================

func (s *OTPService) GetUser(ctx context.Context, userID string) (*models.UserAccount, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ==============================================
// HELPERS
// ==============================================

func isOTPFormat(code string) bool {
	if len(code) != models.OTPLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// storeError maps store timeouts to ErrVerificationUnavailable.
func storeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", models.ErrVerificationUnavailable, err)
	}
	return fmt.Errorf("credential store: %w", err)
}
