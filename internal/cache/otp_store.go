package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"github.com/redis/go-redis/v9"
)

const otpKeyPrefix = "otp:"

// KEYS[1] record key
// ARGV[1] code, ARGV[2] created_at ms, ARGV[3] expires_at ms, ARGV[4] key expiry ms
var createOTPScript = redis.NewScript(`
local exp = redis.call('HGET', KEYS[1], 'expires_at')
if exp and tonumber(exp) > tonumber(ARGV[2]) then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'code', ARGV[1], 'created_at', ARGV[2], 'expires_at', ARGV[3], 'attempts', 0)
redis.call('PEXPIREAT', KEYS[1], ARGV[4])
return 1
`)

// KEYS[1] record key
// ARGV[1] created_at ms of the record the caller read
var incrementAttemptsScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'created_at') ~= ARGV[1] then
	return -1
end
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)
`)

// KEYS[1] record key
// ARGV[1] created_at ms of the record the caller read
var deleteIfUnchangedScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'created_at') ~= ARGV[1] then
	return 0
end
return redis.call('DEL', KEYS[1])
`)

// OTPStore keeps one hash per phone. The key outlives ExpiresAt by the
// retention window so a late verify still sees the record and reports expiry.
type OTPStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

func NewOTPStore(client redis.UniversalClient) *OTPStore {
	return &OTPStore{client: client, retention: models.OTPRecordRetention}
}

func otpKey(phone string) string {
	return otpKeyPrefix + phone
}

func (s *OTPStore) CreateIfAbsentOrExpired(ctx context.Context, rec *models.OTPRecord) error {
	keyExpiry := rec.ExpiresAt.Add(s.retention)

	created, err := createOTPScript.Run(ctx, s.client, []string{otpKey(rec.Phone)},
		rec.Code,
		rec.CreatedAt.UnixMilli(),
		rec.ExpiresAt.UnixMilli(),
		keyExpiry.UnixMilli(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to create OTP: %w", err)
	}

	if created == 0 {
		return models.ErrOTPResendCooldown
	}

	rec.Attempts = 0
	return nil
}

func (s *OTPStore) Get(ctx context.Context, phone string) (*models.OTPRecord, error) {
	fields, err := s.client.HGetAll(ctx, otpKey(phone)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}
	if len(fields) == 0 {
		return nil, models.ErrOTPNotFound
	}

	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt OTP record created_at: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt OTP record expires_at: %w", err)
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("corrupt OTP record attempts: %w", err)
	}

	return &models.OTPRecord{
		Phone:     phone,
		Code:      fields["code"],
		CreatedAt: time.UnixMilli(createdAt),
		ExpiresAt: time.UnixMilli(expiresAt),
		Attempts:  attempts,
	}, nil
}

func (s *OTPStore) IncrementAttempts(ctx context.Context, phone string, createdAt time.Time) (int, error) {
	n, err := incrementAttemptsScript.Run(ctx, s.client, []string{otpKey(phone)}, createdAt.UnixMilli()).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to increment OTP attempts: %w", err)
	}
	if n < 0 {
		return 0, models.ErrOTPNotFound
	}
	return n, nil
}

func (s *OTPStore) DeleteIfUnchanged(ctx context.Context, phone string, createdAt time.Time) (bool, error) {
	n, err := deleteIfUnchangedScript.Run(ctx, s.client, []string{otpKey(phone)}, createdAt.UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to delete OTP: %w", err)
	}
	return n == 1, nil
}
