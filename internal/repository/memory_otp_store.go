package repository

import (
	"context"
	"sync"
	"time"

	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
)

// MemoryOTPStore keeps OTP records in process. Suitable for a single instance
// and for tests; records do not survive a restart.
type MemoryOTPStore struct {
	mu      sync.Mutex
	records map[string]models.OTPRecord
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{records: make(map[string]models.OTPRecord)}
}

func (s *MemoryOTPStore) CreateIfAbsentOrExpired(ctx context.Context, rec *models.OTPRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.Phone]; ok && existing.IsLive(rec.CreatedAt) {
		return models.ErrOTPResendCooldown
	}

	rec.Attempts = 0
	s.records[rec.Phone] = *rec
	return nil
}

func (s *MemoryOTPStore) Get(ctx context.Context, phone string) (*models.OTPRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[phone]
	if !ok {
		return nil, models.ErrOTPNotFound
	}
	return &rec, nil
}

func (s *MemoryOTPStore) IncrementAttempts(ctx context.Context, phone string, createdAt time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[phone]
	if !ok || !rec.CreatedAt.Equal(createdAt) {
		return 0, models.ErrOTPNotFound
	}
	rec.Attempts++
	s.records[phone] = rec
	return rec.Attempts, nil
}

func (s *MemoryOTPStore) DeleteIfUnchanged(ctx context.Context, phone string, createdAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[phone]
	if !ok || !rec.CreatedAt.Equal(createdAt) {
		return false, nil
	}
	delete(s.records, phone)
	return true, nil
}

func (s *MemoryOTPStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for phone, rec := range s.records {
		if rec.ExpiresAt.Before(before) {
			delete(s.records, phone)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records.
func (s *MemoryOTPStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
