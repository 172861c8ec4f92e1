package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ==============================================
// OTP REPOSITORY (Postgres credential store)
// ==============================================

type OTPRepository struct {
	db *pgxpool.Pool
}

func NewOTPRepository(db *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{db: db}
}

// ==============================================
// CREATE OTP
// ==============================================

// CreateIfAbsentOrExpired stores rec unless a live record already exists for
// the phone. rec.CreatedAt is the reference time for liveness. The conditional
// upsert is a single statement, so concurrent issuers cannot both win.
func (r *OTPRepository) CreateIfAbsentOrExpired(ctx context.Context, rec *models.OTPRecord) error {
	query := `
		INSERT INTO otp_records (phone, code, created_at, expires_at, attempts)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (phone) DO UPDATE
		SET code       = EXCLUDED.code,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at,
		    attempts   = 0
		WHERE otp_records.expires_at <= EXCLUDED.created_at
	`

	tag, err := r.db.Exec(ctx, query, rec.Phone, rec.Code, rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create OTP: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrOTPResendCooldown
	}

	rec.Attempts = 0
	return nil
}

// ==============================================
// READ OTP
// ==============================================

func (r *OTPRepository) Get(ctx context.Context, phone string) (*models.OTPRecord, error) {
	query := `
		SELECT phone, code, created_at, expires_at, attempts
		FROM otp_records
		WHERE phone = $1
	`

	var rec models.OTPRecord
	err := r.db.QueryRow(ctx, query, phone).Scan(
		&rec.Phone,
		&rec.Code,
		&rec.CreatedAt,
		&rec.ExpiresAt,
		&rec.Attempts,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOTPNotFound
		}
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}

	return &rec, nil
}

// ==============================================
// UPDATE / DELETE OTP
// ==============================================

// IncrementAttempts bumps the mismatch counter of the record created at
// createdAt and returns the new value. A replaced or missing record is
// models.ErrOTPNotFound.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, phone string, createdAt time.Time) (int, error) {
	query := `
		UPDATE otp_records
		SET attempts = attempts + 1
		WHERE phone = $1 AND created_at = $2
		RETURNING attempts
	`

	var attempts int
	if err := r.db.QueryRow(ctx, query, phone, createdAt).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrOTPNotFound
		}
		return 0, fmt.Errorf("failed to increment OTP attempts: %w", err)
	}

	return attempts, nil
}

// DeleteIfUnchanged removes the record only while it is still the one created
// at createdAt, and reports whether this call removed it.
func (r *OTPRepository) DeleteIfUnchanged(ctx context.Context, phone string, createdAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM otp_records WHERE phone = $1 AND created_at = $2`, phone, createdAt)
	if err != nil {
		return false, fmt.Errorf("failed to delete OTP: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// PurgeExpired removes records that expired before the cutoff.
func (r *OTPRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM otp_records WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired OTPs: %w", err)
	}
	return tag.RowsAffected(), nil
}
