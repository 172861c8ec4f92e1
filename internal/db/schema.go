package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS otp_records (
		phone      TEXT PRIMARY KEY,
		code       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		attempts   INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_otp_records_expires_at ON otp_records (expires_at)`,

	`CREATE TABLE IF NOT EXISTS users (
		id           UUID PRIMARY KEY,
		phone_number TEXT NOT NULL UNIQUE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_login   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS whatsapp_messages (
		id                  UUID PRIMARY KEY,
		direction           TEXT NOT NULL CHECK (direction IN ('incoming', 'outgoing')),
		from_phone          TEXT NOT NULL,
		to_phone            TEXT NOT NULL,
		body                TEXT NOT NULL,
		message_type        TEXT NOT NULL,
		provider_message_id TEXT,
		provider_response   JSONB,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_whatsapp_messages_provider_id
		ON whatsapp_messages (direction, provider_message_id)
		WHERE provider_message_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_whatsapp_messages_created_at ON whatsapp_messages (created_at DESC)`,

	// Owned by the provider directory, read here for reminders.
	`CREATE TABLE IF NOT EXISTS providers (
		id                  BIGSERIAL PRIMARY KEY,
		name                TEXT NOT NULL,
		phone_number        TEXT NOT NULL,
		subscription_tier   TEXT NOT NULL DEFAULT 'None',
		subscription_expiry TIMESTAMPTZ
	)`,
}

// EnsureSchema creates the tables the service reads and writes.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
