package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ==============================================
// USER REPOSITORY
// ==============================================

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// ==============================================
// LOGIN UPSERT
// ==============================================

// UpsertLogin creates the account on first login, otherwise bumps last_login.
// One statement, so two concurrent first logins yield a single account.
func (r *UserRepository) UpsertLogin(ctx context.Context, phone string, now time.Time) (*models.UserAccount, error) {
	query := `
		INSERT INTO users (id, phone_number, created_at, last_login)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (phone_number) DO UPDATE
		SET last_login = EXCLUDED.last_login
		RETURNING id::text, phone_number, created_at, last_login
	`

	var user models.UserAccount
	err := r.db.QueryRow(ctx, query, uuid.NewString(), phone, now).Scan(
		&user.ID,
		&user.PhoneNumber,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return &user, nil
}

// ==============================================
// GET USER (Read Operations)
// ==============================================

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.UserAccount, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, models.ErrUserNotFound
	}

	query := `
		SELECT id::text, phone_number, created_at, last_login
		FROM users
		WHERE id = $1
	`

	var user models.UserAccount
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.PhoneNumber,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}
