package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ==============================================
// SUBSCRIBER DIRECTORY (read-only)
// ==============================================

type SubscriberRepository struct {
	db *pgxpool.Pool
}

func NewSubscriberRepository(db *pgxpool.Pool) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// ListReminderCandidates returns subscriptions that carry an expiry.
func (r *SubscriberRepository) ListReminderCandidates(ctx context.Context) ([]models.ProviderSubscription, error) {
	query := `
		SELECT name, subscription_tier, subscription_expiry, phone_number
		FROM providers
		WHERE subscription_expiry IS NOT NULL
		  AND subscription_tier NOT IN ('None', 'Lifetime')
		ORDER BY subscription_expiry ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.ProviderSubscription
	for rows.Next() {
		var (
			sub    models.ProviderSubscription
			tier   string
			expiry *time.Time
		)
		if err := rows.Scan(&sub.Name, &tier, &expiry, &sub.PhoneNumber); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		sub.SubscriptionTier = models.SubscriptionTier(tier)
		sub.SubscriptionExpiry = expiry
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}

	return subs, nil
}
