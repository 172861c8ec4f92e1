package models

import "time"

// ==============================================
// PROVIDER SUBSCRIPTION (read-only)
// ==============================================

type SubscriptionTier string

const (
	TierNone     SubscriptionTier = "None"
	TierMonthly  SubscriptionTier = "Monthly"
	TierYearly   SubscriptionTier = "Yearly"
	TierLifetime SubscriptionTier = "Lifetime"
)

// Expires reports whether the tier has an expiry worth reminding about.
func (t SubscriptionTier) Expires() bool {
	return t != TierNone && t != TierLifetime && t != ""
}

type ProviderSubscription struct {
	Name               string           `db:"name" json:"name"`
	SubscriptionTier   SubscriptionTier `db:"subscription_tier" json:"subscription_tier"`
	SubscriptionExpiry *time.Time       `db:"subscription_expiry" json:"subscription_expiry,omitempty"`
	PhoneNumber        string           `db:"phone_number" json:"phone_number"`
}

// ==============================================
// REMINDERS
// ==============================================

// ReminderIntervals are the exact day counts that trigger a reminder.
var ReminderIntervals = []int{30, 15, 7, 1}

type Reminder struct {
	Name            string           `json:"name"`
	PhoneNumber     string           `json:"phone_number"`
	Tier            SubscriptionTier `json:"tier"`
	Expiry          time.Time        `json:"expiry"`
	DaysUntilExpiry int              `json:"days_until_expiry"`
}

// Reminder statuses
const (
	ReminderStatusSent   = "sent"
	ReminderStatusFailed = "failed"
)

type ReminderResult struct {
	Reminder
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type ReminderSummary struct {
	NotificationsSent int              `json:"notifications_sent"`
	Failed            int              `json:"failed"`
	Details           []ReminderResult `json:"details"`
	RanAt             time.Time        `json:"ran_at"`
}
