package models

import "time"

// ==============================================
// OTP RECORD MODEL
// ==============================================

// OTPRecord is the single pending code for a phone number.
type OTPRecord struct {
	Phone     string    `db:"phone" json:"phone"`
	Code      string    `db:"code" json:"code"` // 6-digit OTP
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Attempts  int       `db:"attempts" json:"attempts"`
}

// IsLive reports whether the record still blocks a new issuance.
func (o *OTPRecord) IsLive(now time.Time) bool {
	return now.Before(o.ExpiresAt)
}

// IsExpired reports whether the record can no longer be verified.
func (o *OTPRecord) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// ==============================================
// OTP CONFIGURATION
// ==============================================
const (
	OTPLength          = 6               // 6-digit OTP
	OTPDefaultTTL      = 5 * time.Minute // createdAt + 5 minutes
	OTPMaxAttempts     = 5               // Max verification attempts
	OTPRecordRetention = 24 * time.Hour  // how long an expired record lingers before store-side cleanup
)
