package models

import (
	"time"
)

// ==============================================
// USER MODEL (Database mapping)
// ==============================================

// UserAccount is created lazily on the first successful OTP verification.
type UserAccount struct {
	ID          string    `db:"id"`           // opaque subject id (uuid)
	PhoneNumber string    `db:"phone_number"` // unique
	CreatedAt   time.Time `db:"created_at"`
	LastLogin   time.Time `db:"last_login"`
}

// PublicUser is the version returned to clients
type PublicUser struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
	LastLogin   time.Time `json:"last_login"`
}

// ToPublic converts UserAccount to PublicUser
func (u *UserAccount) ToPublic() *PublicUser {
	return &PublicUser{
		ID:          u.ID,
		PhoneNumber: u.PhoneNumber,
		CreatedAt:   u.CreatedAt,
		LastLogin:   u.LastLogin,
	}
}
