package model

import (
	"time"

	"github.com/google/uuid"
)

// Owner represents a registered account holder. Each owner runs at most
// one site. Owner records are read-only to the gating engine; the
// registration and profile flows live elsewhere.
type Owner struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	Name          string    `json:"name" db:"name"`
	Phone         *string   `json:"phone" db:"phone"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	PhoneVerified bool      `json:"phone_verified" db:"phone_verified"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Verified reports whether both contact channels have been confirmed.
func (o *Owner) Verified() bool {
	return o.EmailVerified && o.PhoneVerified
}
