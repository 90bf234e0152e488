package model

import (
	"github.com/google/uuid"
)

// Site is one hosted tenant, reachable at its slug. The slug is globally
// unique and immutable after creation; OwnerID is 1:1 with Owner.
type Site struct {
	Base
	OwnerID  uuid.UUID `json:"owner_id" db:"owner_id"`
	Slug     string    `json:"slug" db:"slug"`
	Name     string    `json:"name" db:"name"`
	IsActive bool      `json:"is_active" db:"is_active"`
}
