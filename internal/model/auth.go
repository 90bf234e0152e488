package model

import (
	"github.com/google/uuid"
)

// LoginRequest is the credential payload for the admin login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

// Identity is the authenticated principal returned on success. It never
// carries the password hash.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// TokenResponse wraps the session token handed back after login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	Identity    *Identity `json:"identity"`
}
