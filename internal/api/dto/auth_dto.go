package dto

import (
	"time"

	"github.com/spec-kit/credit-ledger/internal/domain"
)

// SignupRequest payload for new accounts.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for the password step.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PinVerifyRequest payload for the PIN step. Token is the pin_pending token.
type PinVerifyRequest struct {
	Token string `json:"token"`
	Pin   string `json:"pin"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResponse tells the client whether a PIN is still needed.
type LoginResponse struct {
	Stage    string                 `json:"stage"`
	Auth     AuthResponse           `json:"auth"`
	Identity *domain.PublicIdentity `json:"identity,omitempty"`
}
