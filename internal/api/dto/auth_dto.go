package dto

import (
	"time"

	"github.com/operacoes-b2b/chamado-service/internal/domain"
)

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries the refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is returned by login and refresh.
type LoginResponse struct {
	User         domain.Profile `json:"user"`
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresAt    time.Time      `json:"expiresAt"`
}

// ValidateResponse is returned by token validation.
type ValidateResponse struct {
	Valid bool           `json:"valid"`
	User  domain.Profile `json:"user"`
}
