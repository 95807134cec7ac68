package models

import "time"

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	PIN      string `json:"pin" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

type ChangePINRequest struct {
	CurrentPIN string `json:"current_pin" validate:"required"`
	NewPIN     string `json:"new_pin" validate:"required"`
}

type SetPINRequest struct {
	PIN string `json:"pin" validate:"required"`
}

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
}
