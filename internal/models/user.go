package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Roles known to the permission table.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
	RoleWaiter  = "waiter"
	RoleKitchen = "kitchen"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID        string    `bun:"id,pk" json:"id"`
	Username  string    `bun:"username,notnull" json:"username"`
	FullName  string    `bun:"full_name,notnull" json:"full_name"`
	Role      string    `bun:"role,notnull" json:"role"`
	PinHash   string    `bun:"pin_hash,notnull" json:"-"`
	IsActive  bool      `bun:"is_active,notnull" json:"is_active"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type Session struct {
	bun.BaseModel `bun:"table:sessions"`

	ID        string     `bun:"id,pk" json:"id"`
	UserID    string     `bun:"user_id,notnull" json:"user_id"`
	CreatedAt time.Time  `bun:"created_at,notnull" json:"created_at"`
	ExpiresAt time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	RevokedAt *time.Time `bun:"revoked_at" json:"revoked_at,omitempty"`
	UserAgent string     `bun:"user_agent" json:"user_agent,omitempty"`
	IP        string     `bun:"ip" json:"ip,omitempty"`
}

// Active reports whether the session can still authenticate requests.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
