package domain

import (
	"errors"
	"time"
)

var (
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrLinkNotFound       = errors.New("magic link not found")
	ErrLinkInvalid        = errors.New("magic link is invalid or expired")
	ErrUnauthorized       = errors.New("unauthorized")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type MagicLink struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsValid reports whether the link can still be redeemed at t.
// A link dies the moment it is used, regardless of expiry.
func (m *MagicLink) IsValid(t time.Time) bool {
	return m.UsedAt == nil && t.Before(m.ExpiresAt)
}
