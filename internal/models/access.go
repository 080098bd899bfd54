package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AllowedUser is an email granted access to the roster.
type AllowedUser struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Email       string     `db:"email" json:"email"`
	InvitedBy   string     `db:"invited_by" json:"invited_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// SessionClaims are carried by session tokens.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Session is returned when a session starts.
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
