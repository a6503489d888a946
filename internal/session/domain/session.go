package domain

import "time"

// Session represents an authenticated session. TenantID is the active tenant
// chosen at login; empty for users with no membership yet (onboarding) and
// for platform operators acting outside any tenant.
type Session struct {
	ID               string
	UserID           string
	TenantID         string
	ExpiresAt        time.Time
	RevokedAt        *time.Time // nil when not revoked
	LastSeenAt       *time.Time
	RefreshJti       string // current refresh token jti for rotation binding
	RefreshTokenHash string // SHA-256 hash of current refresh token
	CreatedAt        time.Time
}
