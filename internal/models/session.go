package models

import (
	"time"
)

// Session represents a user's authenticated session.
// The raw token lives only in the client's cookie; SessionID is the hex SHA-256 of that token
// and is the only value persisted.
type Session struct {
	SessionID string // hex(sha256(token))
	UserID    string // Who is logged in
	ExpiresAt time.Time

	CreatedAt time.Time

	// Optional audit metadata
	UserAgent string
	IPAddress string
}

// IsExpiredAt returns true once now has reached ExpiresAt.
func (s *Session) IsExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// InRenewalWindow reports whether the session is close enough to expiry that its lifetime
// should be extended.
func (s *Session) InRenewalWindow(now time.Time, window time.Duration) bool {
	return !now.Before(s.ExpiresAt.Add(-window))
}
