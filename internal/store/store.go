package store

import (
	"context"
	"errors"
	"time"

	"github.com/wolfeidau/clubhub/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
)

// SessionStore persists session records keyed by their derived session ID.
// Implementations must be safe for concurrent use and must honour ctx cancellation.
type SessionStore interface {
	// Create inserts a new session.
	// Returns ErrSessionAlreadyExists if a session with the same ID exists.
	Create(ctx context.Context, session *models.Session) error

	// Get retrieves a session by ID, expired or not.
	// Returns ErrSessionNotFound if the session doesn't exist.
	Get(ctx context.Context, sessionID string) (*models.Session, error)

	// UpdateExpiry moves the expiry of an existing session.
	// Returns ErrSessionNotFound if the session doesn't exist.
	UpdateExpiry(ctx context.Context, sessionID string, expiresAt time.Time) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// DeleteByUser removes every session belonging to a user (logout everywhere).
	DeleteByUser(ctx context.Context, userID string) (int, error)

	// DeleteExpired removes sessions with expires_at <= now.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// UserStore is the identity store sessions resolve against.
type UserStore interface {
	// Get retrieves a user by ID.
	// Returns ErrUserNotFound if the user doesn't exist.
	Get(ctx context.Context, userID string) (*models.User, error)

	// Create creates a new user.
	// Returns ErrUserAlreadyExists if the ID or username is taken.
	Create(ctx context.Context, user *models.User) error

	// Update replaces the mutable fields of an existing user.
	// Returns ErrUserNotFound if the user doesn't exist.
	Update(ctx context.Context, user *models.User) error
}
