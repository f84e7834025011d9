package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/clubhub/internal/auth"
	"github.com/wolfeidau/clubhub/internal/models"
	"github.com/wolfeidau/clubhub/internal/store"
	"github.com/wolfeidau/clubhub/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultAbsoluteTTL   = 30 * 24 * time.Hour
	DefaultRenewalWindow = 15 * 24 * time.Hour
)

// Config holds the session lifetime policy.
type Config struct {
	// AbsoluteTTL is the lifetime given to a session when it is issued or renewed.
	// Default: 30 days
	AbsoluteTTL time.Duration

	// RenewalWindow is how close to expiry a session must be before validation extends it.
	// Default: 15 days
	RenewalWindow time.Duration

	// Now returns the current time. Default: time.Now
	Now func() time.Time
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.AbsoluteTTL == 0 {
		c.AbsoluteTTL = DefaultAbsoluteTTL
	}
	if c.RenewalWindow == 0 {
		c.RenewalWindow = DefaultRenewalWindow
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.AbsoluteTTL <= 0 {
		return fmt.Errorf("session TTL must be greater than 0")
	}
	if c.RenewalWindow <= 0 || c.RenewalWindow >= c.AbsoluteTTL {
		return fmt.Errorf("renewal window must be between 0 and the session TTL")
	}
	return nil
}

// Result is the outcome of validating a token. A zero Result means not authenticated,
// which is a normal outcome rather than an error.
type Result struct {
	Session *models.Session
	Actor   *models.Actor
	Renewed bool
}

// Authenticated returns true if the token resolved to a live session and user.
func (r Result) Authenticated() bool {
	return r.Session != nil && r.Actor != nil
}

// IssueOption sets optional audit metadata on a new session.
type IssueOption func(*models.Session)

// WithUserAgent records the client's user agent on the session.
func WithUserAgent(userAgent string) IssueOption {
	return func(s *models.Session) { s.UserAgent = userAgent }
}

// WithIPAddress records the client's IP address on the session.
func WithIPAddress(ip string) IssueOption {
	return func(s *models.Session) { s.IPAddress = ip }
}

// Manager owns the session state machine: issue, validate with sliding renewal,
// expiry purge and invalidation. It holds no state of its own beyond its collaborators,
// so one Manager is shared by all requests.
type Manager struct {
	sessions store.SessionStore
	actors   ActorResolver
	cfg      Config
	metrics  *telemetry.Metrics
}

// NewManager creates a session manager. cfg may be nil to use the defaults.
func NewManager(sessions store.SessionStore, actors ActorResolver, cfg *Config) (*Manager, error) {
	if sessions == nil || actors == nil {
		return nil, fmt.Errorf("session store and actor resolver are required")
	}

	var c Config
	if cfg != nil {
		c = *cfg
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	return &Manager{
		sessions: sessions,
		actors:   actors,
		cfg:      c,
		metrics:  telemetry.GetMetrics(),
	}, nil
}

// Issue creates a session for userID and returns the raw token. The token is not
// retrievable again; only its digest is stored.
func (m *Manager) Issue(ctx context.Context, userID string, opts ...IssueOption) (string, *models.Session, error) {
	if userID == "" {
		return "", nil, fmt.Errorf("user ID is required")
	}

	token, err := auth.GenerateToken()
	if err != nil {
		return "", nil, err
	}

	now := m.cfg.Now()
	session := &models.Session{
		SessionID: auth.DeriveSessionID(token),
		UserID:    userID,
		ExpiresAt: now.Add(m.cfg.AbsoluteTTL),
		CreatedAt: now,
	}
	for _, opt := range opts {
		opt(session)
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return "", nil, m.fail(ctx, "create", err)
	}

	m.metrics.SessionsIssuedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Debug().
		Str("session_id", shortID(session.SessionID)).
		Str("user_id", userID).
		Time("expires_at", session.ExpiresAt).
		Msg("Issued session")

	return token, session, nil
}

// Validate resolves a token to its session and actor.
//
// Missing, expired and orphaned sessions yield a zero Result and a nil error; expired and
// orphaned records are deleted on the way out. A session inside the renewal window has its
// expiry moved to now+AbsoluteTTL. Any store failure, including a canceled ctx, is returned
// as *StorageError.
func (m *Manager) Validate(ctx context.Context, token string) (Result, error) {
	started := time.Now()
	defer func() {
		m.metrics.SessionValidateDuration.Record(ctx, float64(time.Since(started).Microseconds())/1000.0)
	}()

	if token == "" {
		m.recordOutcome(ctx, "missing")
		return Result{}, nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, m.fail(ctx, "validate", err)
	}

	sessionID := auth.DeriveSessionID(token)
	logger := zerolog.Ctx(ctx).With().Str("session_id", shortID(sessionID)).Logger()

	session, err := m.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		m.recordOutcome(ctx, "missing")
		return Result{}, nil
	}
	if err != nil {
		return Result{}, m.fail(ctx, "get", err)
	}

	now := m.cfg.Now()

	if session.IsExpiredAt(now) {
		if err := m.sessions.Delete(ctx, sessionID); err != nil {
			return Result{}, m.fail(ctx, "delete", err)
		}
		m.metrics.SessionsExpiredTotal.Add(ctx, 1)
		m.recordOutcome(ctx, "expired")
		logger.Debug().Time("expired_at", session.ExpiresAt).Msg("Purged expired session")
		return Result{}, nil
	}

	actor, err := m.actors.ResolveActor(ctx, session.UserID)
	if errors.Is(err, store.ErrUserNotFound) {
		if err := m.sessions.Delete(ctx, sessionID); err != nil {
			return Result{}, m.fail(ctx, "delete", err)
		}
		m.recordOutcome(ctx, "orphaned")
		logger.Warn().Str("user_id", session.UserID).Msg("Purged session for missing user")
		return Result{}, nil
	}
	if err != nil {
		return Result{}, m.fail(ctx, "resolve", err)
	}

	renewed := false
	if session.InRenewalWindow(now, m.cfg.RenewalWindow) {
		expiresAt := now.Add(m.cfg.AbsoluteTTL)

		err := m.sessions.UpdateExpiry(ctx, sessionID, expiresAt)
		if errors.Is(err, store.ErrSessionNotFound) {
			// invalidated between read and write
			m.recordOutcome(ctx, "missing")
			return Result{}, nil
		}
		if err != nil {
			return Result{}, m.fail(ctx, "update_expiry", err)
		}

		session.ExpiresAt = expiresAt
		renewed = true
		m.metrics.SessionsRenewedTotal.Add(ctx, 1)
		logger.Debug().Time("expires_at", expiresAt).Msg("Renewed session")
	}

	if renewed {
		m.recordOutcome(ctx, "renewed")
	} else {
		m.recordOutcome(ctx, "authenticated")
	}

	return Result{Session: session, Actor: actor, Renewed: renewed}, nil
}

// Invalidate removes a session by ID. Invalidating an unknown session is not an error.
func (m *Manager) Invalidate(ctx context.Context, sessionID string) error {
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		return m.fail(ctx, "delete", err)
	}

	m.metrics.SessionsInvalidatedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Debug().Str("session_id", shortID(sessionID)).Msg("Invalidated session")
	return nil
}

// InvalidateToken removes the session a raw token refers to.
func (m *Manager) InvalidateToken(ctx context.Context, token string) error {
	return m.Invalidate(ctx, auth.DeriveSessionID(token))
}

// InvalidateUser removes every session belonging to userID and returns how many were removed.
func (m *Manager) InvalidateUser(ctx context.Context, userID string) (int, error) {
	count, err := m.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, m.fail(ctx, "delete_by_user", err)
	}

	m.metrics.SessionsInvalidatedTotal.Add(ctx, int64(count))

	zerolog.Ctx(ctx).Info().Str("user_id", userID).Int("count", count).Msg("Invalidated all sessions for user")
	return count, nil
}

// PurgeExpired deletes every expired session. Validate already purges expired sessions it
// encounters; this sweeps the ones that are never presented again.
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	count, err := m.sessions.DeleteExpired(ctx, m.cfg.Now())
	if err != nil {
		return 0, m.fail(ctx, "delete_expired", err)
	}

	m.metrics.SessionsExpiredTotal.Add(ctx, int64(count))
	return count, nil
}

func (m *Manager) fail(ctx context.Context, op string, err error) error {
	m.metrics.StorageErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	m.recordOutcome(ctx, "error")

	zerolog.Ctx(ctx).Error().Err(err).Str("op", op).Msg("Session store failure")
	return storageError(op, err)
}

func (m *Manager) recordOutcome(ctx context.Context, outcome string) {
	m.metrics.SessionsValidatedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// shortID truncates a session ID for logging.
func shortID(sessionID string) string {
	if len(sessionID) <= 8 {
		return sessionID
	}
	return sessionID[:8]
}
