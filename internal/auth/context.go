package auth

import (
	"context"

	"github.com/wolfeidau/clubhub/internal/models"
)

type contextKey int

const (
	actorContextKey contextKey = iota
	sessionContextKey
	tokenContextKey
)

// WithActor returns a context carrying the authenticated actor.
func WithActor(ctx context.Context, actor *models.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext extracts the authenticated actor from the request context.
// Returns nil if no actor is present (anonymous request).
func ActorFromContext(ctx context.Context) *models.Actor {
	actor, _ := ctx.Value(actorContextKey).(*models.Actor)
	return actor
}

// WithSession returns a context carrying the validated session and the raw token it was
// validated from.
func WithSession(ctx context.Context, session *models.Session, token string) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, session)
	return context.WithValue(ctx, tokenContextKey, token)
}

// SessionFromContext extracts the validated session from the request context.
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*models.Session)
	return session, ok && session != nil
}

// TokenFromContext returns the raw token the current session was validated from.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok && token != ""
}
