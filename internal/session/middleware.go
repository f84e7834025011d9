package session

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/clubhub/internal/auth"
)

// Validator is satisfied by *Manager.
type Validator interface {
	Validate(ctx context.Context, token string) (Result, error)
}

// Middleware authenticates each request from its session cookie or bearer token.
//
// A valid session puts the actor and session in the request context and, for cookie
// clients, re-sets the cookie so its expiry follows any renewal. An invalid token clears
// the cookie and continues anonymously. A store failure stops the request with 503 since
// the caller's identity is unknown.
func Middleware(validator Validator, cookies CookieConfig) func(http.Handler) http.Handler {
	cookies.ApplyDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := cookies.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()

			res, err := validator.Validate(ctx, token)
			if err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("Session validation failed")
				http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
				return
			}

			if !res.Authenticated() {
				if fromCookie {
					cookies.ClearCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			if fromCookie {
				cookies.SetCookie(w, token, res.Session.ExpiresAt)
			}

			ctx = auth.WithActor(ctx, res.Actor)
			ctx = auth.WithSession(ctx, res.Session, token)
			ctx = zerolog.Ctx(ctx).With().Str("user_id", res.Actor.ID).Logger().WithContext(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActor rejects anonymous requests with 401.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.ActorFromContext(r.Context()) == nil {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
