package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/clubhub/internal/auth"
	httpmiddleware "github.com/wolfeidau/clubhub/internal/http"
)

type sessionResponse struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	ClubID    string    `json:"club_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type logoutAllResponse struct {
	Revoked int `json:"revoked"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())

	resp := sessionResponse{
		UserID: actor.ID,
		Role:   string(actor.Role),
		ClubID: actor.ClubID,
	}
	if sess, ok := auth.SessionFromContext(r.Context()); ok {
		resp.ExpiresAt = sess.ExpiresAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// logout ends the current session. It succeeds for anonymous callers too so a client
// with a stale cookie can always clear it.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if sess, ok := auth.SessionFromContext(ctx); ok {
		if err := s.sessions.Invalidate(ctx, sess.SessionID); err != nil {
			writeSessionError(ctx, w, err)
			return
		}

		zerolog.Ctx(ctx).Info().
			Str("user_id", sess.UserID).
			Str("client_ip", httpmiddleware.ClientIPFromContext(ctx)).
			Msg("Logged out")
	}

	s.cookies.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := auth.ActorFromContext(ctx)

	count, err := s.sessions.InvalidateUser(ctx, actor.ID)
	if err != nil {
		writeSessionError(ctx, w, err)
		return
	}

	s.cookies.ClearCookie(w)
	writeJSON(w, http.StatusOK, logoutAllResponse{Revoked: count})
}
