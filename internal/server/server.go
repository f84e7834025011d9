package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/clubhub/internal/session"
	"github.com/wolfeidau/clubhub/internal/telemetry"
)

// Sessions is the part of *session.Manager the HTTP API uses.
type Sessions interface {
	session.Validator
	Invalidate(ctx context.Context, sessionID string) error
	InvalidateUser(ctx context.Context, userID string) (int, error)
}

// Server exposes the session and authorization API over HTTP.
type Server struct {
	sessions Sessions
	cookies  session.CookieConfig
	metrics  *telemetry.Metrics
}

// NewServer creates a new server backed by sessions.
func NewServer(sessions Sessions, cookies session.CookieConfig) *Server {
	cookies.ApplyDefaults()

	return &Server{
		sessions: sessions,
		cookies:  cookies,
		metrics:  telemetry.GetMetrics(),
	}
}

// Handler returns the HTTP handler for the server. Every route except the health check
// runs behind the session middleware.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()

	api.Handle("GET /auth/session", session.RequireActor(http.HandlerFunc(s.getSession)))
	api.HandleFunc("POST /auth/logout", s.logout)
	api.Handle("POST /auth/logout-all", session.RequireActor(http.HandlerFunc(s.logoutAll)))
	api.HandleFunc("POST /authz/check", s.checkAccess)
	api.Handle("GET /clubs/{clubID}/manage", session.RequireActor(http.HandlerFunc(s.manageClub)))

	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("/", session.Middleware(s.sessions, s.cookies)(api))

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeSessionError maps a session manager failure to a response. Storage failures are
// 503 so clients retry rather than treat the caller as logged out.
func writeSessionError(ctx context.Context, w http.ResponseWriter, err error) {
	var storageErr *session.StorageError
	if errors.As(err, &storageErr) {
		zerolog.Ctx(ctx).Error().Err(err).Str("op", storageErr.Op).Msg("Session store unavailable")
		writeError(w, http.StatusServiceUnavailable, "session store unavailable")
		return
	}

	zerolog.Ctx(ctx).Error().Err(err).Msg("Session operation failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}
