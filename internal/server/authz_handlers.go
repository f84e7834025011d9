package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/clubhub/internal/auth"
	"github.com/wolfeidau/clubhub/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const ruleManageClub = "manage_club"

type checkRequest struct {
	AccessLevel string `json:"access_level"`
	OwnerClubID string `json:"owner_club_id"`
}

type checkResponse struct {
	Allowed bool   `json:"allowed"`
	Rule    string `json:"rule"`
}

// checkAccess evaluates the caller against a resource descriptor. An unknown access level
// is not a bad request; it is evaluated and denied like any other unmatched resource.
func (s *Server) checkAccess(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	actor := auth.ActorFromContext(ctx)

	decision := auth.Evaluate(actor, models.Resource{
		AccessLevel: models.AccessLevel(req.AccessLevel),
		OwnerClubID: req.OwnerClubID,
	})

	s.recordDecision(r, decision.Allowed, string(decision.Rule))

	writeJSON(w, http.StatusOK, checkResponse{Allowed: decision.Allowed, Rule: string(decision.Rule)})
}

func (s *Server) manageClub(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	clubID := r.PathValue("clubID")

	allowed := auth.CanManageClub(actor, clubID)
	s.recordDecision(r, allowed, ruleManageClub)

	if !allowed {
		writeError(w, http.StatusForbidden, auth.ErrAccessDenied.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordDecision(r *http.Request, allowed bool, rule string) {
	ctx := r.Context()

	s.metrics.AuthzDecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("allowed", allowed),
		attribute.String("rule", rule),
	))

	zerolog.Ctx(ctx).Debug().
		Bool("allowed", allowed).
		Str("rule", rule).
		Str("path", r.URL.Path).
		Msg("Authorization decision")
}
