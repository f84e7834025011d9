package auth

import (
	"context"
	"errors"

	"github.com/wolfeidau/clubhub/internal/models"
)

var (
	// ErrUnauthenticated is returned when a decision needs an actor and there is none.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrAccessDenied is returned when the actor may not perform the action.
	ErrAccessDenied = errors.New("access denied")
)

// Rule names the policy rule that produced a decision.
type Rule string

const (
	RulePublic          Rule = "public"
	RuleAnonymous       Rule = "anonymous"
	RuleAdmin           Rule = "admin"
	RuleLeaders         Rule = "leaders"
	RuleMembersUnscoped Rule = "members_unscoped"
	RuleMembersClub     Rule = "members_club"
	RuleDefaultDeny     Rule = "default_deny"
)

// Decision is the outcome of evaluating an actor against a resource.
type Decision struct {
	Allowed bool
	Rule    Rule
}

// Evaluate decides whether actor may access res. A nil actor is anonymous.
// Rules are checked in order and the first match wins; anything unmatched is denied.
// Evaluate does no I/O: callers supply an already authenticated actor and the descriptor
// of the record they fetched.
func Evaluate(actor *models.Actor, res models.Resource) Decision {
	if res.AccessLevel == models.AccessPublic {
		return Decision{Allowed: true, Rule: RulePublic}
	}

	if actor == nil {
		return Decision{Allowed: false, Rule: RuleAnonymous}
	}

	if actor.Role == models.RoleAdmin {
		return Decision{Allowed: true, Rule: RuleAdmin}
	}

	switch res.AccessLevel {
	case models.AccessLeaders:
		// leader-level records are not checked against the owning club
		return Decision{Allowed: actor.Role == models.RoleClubLeader, Rule: RuleLeaders}

	case models.AccessMembers:
		if !actor.Role.Valid() {
			break
		}
		if res.OwnerClubID == "" {
			return Decision{Allowed: true, Rule: RuleMembersUnscoped}
		}
		return Decision{Allowed: actor.HasClub() && actor.ClubID == res.OwnerClubID, Rule: RuleMembersClub}
	}

	return Decision{Allowed: false, Rule: RuleDefaultDeny}
}

// CanAccess reports whether actor may read or write a record described by res.
func CanAccess(actor *models.Actor, res models.Resource) bool {
	return Evaluate(actor, res).Allowed
}

// CanManageClub reports whether actor may mutate the club itself: admins always,
// club leaders only for their own club.
func CanManageClub(actor *models.Actor, clubID string) bool {
	if IsAdmin(actor) {
		return true
	}
	return IsClubLeader(actor) && clubID != "" && actor.ClubID == clubID
}

// Authorize is CanAccess in error form for callers that propagate denials.
func Authorize(actor *models.Actor, res models.Resource) error {
	d := Evaluate(actor, res)
	switch {
	case d.Allowed:
		return nil
	case actor == nil:
		return ErrUnauthenticated
	default:
		return ErrAccessDenied
	}
}

// RequireAccess authorizes the actor stored in ctx against res.
func RequireAccess(ctx context.Context, res models.Resource) error {
	return Authorize(ActorFromContext(ctx), res)
}

// FilterAccessible keeps the items the actor may access. describe maps each item to its
// resource descriptor.
func FilterAccessible[T any](actor *models.Actor, items []T, describe func(T) models.Resource) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if CanAccess(actor, describe(item)) {
			out = append(out, item)
		}
	}
	return out
}

func IsAdmin(actor *models.Actor) bool {
	return actor != nil && actor.Role == models.RoleAdmin
}

func IsClubLeader(actor *models.Actor) bool {
	return actor != nil && actor.Role == models.RoleClubLeader
}

func IsAdvisor(actor *models.Actor) bool {
	return actor != nil && actor.Role == models.RoleAdvisor
}

func IsMember(actor *models.Actor) bool {
	return actor != nil && actor.Role == models.RoleMember
}

// IsClubMember reports whether the actor is affiliated with clubID, whatever their role.
func IsClubMember(actor *models.Actor, clubID string) bool {
	return actor.HasClub() && actor.ClubID == clubID
}
