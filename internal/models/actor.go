package models

import "fmt"

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleClubLeader Role = "club_leader"
	RoleAdvisor    Role = "advisor"
	RoleMember     Role = "member"
)

// Valid returns true for the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleClubLeader, RoleAdvisor, RoleMember:
		return true
	}
	return false
}

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Actor is the authenticated identity an authorization decision is made for.
// A nil *Actor means anonymous.
type Actor struct {
	ID     string
	Role   Role
	ClubID string // empty when the user is not affiliated with a club
}

// HasClub returns true if the actor belongs to a club.
func (a *Actor) HasClub() bool {
	return a != nil && a.ClubID != ""
}
