package models

import "fmt"

// AccessLevel is the visibility declared on a club-owned record.
type AccessLevel string

const (
	AccessPublic  AccessLevel = "public"
	AccessMembers AccessLevel = "members"
	AccessLeaders AccessLevel = "leaders"
)

// ParseAccessLevel converts a stored access level string into an AccessLevel.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch l := AccessLevel(s); l {
	case AccessPublic, AccessMembers, AccessLeaders:
		return l, nil
	}
	return "", fmt.Errorf("unknown access level %q", s)
}

// Resource describes the target of a read or write. Callers build it from the record they
// already fetched; it is never persisted by this module.
type Resource struct {
	AccessLevel AccessLevel
	OwnerClubID string // empty when the record is not scoped to a club
}
