package models

import (
	"time"
)

// User is the identity record sessions point at. It is owned by the user store.
type User struct {
	ID       string
	Username string
	Email    string
	Role     Role
	ClubID   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Actor projects the fields authorization needs.
func (u *User) Actor() *Actor {
	return &Actor{
		ID:     u.ID,
		Role:   u.Role,
		ClubID: u.ClubID,
	}
}
