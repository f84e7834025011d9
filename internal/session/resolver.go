package session

import (
	"context"
	"fmt"

	"github.com/wolfeidau/clubhub/internal/models"
	"github.com/wolfeidau/clubhub/internal/store"
)

// ActorResolver joins a session's user ID to the identity used for authorization.
// Implementations return store.ErrUserNotFound when the user no longer exists.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID string) (*models.Actor, error)
}

// UserStoreResolver resolves actors from a store.UserStore.
type UserStoreResolver struct {
	users store.UserStore
}

// NewUserStoreResolver creates a resolver reading from users.
func NewUserStoreResolver(users store.UserStore) *UserStoreResolver {
	return &UserStoreResolver{users: users}
}

// ResolveActor loads the user and projects it to an actor. A stored role outside the
// known set is reported as an error rather than silently downgraded.
func (r *UserStoreResolver) ResolveActor(ctx context.Context, userID string) (*models.Actor, error) {
	user, err := r.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.Role.Valid() {
		return nil, fmt.Errorf("user %s has unknown role %q", user.ID, user.Role)
	}

	return user.Actor(), nil
}
