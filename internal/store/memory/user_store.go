package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wolfeidau/clubhub/internal/models"
	"github.com/wolfeidau/clubhub/internal/store"
)

var _ store.UserStore = (*UserStore)(nil)

// UserStore implements store.UserStore using in-memory storage.
// This implementation is for testing and development only - data is lost on restart.
type UserStore struct {
	mu sync.RWMutex

	users           map[string]*models.User // user_id -> User
	usersByUsername map[string]string       // username -> user_id
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:           make(map[string]*models.User),
		usersByUsername: make(map[string]string),
	}
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	clone := *user
	return &clone, nil
}

// Create creates a new user in memory.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return store.ErrUserAlreadyExists
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrUserAlreadyExists
	}

	clone := *user
	s.users[user.ID] = &clone
	s.usersByUsername[user.Username] = user.ID

	return nil
}

// Update updates an existing user.
func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.users[user.ID]
	if !exists {
		return store.ErrUserNotFound
	}

	if existing.Username != user.Username {
		if _, taken := s.usersByUsername[user.Username]; taken {
			return store.ErrUserAlreadyExists
		}
		delete(s.usersByUsername, existing.Username)
		s.usersByUsername[user.Username] = user.ID
	}

	clone := *user
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now()
	s.users[user.ID] = &clone

	return nil
}
