package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wolfeidau/clubhub/internal/models"
	"github.com/wolfeidau/clubhub/internal/store"
)

var _ store.SessionStore = (*SessionStore)(nil)

// SessionStore implements store.SessionStore using in-memory storage.
// This implementation is for testing and development only - data is lost on restart.
type SessionStore struct {
	mu sync.RWMutex

	sessions       map[string]*models.Session // session_id -> Session
	sessionsByUser map[string][]string        // user_id -> []session_id
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:       make(map[string]*models.Session),
		sessionsByUser: make(map[string][]string),
	}
}

// Create creates a new session in memory.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.SessionID]; exists {
		return store.ErrSessionAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *session
	s.sessions[session.SessionID] = &clone

	s.sessionsByUser[session.UserID] = append(s.sessionsByUser[session.UserID], session.SessionID)

	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, store.ErrSessionNotFound
	}

	clone := *session
	return &clone, nil
}

// UpdateExpiry sets a new expiry on an existing session.
func (s *SessionStore) UpdateExpiry(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return store.ErrSessionNotFound
	}

	session.ExpiresAt = expiresAt
	return nil
}

// Delete deletes a session by ID (logout).
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil
	}

	s.removeFromUserIndex(session.UserID, sessionID)
	delete(s.sessions, sessionID)

	return nil
}

// DeleteByUser deletes all sessions for a user (logout everywhere).
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessionIDs, exists := s.sessionsByUser[userID]
	if !exists {
		return 0, nil
	}

	for _, sessionID := range sessionIDs {
		delete(s.sessions, sessionID)
	}
	delete(s.sessionsByUser, userID)

	return len(sessionIDs), nil
}

// DeleteExpired deletes all sessions that are expired as of now.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var toDelete []string
	for id, session := range s.sessions {
		if session.IsExpiredAt(now) {
			toDelete = append(toDelete, id)
		}
	}

	for _, sessionID := range toDelete {
		session := s.sessions[sessionID]
		s.removeFromUserIndex(session.UserID, sessionID)
		delete(s.sessions, sessionID)
	}

	return len(toDelete), nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// removeFromUserIndex removes a session ID from the user's session list.
func (s *SessionStore) removeFromUserIndex(userID, sessionID string) {
	sessionIDs := s.sessionsByUser[userID]
	for i, id := range sessionIDs {
		if id == sessionID {
			s.sessionsByUser[userID] = append(sessionIDs[:i], sessionIDs[i+1:]...)
			break
		}
	}
	if len(s.sessionsByUser[userID]) == 0 {
		delete(s.sessionsByUser, userID)
	}
}
