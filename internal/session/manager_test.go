package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/clubhub/internal/auth"
	"github.com/wolfeidau/clubhub/internal/models"
	"github.com/wolfeidau/clubhub/internal/store"
	"github.com/wolfeidau/clubhub/internal/store/memory"
)

const day = 24 * time.Hour

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	manager  *Manager
	sessions *memory.SessionStore
	users    *memory.UserStore
	clock    *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	sessions := memory.NewSessionStore()
	users := memory.NewUserStore()

	require.NoError(t, users.Create(context.Background(), &models.User{
		ID:       "user-1",
		Username: "alice",
		Role:     models.RoleMember,
		ClubID:   "club-a",
	}))

	manager, err := NewManager(sessions, NewUserStoreResolver(users), &Config{Now: clock.Now})
	require.NoError(t, err)

	return &fixture{manager: manager, sessions: sessions, users: users, clock: clock}
}

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (f *failingStore) Create(context.Context, *models.Session) error { return f.err }
func (f *failingStore) Get(context.Context, string) (*models.Session, error) {
	return nil, f.err
}
func (f *failingStore) UpdateExpiry(context.Context, string, time.Time) error { return f.err }
func (f *failingStore) Delete(context.Context, string) error                  { return f.err }
func (f *failingStore) DeleteByUser(context.Context, string) (int, error)     { return 0, f.err }
func (f *failingStore) DeleteExpired(context.Context, time.Time) (int, error) { return 0, f.err }

// racingStore deletes the session just before the renewal write lands.
type racingStore struct {
	*memory.SessionStore
}

func (r *racingStore) UpdateExpiry(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if err := r.SessionStore.Delete(ctx, sessionID); err != nil {
		return err
	}
	return r.SessionStore.UpdateExpiry(ctx, sessionID, expiresAt)
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	require.Equal(t, 30*day, cfg.AbsoluteTTL)
	require.Equal(t, 15*day, cfg.RenewalWindow)
	require.NotNil(t, cfg.Now)
	require.NoError(t, cfg.Validate())

	cfg.RenewalWindow = cfg.AbsoluteTTL
	require.Error(t, cfg.Validate())

	_, err := NewManager(memory.NewSessionStore(), nil, nil)
	require.Error(t, err)
}

func TestManager_Issue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, session, err := f.manager.Issue(ctx, "user-1", WithUserAgent("curl/8.0"), WithIPAddress("10.0.0.1"))
	require.NoError(t, err)
	require.Len(t, token, 24)
	require.Equal(t, auth.DeriveSessionID(token), session.SessionID)
	require.Equal(t, "user-1", session.UserID)
	require.Equal(t, f.clock.Now().Add(30*day), session.ExpiresAt)
	require.Equal(t, "curl/8.0", session.UserAgent)
	require.Equal(t, "10.0.0.1", session.IPAddress)

	stored, err := f.sessions.Get(ctx, session.SessionID)
	require.NoError(t, err)
	require.Equal(t, session.ExpiresAt, stored.ExpiresAt)

	t.Run("token is never stored", func(t *testing.T) {
		_, err := f.sessions.Get(ctx, token)
		require.ErrorIs(t, err, store.ErrSessionNotFound)
	})

	t.Run("empty user rejected", func(t *testing.T) {
		_, _, err := f.manager.Issue(ctx, "")
		require.Error(t, err)
	})

	t.Run("each issue is a distinct session", func(t *testing.T) {
		other, _, err := f.manager.Issue(ctx, "user-1")
		require.NoError(t, err)
		require.NotEqual(t, token, other)
	})
}

func TestManager_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh session is valid and not renewed", func(t *testing.T) {
		f := newFixture(t)
		token, issued, err := f.manager.Issue(ctx, "user-1")
		require.NoError(t, err)

		res, err := f.manager.Validate(ctx, token)
		require.NoError(t, err)
		require.True(t, res.Authenticated())
		require.False(t, res.Renewed)
		require.Equal(t, issued.ExpiresAt, res.Session.ExpiresAt)
		require.Equal(t, &models.Actor{ID: "user-1", Role: models.RoleMember, ClubID: "club-a"}, res.Actor)
	})

	t.Run("outside renewal window is unchanged", func(t *testing.T) {
		f := newFixture(t)
		token, issued, err := f.manager.Issue(ctx, "user-1")
		require.NoError(t, err)

		// 29 days remain
		f.clock.Advance(1 * day)

		res, err := f.manager.Validate(ctx, token)
		require.NoError(t, err)
		require.True(t, res.Authenticated())
		require.False(t, res.Renewed)
		require.Equal(t, issued.ExpiresAt, res.Session.ExpiresAt)
	})

	t.Run("inside renewal window is renewed", func(t *testing.T) {
		f := newFixture(t)
		token, _, err := f.manager.Issue(ctx, "user-1")
		require.NoError(t, err)

		// 20 days elapsed leaves 10 days
		f.clock.Advance(20 * day)
		now := f.clock.Now()

		res, err := f.manager.Validate(ctx, token)
		require.NoError(t, err)
		require.True(t, res.Authenticated())
		require.True(t, res.Renewed)
		require.Equal(t, now.Add(30*day), res.Session.ExpiresAt)

		stored, err := f.sessions.Get(ctx, auth.DeriveSessionID(token))
		require.NoError(t, err)
		require.Equal(t, now.Add(30*day), stored.ExpiresAt)
	})

	t.Run("renewal window boundary is inclusive", func(t *testing.T) {
		f := newFixture(t)
		token, _, err := f.manager.Issue(ctx, "user-1")
		require.NoError(t, err)

		f.clock.Advance(15*day - time.Second)
		res, err := f.manager.Validate(ctx, token)
		require.NoError(t, err)
		require.False(t, res.Renewed)

		f.clock.Advance(time.Second)
		res, err = f.manager.Validate(ctx, token)
		require.NoError(t, err)
		require.True(t, res.Renewed)
	})

	t.Run("renewal keeps an active session alive past the original expiry", func(t *testing.T) {
		f := newFixture(t)
		token, _, err := f.manager.Issue(ctx, "user-1")
		require.NoError(t, err)

		for range 6 {
			f.clock.Advance(16 * day)
			res, err := f.manager.Validate(ctx, token)
			require.NoError(t, err)
			require.True(t, res.Authenticated())
		}
	})

	t.Run("expired session is purged", func(t *testing.T) {
		f := newFixture(t)
		token, issued, err := f.manager.Issue(ctx, "user-1")
		require.NoError(t, err)

		f.clock.Advance(30 * day)

		res, err := f.manager.Validate(ctx, token)
		require.NoError(t, err)
		require.False(t, res.Authenticated())
		require.Nil(t, res.Session)
		require.Nil(t, res.Actor)

		_, err = f.sessions.Get(ctx, issued.SessionID)
		require.ErrorIs(t, err, store.ErrSessionNotFound)
	})

	t.Run("unknown and empty tokens are anonymous", func(t *testing.T) {
		f := newFixture(t)

		token, err := auth.GenerateToken()
		require.NoError(t, err)

		res, err := f.manager.Validate(ctx, token)
		require.NoError(t, err)
		require.False(t, res.Authenticated())

		res, err = f.manager.Validate(ctx, "")
		require.NoError(t, err)
		require.False(t, res.Authenticated())
	})

	t.Run("session for missing user is purged", func(t *testing.T) {
		f := newFixture(t)

		token, session, err := f.manager.Issue(ctx, "ghost")
		require.NoError(t, err)

		res, err := f.manager.Validate(ctx, token)
		require.NoError(t, err)
		require.False(t, res.Authenticated())

		_, err = f.sessions.Get(ctx, session.SessionID)
		require.ErrorIs(t, err, store.ErrSessionNotFound)
	})

	t.Run("session deleted during renewal is anonymous", func(t *testing.T) {
		f := newFixture(t)
		racing := &racingStore{SessionStore: f.sessions}
		manager, err := NewManager(racing, NewUserStoreResolver(f.users), &Config{Now: f.clock.Now})
		require.NoError(t, err)

		token, _, err := manager.Issue(ctx, "user-1")
		require.NoError(t, err)

		f.clock.Advance(20 * day)

		res, err := manager.Validate(ctx, token)
		require.NoError(t, err)
		require.False(t, res.Authenticated())
	})

	t.Run("store failure is a storage error", func(t *testing.T) {
		f := newFixture(t)
		cause := errors.New("connection refused")
		manager, err := NewManager(&failingStore{err: cause}, NewUserStoreResolver(f.users), nil)
		require.NoError(t, err)

		res, err := manager.Validate(ctx, "some-token")
		require.Error(t, err)
		require.False(t, res.Authenticated())

		var storageErr *StorageError
		require.ErrorAs(t, err, &storageErr)
		require.Equal(t, "get", storageErr.Op)
		require.ErrorIs(t, err, cause)
	})

	t.Run("canceled context is a storage error", func(t *testing.T) {
		f := newFixture(t)
		token, _, err := f.manager.Issue(ctx, "user-1")
		require.NoError(t, err)

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err = f.manager.Validate(canceled, token)
		var storageErr *StorageError
		require.ErrorAs(t, err, &storageErr)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("user with corrupt role is a storage error", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.users.Create(ctx, &models.User{ID: "user-2", Username: "bob", Role: "superuser"}))

		token, _, err := f.manager.Issue(ctx, "user-2")
		require.NoError(t, err)

		_, err = f.manager.Validate(ctx, token)
		var storageErr *StorageError
		require.ErrorAs(t, err, &storageErr)
		require.Equal(t, "resolve", storageErr.Op)
	})
}

func TestManager_Invalidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	token, session, err := f.manager.Issue(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, f.manager.Invalidate(ctx, session.SessionID))

	res, err := f.manager.Validate(ctx, token)
	require.NoError(t, err)
	require.False(t, res.Authenticated())

	// idempotent
	require.NoError(t, f.manager.Invalidate(ctx, session.SessionID))
	require.NoError(t, f.manager.Invalidate(ctx, "never-existed"))

	t.Run("by token", func(t *testing.T) {
		token, _, err := f.manager.Issue(ctx, "user-1")
		require.NoError(t, err)

		require.NoError(t, f.manager.InvalidateToken(ctx, token))

		res, err := f.manager.Validate(ctx, token)
		require.NoError(t, err)
		require.False(t, res.Authenticated())
	})

	t.Run("store failure is a storage error", func(t *testing.T) {
		manager, err := NewManager(&failingStore{err: errors.New("timeout")}, NewUserStoreResolver(f.users), nil)
		require.NoError(t, err)

		var storageErr *StorageError
		require.ErrorAs(t, manager.Invalidate(ctx, "abc"), &storageErr)
		require.Equal(t, "delete", storageErr.Op)
	})
}

func TestManager_InvalidateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tokens := make([]string, 0, 3)
	for range 3 {
		token, _, err := f.manager.Issue(ctx, "user-1")
		require.NoError(t, err)
		tokens = append(tokens, token)
	}

	count, err := f.manager.InvalidateUser(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	for _, token := range tokens {
		res, err := f.manager.Validate(ctx, token)
		require.NoError(t, err)
		require.False(t, res.Authenticated())
	}

	count, err = f.manager.InvalidateUser(ctx, "user-1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestManager_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.manager.Issue(ctx, "user-1")
	require.NoError(t, err)

	f.clock.Advance(10 * day)
	_, _, err = f.manager.Issue(ctx, "user-1")
	require.NoError(t, err)

	// first session is exactly at expiry
	f.clock.Advance(20 * day)

	count, err := f.manager.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, 1, f.sessions.Len())
}

func TestManager_ConcurrentValidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	token, _, err := f.manager.Issue(ctx, "user-1")
	require.NoError(t, err)

	f.clock.Advance(20 * day)

	results := make([]Result, 20)
	errs := make([]error, 20)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.manager.Validate(ctx, token)
		}()
	}
	wg.Wait()

	for i := range 20 {
		require.NoError(t, errs[i])
		require.True(t, results[i].Authenticated())
	}

	stored, err := f.sessions.Get(ctx, auth.DeriveSessionID(token))
	require.NoError(t, err)
	require.Equal(t, f.clock.Now().Add(30*day), stored.ExpiresAt)
}
