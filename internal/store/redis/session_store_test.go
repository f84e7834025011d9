package redis

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/clubhub/internal/models"
	"github.com/wolfeidau/clubhub/internal/session"
	"github.com/wolfeidau/clubhub/internal/store"
	"github.com/wolfeidau/clubhub/internal/store/memory"
)

var epoch = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	mr.SetTime(epoch)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSessionStore(client, "test:"), mr
}

func testSession(id, userID string, expiresAt time.Time) *models.Session {
	return &models.Session{
		SessionID: id,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: epoch,
		UserAgent: "go-test",
		IPAddress: "10.0.0.1",
	}
}

func TestRedisSessionStore_Create(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	session := testSession("s1", "u1", epoch.Add(time.Hour))
	require.NoError(t, s.Create(ctx, session))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, session, got)

	require.ErrorIs(t, s.Create(ctx, session), store.ErrSessionAlreadyExists)

	require.True(t, mr.Exists("test:session:s1"))
	require.Equal(t, time.Hour, mr.TTL("test:session:s1"))

	members, err := mr.Members("test:user_sessions:u1")
	require.NoError(t, err)
	require.Equal(t, []string{"s1"}, members)
}

func TestRedisSessionStore_Get(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrSessionNotFound)

	require.NoError(t, s.Create(ctx, testSession("s1", "u1", epoch.Add(time.Minute))))

	mr.FastForward(time.Minute)

	_, err = s.Get(ctx, "s1")
	require.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestRedisSessionStore_UpdateExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.ErrorIs(t, s.UpdateExpiry(ctx, "missing", epoch.Add(time.Hour)), store.ErrSessionNotFound)
	require.False(t, mr.Exists("test:session:missing"))

	require.NoError(t, s.Create(ctx, testSession("s1", "u1", epoch.Add(time.Hour))))
	require.NoError(t, s.UpdateExpiry(ctx, "s1", epoch.Add(48*time.Hour)))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, epoch.Add(48*time.Hour), got.ExpiresAt)
	require.Equal(t, 48*time.Hour, mr.TTL("test:session:s1"))
}

func TestRedisSessionStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.NoError(t, s.Create(ctx, testSession("s1", "u1", epoch.Add(time.Hour))))
	require.NoError(t, s.Create(ctx, testSession("s2", "u1", epoch.Add(time.Hour))))

	require.NoError(t, s.Delete(ctx, "s1"))
	require.NoError(t, s.Delete(ctx, "s1"))
	require.NoError(t, s.Delete(ctx, "never-existed"))

	_, err := s.Get(ctx, "s1")
	require.ErrorIs(t, err, store.ErrSessionNotFound)

	members, err := mr.Members("test:user_sessions:u1")
	require.NoError(t, err)
	require.Equal(t, []string{"s2"}, members)
}

func TestScriptsDeclareKeys(t *testing.T) {
	call := regexp.MustCompile(`redis\.call\("\w+",\s*([^,)]+)`)

	scripts := map[string]string{
		"create":        createSessionSrc,
		"update_expiry": updateExpirySrc,
		"delete":        deleteSessionSrc,
	}

	for name, src := range scripts {
		t.Run(name, func(t *testing.T) {
			matches := call.FindAllStringSubmatch(src, -1)
			require.NotEmpty(t, matches)
			for _, m := range matches {
				require.Regexp(t, `^KEYS\[\d\]$`, m[1], "script touches an undeclared key")
			}
		})
	}
}

func TestRedisSessionStore_DeleteByUser(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.NoError(t, s.Create(ctx, testSession("s1", "u1", epoch.Add(time.Hour))))
	require.NoError(t, s.Create(ctx, testSession("s2", "u1", epoch.Add(time.Hour))))
	require.NoError(t, s.Create(ctx, testSession("s3", "u2", epoch.Add(time.Hour))))

	count, err := s.DeleteByUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	_, err = s.Get(ctx, "s3")
	require.NoError(t, err)
	require.False(t, mr.Exists("test:user_sessions:u1"))

	count, err = s.DeleteByUser(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestRedisSessionStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.NoError(t, s.Create(ctx, testSession("short", "u1", epoch.Add(time.Minute))))
	require.NoError(t, s.Create(ctx, testSession("long", "u1", epoch.Add(time.Hour))))

	mr.FastForward(2 * time.Minute)

	count, err := s.DeleteExpired(ctx, epoch.Add(2*time.Minute))
	require.NoError(t, err)
	require.Zero(t, count)

	members, err := mr.Members("test:user_sessions:u1")
	require.NoError(t, err)
	require.Equal(t, []string{"long"}, members)

	count, err = s.DeleteByUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRedisSessionStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	mr.Close()

	_, err := s.Get(ctx, "s1")
	require.Error(t, err)
	require.NotErrorIs(t, err, store.ErrSessionNotFound)
}

func TestRedisSessionStore_Manager(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	users := memory.NewUserStore()
	require.NoError(t, users.Create(ctx, &models.User{ID: "u1", Username: "advisor", Role: models.RoleAdvisor, ClubID: "robotics"}))

	now := epoch
	manager, err := session.NewManager(s, session.NewUserStoreResolver(users), &session.Config{
		Now: func() time.Time { return now },
	})
	require.NoError(t, err)

	token, _, err := manager.Issue(ctx, "u1")
	require.NoError(t, err)

	now = now.Add(20 * 24 * time.Hour)

	res, err := manager.Validate(ctx, token)
	require.NoError(t, err)
	require.True(t, res.Authenticated())
	require.True(t, res.Renewed)
	require.Equal(t, now.Add(30*24*time.Hour), res.Session.ExpiresAt)

	count, err := manager.InvalidateUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	res, err = manager.Validate(ctx, token)
	require.NoError(t, err)
	require.False(t, res.Authenticated())
}

func TestConfig(t *testing.T) {
	var cfg Config
	require.Error(t, cfg.Validate())

	cfg.Addr = "localhost:6379"
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "clubhub:", cfg.KeyPrefix)
	require.Equal(t, 5*time.Second, cfg.DialTimeout)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), &Config{Addr: mr.Addr(), StartupTimeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, client.Close())
}
