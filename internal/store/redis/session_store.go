package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/clubhub/internal/models"
	"github.com/wolfeidau/clubhub/internal/store"
)

var _ store.SessionStore = (*SessionStore)(nil)

// Every key a script touches is passed in KEYS.

// KEYS[1] session hash, KEYS[2] user index set
// ARGV user_id, expires_at ms, created_at ms, user_agent, ip_address, session_id
const createSessionSrc = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "user_id", ARGV[1],
  "expires_at", ARGV[2],
  "created_at", ARGV[3],
  "user_agent", ARGV[4],
  "ip_address", ARGV[5])
redis.call("PEXPIREAT", KEYS[1], ARGV[2])
redis.call("SADD", KEYS[2], ARGV[6])
return 1
`

// KEYS[1] session hash; ARGV expires_at ms
const updateExpirySrc = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "expires_at", ARGV[1])
redis.call("PEXPIREAT", KEYS[1], ARGV[1])
return 1
`

// KEYS[1] session hash, KEYS[2] user index set; ARGV session_id
const deleteSessionSrc = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var (
	createSessionLua = goredis.NewScript(createSessionSrc)
	updateExpiryLua  = goredis.NewScript(updateExpirySrc)
	deleteSessionLua = goredis.NewScript(deleteSessionSrc)
)

// SessionStore implements store.SessionStore on a single Redis server. Each session is a
// hash whose key expires at the session's expiry, so Redis reclaims expired sessions on
// its own; a per-user set indexes sessions for DeleteByUser. Session and index keys are
// not co-located, so Redis Cluster is not supported.
type SessionStore struct {
	client *goredis.Client
	prefix string
}

// NewSessionStore creates a Redis-backed session store. prefix namespaces all keys.
func NewSessionStore(client *goredis.Client, prefix string) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: prefix,
	}
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

func (s *SessionStore) userPrefix() string {
	return s.prefix + "user_sessions:"
}

func (s *SessionStore) userKey(userID string) string {
	return s.userPrefix() + userID
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	created, err := createSessionLua.Run(ctx, s.client,
		[]string{s.sessionKey(session.SessionID), s.userKey(session.UserID)},
		session.UserID,
		session.ExpiresAt.UnixMilli(),
		session.CreatedAt.UnixMilli(),
		session.UserAgent,
		session.IPAddress,
		session.SessionID,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if created == 0 {
		return store.ErrSessionAlreadyExists
	}

	log.Debug().
		Str("user_id", session.UserID).
		Msg("Created session")

	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	fields, err := s.client.HGetAll(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if len(fields) == 0 {
		return nil, store.ErrSessionNotFound
	}

	expiresAt, err := parseMillis(fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt session expires_at: %w", err)
	}

	createdAt, err := parseMillis(fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt session created_at: %w", err)
	}

	return &models.Session{
		SessionID: sessionID,
		UserID:    fields["user_id"],
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
		UserAgent: fields["user_agent"],
		IPAddress: fields["ip_address"],
	}, nil
}

// UpdateExpiry sets a new expiry for an existing session and moves the key expiry with it.
func (s *SessionStore) UpdateExpiry(ctx context.Context, sessionID string, expiresAt time.Time) error {
	updated, err := updateExpiryLua.Run(ctx, s.client,
		[]string{s.sessionKey(sessionID)},
		expiresAt.UnixMilli(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to update session expiry: %w", err)
	}

	if updated == 0 {
		return store.ErrSessionNotFound
	}

	return nil
}

// Delete removes a session. Deleting a missing session succeeds.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	key := s.sessionKey(sessionID)

	userID, err := s.client.HGet(ctx, key, "user_id").Result()
	if errors.Is(err, goredis.Nil) {
		// already gone; DeleteExpired prunes any index entry left behind
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	err = deleteSessionLua.Run(ctx, s.client,
		[]string{key, s.userKey(userID)},
		sessionID,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// DeleteByUser removes every session in the user's index.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)

	sessionIDs, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions by user: %w", err)
	}

	if len(sessionIDs) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		keys = append(keys, s.sessionKey(id))
	}

	var deleted *goredis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		deleted = pipe.Del(ctx, keys...)
		pipe.SRem(ctx, userKey, toAny(sessionIDs)...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions by user: %w", err)
	}

	count := int(deleted.Val())

	log.Info().
		Str("user_id", userID).
		Int("count", count).
		Msg("Deleted all sessions for user")

	return count, nil
}

// DeleteExpired prunes user index entries whose session key Redis has already expired.
// Session hashes carry their own expiry, so there is nothing left to delete and the
// count is always 0.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	iter := s.client.Scan(ctx, 0, s.userPrefix()+"*", 100).Iterator()

	pruned := 0
	for iter.Next(ctx) {
		n, err := s.pruneUserIndex(ctx, iter.Val())
		if err != nil {
			return 0, err
		}
		pruned += n
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan user indexes: %w", err)
	}

	if pruned > 0 {
		log.Info().Int("count", pruned).Msg("Pruned expired session index entries")
	}

	return 0, nil
}

func (s *SessionStore) pruneUserIndex(ctx context.Context, userKey string) (int, error) {
	sessionIDs, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list user index: %w", err)
	}

	var stale []any
	for _, id := range sessionIDs {
		exists, err := s.client.Exists(ctx, s.sessionKey(id)).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to check session: %w", err)
		}
		if exists == 0 {
			stale = append(stale, id)
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}

	if err := s.client.SRem(ctx, userKey, stale...).Err(); err != nil {
		return 0, fmt.Errorf("failed to prune user index: %w", err)
	}

	return len(stale), nil
}

func parseMillis(v string) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

