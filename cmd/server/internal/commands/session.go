package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/clubhub/internal/store"
)

type SessionCmd struct {
	Issue  SessionIssueCmd  `cmd:"" help:"Issue a session token for a user"`
	Revoke SessionRevokeCmd `cmd:"" help:"Revoke sessions by token, session ID or user"`
	Purge  SessionPurgeCmd  `cmd:"" help:"Delete all expired sessions"`
}

type SessionIssueCmd struct {
	UserID    string `help:"user to issue the session for" required:""`
	UserAgent string `help:"user agent recorded on the session" default:"clubhub-cli"`

	Stores  StoreFlags   `embed:""`
	Session SessionFlags `embed:"" prefix:"session-"`
}

func (c *SessionIssueCmd) Run(ctx context.Context, globals *Globals) error {
	stores, err := c.Stores.Open(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	// fail early rather than mint a token that will never validate
	if _, err := stores.Users.Get(ctx, c.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return fmt.Errorf("user %q does not exist", c.UserID)
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	manager, err := stores.NewManager(c.Session.config())
	if err != nil {
		return fmt.Errorf("invalid session configuration: %w", err)
	}

	token, sess, err := manager.Issue(ctx, c.UserID)
	if err != nil {
		return fmt.Errorf("failed to issue session: %w", err)
	}

	log.Info().
		Str("user_id", c.UserID).
		Time("expires_at", sess.ExpiresAt).
		Msg("Issued session")

	// the token is only ever printed here, it is not recoverable from the store
	fmt.Fprintln(os.Stdout, token)
	return nil
}

type SessionRevokeCmd struct {
	Token     string `help:"session token to revoke" xor:"target" required:""`
	SessionID string `help:"session ID to revoke" xor:"target" required:""`
	UserID    string `help:"revoke every session for this user" xor:"target" required:""`

	Stores StoreFlags `embed:""`
}

func (c *SessionRevokeCmd) Run(ctx context.Context, globals *Globals) error {
	stores, err := c.Stores.Open(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	manager, err := stores.NewManager(nil)
	if err != nil {
		return err
	}

	switch {
	case c.Token != "":
		if err := manager.InvalidateToken(ctx, c.Token); err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}
		log.Info().Msg("Revoked session")

	case c.SessionID != "":
		if err := manager.Invalidate(ctx, c.SessionID); err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}
		log.Info().Msg("Revoked session")

	default:
		count, err := manager.InvalidateUser(ctx, c.UserID)
		if err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		log.Info().Str("user_id", c.UserID).Int("count", count).Msg("Revoked sessions")
	}

	return nil
}

type SessionPurgeCmd struct {
	Timeout time.Duration `help:"maximum time to spend purging" default:"5m"`

	Stores StoreFlags `embed:""`
}

func (c *SessionPurgeCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	stores, err := c.Stores.Open(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	manager, err := stores.NewManager(nil)
	if err != nil {
		return err
	}

	count, err := manager.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}

	log.Info().Int("count", count).Msg("Purged expired sessions")
	return nil
}
