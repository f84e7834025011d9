// Package seed loads user fixtures from YAML and imports them into a user store.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/clubhub/internal/models"
	"github.com/wolfeidau/clubhub/internal/store"
	"gopkg.in/yaml.v3"
)

// File is the YAML document layout.
//
//	users:
//	  - id: 8c3f...        # optional, derived from the username when absent
//	    username: alice
//	    email: alice@example.com
//	    role: club_leader
//	    club_id: chess      # optional
type File struct {
	Users []UserEntry `yaml:"users"`
}

type UserEntry struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	ClubID   string `yaml:"club_id"`
}

// userNamespace scopes IDs derived from usernames so reloading a file yields the same IDs.
var userNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/wolfeidau/clubhub/users"))

// LoadFile reads and validates a fixtures file.
func LoadFile(path string) ([]*models.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	return Load(bytes.NewReader(data))
}

// Load decodes fixtures from r. Unknown fields, unknown roles, missing usernames and
// duplicate IDs or usernames are rejected.
func Load(r io.Reader) ([]*models.User, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unmarshal users file: %w", err)
	}

	users := make([]*models.User, 0, len(file.Users))
	ids := map[string]bool{}
	usernames := map[string]bool{}

	for i, entry := range file.Users {
		if entry.Username == "" {
			return nil, fmt.Errorf("user %d: username is required", i)
		}

		role, err := models.ParseRole(entry.Role)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", entry.Username, err)
		}

		id := entry.ID
		if id == "" {
			id = uuid.NewSHA1(userNamespace, []byte(entry.Username)).String()
		}

		if ids[id] {
			return nil, fmt.Errorf("user %q: duplicate id %s", entry.Username, id)
		}
		if usernames[entry.Username] {
			return nil, fmt.Errorf("duplicate username %q", entry.Username)
		}
		ids[id] = true
		usernames[entry.Username] = true

		users = append(users, &models.User{
			ID:       id,
			Username: entry.Username,
			Email:    entry.Email,
			Role:     role,
			ClubID:   entry.ClubID,
		})
	}

	return users, nil
}

// Result counts what Import did.
type Result struct {
	Created int
	Updated int
}

// Import creates users that do not exist and updates the ones that do.
func Import(ctx context.Context, users store.UserStore, fixtures []*models.User) (Result, error) {
	var res Result

	for _, user := range fixtures {
		_, err := users.Get(ctx, user.ID)
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			if err := users.Create(ctx, user); err != nil {
				return res, fmt.Errorf("create user %q: %w", user.Username, err)
			}
			res.Created++

		case err != nil:
			return res, fmt.Errorf("get user %q: %w", user.Username, err)

		default:
			if err := users.Update(ctx, user); err != nil {
				return res, fmt.Errorf("update user %q: %w", user.Username, err)
			}
			res.Updated++
		}
	}

	log.Info().Int("created", res.Created).Int("updated", res.Updated).Msg("Imported users")

	return res, nil
}
