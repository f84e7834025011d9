package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/clubhub/internal/seed"
)

type UsersCmd struct {
	Import UsersImportCmd `cmd:"" help:"Create or update users from a YAML file"`
}

type UsersImportCmd struct {
	File string `help:"YAML file of users" required:"" type:"existingfile"`

	Stores StoreFlags `embed:""`
}

func (c *UsersImportCmd) Run(ctx context.Context, globals *Globals) error {
	users, err := seed.LoadFile(c.File)
	if err != nil {
		return err
	}

	stores, err := c.Stores.Open(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	if _, err := seed.Import(ctx, stores.Users, users); err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}

	return nil
}
