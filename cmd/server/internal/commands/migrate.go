package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	postgresstore "github.com/wolfeidau/clubhub/internal/store/postgres"
)

type MigrateCmd struct {
	Postgres PostgresFlags `embed:"" prefix:"postgres-"`
}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	if err := c.Postgres.Validate(); err != nil {
		return err
	}

	pool, err := postgresstore.NewPool(ctx, c.Postgres.poolConfig())
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	applied, err := postgresstore.RunMigrations(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Int("applied", applied).Msg("Database migrations completed")
	return nil
}
