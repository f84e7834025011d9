package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/clubhub/internal/session"
	"github.com/wolfeidau/clubhub/internal/store"
	memorystore "github.com/wolfeidau/clubhub/internal/store/memory"
	postgresstore "github.com/wolfeidau/clubhub/internal/store/postgres"
	redisstore "github.com/wolfeidau/clubhub/internal/store/redis"
)

// StoreFlags selects and configures the session and user store backends.
type StoreFlags struct {
	SessionStore string `help:"session store backend" default:"memory" enum:"memory,postgres,redis" env:"CLUBHUB_SESSION_STORE"`
	UserStore    string `help:"user store backend" default:"memory" enum:"memory,postgres" env:"CLUBHUB_USER_STORE"`

	Postgres PostgresFlags `embed:"" prefix:"postgres-"`
	Redis    RedisFlags    `embed:"" prefix:"redis-"`
}

type PostgresFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"CLUBHUB_POSTGRES_CONN_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"CLUBHUB_POSTGRES_AUTO_MIGRATE"`
}

func (f *PostgresFlags) Validate() error {
	if f.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or CLUBHUB_POSTGRES_CONN_STRING)")
	}
	return nil
}

func (f *PostgresFlags) poolConfig() *postgresstore.PoolConfig {
	return &postgresstore.PoolConfig{
		ConnString:      f.ConnString,
		MaxConns:        f.MaxConns,
		MinConns:        f.MinConns,
		MaxConnLifetime: f.MaxConnLifetime,
		MaxConnIdleTime: f.MaxConnIdleTime,
	}
}

type RedisFlags struct {
	Addr      string `help:"Redis address (host:port)" default:"localhost:6379" env:"CLUBHUB_REDIS_ADDR"`
	Password  string `help:"Redis password" default:"" env:"CLUBHUB_REDIS_PASSWORD"`
	DB        int    `help:"Redis database number" default:"0" env:"CLUBHUB_REDIS_DB"`
	KeyPrefix string `help:"prefix for all Redis keys" default:"clubhub:" env:"CLUBHUB_REDIS_KEY_PREFIX"`
}

// Stores holds the opened backends and whatever must be closed with them.
type Stores struct {
	Sessions store.SessionStore
	Users    store.UserStore

	closers []func()
}

// Close releases connections in reverse order of opening.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// NewManager builds a session manager over the opened stores.
func (s *Stores) NewManager(cfg *session.Config) (*session.Manager, error) {
	return session.NewManager(s.Sessions, session.NewUserStoreResolver(s.Users), cfg)
}

// Open connects the selected backends. A single PostgreSQL pool is shared when both
// stores use it.
func (f *StoreFlags) Open(ctx context.Context) (*Stores, error) {
	stores := &Stores{}

	var pool *pgxpool.Pool
	openPool := func() (*pgxpool.Pool, error) {
		if pool != nil {
			return pool, nil
		}
		if err := f.Postgres.Validate(); err != nil {
			return nil, err
		}

		p, err := postgresstore.NewPool(ctx, f.Postgres.poolConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		stores.closers = append(stores.closers, p.Close)

		if f.Postgres.AutoMigrate {
			if _, err := postgresstore.RunMigrations(ctx, p); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		pool = p
		return pool, nil
	}

	switch f.UserStore {
	case "postgres":
		p, err := openPool()
		if err != nil {
			stores.Close()
			return nil, err
		}
		stores.Users = postgresstore.NewUserStore(p)
		log.Info().Msg("Using PostgreSQL user store")
	default:
		stores.Users = memorystore.NewUserStore()
		log.Info().Msg("Using in-memory user store")
	}

	switch f.SessionStore {
	case "postgres":
		p, err := openPool()
		if err != nil {
			stores.Close()
			return nil, err
		}
		stores.Sessions = postgresstore.NewSessionStore(p)
		log.Info().Msg("Using PostgreSQL session store")

	case "redis":
		cfg := &redisstore.Config{
			Addr:      f.Redis.Addr,
			Password:  f.Redis.Password,
			DB:        f.Redis.DB,
			KeyPrefix: f.Redis.KeyPrefix,
		}
		client, err := redisstore.NewClient(ctx, cfg)
		if err != nil {
			stores.Close()
			return nil, err
		}
		stores.closers = append(stores.closers, func() { _ = client.Close() })
		stores.Sessions = redisstore.NewSessionStore(client, cfg.KeyPrefix)
		log.Info().Str("addr", cfg.Addr).Msg("Using Redis session store")

	default:
		stores.Sessions = memorystore.NewSessionStore()
		log.Info().Msg("Using in-memory session store")
	}

	return stores, nil
}
