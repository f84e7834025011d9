package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config holds the Redis connection settings for the session store.
type Config struct {
	// Addr is the host:port of the Redis server.
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces every key the store writes. Default: "clubhub:"
	KeyPrefix string

	// DialTimeout bounds a single connection attempt. Default: 5s
	DialTimeout time.Duration

	// StartupTimeout bounds how long NewClient retries the initial ping. Default: 30s
	StartupTimeout time.Duration
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "clubhub:"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.StartupTimeout == 0 {
		c.StartupTimeout = 30 * time.Second
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis db must not be negative")
	}
	return nil
}

// NewClient connects to Redis and pings it, retrying with exponential backoff until
// StartupTimeout elapses.
func NewClient(ctx context.Context, cfg *Config) (*goredis.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	_, err := backoff.Retry(ctx, func() (string, error) {
		return client.Ping(ctx).Result()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(cfg.StartupTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Dur("retry_in", next).Msg("Redis not ready")
		}),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
