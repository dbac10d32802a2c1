// Package caching holds the server-side country store and its redis connection.
package caching

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"

	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
)

// RedisOptions configures the redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// MaxRetry bounds how long Connect keeps retrying the initial ping.
	MaxRetry time.Duration
}

// Connect opens a redis client and pings it with exponential backoff until
// it answers or MaxRetry elapses.
func Connect(ctx context.Context, opts RedisOptions, logger *logging.ChanneledLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = opts.MaxRetry

	attempt := 0
	ping := func() error {
		attempt++
		err := client.Ping(ctx).Err()
		if err != nil {
			logger.Cache().Warn("Redis ping failed", "addr", opts.Addr, "attempt", attempt, "error", err.Error())
		}
		return err
	}

	start := time.Now()
	if err := backoff.Retry(ping, backoff.WithContext(policy, ctx)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	logger.Cache().Info("Redis connection established", "addr", opts.Addr, "attempts", attempt, "duration", time.Since(start))
	return client, nil
}
