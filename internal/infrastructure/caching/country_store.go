package caching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/mayanov/tarotsite-go/internal/domain/locale"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
)

// RedisCountryStores hands out per-visitor country stores backed by redis.
type RedisCountryStores struct {
	client *redis.Client
	logger *logging.ChanneledLogger
}

// NewRedisCountryStores wraps client.
func NewRedisCountryStores(client *redis.Client, logger *logging.ChanneledLogger) *RedisCountryStores {
	return &RedisCountryStores{client: client, logger: logger}
}

// ForVisitor returns the store for one visitor id.
func (s *RedisCountryStores) ForVisitor(visitorID string) locale.CountryStore {
	return &redisCountryStore{
		client: s.client,
		key:    CountryKey(visitorID),
		logger: s.logger,
	}
}

// Ping checks the connection.
func (s *RedisCountryStores) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisCountryStores) Close() error {
	return s.client.Close()
}

// CountryKey returns the redis key of a visitor's country entry.
func CountryKey(visitorID string) string {
	return fmt.Sprintf("%s:%s", locale.CountryKey, visitorID)
}

type redisCountryStore struct {
	client *redis.Client
	key    string
	logger *logging.ChanneledLogger
}

// Load treats a redis error as a miss so the resolver falls through to a live lookup.
func (s *redisCountryStore) Load(ctx context.Context) (string, bool) {
	start := time.Now()
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		s.logger.Cache().Debug("Country cache miss", "key", s.key, "duration", time.Since(start))
		return "", false
	}
	if err != nil {
		s.logger.Cache().Error("Country cache read failed", "key", s.key, "error", err.Error())
		return "", false
	}
	s.logger.Cache().Debug("Country cache hit", "key", s.key, "duration", time.Since(start))
	return val, true
}

// Save stores the code without expiry.
func (s *redisCountryStore) Save(ctx context.Context, countryCode string) error {
	if err := s.client.Set(ctx, s.key, countryCode, 0).Err(); err != nil {
		return fmt.Errorf("failed to save country for %s: %w", s.key, err)
	}
	return nil
}
