package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrKeyNotFound is returned by Get when the key does not exist or has
// already expired.
var ErrKeyNotFound = errors.New("redis: key not found")

type Service struct {
	client *redis.Client
}

// NewService connects to Redis at the given address. It returns nil when no
// address is configured so callers can fall back to in-memory storage.
func NewService(addr, password string) *Service {
	if addr == "" {
		log.Warn().Msg("Redis not configured - REDIS_URL missing")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	log.Info().Str("addr", addr).Msg("Redis service initialised")

	return &Service{
		client: client,
	}
}

// Set stores a value with an expiration.
func (s *Service) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	log.Debug().Str("key", key).Msg("Setting Redis key")
	return s.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value, returning ErrKeyNotFound for absent keys.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	log.Debug().Str("key", key).Msg("Getting Redis key")
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return value, err
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	log.Debug().Str("key", key).Msg("Deleting Redis key")
	return s.client.Del(ctx, key).Err()
}

// Expire re-arms the TTL on an existing key.
func (s *Service) Expire(ctx context.Context, key string, expiration time.Duration) error {
	log.Debug().Str("key", key).Msg("Refreshing TTL on Redis key")
	return s.client.Expire(ctx, key, expiration).Err()
}

// Ping checks if Redis is accessible.
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Service) Close() error {
	log.Debug().Msg("Closing Redis connection")
	return s.client.Close()
}
