// Package redis implements the kv store on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the subset of go-redis client methods used by Store.
// Keeping it as an interface enables mocking in tests.
type Client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Config holds connection settings.
type Config struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// Store is a kv store backed by Redis string keys.
type Store struct {
	client Client
	prefix string
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Store, error) {
	opts := &redis.Options{
		Addr: cfg.Address,
		DB:   cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: ping failed: %w", cfg.Address, err)
	}
	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient wraps a pre-built client.
func NewWithClient(client Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *Store) Close() error { return s.client.Close() }
