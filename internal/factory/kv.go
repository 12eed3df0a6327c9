// Package factory builds the service's pluggable gateways from config.
package factory

import (
	"context"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-crisis/internal/config"
	"github.com/mycelian/mycelian-crisis/internal/kv"
	kvpg "github.com/mycelian/mycelian-crisis/internal/kv/postgres"
	kvredis "github.com/mycelian/mycelian-crisis/internal/kv/redis"
	kvsqlite "github.com/mycelian/mycelian-crisis/internal/kv/sqlite"
)

// NewKV returns the persistence gateway selected by cfg.KVDriver, wrapped in
// kv.Sealed when an encryption key is configured. Network drivers are retried
// with exponential backoff until the bootstrap timeout elapses.
func NewKV(ctx context.Context, cfg *config.Config, log zerolog.Logger) (kv.Store, error) {
	var (
		store kv.Store
		err   error
	)
	switch cfg.KVDriver {
	case "memory":
		store = kv.NewMemory()
	case "sqlite":
		store, err = kvsqlite.New(cfg.SQLitePath)
	case "postgres":
		err = retry(ctx, cfg.BootstrapTimeout(), log, "postgres", func(ctx context.Context) error {
			db, err := kvpg.Open(ctx, cfg.PostgresDSN)
			if err != nil {
				return err
			}
			s, err := kvpg.NewWithDB(ctx, db)
			if err != nil {
				_ = db.Close()
				return err
			}
			store = s
			return nil
		})
	case "redis":
		err = retry(ctx, cfg.BootstrapTimeout(), log, "redis", func(ctx context.Context) error {
			s, err := kvredis.New(ctx, kvredis.Config{
				Address:  cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
				Prefix:   cfg.RedisPrefix,
			})
			if err != nil {
				return err
			}
			store = s
			return nil
		})
	default:
		return nil, fmt.Errorf("unknown KV_DRIVER: %s", cfg.KVDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s kv store: %w", cfg.KVDriver, err)
	}

	if cfg.EncryptionKey == "" {
		log.Warn().Str("driver", cfg.KVDriver).Msg("kv encryption disabled; records are stored in plaintext")
		return store, nil
	}
	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	sealed, err := kv.NewSealed(store, key)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	log.Debug().Str("driver", cfg.KVDriver).Msg("kv encryption enabled")
	return sealed, nil
}

// retry runs op with exponential backoff bounded by timeout.
func retry(ctx context.Context, timeout time.Duration, log zerolog.Logger, what string, op func(context.Context) error) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 100 * time.Millisecond
	exp.Multiplier = 2
	exp.MaxInterval = 2 * time.Second
	exp.MaxElapsedTime = timeout
	exp.Reset()

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := op(attemptCtx)
		if err != nil {
			log.Warn().Err(err).Str("backend", what).Int("attempt", attempt).Msg("connect failed; retrying")
		}
		return err
	}, backoff.WithContext(exp, ctx))
}
