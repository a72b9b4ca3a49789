package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/clutch/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Option configures NewIdempotencyStore
type Option func(*factory)

type factory struct {
	logger        *zap.Logger
	allowFallback bool
}

// WithLogger sets the logger used to report the selected backend
func WithLogger(logger *zap.Logger) Option {
	return func(f *factory) { f.logger = logger }
}

// WithInMemoryFallback lets a redis backend degrade to process memory when
// Redis cannot be reached at startup
func WithInMemoryFallback(allow bool) Option {
	return func(f *factory) { f.allowFallback = allow }
}

// NewIdempotencyStore builds the store selected by cfg.Backend
func NewIdempotencyStore(cfg config.IdempotencyConfig, redisCfg config.RedisConfig, opts ...Option) (IdempotencyStore, error) {
	f := &factory{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}

	if cfg.Backend != "redis" {
		f.logger.Info("Using in-memory idempotency store", zap.Duration("ttl", cfg.TTL))
		return NewMemoryIdempotencyStore(0), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !f.allowFallback {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		f.logger.Warn("Redis unavailable, idempotency keys are kept per replica", zap.Error(err))
		return NewMemoryIdempotencyStore(0), nil
	}

	f.logger.Info("Using Redis idempotency store", zap.String("addr", redisCfg.Addr()), zap.Duration("ttl", cfg.TTL))
	store := NewRedisIdempotencyStore(client, "")
	store.owned = true
	return store, nil
}
