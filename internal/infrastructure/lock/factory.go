package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// New builds the locker selected by cfg.Backend. The redis backend pings the
// server first and fails fast when it is unreachable.
func New(cfg config.LockConfig, redisCfg config.RedisConfig, logger *zap.Logger) (shared.KeyedLocker, func() error, error) {
	if cfg.Backend != "redis" {
		logger.Info("Using in-process locks")
		return NewMemoryLocker(), func() error { return nil }, nil
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
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Using Redis locks", zap.String("addr", redisCfg.Addr()), zap.Duration("ttl", cfg.TTL))
	return NewRedisLocker(client, RedisOptions{
		TTL:           cfg.TTL,
		RetryInterval: cfg.RetryInterval,
		RetryCount:    cfg.RetryCount,
	}, logger), client.Close, nil
}
