package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions tunes the distributed lock
type RedisOptions struct {
	KeyPrefix     string
	TTL           time.Duration
	RetryInterval time.Duration
	RetryCount    int
}

// RedisLocker serializes work per key across replicas with redislock. A lock
// expires after TTL, so a crashed holder cannot block a key forever.
type RedisLocker struct {
	client *redislock.Client
	opts   RedisOptions
	logger *zap.Logger
}

// NewRedisLocker creates a RedisLocker on top of an existing client
func NewRedisLocker(client redis.UniversalClient, opts RedisOptions, logger *zap.Logger) *RedisLocker {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "ledger:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 50 * time.Millisecond
	}
	if opts.RetryCount <= 0 {
		opts.RetryCount = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: redislock.New(client), opts: opts, logger: logger}
}

// Acquire obtains the lock, retrying linearly until RetryCount is exhausted
// or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lk, err := l.client.Obtain(ctx, l.opts.KeyPrefix+key, l.opts.TTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.opts.RetryInterval), l.opts.RetryCount),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, shared.ErrLockNotObtained.WithDetail("key", key)
		}
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// release on a fresh context: the caller's may already be cancelled
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lk.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

var _ shared.KeyedLocker = (*RedisLocker)(nil)
