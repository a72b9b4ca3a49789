package lock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLocker_ExclusiveUntilReleased(t *testing.T) {
	client := redisClient(t)
	l := NewRedisLocker(client, RedisOptions{
		KeyPrefix:     "ledger:test:" + uuid.NewString() + ":",
		TTL:           5 * time.Second,
		RetryInterval: 10 * time.Millisecond,
		RetryCount:    3,
	}, zap.NewNop())

	release, err := l.Acquire(context.Background(), "account:a")
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), "account:a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrLockNotObtained))

	release()
	again, err := l.Acquire(context.Background(), "account:a")
	require.NoError(t, err)
	again()
}
