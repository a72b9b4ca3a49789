package cache

import (
	"context"
	"testing"
	"time"

	"github.com/clutch/ledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyStore_ReserveCompleteReplay(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "k1", "fp-a", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "k1", "fp-b", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "held key cannot be reserved twice")

	entry, err := store.Lookup(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "fp-a", entry.Fingerprint)
	assert.False(t, entry.Done)

	require.NoError(t, store.Complete(ctx, "k1", Entry{
		Fingerprint: "fp-a",
		Status:      201,
		ContentType: "application/json",
		Body:        []byte(`{"success":true}`),
	}, time.Hour))

	entry, err = store.Lookup(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Done)
	assert.Equal(t, 201, entry.Status)
	assert.JSONEq(t, `{"success":true}`, string(entry.Body))
}

func TestMemoryIdempotencyStore_ReleaseAndExpiry(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, err := store.Reserve(ctx, "k1", "fp", time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "k1"))

	entry, err := store.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.ErrorIs(t, store.Complete(ctx, "k1", Entry{}, time.Minute), ErrKeyNotHeld)

	_, err = store.Reserve(ctx, "k2", "fp", time.Minute)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)

	entry, err = store.Lookup(ctx, "k2")
	require.NoError(t, err)
	assert.Nil(t, entry, "expired key reads as absent")

	ok, err := store.Reserve(ctx, "k2", "fp", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired key can be reserved again")

	now = now.Add(2 * time.Minute)
	store.sweep()
	assert.Equal(t, 0, store.Size())
}

func TestMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Millisecond)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestNewIdempotencyStore(t *testing.T) {
	store, err := NewIdempotencyStore(config.IdempotencyConfig{Backend: "memory", TTL: time.Hour}, config.RedisConfig{})
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &MemoryIdempotencyStore{}, store)

	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}
	_, err = NewIdempotencyStore(config.IdempotencyConfig{Backend: "redis"}, unreachable)
	assert.Error(t, err)

	store, err = NewIdempotencyStore(config.IdempotencyConfig{Backend: "redis"}, unreachable, WithInMemoryFallback(true))
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &MemoryIdempotencyStore{}, store)
}
