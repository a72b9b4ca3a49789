package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "ledger:idempotency:"

// RedisIdempotencyStore shares keys between replicas. Entries are JSON
// documents whose expiry is the Redis TTL.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
	owned     bool
}

// NewRedisIdempotencyStore wraps client. The client stays open on Close
// unless the store created it.
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// Reserve implements IdempotencyStore with SET NX
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(Entry{Fingerprint: fingerprint})
	if err != nil {
		return false, err
	}
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Lookup implements IdempotencyStore
func (s *RedisIdempotencyStore) Lookup(ctx context.Context, key string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return &entry, nil
}

// Complete implements IdempotencyStore. SET XX keeps a released or expired
// key from being resurrected.
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	entry.Done = true
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	ok, err := s.client.SetXX(ctx, s.keyPrefix+key, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	if !ok {
		return ErrKeyNotHeld
	}
	return nil
}

// Release implements IdempotencyStore
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Close implements IdempotencyStore
func (s *RedisIdempotencyStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)
