// Package cache keeps short-lived request state shared by API replicas.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotHeld is returned when completing a key nobody reserved
var ErrKeyNotHeld = errors.New("idempotency key not reserved")

// Entry is the state kept under one Idempotency-Key. Fingerprint identifies
// the request that claimed the key; the response fields are set once Done.
type Entry struct {
	Fingerprint string `json:"fingerprint"`
	Done        bool   `json:"done"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// IdempotencyStore reserves keys for in-flight requests and keeps their
// responses for replay
type IdempotencyStore interface {
	// Reserve claims key for a request; false means the key is already held
	Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (bool, error)
	// Lookup returns the entry under key, nil when there is none
	Lookup(ctx context.Context, key string) (*Entry, error)
	// Complete stores the final response of a reserved key
	Complete(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	// Release forgets key so that the request may be retried
	Release(ctx context.Context, key string) error
	Close() error
}
