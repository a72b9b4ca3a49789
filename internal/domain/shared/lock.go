package shared

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// KeyedLocker serializes work per key (account, partner, reconciliation).
// Acquire blocks until the key is held or ctx is done; the returned release
// function must be called exactly once.
type KeyedLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Lock key builders
func AccountLockKey(id uuid.UUID) string        { return "account:" + id.String() }
func PartnerLockKey(id uuid.UUID) string        { return "partner:" + id.String() }
func ReconciliationLockKey(id uuid.UUID) string { return "reconciliation:" + id.String() }
func BankAccountLockKey(id uuid.UUID) string    { return "bank-account:" + id.String() }
func PayoutLockKey(id uuid.UUID) string         { return "payout:" + id.String() }
func ChartLockKey(tenantID uuid.UUID) string    { return "chart:" + tenantID.String() }

// AcquireAll takes every key in sorted order and returns a single release.
// Sorting keeps two callers with overlapping key sets from deadlocking.
func AcquireAll(ctx context.Context, locker KeyedLocker, keys ...string) (func(), error) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	releases := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range sorted {
		release, err := locker.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
