package payout

import (
	"context"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Filter defines filtering options for payout queries
type Filter struct {
	shared.Filter
	PartnerID *uuid.UUID
	Status    *Status
	From      *time.Time
	To        *time.Time
}

// Repository persists payouts with their items, deductions and audit log
type Repository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Payout, error)
	List(ctx context.Context, tenantID uuid.UUID, filter Filter) ([]*Payout, int64, error)
	// ClaimedBy returns, for the given commissions, the non-cancelled payout
	// holding each of them
	ClaimedBy(ctx context.Context, tenantID uuid.UUID, commissionIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
	Create(ctx context.Context, p *Payout) error
	// SaveWithLock stores the header and appends new audit records; a
	// cancelled payout releases its items
	SaveWithLock(ctx context.Context, p *Payout) error
}
