package settlement

import (
	"context"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartnerFinancialRepository persists partner configurations and counters
type PartnerFinancialRepository interface {
	FindByPartner(ctx context.Context, tenantID, partnerID uuid.UUID) (*PartnerFinancial, error)
	// ListActive returns every active partner of a tenant
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]*PartnerFinancial, error)
	Create(ctx context.Context, pf *PartnerFinancial) error
	SaveWithLock(ctx context.Context, pf *PartnerFinancial) error
}

// CommissionFilter defines filtering options for commission queries
type CommissionFilter struct {
	shared.Filter
	PartnerID *uuid.UUID
	Status    *CommissionStatus
	From      *time.Time
	To        *time.Time
}

// PartnerUnpaidSummary is one row of the weekly payout summary
type PartnerUnpaidSummary struct {
	PartnerID        uuid.UUID       `json:"partner_id"`
	CommissionCount  int64           `json:"commission_count"`
	OrderAmount      decimal.Decimal `json:"order_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	PartnerNet       decimal.Decimal `json:"partner_net"`
}

// CommissionRepository persists commissions
type CommissionRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Commission, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Commission, error)
	// FindByOrderID returns the commission recorded for an order, if any
	FindByOrderID(ctx context.Context, tenantID uuid.UUID, orderID string) (*Commission, error)
	List(ctx context.Context, tenantID uuid.UUID, filter CommissionFilter) ([]*Commission, int64, error)
	// FindPending returns pending commissions of a partner with from <= orderDate <= to
	FindPending(ctx context.Context, tenantID, partnerID uuid.UUID, from, to time.Time) ([]*Commission, error)
	SummaryByStatus(ctx context.Context, tenantID, partnerID uuid.UUID) ([]StatusSummary, error)
	// BreakdownRows groups the partner's commissions with from <= orderDate <= to
	// by order date, status and category
	BreakdownRows(ctx context.Context, tenantID, partnerID uuid.UUID, from, to time.Time) ([]BreakdownRow, error)
	// UnpaidByPartner groups pending commissions with from <= orderDate <= to per partner
	UnpaidByPartner(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]PartnerUnpaidSummary, error)
	Create(ctx context.Context, c *Commission) error
	SaveWithLock(ctx context.Context, c *Commission) error
}
