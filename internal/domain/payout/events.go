package payout

import (
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypePayoutCreated       = "PayoutCreated"
	EventTypePayoutStatusChanged = "PayoutStatusChanged"
)

// PayoutCreatedEvent is raised when a batch is created
type PayoutCreatedEvent struct {
	shared.BaseDomainEvent
	Number          string          `json:"number"`
	PartnerID       uuid.UUID       `json:"partner_id"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
	TotalOrders     int             `json:"total_orders"`
	GrossCommission decimal.Decimal `json:"gross_commission"`
	NetPayout       decimal.Decimal `json:"net_payout"`
}

// NewPayoutCreatedEvent creates a new PayoutCreatedEvent
func NewPayoutCreatedEvent(p *Payout) *PayoutCreatedEvent {
	return &PayoutCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutCreated, "Payout", p.ID, p.TenantID),
		Number:          p.Number,
		PartnerID:       p.PartnerID,
		PeriodStart:     p.PeriodStart,
		PeriodEnd:       p.PeriodEnd,
		TotalOrders:     p.TotalOrders,
		GrossCommission: p.GrossCommission,
		NetPayout:       p.NetPayout,
	}
}

// PayoutStatusChangedEvent is raised on every transition
type PayoutStatusChangedEvent struct {
	shared.BaseDomainEvent
	Number     string          `json:"number"`
	PartnerID  uuid.UUID       `json:"partner_id"`
	FromStatus Status          `json:"from_status"`
	ToStatus   Status          `json:"to_status"`
	NetPayout  decimal.Decimal `json:"net_payout"`
	Reason     string          `json:"reason,omitempty"`
}

// NewPayoutStatusChangedEvent creates a new PayoutStatusChangedEvent
func NewPayoutStatusChangedEvent(p *Payout, from Status, reason string) *PayoutStatusChangedEvent {
	return &PayoutStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutStatusChanged, "Payout", p.ID, p.TenantID),
		Number:          p.Number,
		PartnerID:       p.PartnerID,
		FromStatus:      from,
		ToStatus:        p.Status,
		NetPayout:       p.NetPayout,
		Reason:          reason,
	}
}
