package settlement

import (
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypePartnerFinancialConfigured = "PartnerFinancialConfigured"
	EventTypeCommissionRecorded         = "CommissionRecorded"
	EventTypeCommissionCancelled        = "CommissionCancelled"
	EventTypeCommissionRefunded         = "CommissionRefunded"
)

// PartnerFinancialConfiguredEvent is raised when a partner's commission setup changes
type PartnerFinancialConfiguredEvent struct {
	shared.BaseDomainEvent
	PartnerID      uuid.UUID      `json:"partner_id"`
	StructureKind  StructureKind  `json:"structure_kind"`
	VATApplicable  bool           `json:"vat_applicable"`
	MarkupStrategy MarkupStrategy `json:"markup_strategy"`
}

// NewPartnerFinancialConfiguredEvent creates a new PartnerFinancialConfiguredEvent
func NewPartnerFinancialConfiguredEvent(p *PartnerFinancial) *PartnerFinancialConfiguredEvent {
	return &PartnerFinancialConfiguredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePartnerFinancialConfigured, "PartnerFinancial", p.ID, p.TenantID),
		PartnerID:       p.PartnerID,
		StructureKind:   p.Structure.Kind(),
		VATApplicable:   p.VATApplicable,
		MarkupStrategy:  p.Markup.Strategy,
	}
}

// CommissionRecordedEvent is raised when an order split is persisted
type CommissionRecordedEvent struct {
	shared.BaseDomainEvent
	OrderID          string          `json:"order_id"`
	PartnerID        uuid.UUID       `json:"partner_id"`
	OrderDate        time.Time       `json:"order_date"`
	OrderAmount      decimal.Decimal `json:"order_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	VATAmount        decimal.Decimal `json:"vat_amount"`
	PartnerNet       decimal.Decimal `json:"partner_net"`
}

// NewCommissionRecordedEvent creates a new CommissionRecordedEvent
func NewCommissionRecordedEvent(c *Commission) *CommissionRecordedEvent {
	return &CommissionRecordedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeCommissionRecorded, "Commission", c.ID, c.TenantID),
		OrderID:          c.OrderID,
		PartnerID:        c.PartnerID,
		OrderDate:        c.OrderDate,
		OrderAmount:      c.OrderAmount,
		CommissionAmount: c.CommissionAmount,
		VATAmount:        c.VATAmount,
		PartnerNet:       c.PartnerNet,
	}
}

// CommissionVoidedEvent is raised when a commission is cancelled or refunded
type CommissionVoidedEvent struct {
	shared.BaseDomainEvent
	OrderID    string          `json:"order_id"`
	PartnerID  uuid.UUID       `json:"partner_id"`
	PartnerNet decimal.Decimal `json:"partner_net"`
	Reason     string          `json:"reason,omitempty"`
}

// NewCommissionVoidedEvent creates a new CommissionVoidedEvent of the given type
func NewCommissionVoidedEvent(c *Commission, eventType string) *CommissionVoidedEvent {
	return &CommissionVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Commission", c.ID, c.TenantID),
		OrderID:         c.OrderID,
		PartnerID:       c.PartnerID,
		PartnerNet:      c.PartnerNet,
		Reason:          c.Reason,
	}
}
