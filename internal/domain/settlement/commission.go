package settlement

import (
	"strings"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionStatus is the lifecycle state of a commission
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "PENDING"
	CommissionStatusPaid      CommissionStatus = "PAID"
	CommissionStatusCancelled CommissionStatus = "CANCELLED"
	CommissionStatusRefunded  CommissionStatus = "REFUNDED"
)

// IsValid reports whether the status is known
func (s CommissionStatus) IsValid() bool {
	switch s {
	case CommissionStatusPending, CommissionStatusPaid, CommissionStatusCancelled, CommissionStatusRefunded:
		return true
	}
	return false
}

// AllCommissionStatuses lists the statuses in lifecycle order
var AllCommissionStatuses = []CommissionStatus{
	CommissionStatusPending, CommissionStatusPaid, CommissionStatusCancelled, CommissionStatusRefunded,
}

// Commission is the recorded split of one order
type Commission struct {
	shared.TenantAggregateRoot
	OrderID          string            `json:"order_id"`
	PartnerID        uuid.UUID         `json:"partner_id"`
	Category         string            `json:"category,omitempty"`
	PaymentMethod    string            `json:"payment_method,omitempty"`
	OrderDate        time.Time         `json:"order_date"`
	OrderAmount      decimal.Decimal   `json:"order_amount"`
	CommissionRate   decimal.Decimal   `json:"commission_rate"`
	CommissionAmount decimal.Decimal   `json:"commission_amount"`
	VATAmount        decimal.Decimal   `json:"vat_amount"`
	PartnerNet       decimal.Decimal   `json:"partner_net"`
	PlatformRevenue  decimal.Decimal   `json:"platform_revenue"`
	MarkupRevenue    decimal.Decimal   `json:"markup_revenue"`
	CustomerCharged  decimal.Decimal   `json:"customer_charged"`
	Detail           CalculationDetail `json:"calculation_detail"`
	Status           CommissionStatus  `json:"status"`
	JournalEntryID   *uuid.UUID        `json:"journal_entry_id,omitempty"`
	PayoutID         *uuid.UUID        `json:"payout_id,omitempty"`
	PaidAt           *time.Time        `json:"paid_at,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
	RefundedAt       *time.Time        `json:"refunded_at,omitempty"`
	Reason           string            `json:"reason,omitempty"`
}

// NewCommission records a computed split. The conservation check runs
// again here so that no split can be persisted without it.
func NewCommission(tenantID uuid.UUID, quote OrderQuote, split *Split, rounding valueobject.Rounding) (*Commission, error) {
	orderID := strings.TrimSpace(quote.OrderID)
	if orderID == "" {
		return nil, shared.NewValidationError("order_id", "order id is required")
	}
	if quote.PartnerID == uuid.Nil {
		return nil, shared.NewValidationError("partner_id", "partner is required")
	}
	if quote.OrderDate.IsZero() {
		return nil, shared.NewValidationError("order_date", "order date is required")
	}
	if err := VerifyConservation(orderID, split, rounding); err != nil {
		return nil, err
	}
	c := &Commission{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderID:             orderID,
		PartnerID:           quote.PartnerID,
		Category:            strings.TrimSpace(quote.Category),
		PaymentMethod:       strings.TrimSpace(quote.PaymentMethod),
		OrderDate:           quote.OrderDate,
		OrderAmount:         split.OrderAmount,
		CommissionRate:      split.CommissionRate,
		CommissionAmount:    split.CommissionAmount,
		VATAmount:           split.VATAmount,
		PartnerNet:          split.PartnerNet,
		PlatformRevenue:     split.PlatformRevenue,
		MarkupRevenue:       split.MarkupRevenue,
		CustomerCharged:     split.CustomerCharged,
		Detail:              split.Detail,
		Status:              CommissionStatusPending,
	}
	c.AddDomainEvent(NewCommissionRecordedEvent(c))
	return c, nil
}

// Split returns the stored distribution
func (c *Commission) Split() *Split {
	return &Split{
		OrderAmount:      c.OrderAmount,
		CommissionRate:   c.CommissionRate,
		CommissionAmount: c.CommissionAmount,
		VATAmount:        c.VATAmount,
		PartnerNet:       c.PartnerNet,
		PlatformRevenue:  c.PlatformRevenue,
		MarkupRevenue:    c.MarkupRevenue,
		CustomerCharged:  c.CustomerCharged,
		Detail:           c.Detail,
	}
}

// AttachJournalEntry links the entry that posted the split
func (c *Commission) AttachJournalEntry(id uuid.UUID) {
	c.JournalEntryID = &id
}

// Cancel voids a commission that has not been paid
func (c *Commission) Cancel(reason string) error {
	if c.Status != CommissionStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState,
			"only a pending commission can be cancelled, order "+c.OrderID+" is "+string(c.Status))
	}
	now := time.Now()
	c.Status = CommissionStatusCancelled
	c.CancelledAt = &now
	c.Reason = strings.TrimSpace(reason)
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewCommissionVoidedEvent(c, EventTypeCommissionCancelled))
	return nil
}

// Refund voids the commission of a refunded order. It reports whether the
// partner had already been paid for it.
func (c *Commission) Refund(reason string) (wasPaid bool, err error) {
	switch c.Status {
	case CommissionStatusPending:
	case CommissionStatusPaid:
		wasPaid = true
	default:
		return false, shared.NewDomainError(shared.CodeInvalidState,
			"commission of order "+c.OrderID+" is already "+string(c.Status))
	}
	now := time.Now()
	c.Status = CommissionStatusRefunded
	c.RefundedAt = &now
	c.Reason = strings.TrimSpace(reason)
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewCommissionVoidedEvent(c, EventTypeCommissionRefunded))
	return wasPaid, nil
}

// MarkPaid finalizes the commission as settled by a completed payout
func (c *Commission) MarkPaid(payoutID uuid.UUID, at time.Time) error {
	if c.Status != CommissionStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState,
			"commission of order "+c.OrderID+" is "+string(c.Status)+", not pending")
	}
	c.Status = CommissionStatusPaid
	c.PayoutID = &payoutID
	c.PaidAt = &at
	c.Touch()
	c.IncrementVersion()
	return nil
}

// StatusSummary aggregates commissions of one status
type StatusSummary struct {
	Status           CommissionStatus `json:"status"`
	Count            int64            `json:"count"`
	OrderAmount      decimal.Decimal  `json:"order_amount"`
	CommissionAmount decimal.Decimal  `json:"commission_amount"`
	PartnerNet       decimal.Decimal  `json:"partner_net"`
}

// CompleteSummary returns one row per status in lifecycle order, filling
// the statuses that have no commissions with zeros.
func CompleteSummary(rows []StatusSummary) []StatusSummary {
	byStatus := make(map[CommissionStatus]StatusSummary, len(rows))
	for _, r := range rows {
		byStatus[r.Status] = r
	}
	out := make([]StatusSummary, 0, len(AllCommissionStatuses))
	for _, s := range AllCommissionStatuses {
		r, ok := byStatus[s]
		if !ok {
			r = StatusSummary{Status: s, OrderAmount: decimal.Zero, CommissionAmount: decimal.Zero, PartnerNet: decimal.Zero}
		}
		out = append(out, r)
	}
	return out
}
