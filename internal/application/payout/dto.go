package payout

import (
	"time"

	"github.com/clutch/ledger/internal/domain/payout"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchPayoutRequest selects the period and deductions of a new payout
type BatchPayoutRequest struct {
	PartnerID   uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	Deductions  []payout.DeductionInput
}

// TransitionRequest carries the optional reason of a status change
type TransitionRequest struct {
	Reason string
}

// CompletePayoutRequest confirms a transfer. EntryDate dates the posting
// and defaults to now.
type CompletePayoutRequest struct {
	PaymentReference string
	EntryDate        *time.Time
}

// PayoutResponse represents a payout in API responses
type PayoutResponse struct {
	ID               uuid.UUID            `json:"id"`
	TenantID         uuid.UUID            `json:"tenant_id"`
	Number           string               `json:"number"`
	PartnerID        uuid.UUID            `json:"partner_id"`
	PeriodStart      time.Time            `json:"period_start"`
	PeriodEnd        time.Time            `json:"period_end"`
	Items            []payout.Item        `json:"items"`
	TotalOrders      int                  `json:"total_orders"`
	TotalRevenue     decimal.Decimal      `json:"total_revenue"`
	PlatformShare    decimal.Decimal      `json:"platform_share"`
	GrossCommission  decimal.Decimal      `json:"gross_commission"`
	Deductions       []payout.Deduction   `json:"deductions"`
	TotalDeductions  decimal.Decimal      `json:"total_deductions"`
	NetPayout        decimal.Decimal      `json:"net_payout"`
	Status           string               `json:"status"`
	AuditLog         []payout.AuditRecord `json:"audit_log"`
	PaymentReference string               `json:"payment_reference,omitempty"`
	FailureReason    string               `json:"failure_reason,omitempty"`
	CompletedAt      *time.Time           `json:"completed_at,omitempty"`
	JournalEntryID   *uuid.UUID           `json:"journal_entry_id,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	Version          int                  `json:"version"`
}

// ToPayoutResponse converts a domain Payout to a response
func ToPayoutResponse(p *payout.Payout) PayoutResponse {
	return PayoutResponse{
		ID:               p.ID,
		TenantID:         p.TenantID,
		Number:           p.Number,
		PartnerID:        p.PartnerID,
		PeriodStart:      p.PeriodStart,
		PeriodEnd:        p.PeriodEnd,
		Items:            p.Items,
		TotalOrders:      p.TotalOrders,
		TotalRevenue:     p.TotalRevenue,
		PlatformShare:    p.PlatformShare,
		GrossCommission:  p.GrossCommission,
		Deductions:       p.Deductions,
		TotalDeductions:  p.TotalDeductions,
		NetPayout:        p.NetPayout,
		Status:           string(p.Status),
		AuditLog:         p.AuditLog,
		PaymentReference: p.PaymentReference,
		FailureReason:    p.FailureReason,
		CompletedAt:      p.CompletedAt,
		JournalEntryID:   p.JournalEntryID,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		Version:          p.Version,
	}
}

// PayoutListFilter represents filter options for the payout list
type PayoutListFilter struct {
	PartnerID *uuid.UUID `form:"-"` // partner_id, parsed by the handler
	Status    string     `form:"status"`
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir"`
}

func (f PayoutListFilter) toDomain() payout.Filter {
	filter := payout.Filter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
		},
		PartnerID: f.PartnerID,
		From:      f.From,
		To:        f.To,
	}
	if f.Status != "" {
		s := payout.Status(f.Status)
		filter.Status = &s
	}
	return filter
}

// WeeklySummaryRow is the unpaid position of one partner over a period
type WeeklySummaryRow struct {
	PartnerID        uuid.UUID       `json:"partner_id"`
	PartnerName      string          `json:"partner_name,omitempty"`
	CommissionCount  int64           `json:"commission_count"`
	OrderAmount      decimal.Decimal `json:"order_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	PartnerNet       decimal.Decimal `json:"partner_net"`
	PendingReturns   decimal.Decimal `json:"pending_returns"`
}

// WeeklySummaryResponse lists unpaid commissions per partner
type WeeklySummaryResponse struct {
	From       time.Time          `json:"from"`
	To         time.Time          `json:"to"`
	Partners   []WeeklySummaryRow `json:"partners"`
	TotalNet   decimal.Decimal    `json:"total_net"`
	TotalCount int64              `json:"total_count"`
}

// GenerationResult reports a scheduled payout generation pass
type GenerationResult struct {
	AsOf    time.Time        `json:"as_of"`
	Created []PayoutResponse `json:"created"`
	// Skipped maps partner ids to the reason no payout was created
	Skipped map[uuid.UUID]string `json:"skipped"`
}
