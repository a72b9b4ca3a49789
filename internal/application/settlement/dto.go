package settlement

import (
	"time"

	"github.com/clutch/ledger/internal/domain/settlement"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConfigurePartnerRequest holds the administrative configuration of a partner
type ConfigurePartnerRequest struct {
	PartnerName   string
	Structure     settlement.CommissionStructure
	VATApplicable bool
	VATRate       decimal.Decimal
	Markup        settlement.MarkupConfig
	Schedule      settlement.PayoutSchedule
}

func (r ConfigurePartnerRequest) toConfig() settlement.FinancialConfig {
	return settlement.FinancialConfig{
		PartnerName:   r.PartnerName,
		Structure:     r.Structure,
		VATApplicable: r.VATApplicable,
		VATRate:       r.VATRate,
		Markup:        r.Markup,
		Schedule:      r.Schedule,
	}
}

// PartnerFinancialResponse represents a partner configuration in API responses
type PartnerFinancialResponse struct {
	ID            uuid.UUID                      `json:"id"`
	TenantID      uuid.UUID                      `json:"tenant_id"`
	PartnerID     uuid.UUID                      `json:"partner_id"`
	PartnerName   string                         `json:"partner_name"`
	Structure     settlement.CommissionStructure `json:"structure"`
	StructureKind string                         `json:"structure_kind"`
	VATApplicable bool                           `json:"vat_applicable"`
	VATRate       decimal.Decimal                `json:"vat_rate"`
	Markup        settlement.MarkupConfig        `json:"markup"`
	Schedule      settlement.PayoutSchedule      `json:"schedule"`
	Financials    settlement.Financials          `json:"financials"`
	LastPayoutAt  *time.Time                     `json:"last_payout_at,omitempty"`
	IsActive      bool                           `json:"is_active"`
	UpdatedAt     time.Time                      `json:"updated_at"`
	Version       int                            `json:"version"`
}

// ToPartnerFinancialResponse converts a domain PartnerFinancial to a response
func ToPartnerFinancialResponse(p *settlement.PartnerFinancial) PartnerFinancialResponse {
	resp := PartnerFinancialResponse{
		ID:            p.ID,
		TenantID:      p.TenantID,
		PartnerID:     p.PartnerID,
		PartnerName:   p.PartnerName,
		Structure:     p.Structure,
		VATApplicable: p.VATApplicable,
		VATRate:       p.VATRate,
		Markup:        p.Markup,
		Schedule:      p.Schedule,
		Financials:    p.Financials,
		LastPayoutAt:  p.LastPayoutAt,
		IsActive:      p.IsActive,
		UpdatedAt:     p.UpdatedAt,
		Version:       p.Version,
	}
	if p.Structure != nil {
		resp.StructureKind = string(p.Structure.Kind())
	}
	return resp
}

// OrderRequest is an order handed over for settlement
type OrderRequest struct {
	OrderID       string
	PartnerID     uuid.UUID
	Amount        decimal.Decimal
	Category      string
	PaymentMethod string
	OrderDate     time.Time
}

func (r OrderRequest) toQuote() settlement.OrderQuote {
	orderDate := r.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}
	return settlement.OrderQuote{
		OrderID:       r.OrderID,
		PartnerID:     r.PartnerID,
		Amount:        r.Amount,
		Category:      r.Category,
		PaymentMethod: r.PaymentMethod,
		OrderDate:     orderDate,
	}
}

// VoidRequest cancels or refunds a commission. EntryDate dates the
// reversing journal entry and defaults to now.
type VoidRequest struct {
	Reason    string
	EntryDate *time.Time
}

// CommissionResponse represents a commission in API responses
type CommissionResponse struct {
	ID               uuid.UUID                    `json:"id"`
	TenantID         uuid.UUID                    `json:"tenant_id"`
	OrderID          string                       `json:"order_id"`
	PartnerID        uuid.UUID                    `json:"partner_id"`
	Category         string                       `json:"category,omitempty"`
	PaymentMethod    string                       `json:"payment_method,omitempty"`
	OrderDate        time.Time                    `json:"order_date"`
	OrderAmount      decimal.Decimal              `json:"order_amount"`
	CommissionRate   decimal.Decimal              `json:"commission_rate"`
	CommissionAmount decimal.Decimal              `json:"commission_amount"`
	VATAmount        decimal.Decimal              `json:"vat_amount"`
	PartnerNet       decimal.Decimal              `json:"partner_net"`
	PlatformRevenue  decimal.Decimal              `json:"platform_revenue"`
	MarkupRevenue    decimal.Decimal              `json:"markup_revenue"`
	CustomerCharged  decimal.Decimal              `json:"customer_charged"`
	Detail           settlement.CalculationDetail `json:"calculation_detail"`
	Status           string                       `json:"status"`
	JournalEntryID   *uuid.UUID                   `json:"journal_entry_id,omitempty"`
	PayoutID         *uuid.UUID                   `json:"payout_id,omitempty"`
	PaidAt           *time.Time                   `json:"paid_at,omitempty"`
	Reason           string                       `json:"reason,omitempty"`
	CreatedAt        time.Time                    `json:"created_at"`
	Version          int                          `json:"version"`
}

// ToCommissionResponse converts a domain Commission to a response
func ToCommissionResponse(c *settlement.Commission) CommissionResponse {
	return CommissionResponse{
		ID:               c.ID,
		TenantID:         c.TenantID,
		OrderID:          c.OrderID,
		PartnerID:        c.PartnerID,
		Category:         c.Category,
		PaymentMethod:    c.PaymentMethod,
		OrderDate:        c.OrderDate,
		OrderAmount:      c.OrderAmount,
		CommissionRate:   c.CommissionRate,
		CommissionAmount: c.CommissionAmount,
		VATAmount:        c.VATAmount,
		PartnerNet:       c.PartnerNet,
		PlatformRevenue:  c.PlatformRevenue,
		MarkupRevenue:    c.MarkupRevenue,
		CustomerCharged:  c.CustomerCharged,
		Detail:           c.Detail,
		Status:           string(c.Status),
		JournalEntryID:   c.JournalEntryID,
		PayoutID:         c.PayoutID,
		PaidAt:           c.PaidAt,
		Reason:           c.Reason,
		CreatedAt:        c.CreatedAt,
		Version:          c.Version,
	}
}

// CommissionListFilter represents filter options for the commission list
type CommissionListFilter struct {
	PartnerID *uuid.UUID `form:"-"` // partner_id, parsed by the handler
	Status    string     `form:"status"`
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir"`
}

func (f CommissionListFilter) toDomain() settlement.CommissionFilter {
	filter := settlement.CommissionFilter{
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
		s := settlement.CommissionStatus(f.Status)
		filter.Status = &s
	}
	return filter
}

// CommissionSummaryResponse groups a partner's commissions by status
type CommissionSummaryResponse struct {
	PartnerID  uuid.UUID                  `json:"partner_id"`
	ByStatus   []settlement.StatusSummary `json:"by_status"`
	Financials settlement.Financials      `json:"financials"`
}

// BreakdownRequest selects the window of a commission breakdown. The window
// ends on AsOf, today when nil.
type BreakdownRequest struct {
	Period string
	AsOf   *time.Time
}
