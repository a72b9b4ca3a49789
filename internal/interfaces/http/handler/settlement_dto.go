package handler

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	settlementapp "github.com/clutch/ledger/internal/application/settlement"
	"github.com/clutch/ledger/internal/domain/settlement"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarkupRequest is the platform markup of a partner
type MarkupRequest struct {
	Strategy     string          `json:"strategy" binding:"required,oneof=partner_pays user_pays split" example:"partner_pays"`
	Percentage   decimal.Decimal `json:"percentage" binding:"decimal_gte0" swaggertype:"string" example:"2.5"`
	PartnerShare decimal.Decimal `json:"partner_share" binding:"decimal_gte0" swaggertype:"string" example:"50"`
}

// ScheduleRequest says when a partner is paid. weekday is 0 (Sunday) to 6.
type ScheduleRequest struct {
	Frequency     string          `json:"frequency" binding:"required,oneof=weekly biweekly monthly" example:"weekly"`
	Weekday       int             `json:"weekday" binding:"min=0,max=6" example:"1"`
	MinimumAmount decimal.Decimal `json:"minimum_amount" binding:"decimal_gte0" swaggertype:"string" example:"50"`
}

// ConfigurePartnerRequest sets the commission terms of a partner. structure
// is a kind-discriminated document, e.g.
// {"kind":"tiered","tiers":[{"min_amount":"0","rate":"10"}]}.
//
//	@Description	Request body for configuring partner financials
type ConfigurePartnerRequest struct {
	PartnerName   string          `json:"partner_name" binding:"required,max=200" example:"Bistro 21"`
	Structure     json.RawMessage `json:"structure" binding:"required" swaggertype:"object"`
	VATApplicable bool            `json:"vat_applicable"`
	VATRate       decimal.Decimal `json:"vat_rate" binding:"decimal_gte0" swaggertype:"string" example:"21"`
	Markup        MarkupRequest   `json:"markup"`
	Schedule      ScheduleRequest `json:"schedule"`
}

func (r ConfigurePartnerRequest) toApp() (settlementapp.ConfigurePartnerRequest, error) {
	structure, err := settlement.UnmarshalStructure(r.Structure)
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			return settlementapp.ConfigurePartnerRequest{}, err
		}
		return settlementapp.ConfigurePartnerRequest{}, shared.NewValidationError("structure", err.Error())
	}
	return settlementapp.ConfigurePartnerRequest{
		PartnerName:   r.PartnerName,
		Structure:     structure,
		VATApplicable: r.VATApplicable,
		VATRate:       r.VATRate,
		Markup: settlement.MarkupConfig{
			Strategy:     settlement.MarkupStrategy(r.Markup.Strategy),
			Percentage:   r.Markup.Percentage,
			PartnerShare: r.Markup.PartnerShare,
		},
		Schedule: settlement.PayoutSchedule{
			Frequency:     settlement.PayoutFrequency(r.Schedule.Frequency),
			Weekday:       time.Weekday(r.Schedule.Weekday),
			MinimumAmount: r.Schedule.MinimumAmount,
		},
	}, nil
}

// OrderRequest is an order to split between partner and platform
//
//	@Description	Request body for commission calculation and recording
type OrderRequest struct {
	OrderID       string          `json:"order_id" binding:"required,max=100" example:"ORD-1001"`
	PartnerID     uuid.UUID       `json:"partner_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"decimal_gt0" swaggertype:"string" example:"42.00"`
	Category      string          `json:"category" binding:"max=100" example:"food"`
	PaymentMethod string          `json:"payment_method" binding:"max=50" example:"card"`
	OrderDate     string          `json:"order_date" example:"2026-03-09"`
}

func (r OrderRequest) toApp() (settlementapp.OrderRequest, error) {
	orderDate, err := parseDate("order_date", r.OrderDate)
	if err != nil {
		return settlementapp.OrderRequest{}, err
	}
	return settlementapp.OrderRequest{
		OrderID:       r.OrderID,
		PartnerID:     r.PartnerID,
		Amount:        r.Amount,
		Category:      r.Category,
		PaymentMethod: strings.ToLower(r.PaymentMethod),
		OrderDate:     dateOrZero(orderDate),
	}, nil
}

// VoidCommissionRequest cancels or refunds a recorded commission
type VoidCommissionRequest struct {
	Reason    string `json:"reason" binding:"required,max=500" example:"Order refunded"`
	EntryDate string `json:"entry_date" example:"2026-03-12"`
}

func (r VoidCommissionRequest) toApp() (settlementapp.VoidRequest, error) {
	entryDate, err := parseDate("entry_date", r.EntryDate)
	if err != nil {
		return settlementapp.VoidRequest{}, err
	}
	return settlementapp.VoidRequest{Reason: r.Reason, EntryDate: entryDate}, nil
}
