package handler

import (
	"strings"

	payoutapp "github.com/clutch/ledger/internal/application/payout"
	"github.com/clutch/ledger/internal/domain/payout"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeductionRequest is an amount withheld from a payout
type DeductionRequest struct {
	Type        string          `json:"type" binding:"required" example:"PENALTY"`
	Amount      decimal.Decimal `json:"amount" binding:"decimal_gt0" swaggertype:"string" example:"15.00"`
	OrderRef    string          `json:"order_ref" binding:"max=100"`
	Description string          `json:"description" binding:"max=500"`
}

// BatchPayoutRequest batches the unpaid commissions of a partner over a period
//
//	@Description	Request body for creating a payout
type BatchPayoutRequest struct {
	PartnerID   uuid.UUID          `json:"partner_id" binding:"required"`
	PeriodStart string             `json:"period_start" binding:"required" example:"2026-03-02"`
	PeriodEnd   string             `json:"period_end" binding:"required" example:"2026-03-08"`
	Deductions  []DeductionRequest `json:"deductions" binding:"omitempty,dive"`
}

func (r BatchPayoutRequest) toApp() (payoutapp.BatchPayoutRequest, error) {
	start, err := parseDate("period_start", r.PeriodStart)
	if err != nil {
		return payoutapp.BatchPayoutRequest{}, err
	}
	end, err := parseDate("period_end", r.PeriodEnd)
	if err != nil {
		return payoutapp.BatchPayoutRequest{}, err
	}
	if end.Before(*start) {
		return payoutapp.BatchPayoutRequest{}, shared.NewValidationError("period_end", "must not be before period_start")
	}
	deductions := make([]payout.DeductionInput, len(r.Deductions))
	for i, d := range r.Deductions {
		deductions[i] = payout.DeductionInput{
			Type:        payout.DeductionType(strings.ToUpper(d.Type)),
			Amount:      d.Amount,
			OrderRef:    d.OrderRef,
			Description: d.Description,
		}
	}
	return payoutapp.BatchPayoutRequest{
		PartnerID:   r.PartnerID,
		PeriodStart: *start,
		PeriodEnd:   *end,
		Deductions:  deductions,
	}, nil
}

// CompletePayoutRequest confirms the transfer of a payout
type CompletePayoutRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required,max=100" example:"SEPA-20260309-001"`
	EntryDate        string `json:"entry_date" example:"2026-03-09"`
}

// GeneratePayoutsRequest runs payout generation for the due partners
type GeneratePayoutsRequest struct {
	AsOf string `json:"as_of" example:"2026-03-09"`
}
