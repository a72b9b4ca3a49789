package settlement

import (
	"fmt"
	"slices"
	"strings"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NoMatchingTierError is returned when no bracket of a tiered structure
// contains the order amount.
type NoMatchingTierError struct {
	PartnerID uuid.UUID
	Amount    decimal.Decimal
	Brackets  int
}

func (e *NoMatchingTierError) Error() string {
	return fmt.Sprintf("no commission tier of partner %s contains amount %s (%d brackets configured)",
		e.PartnerID, e.Amount.StringFixed(2), e.Brackets)
}

// Unwrap exposes the error as a DomainError
func (e *NoMatchingTierError) Unwrap() error {
	return shared.NewDomainError(shared.CodeNoMatchingTier, e.Error()).
		WithDetail("partner_id", e.PartnerID.String()).
		WithDetail("amount", e.Amount.StringFixed(2))
}

// MissingCategoryRateError is returned when a category structure has no
// rate for the order category.
type MissingCategoryRateError struct {
	PartnerID  uuid.UUID
	Category   string
	Configured []string
}

func (e *MissingCategoryRateError) Error() string {
	configured := slices.Clone(e.Configured)
	slices.Sort(configured)
	return fmt.Sprintf("no commission rate for category %q of partner %s (configured: %s)",
		e.Category, e.PartnerID, strings.Join(configured, ", "))
}

// Unwrap exposes the error as a DomainError
func (e *MissingCategoryRateError) Unwrap() error {
	return shared.NewDomainError(shared.CodeMissingCategoryRate, e.Error()).
		WithDetail("partner_id", e.PartnerID.String()).
		WithDetail("category", e.Category)
}

// SplitConservationError is returned when the split of an order does not
// add back up to the order amount. It blocks persistence.
type SplitConservationError struct {
	OrderID         string
	OrderAmount     decimal.Decimal
	PartnerNet      decimal.Decimal
	PlatformRevenue decimal.Decimal
	VATAmount       decimal.Decimal
	Reason          string
}

// Difference is orderAmount - (partnerNet + platformRevenue + vat)
func (e *SplitConservationError) Difference() decimal.Decimal {
	return e.OrderAmount.Sub(e.PartnerNet.Add(e.PlatformRevenue).Add(e.VATAmount))
}

func (e *SplitConservationError) Error() string {
	msg := fmt.Sprintf("split of order %s does not conserve money: order %s != partner %s + platform %s + vat %s (difference %s)",
		e.OrderID, e.OrderAmount.StringFixed(2), e.PartnerNet.StringFixed(2),
		e.PlatformRevenue.StringFixed(2), e.VATAmount.StringFixed(2), e.Difference().StringFixed(2))
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap exposes the error as a DomainError carrying every component
func (e *SplitConservationError) Unwrap() error {
	return shared.NewDomainError(shared.CodeSplitConservation, e.Error()).
		WithDetail("order_id", e.OrderID).
		WithDetail("order_amount", e.OrderAmount.StringFixed(2)).
		WithDetail("partner_net", e.PartnerNet.StringFixed(2)).
		WithDetail("platform_revenue", e.PlatformRevenue.StringFixed(2)).
		WithDetail("vat_amount", e.VATAmount.StringFixed(2)).
		WithDetail("difference", e.Difference().StringFixed(2))
}
