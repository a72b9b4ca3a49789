package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	EGP Currency = "EGP" // Egyptian Pound (default)
	USD Currency = "USD"
	EUR Currency = "EUR"
	SAR Currency = "SAR"
	AED Currency = "AED"
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = EGP

// IsValid reports whether the currency is supported
func (c Currency) IsValid() bool {
	switch c {
	case EGP, USD, EUR, SAR, AED:
		return true
	}
	return false
}

// Rounding fixes how currency amounts are rounded. Every amount that is
// persisted or compared for conservation goes through Round, so the same
// policy applies at every transition point.
type Rounding struct {
	// Places is the number of fractional digits kept (2 for piastres / cents)
	Places int32
	// Tolerance is the largest absolute difference treated as equal
	Tolerance decimal.Decimal
}

// DefaultRounding is half-up to two places with a one-cent tolerance
var DefaultRounding = Rounding{
	Places:    2,
	Tolerance: decimal.New(1, -2),
}

// NewRounding builds a policy; places outside [0,8] fall back to 2
func NewRounding(places int32, tolerance decimal.Decimal) Rounding {
	if places < 0 || places > 8 {
		places = 2
	}
	if tolerance.IsNegative() {
		tolerance = tolerance.Neg()
	}
	return Rounding{Places: places, Tolerance: tolerance}
}

// Round rounds half away from zero, which is half-up for the non-negative
// amounts the ledger stores.
func (r Rounding) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(r.Places)
}

// Equal reports whether a and b agree within the tolerance
func (r Rounding) Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(r.Tolerance)
}

// Percent returns amount * rate / 100, rounded
func (r Rounding) Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return r.Round(amount.Mul(rate).Div(decimal.NewFromInt(100)))
}

// Format renders an amount with the policy's fixed number of places
func (r Rounding) Format(d decimal.Decimal, currency Currency) string {
	return fmt.Sprintf("%s %s", d.StringFixed(r.Places), currency)
}

// Sum adds the amounts
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
