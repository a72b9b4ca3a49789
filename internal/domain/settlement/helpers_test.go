package settlement

import (
	"testing"
	"time"

	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testTenant  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	testPartner = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func standardTiers() TieredStructure {
	return TieredStructure{Tiers: []Tier{
		{MinAmount: dec("1000"), MaxAmount: decp("5000"), Rate: dec("8")},
		{MinAmount: dec("0"), MaxAmount: decp("1000"), Rate: dec("5")},
		{MinAmount: dec("5000"), MaxAmount: nil, Rate: dec("12")},
	}}
}

func weekly() PayoutSchedule {
	return PayoutSchedule{Frequency: PayoutWeekly, Weekday: time.Monday, MinimumAmount: decimal.Zero}
}

func newPartner(t *testing.T, structure CommissionStructure, mutate ...func(*FinancialConfig)) *PartnerFinancial {
	t.Helper()
	cfg := FinancialConfig{
		PartnerName: "Garage One",
		Structure:   structure,
		Markup:      MarkupConfig{Strategy: MarkupPartnerPays, Percentage: decimal.Zero},
		Schedule:    weekly(),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	pf, err := NewPartnerFinancial(testTenant, testPartner, cfg)
	require.NoError(t, err)
	return pf
}

func quote(amount, category string) OrderQuote {
	return OrderQuote{
		OrderID:   "ORD-1",
		PartnerID: testPartner,
		Amount:    dec(amount),
		Category:  category,
		OrderDate: time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC),
	}
}

func calculator() *Calculator {
	return NewCalculator(valueobject.DefaultRounding)
}
