package settlement

import (
	"errors"
	"testing"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPartnerFinancial_Validation(t *testing.T) {
	_, err := NewPartnerFinancial(testTenant, uuid.Nil, FinancialConfig{Structure: FixedStructure{Rate: dec("1")}, Markup: MarkupConfig{Strategy: MarkupUserPays}, Schedule: weekly()})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = NewPartnerFinancial(testTenant, testPartner, FinancialConfig{Markup: MarkupConfig{Strategy: MarkupUserPays}, Schedule: weekly()})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = NewPartnerFinancial(testTenant, testPartner, FinancialConfig{Structure: FixedStructure{Rate: dec("1")}, Markup: MarkupConfig{Strategy: "nobody_pays"}, Schedule: weekly()})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	pf := newPartner(t, FixedStructure{Rate: dec("1")}, func(c *FinancialConfig) {
		c.VATApplicable = false
		c.VATRate = dec("14")
	})
	assert.True(t, pf.VATRate.IsZero())
}

func TestPartnerFinancial_Counters(t *testing.T) {
	pf := newPartner(t, FixedStructure{Rate: dec("10")})
	a := recorded(t, pf, "100")
	b := recorded(t, pf, "200")
	pf.ApplyCommission(a)
	pf.ApplyCommission(b)
	f := pf.Financials
	assert.Equal(t, int64(2), f.OrderCount)
	assert.True(t, f.TotalRevenue.Equal(dec("300")))
	assert.True(t, f.TotalCommission.Equal(dec("30")))
	assert.True(t, f.UnpaidCommission.Equal(dec("270")))

	pf.RevertCommission(a, false)
	assert.True(t, pf.Financials.UnpaidCommission.Equal(dec("180")))

	pf.SettlePayout(dec("180"), dec("175"), decimal.Zero, time.Now())
	assert.True(t, pf.Financials.UnpaidCommission.IsZero())
	assert.True(t, pf.Financials.TotalPaid.Equal(dec("175")))
	require.NotNil(t, pf.LastPayoutAt)

	pf.RevertCommission(b, true)
	assert.True(t, pf.Financials.PendingReturns.Equal(dec("180")))
	pf.SettlePayout(decimal.Zero, decimal.Zero, dec("180"), time.Now())
	assert.True(t, pf.Financials.PendingReturns.IsZero())
}

func TestPayoutSchedule(t *testing.T) {
	monday := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	s := weekly()

	from, to := s.Period(monday)
	assert.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, time.March, 8, 23, 59, 59, 999999999, time.UTC), to)

	assert.True(t, s.IsDue(monday, nil))
	assert.False(t, s.IsDue(monday.AddDate(0, 0, 1), nil))
	paidToday := monday.Add(2 * time.Hour)
	assert.False(t, s.IsDue(monday, &paidToday))
	lastWeek := monday.AddDate(0, 0, -7)
	assert.True(t, s.IsDue(monday, &lastWeek))

	monthly := PayoutSchedule{Frequency: PayoutMonthly}
	assert.True(t, monthly.IsDue(time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), nil))
	assert.False(t, monthly.IsDue(time.Date(2026, time.April, 2, 0, 0, 0, 0, time.UTC), nil))

	assert.Error(t, PayoutSchedule{Frequency: "daily"}.Validate())
}
