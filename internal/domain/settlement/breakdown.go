package settlement

import (
	"sort"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BreakdownPeriod is the trailing window of a commission breakdown
type BreakdownPeriod string

const (
	BreakdownWeek    BreakdownPeriod = "7d"
	BreakdownMonth   BreakdownPeriod = "30d"
	BreakdownQuarter BreakdownPeriod = "90d"
	BreakdownYear    BreakdownPeriod = "1y"
)

// ParseBreakdownPeriod defaults to 30 days when raw is empty
func ParseBreakdownPeriod(raw string) (BreakdownPeriod, error) {
	switch p := BreakdownPeriod(raw); p {
	case "":
		return BreakdownMonth, nil
	case BreakdownWeek, BreakdownMonth, BreakdownQuarter, BreakdownYear:
		return p, nil
	}
	return "", shared.NewValidationError("period", "expected one of 7d, 30d, 90d, 1y")
}

// Range returns the first and last order date covered when the window ends
// on asOf. Both bounds are whole days.
func (p BreakdownPeriod) Range(asOf time.Time) (from, to time.Time) {
	to = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	switch p {
	case BreakdownWeek:
		from = to.AddDate(0, 0, -6)
	case BreakdownQuarter:
		from = to.AddDate(0, 0, -89)
	case BreakdownYear:
		from = to.AddDate(-1, 0, 1)
	default:
		from = to.AddDate(0, 0, -29)
	}
	return from, to
}

// BreakdownRow aggregates the commissions of one order date, status and
// category
type BreakdownRow struct {
	OrderDate        time.Time
	Status           CommissionStatus
	Category         string
	Count            int64
	OrderAmount      decimal.Decimal
	CommissionAmount decimal.Decimal
	PartnerNet       decimal.Decimal
}

// DailyCommission is one point of the paid commission trend
type DailyCommission struct {
	Date             time.Time       `json:"date"`
	Count            int64           `json:"count"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	PartnerNet       decimal.Decimal `json:"partner_net"`
}

// CategoryCommission totals the live commissions of one order category
type CategoryCommission struct {
	Category          string          `json:"category"`
	Count             int64           `json:"count"`
	OrderAmount       decimal.Decimal `json:"order_amount"`
	CommissionAmount  decimal.Decimal `json:"commission_amount"`
	AverageCommission decimal.Decimal `json:"average_commission"`
}

// CommissionBreakdown describes a partner's commissions over a window.
// Daily follows paid commissions. ByCategory and EffectiveRate, a percentage
// of order value, leave out cancelled and refunded ones.
type CommissionBreakdown struct {
	Period        BreakdownPeriod      `json:"period"`
	From          time.Time            `json:"from"`
	To            time.Time            `json:"to"`
	Daily         []DailyCommission    `json:"daily"`
	ByCategory    []CategoryCommission `json:"by_category"`
	ByStatus      []StatusSummary      `json:"by_status"`
	EffectiveRate decimal.Decimal      `json:"effective_rate"`
}

// uncategorizedOrders labels orders recorded without a category
const uncategorizedOrders = "uncategorized"

// NewCommissionBreakdown folds the rows of a window into trends and totals
func NewCommissionBreakdown(period BreakdownPeriod, from, to time.Time, rows []BreakdownRow) *CommissionBreakdown {
	daily := make(map[time.Time]*DailyCommission)
	categories := make(map[string]*CategoryCommission)
	statuses := make(map[CommissionStatus]*StatusSummary)
	liveOrders, liveCommission := decimal.Zero, decimal.Zero

	for _, r := range rows {
		s, ok := statuses[r.Status]
		if !ok {
			s = &StatusSummary{Status: r.Status, OrderAmount: decimal.Zero, CommissionAmount: decimal.Zero, PartnerNet: decimal.Zero}
			statuses[r.Status] = s
		}
		s.Count += r.Count
		s.OrderAmount = s.OrderAmount.Add(r.OrderAmount)
		s.CommissionAmount = s.CommissionAmount.Add(r.CommissionAmount)
		s.PartnerNet = s.PartnerNet.Add(r.PartnerNet)

		if r.Status == CommissionStatusPaid {
			day := time.Date(r.OrderDate.Year(), r.OrderDate.Month(), r.OrderDate.Day(), 0, 0, 0, 0, time.UTC)
			d, ok := daily[day]
			if !ok {
				d = &DailyCommission{Date: day, CommissionAmount: decimal.Zero, PartnerNet: decimal.Zero}
				daily[day] = d
			}
			d.Count += r.Count
			d.CommissionAmount = d.CommissionAmount.Add(r.CommissionAmount)
			d.PartnerNet = d.PartnerNet.Add(r.PartnerNet)
		}

		if r.Status != CommissionStatusPending && r.Status != CommissionStatusPaid {
			continue
		}
		liveOrders = liveOrders.Add(r.OrderAmount)
		liveCommission = liveCommission.Add(r.CommissionAmount)
		name := r.Category
		if name == "" {
			name = uncategorizedOrders
		}
		c, ok := categories[name]
		if !ok {
			c = &CategoryCommission{Category: name, OrderAmount: decimal.Zero, CommissionAmount: decimal.Zero}
			categories[name] = c
		}
		c.Count += r.Count
		c.OrderAmount = c.OrderAmount.Add(r.OrderAmount)
		c.CommissionAmount = c.CommissionAmount.Add(r.CommissionAmount)
	}

	b := &CommissionBreakdown{
		Period:        period,
		From:          from,
		To:            to,
		Daily:         make([]DailyCommission, 0, len(daily)),
		ByCategory:    make([]CategoryCommission, 0, len(categories)),
		EffectiveRate: decimal.Zero,
	}
	for _, d := range daily {
		b.Daily = append(b.Daily, *d)
	}
	sort.Slice(b.Daily, func(i, j int) bool { return b.Daily[i].Date.Before(b.Daily[j].Date) })

	for _, c := range categories {
		c.AverageCommission = c.CommissionAmount.DivRound(decimal.NewFromInt(c.Count), 2)
		b.ByCategory = append(b.ByCategory, *c)
	}
	sort.Slice(b.ByCategory, func(i, j int) bool {
		if !b.ByCategory[i].CommissionAmount.Equal(b.ByCategory[j].CommissionAmount) {
			return b.ByCategory[i].CommissionAmount.GreaterThan(b.ByCategory[j].CommissionAmount)
		}
		return b.ByCategory[i].Category < b.ByCategory[j].Category
	})

	summaries := make([]StatusSummary, 0, len(statuses))
	for _, s := range statuses {
		summaries = append(summaries, *s)
	}
	b.ByStatus = CompleteSummary(summaries)

	if liveOrders.IsPositive() {
		b.EffectiveRate = liveCommission.Mul(decimal.NewFromInt(100)).DivRound(liveOrders, 2)
	}
	return b
}
