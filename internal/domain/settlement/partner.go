package settlement

import (
	"strings"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarkupStrategy decides who bears the platform markup
type MarkupStrategy string

const (
	// MarkupPartnerPays takes the markup out of the partner's net
	MarkupPartnerPays MarkupStrategy = "partner_pays"
	// MarkupUserPays adds the markup to what the customer is charged
	MarkupUserPays MarkupStrategy = "user_pays"
	// MarkupSplit divides the markup between partner and customer
	MarkupSplit MarkupStrategy = "split"
)

// IsValid reports whether the strategy is known
func (s MarkupStrategy) IsValid() bool {
	switch s {
	case MarkupPartnerPays, MarkupUserPays, MarkupSplit:
		return true
	}
	return false
}

// MarkupConfig is the platform markup of a partner. Percentage applies to the
// order amount; PartnerShare is the percentage of the markup the partner
// bears under the split strategy.
type MarkupConfig struct {
	Strategy     MarkupStrategy  `json:"strategy"`
	Percentage   decimal.Decimal `json:"percentage"`
	PartnerShare decimal.Decimal `json:"partner_share"`
}

// Validate checks percentages and strategy
func (m MarkupConfig) Validate() error {
	if !m.Strategy.IsValid() {
		return shared.NewValidationError("markup.strategy", "unknown markup strategy "+string(m.Strategy))
	}
	if err := validateRate("markup.percentage", m.Percentage); err != nil {
		return err
	}
	if m.Strategy == MarkupSplit {
		if err := validateRate("markup.partner_share", m.PartnerShare); err != nil {
			return err
		}
	}
	return nil
}

// PayoutFrequency is how often a partner is paid
type PayoutFrequency string

const (
	PayoutWeekly   PayoutFrequency = "weekly"
	PayoutBiweekly PayoutFrequency = "biweekly"
	PayoutMonthly  PayoutFrequency = "monthly"
)

// PayoutSchedule says when payouts are generated for a partner
type PayoutSchedule struct {
	Frequency PayoutFrequency `json:"frequency"`
	// Weekday is the generation day for weekly and biweekly schedules
	Weekday time.Weekday `json:"weekday"`
	// MinimumAmount skips a payout whose net would be below it
	MinimumAmount decimal.Decimal `json:"minimum_amount"`
}

// Validate checks the schedule
func (s PayoutSchedule) Validate() error {
	switch s.Frequency {
	case PayoutWeekly, PayoutBiweekly, PayoutMonthly:
	default:
		return shared.NewValidationError("schedule.frequency", "unknown payout frequency "+string(s.Frequency))
	}
	if s.Weekday < time.Sunday || s.Weekday > time.Saturday {
		return shared.NewValidationError("schedule.weekday", "weekday must be between 0 and 6")
	}
	if s.MinimumAmount.IsNegative() {
		return shared.NewValidationError("schedule.minimum_amount", "minimum amount cannot be negative")
	}
	return nil
}

// Period returns the settlement period ending the day before asOf
func (s PayoutSchedule) Period(asOf time.Time) (from, to time.Time) {
	y, m, d := asOf.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, asOf.Location())
	switch s.Frequency {
	case PayoutMonthly:
		from = end.AddDate(0, -1, 0)
	case PayoutBiweekly:
		from = end.AddDate(0, 0, -14)
	default:
		from = end.AddDate(0, 0, -7)
	}
	return from, end.Add(-time.Nanosecond)
}

// IsDue reports whether a payout should be generated on asOf given the last
// payout time.
func (s PayoutSchedule) IsDue(asOf time.Time, lastPayoutAt *time.Time) bool {
	switch s.Frequency {
	case PayoutMonthly:
		if asOf.Day() != 1 {
			return false
		}
	default:
		if asOf.Weekday() != s.Weekday {
			return false
		}
	}
	if lastPayoutAt == nil {
		return true
	}
	from, _ := s.Period(asOf)
	return !lastPayoutAt.After(from)
}

// Financials are the running counters of a partner
type Financials struct {
	OrderCount       int64           `json:"order_count"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalCommission  decimal.Decimal `json:"total_commission"`
	UnpaidCommission decimal.Decimal `json:"unpaid_commission"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	// PendingReturns is partner net of refunded orders that was already
	// paid out and is recovered from the next payout
	PendingReturns decimal.Decimal `json:"pending_returns"`
}

// PartnerFinancial is the commission configuration and the counters of one partner
type PartnerFinancial struct {
	shared.TenantAggregateRoot
	PartnerID     uuid.UUID           `json:"partner_id"`
	PartnerName   string              `json:"partner_name"`
	Structure     CommissionStructure `json:"-"`
	VATApplicable bool                `json:"vat_applicable"`
	VATRate       decimal.Decimal     `json:"vat_rate"`
	Markup        MarkupConfig        `json:"markup"`
	Schedule      PayoutSchedule      `json:"schedule"`
	Financials    Financials          `json:"financials"`
	LastPayoutAt  *time.Time          `json:"last_payout_at,omitempty"`
	IsActive      bool                `json:"is_active"`
}

// FinancialConfig is the administrative part of a partner's configuration
type FinancialConfig struct {
	PartnerName   string
	Structure     CommissionStructure
	VATApplicable bool
	VATRate       decimal.Decimal
	Markup        MarkupConfig
	Schedule      PayoutSchedule
}

// Validate checks the whole configuration
func (c FinancialConfig) Validate() error {
	if c.Structure == nil {
		return shared.NewValidationError("structure", "commission structure is required")
	}
	if err := c.Structure.Validate(); err != nil {
		return err
	}
	if c.VATApplicable {
		if err := validateRate("vat_rate", c.VATRate); err != nil {
			return err
		}
	}
	if err := c.Markup.Validate(); err != nil {
		return err
	}
	return c.Schedule.Validate()
}

// NewPartnerFinancial creates the financial profile of a partner
func NewPartnerFinancial(tenantID, partnerID uuid.UUID, cfg FinancialConfig) (*PartnerFinancial, error) {
	if partnerID == uuid.Nil {
		return nil, shared.NewValidationError("partner_id", "partner is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pf := &PartnerFinancial{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PartnerID:           partnerID,
		Financials: Financials{
			TotalRevenue:     decimal.Zero,
			TotalCommission:  decimal.Zero,
			UnpaidCommission: decimal.Zero,
			TotalPaid:        decimal.Zero,
			PendingReturns:   decimal.Zero,
		},
		IsActive: true,
	}
	pf.apply(cfg)
	pf.AddDomainEvent(NewPartnerFinancialConfiguredEvent(pf))
	return pf, nil
}

func (p *PartnerFinancial) apply(cfg FinancialConfig) {
	p.PartnerName = strings.TrimSpace(cfg.PartnerName)
	p.Structure = cfg.Structure
	p.VATApplicable = cfg.VATApplicable
	p.VATRate = cfg.VATRate
	if !cfg.VATApplicable {
		p.VATRate = decimal.Zero
	}
	p.Markup = cfg.Markup
	p.Schedule = cfg.Schedule
}

// Configure replaces the administrative configuration. Counters are kept.
func (p *PartnerFinancial) Configure(cfg FinancialConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.apply(cfg)
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewPartnerFinancialConfiguredEvent(p))
	return nil
}

// ApplyCommission adds a recorded commission to the counters
func (p *PartnerFinancial) ApplyCommission(c *Commission) {
	f := &p.Financials
	f.OrderCount++
	f.TotalRevenue = f.TotalRevenue.Add(c.OrderAmount)
	f.TotalCommission = f.TotalCommission.Add(c.CommissionAmount)
	f.UnpaidCommission = f.UnpaidCommission.Add(c.PartnerNet)
	p.Touch()
	p.IncrementVersion()
}

// RevertCommission removes a cancelled or refunded commission from the
// counters. A commission that was already paid out becomes a pending return.
func (p *PartnerFinancial) RevertCommission(c *Commission, wasPaid bool) {
	f := &p.Financials
	f.OrderCount--
	f.TotalRevenue = f.TotalRevenue.Sub(c.OrderAmount)
	f.TotalCommission = f.TotalCommission.Sub(c.CommissionAmount)
	if wasPaid {
		f.PendingReturns = f.PendingReturns.Add(c.PartnerNet)
	} else {
		f.UnpaidCommission = f.UnpaidCommission.Sub(c.PartnerNet)
	}
	p.Touch()
	p.IncrementVersion()
}

// SettlePayout moves the gross of a completed payout out of the unpaid
// counter, adds its net to the paid total and clears recovered returns.
func (p *PartnerFinancial) SettlePayout(gross, net, recoveredReturns decimal.Decimal, at time.Time) {
	f := &p.Financials
	f.UnpaidCommission = f.UnpaidCommission.Sub(gross)
	f.TotalPaid = f.TotalPaid.Add(net)
	f.PendingReturns = f.PendingReturns.Sub(recoveredReturns)
	if f.PendingReturns.IsNegative() {
		f.PendingReturns = decimal.Zero
	}
	p.LastPayoutAt = &at
	p.Touch()
	p.IncrementVersion()
}
