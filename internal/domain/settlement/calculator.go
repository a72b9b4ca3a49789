package settlement

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderQuote is the part of an order the calculator needs
type OrderQuote struct {
	OrderID       string          `json:"order_id"`
	PartnerID     uuid.UUID       `json:"partner_id"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	PaymentMethod string          `json:"payment_method"`
	OrderDate     time.Time       `json:"order_date"`
}

// RateResolution explains how the effective rate was obtained
type RateResolution struct {
	Kind               StructureKind   `json:"kind"`
	BaseRate           decimal.Decimal `json:"base_rate"`
	CategoryMultiplier decimal.Decimal `json:"category_multiplier"`
	TierMultiplier     decimal.Decimal `json:"tier_multiplier"`
	EffectiveRate      decimal.Decimal `json:"effective_rate"`
}

// CalculationDetail is the snapshot stored with a commission
type CalculationDetail struct {
	RateResolution
	BaseAmount       decimal.Decimal `json:"base_amount"`
	VATRate          decimal.Decimal `json:"vat_rate"`
	MarkupApplied    bool            `json:"markup_applied"`
	MarkupStrategy   MarkupStrategy  `json:"markup_strategy,omitempty"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	MarkupAmount     decimal.Decimal `json:"markup_amount"`
	PartnerMarkup    decimal.Decimal `json:"partner_markup"`
	CustomerMarkup   decimal.Decimal `json:"customer_markup"`
}

// Split is the distribution of one order. OrderAmount always equals
// PartnerNet + PlatformRevenue + VATAmount within the rounding tolerance.
// MarkupRevenue is charged to the customer on top of the order amount.
type Split struct {
	OrderAmount      decimal.Decimal   `json:"order_amount"`
	CommissionRate   decimal.Decimal   `json:"commission_rate"`
	CommissionAmount decimal.Decimal   `json:"commission_amount"`
	VATAmount        decimal.Decimal   `json:"vat_amount"`
	PartnerNet       decimal.Decimal   `json:"partner_net"`
	PlatformRevenue  decimal.Decimal   `json:"platform_revenue"`
	MarkupRevenue    decimal.Decimal   `json:"markup_revenue"`
	CustomerCharged  decimal.Decimal   `json:"customer_charged"`
	Detail           CalculationDetail `json:"calculation_detail"`
}

// Calculator resolves rates and computes order splits
type Calculator struct {
	rounding valueobject.Rounding
}

// NewCalculator creates a calculator using the given rounding policy
func NewCalculator(rounding valueobject.Rounding) *Calculator {
	return &Calculator{rounding: rounding}
}

// ResolveRate returns the effective percentage for the order amount and category
func (c *Calculator) ResolveRate(partnerID uuid.UUID, structure CommissionStructure, amount decimal.Decimal, category string) (RateResolution, error) {
	one := decimal.NewFromInt(1)
	res := RateResolution{CategoryMultiplier: one, TierMultiplier: one}
	if structure == nil {
		return res, shared.NewValidationError("structure", "partner has no commission structure")
	}
	res.Kind = structure.Kind()

	switch s := structure.(type) {
	case FixedStructure:
		res.BaseRate = s.Rate
	case TieredStructure:
		tier, ok := findTier(sortTiers(s.Tiers), amount)
		if !ok {
			return res, &NoMatchingTierError{PartnerID: partnerID, Amount: amount, Brackets: len(s.Tiers)}
		}
		res.BaseRate = tier.Rate
	case CategoryStructure:
		rate, ok := s.Rates[normalizeCategory(category, s.Rates)]
		if !ok {
			return res, &MissingCategoryRateError{
				PartnerID:  partnerID,
				Category:   category,
				Configured: slices.Collect(maps.Keys(s.Rates)),
			}
		}
		res.BaseRate = rate
	case HybridStructure:
		res.BaseRate = s.BaseRate
		if m, ok := s.CategoryMultipliers[normalizeCategory(category, s.CategoryMultipliers)]; ok {
			res.CategoryMultiplier = m
		}
		brackets := make([]Tier, len(s.TierMultipliers))
		for i, tm := range s.TierMultipliers {
			brackets[i] = tm.bracket()
			brackets[i].Rate = tm.Multiplier
		}
		if tier, ok := findTier(sortTiers(brackets), amount); ok {
			res.TierMultiplier = tier.Rate
		}
	default:
		return res, shared.NewValidationError("structure", "unsupported commission structure "+string(structure.Kind()))
	}
	res.EffectiveRate = res.BaseRate.Mul(res.CategoryMultiplier).Mul(res.TierMultiplier)
	return res, nil
}

func findTier(sorted []Tier, amount decimal.Decimal) (Tier, bool) {
	for _, t := range sorted {
		if t.Contains(amount) {
			return t, true
		}
	}
	return Tier{}, false
}

// normalizeCategory matches category keys case-insensitively
func normalizeCategory(category string, rates map[string]decimal.Decimal) string {
	if _, ok := rates[category]; ok {
		return category
	}
	for k := range rates {
		if strings.EqualFold(k, strings.TrimSpace(category)) {
			return k
		}
	}
	return category
}

// Calculate computes the split of an order for a partner:
//
//	commission = amount * rate / 100
//	vat        = commission * vatRate / 100
//	markup     = amount * markup% / 100, borne per strategy
//	partnerNet = amount - commission - vat - partner markup
func (c *Calculator) Calculate(pf *PartnerFinancial, quote OrderQuote) (*Split, error) {
	if !quote.Amount.IsPositive() {
		return nil, shared.NewValidationError("amount", "order amount must be positive")
	}
	amount := c.rounding.Round(quote.Amount)
	res, err := c.ResolveRate(pf.PartnerID, pf.Structure, amount, quote.Category)
	if err != nil {
		return nil, err
	}

	commission := c.rounding.Percent(amount, res.EffectiveRate)
	vat := decimal.Zero
	if pf.VATApplicable {
		vat = c.rounding.Percent(commission, pf.VATRate)
	}

	detail := CalculationDetail{
		RateResolution:   res,
		BaseAmount:       amount,
		VATRate:          pf.VATRate,
		MarkupStrategy:   pf.Markup.Strategy,
		MarkupPercentage: pf.Markup.Percentage,
		MarkupAmount:     decimal.Zero,
		PartnerMarkup:    decimal.Zero,
		CustomerMarkup:   decimal.Zero,
	}
	if pf.Markup.Percentage.IsPositive() {
		markup := c.rounding.Percent(amount, pf.Markup.Percentage)
		detail.MarkupApplied = true
		detail.MarkupAmount = markup
		switch pf.Markup.Strategy {
		case MarkupPartnerPays:
			detail.PartnerMarkup = markup
		case MarkupUserPays:
			detail.CustomerMarkup = markup
		case MarkupSplit:
			detail.PartnerMarkup = c.rounding.Percent(markup, pf.Markup.PartnerShare)
			detail.CustomerMarkup = markup.Sub(detail.PartnerMarkup)
		}
	}

	split := &Split{
		OrderAmount:      amount,
		CommissionRate:   res.EffectiveRate,
		CommissionAmount: commission,
		VATAmount:        vat,
		PlatformRevenue:  commission.Add(detail.PartnerMarkup),
		PartnerNet:       c.rounding.Round(amount.Sub(commission).Sub(vat).Sub(detail.PartnerMarkup)),
		MarkupRevenue:    detail.CustomerMarkup,
		CustomerCharged:  amount.Add(detail.CustomerMarkup),
		Detail:           detail,
	}
	if err := VerifyConservation(quote.OrderID, split, c.rounding); err != nil {
		return nil, err
	}
	return split, nil
}

// VerifyConservation checks orderAmount == partnerNet + platformRevenue + vat
// within the tolerance and that no component is negative.
func VerifyConservation(orderID string, s *Split, rounding valueobject.Rounding) error {
	fail := func(reason string) error {
		return &SplitConservationError{
			OrderID:         orderID,
			OrderAmount:     s.OrderAmount,
			PartnerNet:      s.PartnerNet,
			PlatformRevenue: s.PlatformRevenue,
			VATAmount:       s.VATAmount,
			Reason:          reason,
		}
	}
	if s.PartnerNet.IsNegative() || s.PlatformRevenue.IsNegative() || s.VATAmount.IsNegative() {
		return fail("commission, VAT and markup exceed the order amount")
	}
	total := s.PartnerNet.Add(s.PlatformRevenue).Add(s.VATAmount)
	if !rounding.Equal(s.OrderAmount, total) {
		return fail("")
	}
	return nil
}
