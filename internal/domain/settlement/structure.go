package settlement

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StructureKind discriminates the commission structure variants
type StructureKind string

const (
	StructureFixed    StructureKind = "fixed"
	StructureTiered   StructureKind = "tiered"
	StructureCategory StructureKind = "category"
	StructureHybrid   StructureKind = "hybrid"
)

var hundred = decimal.NewFromInt(100)

// CommissionStructure is one of FixedStructure, TieredStructure,
// CategoryStructure or HybridStructure. The set is closed: only this
// package can add a variant, so the calculator handles every case.
type CommissionStructure interface {
	Kind() StructureKind
	Validate() error
	sealed()
}

// FixedStructure applies one rate to every order
type FixedStructure struct {
	Rate decimal.Decimal `json:"rate"`
}

// Tier is a bracket [MinAmount, MaxAmount). A nil MaxAmount is unbounded.
type Tier struct {
	MinAmount decimal.Decimal  `json:"min_amount"`
	MaxAmount *decimal.Decimal `json:"max_amount"`
	Rate      decimal.Decimal  `json:"rate"`
}

// Contains reports whether amount falls inside the bracket
func (t Tier) Contains(amount decimal.Decimal) bool {
	if amount.LessThan(t.MinAmount) {
		return false
	}
	return t.MaxAmount == nil || amount.LessThan(*t.MaxAmount)
}

// TieredStructure picks the rate of the bracket containing the order amount
type TieredStructure struct {
	Tiers []Tier `json:"tiers"`
}

// CategoryStructure looks the rate up by order category
type CategoryStructure struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

// TierMultiplier scales the hybrid base rate for orders in [MinAmount, MaxAmount)
type TierMultiplier struct {
	MinAmount  decimal.Decimal  `json:"min_amount"`
	MaxAmount  *decimal.Decimal `json:"max_amount"`
	Multiplier decimal.Decimal  `json:"multiplier"`
}

func (t TierMultiplier) bracket() Tier {
	return Tier{MinAmount: t.MinAmount, MaxAmount: t.MaxAmount}
}

// HybridStructure is a base rate scaled by an optional category multiplier
// and an optional tier multiplier: base * category * tier.
type HybridStructure struct {
	BaseRate            decimal.Decimal            `json:"base_rate"`
	CategoryMultipliers map[string]decimal.Decimal `json:"category_multipliers,omitempty"`
	TierMultipliers     []TierMultiplier           `json:"tier_multipliers,omitempty"`
}

func (FixedStructure) Kind() StructureKind    { return StructureFixed }
func (TieredStructure) Kind() StructureKind   { return StructureTiered }
func (CategoryStructure) Kind() StructureKind { return StructureCategory }
func (HybridStructure) Kind() StructureKind   { return StructureHybrid }

func (FixedStructure) sealed()    {}
func (TieredStructure) sealed()   {}
func (CategoryStructure) sealed() {}
func (HybridStructure) sealed()   {}

func validateRate(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return shared.NewValidationError(field, "rate must be between 0 and 100")
	}
	return nil
}

// validateBrackets requires ascending, non-overlapping brackets where only
// the last one may be unbounded.
func validateBrackets(field string, tiers []Tier) error {
	for i, t := range tiers {
		if t.MinAmount.IsNegative() {
			return shared.NewValidationError(field, fmt.Sprintf("bracket %d has a negative minimum", i+1))
		}
		if t.MaxAmount != nil && !t.MaxAmount.GreaterThan(t.MinAmount) {
			return shared.NewValidationError(field, fmt.Sprintf("bracket %d maximum must exceed its minimum", i+1))
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if prev.MaxAmount == nil {
			return shared.NewValidationError(field, "only the last bracket may be unbounded")
		}
		if t.MinAmount.LessThan(*prev.MaxAmount) {
			return shared.NewValidationError(field, fmt.Sprintf("bracket %d overlaps bracket %d", i+1, i))
		}
	}
	return nil
}

func sortTiers(tiers []Tier) []Tier {
	sorted := slices.Clone(tiers)
	slices.SortStableFunc(sorted, func(a, b Tier) int { return a.MinAmount.Cmp(b.MinAmount) })
	return sorted
}

// Validate implements CommissionStructure
func (s FixedStructure) Validate() error {
	return validateRate("rate", s.Rate)
}

// Validate implements CommissionStructure
func (s TieredStructure) Validate() error {
	if len(s.Tiers) == 0 {
		return shared.NewValidationError("tiers", "at least one bracket is required")
	}
	for i, t := range s.Tiers {
		if err := validateRate(fmt.Sprintf("tiers[%d].rate", i), t.Rate); err != nil {
			return err
		}
	}
	return validateBrackets("tiers", sortTiers(s.Tiers))
}

// Validate implements CommissionStructure
func (s CategoryStructure) Validate() error {
	if len(s.Rates) == 0 {
		return shared.NewValidationError("rates", "at least one category rate is required")
	}
	for category, rate := range s.Rates {
		if strings.TrimSpace(category) == "" {
			return shared.NewValidationError("rates", "category name cannot be empty")
		}
		if err := validateRate("rates."+category, rate); err != nil {
			return err
		}
	}
	return nil
}

// Validate implements CommissionStructure
func (s HybridStructure) Validate() error {
	if err := validateRate("base_rate", s.BaseRate); err != nil {
		return err
	}
	for category, m := range s.CategoryMultipliers {
		if !m.IsPositive() {
			return shared.NewValidationError("category_multipliers."+category, "multiplier must be positive")
		}
	}
	brackets := make([]Tier, 0, len(s.TierMultipliers))
	for i, tm := range s.TierMultipliers {
		if !tm.Multiplier.IsPositive() {
			return shared.NewValidationError(fmt.Sprintf("tier_multipliers[%d]", i), "multiplier must be positive")
		}
		brackets = append(brackets, tm.bracket())
	}
	return validateBrackets("tier_multipliers", sortTiers(brackets))
}

type structureEnvelope struct {
	Kind StructureKind `json:"kind"`
}

// MarshalStructure encodes a structure as a JSON document with a kind field
func MarshalStructure(s CommissionStructure) ([]byte, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(s.Kind())
	fields["kind"] = kind
	return json.Marshal(fields)
}

// UnmarshalStructure decodes a document written by MarshalStructure
func UnmarshalStructure(data []byte) (CommissionStructure, error) {
	var env structureEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode commission structure: %w", err)
	}
	var (
		s   CommissionStructure
		err error
	)
	switch env.Kind {
	case StructureFixed:
		var v FixedStructure
		err = json.Unmarshal(data, &v)
		s = v
	case StructureTiered:
		var v TieredStructure
		err = json.Unmarshal(data, &v)
		s = v
	case StructureCategory:
		var v CategoryStructure
		err = json.Unmarshal(data, &v)
		s = v
	case StructureHybrid:
		var v HybridStructure
		err = json.Unmarshal(data, &v)
		s = v
	default:
		return nil, shared.NewValidationError("kind", "unknown commission structure kind "+string(env.Kind))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s commission structure: %w", env.Kind, err)
	}
	return s, nil
}
