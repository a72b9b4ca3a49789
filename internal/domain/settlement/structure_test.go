package settlement

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructureDocument_CarriesKind(t *testing.T) {
	data, err := MarshalStructure(standardTiers())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "tiered", doc["kind"])

	decoded, err := UnmarshalStructure(data)
	require.NoError(t, err)
	tiered, ok := decoded.(TieredStructure)
	require.True(t, ok)
	require.Len(t, tiered.Tiers, 3)
	assert.Nil(t, tiered.Tiers[2].MaxAmount)

	res, err := calculator().ResolveRate(testPartner, decoded, dec("3000"), "")
	require.NoError(t, err)
	assert.True(t, res.EffectiveRate.Equal(dec("8")))
}

func TestStructureDocument_Hybrid(t *testing.T) {
	in := HybridStructure{
		BaseRate:            dec("10"),
		CategoryMultipliers: map[string]decimal.Decimal{"premium": dec("1.5")},
	}
	data, err := MarshalStructure(in)
	require.NoError(t, err)
	out, err := UnmarshalStructure(data)
	require.NoError(t, err)
	assert.Equal(t, StructureHybrid, out.Kind())
	assert.True(t, out.(HybridStructure).CategoryMultipliers["premium"].Equal(dec("1.5")))
}

func TestUnmarshalStructure_UnknownKind(t *testing.T) {
	_, err := UnmarshalStructure([]byte(`{"kind":"percentage_of_vibes","rate":"3"}`))
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = UnmarshalStructure([]byte(`not json`))
	assert.Error(t, err)
}

func TestStructureValidate(t *testing.T) {
	tests := []struct {
		name      string
		structure CommissionStructure
		wantErr   bool
	}{
		{"fixed ok", FixedStructure{Rate: dec("10")}, false},
		{"fixed over 100", FixedStructure{Rate: dec("100.5")}, true},
		{"fixed negative", FixedStructure{Rate: dec("-1")}, true},
		{"tiers unordered but valid", standardTiers(), false},
		{"no tiers", TieredStructure{}, true},
		{"overlapping tiers", TieredStructure{Tiers: []Tier{
			{MinAmount: dec("0"), MaxAmount: decp("100"), Rate: dec("5")},
			{MinAmount: dec("50"), MaxAmount: nil, Rate: dec("6")},
		}}, true},
		{"unbounded tier not last", TieredStructure{Tiers: []Tier{
			{MinAmount: dec("0"), MaxAmount: nil, Rate: dec("5")},
			{MinAmount: dec("100"), MaxAmount: decp("200"), Rate: dec("6")},
		}}, true},
		{"empty max range", TieredStructure{Tiers: []Tier{
			{MinAmount: dec("10"), MaxAmount: decp("10"), Rate: dec("5")},
		}}, true},
		{"category ok", CategoryStructure{Rates: map[string]decimal.Decimal{"parts": dec("3")}}, false},
		{"category empty", CategoryStructure{}, true},
		{"hybrid zero multiplier", HybridStructure{BaseRate: dec("5"), CategoryMultipliers: map[string]decimal.Decimal{"a": decimal.Zero}}, true},
		{"hybrid ok", HybridStructure{BaseRate: dec("5")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.structure.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, shared.ErrInvalidInput), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
