package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRounding_Round(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"half rounds up", "10.005", "10.01"},
		{"below half rounds down", "10.004", "10.00"},
		{"negative half rounds away from zero", "-10.005", "-10.01"},
		{"already rounded", "7.50", "7.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultRounding.Round(decimal.RequireFromString(tt.in))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestRounding_Equal(t *testing.T) {
	r := DefaultRounding
	assert.True(t, r.Equal(decimal.RequireFromString("100.00"), decimal.RequireFromString("100.01")))
	assert.False(t, r.Equal(decimal.RequireFromString("100.00"), decimal.RequireFromString("100.02")))

	strict := NewRounding(2, decimal.Zero)
	assert.False(t, strict.Equal(decimal.RequireFromString("1.00"), decimal.RequireFromString("1.01")))
}

func TestRounding_Percent(t *testing.T) {
	got := DefaultRounding.Percent(decimal.NewFromInt(3000), decimal.NewFromInt(8))
	assert.True(t, got.Equal(decimal.NewFromInt(240)))

	got = DefaultRounding.Percent(decimal.RequireFromString("33.33"), decimal.RequireFromString("14"))
	assert.Equal(t, "4.67", got.StringFixed(2))
}

func TestNewRounding_Defaults(t *testing.T) {
	r := NewRounding(-1, decimal.RequireFromString("-0.05"))
	assert.Equal(t, int32(2), r.Places)
	assert.True(t, r.Tolerance.Equal(decimal.RequireFromString("0.05")))
}

func TestCurrency_IsValid(t *testing.T) {
	assert.True(t, EGP.IsValid())
	assert.False(t, Currency("XXX").IsValid())
	assert.Equal(t, EGP, DefaultCurrency)
}

func TestSum(t *testing.T) {
	assert.True(t, Sum().IsZero())
	assert.True(t, Sum(decimal.NewFromInt(1), decimal.NewFromInt(2)).Equal(decimal.NewFromInt(3)))
}
