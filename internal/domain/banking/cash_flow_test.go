package banking

import (
	"testing"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCashFlow(t *testing.T) {
	cf := NewCashFlow([]CategoryFlow{
		{Category: CategoryIncome, Inflow: dec("1000"), Outflow: dec("0"), Count: 2},
		{Category: CategoryNone, Inflow: dec("25"), Outflow: dec("5"), Count: 2},
		{Category: CategoryExpense, Inflow: dec("0"), Outflow: dec("400"), Count: 3},
	})

	require.Len(t, cf.Categories, 3)
	assert.Equal(t, CategoryExpense, cf.Categories[0].Category)
	assert.Equal(t, CategoryUncategorized, cf.Categories[2].Category)
	assert.True(t, cf.Categories[0].NetFlow.Equal(dec("-400")))
	assert.True(t, cf.Categories[2].NetFlow.Equal(dec("20")))
	assert.True(t, cf.TotalInflow.Equal(dec("1025")))
	assert.True(t, cf.TotalOutflow.Equal(dec("405")))
	assert.True(t, cf.NetFlow.Equal(dec("620")))
	assert.Equal(t, int64(7), cf.Count)
}

func TestNewCashFlow_Empty(t *testing.T) {
	cf := NewCashFlow(nil)
	assert.NotNil(t, cf.Categories)
	assert.True(t, cf.NetFlow.IsZero())
}

func TestCashFlowFilter_Validate(t *testing.T) {
	from, to := day(10), day(2)
	err := CashFlowFilter{From: &from, To: &to}.Validate()
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	to = day(10)
	assert.NoError(t, CashFlowFilter{From: &from, To: &to}.Validate())
	assert.NoError(t, CashFlowFilter{}.Validate())
}
