package settlement

import (
	"errors"
	"testing"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorded(t *testing.T, pf *PartnerFinancial, amount string) *Commission {
	t.Helper()
	q := quote(amount, "")
	split, err := calculator().Calculate(pf, q)
	require.NoError(t, err)
	c, err := NewCommission(testTenant, q, split, valueobject.DefaultRounding)
	require.NoError(t, err)
	return c
}

func TestNewCommission(t *testing.T) {
	pf := newPartner(t, standardTiers())
	c := recorded(t, pf, "3000")
	assert.Equal(t, CommissionStatusPending, c.Status)
	assert.True(t, c.CommissionAmount.Equal(dec("240")))
	assert.Len(t, c.GetDomainEvents(), 1)
	assert.True(t, c.Split().PartnerNet.Equal(dec("2760")))
}

func TestNewCommission_RefusesInconsistentSplit(t *testing.T) {
	q := quote("100", "")
	split := &Split{OrderAmount: dec("100"), PartnerNet: dec("90"), PlatformRevenue: dec("5"), VATAmount: dec("0.7")}
	c, err := NewCommission(testTenant, q, split, valueobject.DefaultRounding)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, shared.ErrSplitConservation))

	q.OrderID = ""
	_, err = NewCommission(testTenant, q, split, valueobject.DefaultRounding)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestCommissionLifecycle(t *testing.T) {
	pf := newPartner(t, FixedStructure{Rate: dec("10")})

	t.Run("cancel pending", func(t *testing.T) {
		c := recorded(t, pf, "100")
		require.NoError(t, c.Cancel("order voided"))
		assert.Equal(t, CommissionStatusCancelled, c.Status)
		assert.True(t, errors.Is(c.Cancel(""), shared.ErrInvalidState))
		_, err := c.Refund("")
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("pay then refund", func(t *testing.T) {
		c := recorded(t, pf, "100")
		payout := uuid.New()
		require.NoError(t, c.MarkPaid(payout, time.Now()))
		assert.Equal(t, payout, *c.PayoutID)
		assert.True(t, errors.Is(c.MarkPaid(payout, time.Now()), shared.ErrInvalidState))
		assert.True(t, errors.Is(c.Cancel(""), shared.ErrInvalidState))

		wasPaid, err := c.Refund("customer returned part")
		require.NoError(t, err)
		assert.True(t, wasPaid)
		assert.Equal(t, CommissionStatusRefunded, c.Status)
	})

	t.Run("refund pending", func(t *testing.T) {
		c := recorded(t, pf, "100")
		wasPaid, err := c.Refund("")
		require.NoError(t, err)
		assert.False(t, wasPaid)
	})
}

func TestCompleteSummary(t *testing.T) {
	rows := CompleteSummary([]StatusSummary{
		{Status: CommissionStatusPaid, Count: 2, OrderAmount: dec("300"), CommissionAmount: dec("30"), PartnerNet: dec("270")},
	})
	require.Len(t, rows, 4)
	assert.Equal(t, CommissionStatusPending, rows[0].Status)
	assert.Zero(t, rows[0].Count)
	assert.Equal(t, int64(2), rows[1].Count)
}
