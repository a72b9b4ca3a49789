package payout

import (
	"errors"
	"testing"
	"time"

	"github.com/clutch/ledger/internal/domain/settlement"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testTenant  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	testPartner = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 12, 0, 0, 0, time.UTC)
}

func commission(t *testing.T, orderID string, date time.Time, amount string) *settlement.Commission {
	t.Helper()
	pf, err := settlement.NewPartnerFinancial(testTenant, testPartner, settlement.FinancialConfig{
		Structure: settlement.FixedStructure{Rate: dec("10")},
		Markup:    settlement.MarkupConfig{Strategy: settlement.MarkupUserPays},
		Schedule:  settlement.PayoutSchedule{Frequency: settlement.PayoutWeekly, Weekday: time.Monday},
	})
	require.NoError(t, err)
	q := settlement.OrderQuote{OrderID: orderID, PartnerID: testPartner, Amount: dec(amount), OrderDate: date}
	split, err := settlement.NewCalculator(valueobject.DefaultRounding).Calculate(pf, q)
	require.NoError(t, err)
	c, err := settlement.NewCommission(testTenant, q, split, valueobject.DefaultRounding)
	require.NoError(t, err)
	return c
}

func request() BatchRequest {
	return BatchRequest{
		PartnerID:   testPartner,
		PeriodStart: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, time.March, 7, 23, 59, 59, 0, time.UTC),
		Actor:       "ops",
	}
}

func TestBatch_ComputesNetPayout(t *testing.T) {
	cs := []*settlement.Commission{
		commission(t, "O-2", day(3), "500"),
		commission(t, "O-1", day(2), "1000"),
	}
	req := request()
	req.Deductions = []DeductionInput{
		{Type: DeductionCashPaid, Amount: dec("100"), OrderRef: "O-1"},
		{Type: DeductionPenalty, Amount: dec("25.50")},
	}
	p, err := Batch(testTenant, "PO-1", req, cs, nil, valueobject.DefaultRounding)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, 2, p.TotalOrders)
	assert.Equal(t, "O-1", p.Items[0].OrderID)
	assert.True(t, p.TotalRevenue.Equal(dec("1500")))
	assert.True(t, p.GrossCommission.Equal(dec("1350")))
	assert.True(t, p.TotalDeductions.Equal(dec("125.50")))
	assert.True(t, p.NetPayout.Equal(dec("1224.50")))
	assert.NoError(t, p.VerifyNet())
	require.Len(t, p.AuditLog, 1)
	assert.Equal(t, StatusPending, p.AuditLog[0].ToStatus)
}

func TestBatch_DoubleClaim(t *testing.T) {
	a := commission(t, "O-1", day(2), "100")
	b := commission(t, "O-2", day(3), "100")
	other := uuid.New()

	_, err := Batch(testTenant, "PO-2", request(), []*settlement.Commission{a, b}, map[uuid.UUID]uuid.UUID{b.ID: other}, valueobject.DefaultRounding)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDoubleClaim))
	var dce *DoubleClaimError
	require.True(t, errors.As(err, &dce))
	assert.Equal(t, other, dce.Claims[b.ID])
	assert.NotContains(t, dce.Claims, a.ID)
}

func TestBatch_Rejections(t *testing.T) {
	inRange := commission(t, "O-1", day(2), "100")

	t.Run("empty", func(t *testing.T) {
		_, err := Batch(testTenant, "PO", request(), nil, nil, valueobject.DefaultRounding)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
	t.Run("other partner", func(t *testing.T) {
		c := commission(t, "O-9", day(2), "100")
		c.PartnerID = uuid.New()
		_, err := Batch(testTenant, "PO", request(), []*settlement.Commission{c}, nil, valueobject.DefaultRounding)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
	t.Run("outside period", func(t *testing.T) {
		c := commission(t, "O-9", day(9), "100")
		_, err := Batch(testTenant, "PO", request(), []*settlement.Commission{c}, nil, valueobject.DefaultRounding)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
	t.Run("not pending", func(t *testing.T) {
		c := commission(t, "O-9", day(2), "100")
		require.NoError(t, c.Cancel(""))
		_, err := Batch(testTenant, "PO", request(), []*settlement.Commission{c}, nil, valueobject.DefaultRounding)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})
	t.Run("deductions exceed gross", func(t *testing.T) {
		req := request()
		req.Deductions = []DeductionInput{{Type: DeductionAdjustment, Amount: dec("91")}}
		_, err := Batch(testTenant, "PO", req, []*settlement.Commission{inRange}, nil, valueobject.DefaultRounding)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
	t.Run("bad deduction", func(t *testing.T) {
		req := request()
		req.Deductions = []DeductionInput{{Type: "TIP", Amount: dec("1")}}
		_, err := Batch(testTenant, "PO", req, []*settlement.Commission{inRange}, nil, valueobject.DefaultRounding)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestBatch_RecoversPendingReturnsUpToNet(t *testing.T) {
	c := commission(t, "O-1", day(2), "100") // partner net 90
	req := request()
	req.Deductions = []DeductionInput{{Type: DeductionPenalty, Amount: dec("40")}}
	req.PendingReturns = dec("75")

	p, err := Batch(testTenant, "PO", req, []*settlement.Commission{c}, nil, valueobject.DefaultRounding)
	require.NoError(t, err)
	assert.True(t, p.RecoveredReturns().Equal(dec("50")))
	assert.True(t, p.NetPayout.IsZero())
	assert.NoError(t, p.VerifyNet())
}

func TestPayout_StateMachine(t *testing.T) {
	cs := []*settlement.Commission{commission(t, "O-1", day(2), "100"), commission(t, "O-2", day(3), "200")}
	p, err := Batch(testTenant, "PO", request(), cs, nil, valueobject.DefaultRounding)
	require.NoError(t, err)

	assert.True(t, errors.Is(p.Complete("ops", "", cs), shared.ErrInvalidState))
	require.NoError(t, p.Approve("manager"))
	assert.True(t, errors.Is(p.Approve("manager"), shared.ErrInvalidState))
	require.NoError(t, p.StartProcessing("ops"))
	assert.True(t, errors.Is(p.Fail("ops", ""), shared.ErrInvalidInput))
	require.NoError(t, p.Fail("ops", "bank rejected IBAN"))
	assert.Equal(t, "bank rejected IBAN", p.FailureReason)
	require.NoError(t, p.StartProcessing("ops"))
	assert.Empty(t, p.FailureReason)

	t.Run("incomplete commission set", func(t *testing.T) {
		err := p.Complete("ops", "TRX-1", cs[:1])
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Equal(t, settlement.CommissionStatusPending, cs[0].Status)
	})

	require.NoError(t, p.Complete("ops", "TRX-1", cs))
	assert.Equal(t, StatusCompleted, p.Status)
	for _, c := range cs {
		assert.Equal(t, settlement.CommissionStatusPaid, c.Status)
		assert.Equal(t, p.ID, *c.PayoutID)
	}
	assert.True(t, errors.Is(p.Cancel("ops", ""), shared.ErrInvalidState))

	statuses := make([]Status, 0, len(p.AuditLog))
	for _, a := range p.AuditLog {
		statuses = append(statuses, a.ToStatus)
	}
	assert.Equal(t, []Status{StatusPending, StatusApproved, StatusProcessing, StatusFailed, StatusProcessing, StatusCompleted}, statuses)
}

func TestPayout_CancelReleases(t *testing.T) {
	p, err := Batch(testTenant, "PO", request(), []*settlement.Commission{commission(t, "O-1", day(2), "100")}, nil, valueobject.DefaultRounding)
	require.NoError(t, err)
	assert.True(t, p.Status.HoldsClaims())
	require.NoError(t, p.Cancel("ops", "duplicate"))
	assert.False(t, p.Status.HoldsClaims())
	assert.True(t, p.Status.IsTerminal())
}
