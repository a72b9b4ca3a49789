package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/clutch/ledger/internal/domain/payout"
	"github.com/clutch/ledger/internal/domain/settlement"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/clutch/ledger/internal/infrastructure/persistence"
	"github.com/clutch/ledger/internal/infrastructure/persistence/persistencetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPartner = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")

func partnerFinancial(t *testing.T) *settlement.PartnerFinancial {
	t.Helper()
	upper := dec("1000")
	pf, err := settlement.NewPartnerFinancial(testTenant, testPartner, settlement.FinancialConfig{
		PartnerName: "Garage One",
		Structure: settlement.TieredStructure{Tiers: []settlement.Tier{
			{MinAmount: dec("0"), MaxAmount: &upper, Rate: dec("5")},
			{MinAmount: dec("1000"), Rate: dec("8")},
		}},
		Markup:   settlement.MarkupConfig{Strategy: settlement.MarkupPartnerPays},
		Schedule: settlement.PayoutSchedule{Frequency: settlement.PayoutWeekly, Weekday: time.Monday},
	})
	require.NoError(t, err)
	return pf
}

func storedCommission(t *testing.T, repo *persistence.GormCommissionRepository, pf *settlement.PartnerFinancial, orderID string, date time.Time, amount string) *settlement.Commission {
	t.Helper()
	q := settlement.OrderQuote{OrderID: orderID, PartnerID: pf.PartnerID, Amount: dec(amount), OrderDate: date}
	split, err := settlement.NewCalculator(valueobject.DefaultRounding).Calculate(pf, q)
	require.NoError(t, err)
	c, err := settlement.NewCommission(testTenant, q, split, valueobject.DefaultRounding)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func noon(d int) time.Time {
	return time.Date(2026, time.March, d, 12, 0, 0, 0, time.UTC)
}

func TestGormPartnerFinancialRepository_RoundTripsStructure(t *testing.T) {
	ctx := context.Background()
	db := persistencetest.NewSQLiteDB(t)
	repo := persistence.NewGormPartnerFinancialRepository(db)

	pf := partnerFinancial(t)
	require.NoError(t, repo.Create(ctx, pf))

	found, err := repo.FindByPartner(ctx, testTenant, testPartner)
	require.NoError(t, err)
	tiered, ok := found.Structure.(settlement.TieredStructure)
	require.True(t, ok, "structure kind survives storage")
	require.Len(t, tiered.Tiers, 2)
	assert.True(t, tiered.Tiers[1].Rate.Equal(dec("8")))
	assert.Nil(t, tiered.Tiers[1].MaxAmount)
	assert.Equal(t, time.Monday, found.Schedule.Weekday)

	active, err := repo.ListActive(ctx, testTenant)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = repo.FindByPartner(ctx, testTenant, uuid.New())
	assert.True(t, shared.IsNotFound(err))
}

func TestGormCommissionRepository_Queries(t *testing.T) {
	ctx := context.Background()
	db := persistencetest.NewSQLiteDB(t)
	repo := persistence.NewGormCommissionRepository(db)
	pf := partnerFinancial(t)

	first := storedCommission(t, repo, pf, "ORD-1", noon(2), "500")
	storedCommission(t, repo, pf, "ORD-2", noon(4), "2000")
	late := storedCommission(t, repo, pf, "ORD-3", noon(20), "100")

	t.Run("FindByOrderID", func(t *testing.T) {
		found, err := repo.FindByOrderID(ctx, testTenant, "ORD-1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
		assert.True(t, found.CommissionAmount.Equal(dec("25")), found.CommissionAmount.String())

		_, err = repo.FindByOrderID(ctx, testTenant, "missing")
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("FindPending honours the period", func(t *testing.T) {
		pending, err := repo.FindPending(ctx, testTenant, testPartner, noon(1), noon(7))
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "ORD-1", pending[0].OrderID)
		assert.Equal(t, "ORD-2", pending[1].OrderID)
	})

	t.Run("cancelled commissions leave the pending set", func(t *testing.T) {
		c, err := repo.FindByID(ctx, testTenant, late.ID)
		require.NoError(t, err)
		require.NoError(t, c.Cancel("order voided"))
		require.NoError(t, repo.SaveWithLock(ctx, c))

		pending, err := repo.FindPending(ctx, testTenant, testPartner, noon(1), noon(31))
		require.NoError(t, err)
		assert.Len(t, pending, 2)
	})

	t.Run("SummaryByStatus fills every status", func(t *testing.T) {
		summary, err := repo.SummaryByStatus(ctx, testTenant, testPartner)
		require.NoError(t, err)
		require.Len(t, summary, len(settlement.AllCommissionStatuses))
		for _, row := range summary {
			switch row.Status {
			case settlement.CommissionStatusPending:
				assert.Equal(t, int64(2), row.Count)
				assert.True(t, row.OrderAmount.Equal(dec("2500")), row.OrderAmount.String())
			case settlement.CommissionStatusCancelled:
				assert.Equal(t, int64(1), row.Count)
			default:
				assert.Zero(t, row.Count)
			}
		}
	})

	t.Run("UnpaidByPartner groups pending commissions", func(t *testing.T) {
		rows, err := repo.UnpaidByPartner(ctx, testTenant, noon(1), noon(7))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, testPartner, rows[0].PartnerID)
		assert.Equal(t, int64(2), rows[0].CommissionCount)
	})
}

func TestGormPayoutRepository_Claims(t *testing.T) {
	ctx := context.Background()
	db := persistencetest.NewSQLiteDB(t)
	commissions := persistence.NewGormCommissionRepository(db)
	repo := persistence.NewGormPayoutRepository(db)
	pf := partnerFinancial(t)

	cs := []*settlement.Commission{
		storedCommission(t, commissions, pf, "ORD-1", noon(2), "500"),
		storedCommission(t, commissions, pf, "ORD-2", noon(3), "800"),
	}
	req := payout.BatchRequest{
		PartnerID:   testPartner,
		PeriodStart: day(1),
		PeriodEnd:   time.Date(2026, time.March, 7, 23, 59, 59, 0, time.UTC),
		Actor:       "ops",
		Deductions:  []payout.DeductionInput{{Type: payout.DeductionPenalty, Amount: dec("10")}},
	}

	first, err := payout.Batch(testTenant, "PO-1", req, cs, nil, valueobject.DefaultRounding)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))

	t.Run("round-trips items and deductions", func(t *testing.T) {
		found, err := repo.FindByID(ctx, testTenant, first.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 2)
		assert.Equal(t, "ORD-1", found.Items[0].OrderID)
		require.Len(t, found.Deductions, 1)
		assert.True(t, found.NetPayout.Equal(first.NetPayout))
		assert.NoError(t, found.VerifyNet())
		require.Len(t, found.AuditLog, 1)
	})

	t.Run("ClaimedBy reports the holder", func(t *testing.T) {
		claimed, err := repo.ClaimedBy(ctx, testTenant, []uuid.UUID{cs[0].ID, cs[1].ID, uuid.New()})
		require.NoError(t, err)
		assert.Len(t, claimed, 2)
		assert.Equal(t, first.ID, claimed[cs[0].ID])
	})

	t.Run("a second payout cannot claim the same commission", func(t *testing.T) {
		second, err := payout.Batch(testTenant, "PO-2", req, cs[:1], nil, valueobject.DefaultRounding)
		require.NoError(t, err)
		err = repo.Create(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		_, err = repo.FindByID(ctx, testTenant, second.ID)
		assert.True(t, shared.IsNotFound(err), "the header rolls back with the items")
	})

	t.Run("cancelling releases the claims", func(t *testing.T) {
		p, err := repo.FindByID(ctx, testTenant, first.ID)
		require.NoError(t, err)
		require.NoError(t, p.Cancel("ops", "wrong period"))
		require.NoError(t, repo.SaveWithLock(ctx, p))

		claimed, err := repo.ClaimedBy(ctx, testTenant, []uuid.UUID{cs[0].ID, cs[1].ID})
		require.NoError(t, err)
		assert.Empty(t, claimed)

		stored, err := repo.FindByID(ctx, testTenant, first.ID)
		require.NoError(t, err)
		assert.Equal(t, payout.StatusCancelled, stored.Status)
		assert.Len(t, stored.AuditLog, 2)

		again, err := payout.Batch(testTenant, "PO-3", req, cs, nil, valueobject.DefaultRounding)
		require.NoError(t, err)
		assert.NoError(t, repo.Create(ctx, again))
	})

	t.Run("stale save is a conflict", func(t *testing.T) {
		status := payout.StatusPending
		list, total, err := repo.List(ctx, testTenant, payout.Filter{Status: &status})
		require.NoError(t, err)
		require.Equal(t, int64(1), total)

		a, err := repo.FindByID(ctx, testTenant, list[0].ID)
		require.NoError(t, err)
		b, err := repo.FindByID(ctx, testTenant, list[0].ID)
		require.NoError(t, err)

		require.NoError(t, a.Approve("ops"))
		require.NoError(t, repo.SaveWithLock(ctx, a))
		require.NoError(t, b.Approve("ops"))
		assert.ErrorIs(t, repo.SaveWithLock(ctx, b), shared.ErrConcurrencyConflict)
	})
}
