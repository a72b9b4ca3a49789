package integration

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	ledgerapp "github.com/clutch/ledger/internal/application/ledger"
	payoutapp "github.com/clutch/ledger/internal/application/payout"
	settlementapp "github.com/clutch/ledger/internal/application/settlement"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/payout"
	"github.com/clutch/ledger/internal/domain/settlement"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/infrastructure/migration"
	"github.com/clutch/ledger/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

// configurePartner sets up a weekly partner with a flat 10% rate and no VAT
func configurePartner(t *testing.T, s *Stack, partnerID uuid.UUID) {
	t.Helper()
	_, err := s.Commissions.ConfigurePartner(context.Background(), s.TenantID, partnerID, settlementapp.ConfigurePartnerRequest{
		PartnerName: "Workshop " + partnerID.String()[:4],
		Structure:   settlement.FixedStructure{Rate: amount("10")},
		Markup:      settlement.MarkupConfig{Strategy: settlement.MarkupPartnerPays, Percentage: decimal.Zero},
		Schedule:    settlement.PayoutSchedule{Frequency: settlement.PayoutWeekly, Weekday: time.Monday, MinimumAmount: decimal.Zero},
	})
	require.NoError(t, err)
}

func recordOrder(t *testing.T, s *Stack, partnerID uuid.UUID, orderID string, day int, value string) *settlementapp.CommissionResponse {
	t.Helper()
	c, err := s.Commissions.RecordCommission(context.Background(), s.TenantID, nil, settlementapp.OrderRequest{
		OrderID:   orderID,
		PartnerID: partnerID,
		Amount:    amount(value),
		OrderDate: testutil.Day(day),
	})
	require.NoError(t, err)
	return c
}

func requireBalanced(t *testing.T, s *Stack) *ledger.TrialBalance {
	t.Helper()
	tb, err := s.Statement.TrialBalance(context.Background(), s.TenantID, ledgerapp.TrialBalanceQuery{Replay: true})
	require.NoError(t, err)
	assert.Equal(t, ledger.TrialBalanceStatusBalanced, tb.Status)
	assert.True(t, tb.TotalDebit.Equal(tb.TotalCredit), "debit %s credit %s", tb.TotalDebit, tb.TotalCredit)
	assert.Empty(t, tb.Discrepancies)
	return tb
}

func TestMigrations_RoundTrip(t *testing.T) {
	tdb := NewTestDB(t)

	db, err := sql.Open("postgres", tdb.DSN)
	require.NoError(t, err)
	defer db.Close()

	m, err := migration.New(db, "", nil)
	require.NoError(t, err)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)

	require.NoError(t, m.Steps(-1))
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	require.NoError(t, m.Up())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
}

func TestPosting_ConcurrentEntriesGetGapFreeSequences(t *testing.T) {
	tdb := NewTestDB(t)
	s := NewStack(t, tdb)
	ctx := context.Background()

	cash := s.Account(t, ledger.AccountNumberCash)
	capital := s.Account(t, ledger.AccountNumberCapital)
	revenue := s.Account(t, ledger.AccountNumberCommissionRevenue)

	const workers = 12
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	sequences := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			credit := capital.ID
			if i%2 == 0 {
				credit = revenue.ID
			}
			e, err := s.Posting.CreateEntry(ctx, s.TenantID, nil, ledgerapp.CreateJournalEntryRequest{
				EntryDate:   testutil.Day(5),
				Description: fmt.Sprintf("Deposit %d", i),
				Lines: []ledgerapp.JournalLineRequest{
					{AccountID: cash.ID, Debit: amount("10.10")},
					{AccountID: credit, Credit: amount("10.10")},
				},
				Post: true,
			})
			if err != nil {
				errs <- err
				return
			}
			sequences <- e.Sequence
		}(i)
	}
	wg.Wait()
	close(errs)
	close(sequences)

	for err := range errs {
		require.NoError(t, err)
	}
	var got []int64
	for seq := range sequences {
		got = append(got, seq)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	require.Len(t, got, workers)
	for i, seq := range got {
		assert.Equal(t, int64(i+1), seq)
	}

	assert.True(t, s.Account(t, ledger.AccountNumberCash).Balance.Equal(amount("121.2")))
	requireBalanced(t, s)

	drift, err := s.Statement.ReplayCheck(ctx, s.TenantID, cash.ID)
	require.NoError(t, err)
	assert.True(t, drift.IsConsistent())
}

func TestSettlement_OrderToCompletedPayout(t *testing.T) {
	tdb := NewTestDB(t)
	s := NewStack(t, tdb)
	ctx := context.Background()
	actor := testutil.TestUserID()
	partnerID := uuid.New()
	configurePartner(t, s, partnerID)

	first := recordOrder(t, s, partnerID, "ORD-1", 2, "1000")
	second := recordOrder(t, s, partnerID, "ORD-2", 4, "250")
	recordOrder(t, s, partnerID, "ORD-LATER", 10, "400")

	// 2010 holds every partner share: 900 + 225 + 360
	assert.True(t, s.Account(t, ledger.AccountNumberPartnerPayable).Balance.Equal(amount("1485")))
	requireBalanced(t, s)

	p, err := s.Payouts.Batch(ctx, s.TenantID, &actor, payoutapp.BatchPayoutRequest{
		PartnerID:   partnerID,
		PeriodStart: testutil.Day(1),
		PeriodEnd:   testutil.Day(7),
		Deductions:  []payout.DeductionInput{{Type: payout.DeductionCashPaid, Amount: amount("50"), OrderRef: "ORD-2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalOrders)
	assert.True(t, p.GrossCommission.Equal(amount("1125")))
	assert.True(t, p.NetPayout.Equal(amount("1075")))

	_, err = s.Payouts.Approve(ctx, s.TenantID, p.ID, &actor)
	require.NoError(t, err)
	_, err = s.Payouts.StartProcessing(ctx, s.TenantID, p.ID, &actor)
	require.NoError(t, err)
	done, err := s.Payouts.Complete(ctx, s.TenantID, p.ID, &actor, payoutapp.CompletePayoutRequest{
		PaymentReference: "TRX-1",
		EntryDate:        ptr(testutil.Day(9)),
	})
	require.NoError(t, err)
	assert.Equal(t, string(payout.StatusCompleted), done.Status)
	require.NotNil(t, done.JournalEntryID)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		c, err := s.Commissions.GetCommission(ctx, s.TenantID, id)
		require.NoError(t, err)
		assert.Equal(t, string(settlement.CommissionStatusPaid), c.Status)
	}

	assert.True(t, s.Account(t, ledger.AccountNumberPartnerPayable).Balance.Equal(amount("360")))
	assert.True(t, s.Account(t, ledger.AccountNumberBank).Balance.Equal(amount("-1075")))
	requireBalanced(t, s)

	reloaded, err := s.Payouts.Get(ctx, s.TenantID, p.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Items, 2)
	assert.Len(t, reloaded.Deductions, 1)
	assert.Len(t, reloaded.AuditLog, 4)
}

func TestSettlement_DuplicateOrderIsRejected(t *testing.T) {
	tdb := NewTestDB(t)
	s := NewStack(t, tdb)
	partnerID := uuid.New()
	configurePartner(t, s, partnerID)

	recordOrder(t, s, partnerID, "ORD-DUP", 3, "100")
	_, err := s.Commissions.RecordCommission(context.Background(), s.TenantID, nil, settlementapp.OrderRequest{
		OrderID:   "ORD-DUP",
		PartnerID: partnerID,
		Amount:    amount("100"),
		OrderDate: testutil.Day(3),
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// the rejected order posted nothing
	assert.True(t, s.Account(t, ledger.AccountNumberPartnerPayable).Balance.Equal(amount("90")))
	requireBalanced(t, s)
}

func TestPayoutItems_ClaimIndexAllowsOnlyOneLiveClaim(t *testing.T) {
	tdb := NewTestDB(t)
	s := NewStack(t, tdb)
	ctx := context.Background()
	actor := testutil.TestUserID()
	partnerID := uuid.New()
	configurePartner(t, s, partnerID)

	c := recordOrder(t, s, partnerID, "ORD-1", 2, "100")
	p, err := s.Payouts.Batch(ctx, s.TenantID, &actor, payoutapp.BatchPayoutRequest{
		PartnerID:   partnerID,
		PeriodStart: testutil.Day(1),
		PeriodEnd:   testutil.Day(7),
	})
	require.NoError(t, err)

	insert := func(released bool) error {
		return tdb.DB.Exec(`INSERT INTO payout_items
			(id, payout_id, tenant_id, commission_id, order_id, order_date, order_amount, commission_amount, partner_net, line_no, released)
			VALUES (?, ?, ?, ?, 'ORD-1', ?, 100, 10, 90, 9, ?)`,
			uuid.New(), p.ID, s.TenantID, c.ID, testutil.Day(2), released).Error
	}

	assert.Error(t, insert(false), "a second live claim must violate idx_payout_item_claim")
	assert.NoError(t, insert(true), "released claims are history and do not conflict")

	_, err = s.Payouts.Cancel(ctx, s.TenantID, p.ID, &actor, payoutapp.TransitionRequest{Reason: "rerun"})
	require.NoError(t, err)
	again, err := s.Payouts.Batch(ctx, s.TenantID, &actor, payoutapp.BatchPayoutRequest{
		PartnerID:   partnerID,
		PeriodStart: testutil.Day(1),
		PeriodEnd:   testutil.Day(7),
	})
	require.NoError(t, err, "cancelling releases the claim")
	assert.Equal(t, 1, again.TotalOrders)
}

func TestTenantIsolation(t *testing.T) {
	tdb := NewTestDB(t)
	a := NewStack(t, tdb)
	b := NewStack(t, tdb)
	ctx := context.Background()

	partnerID := uuid.New()
	configurePartner(t, a, partnerID)
	c := recordOrder(t, a, partnerID, "ORD-1", 2, "100")

	_, err := b.Commissions.GetCommission(ctx, b.TenantID, c.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = b.Commissions.GetPartner(ctx, b.TenantID, partnerID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	cashA := a.Account(t, ledger.AccountNumberCash)
	_, err = b.Accounts.GetAccount(ctx, b.TenantID, cashA.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// the same order id is free in another tenant
	configurePartner(t, b, partnerID)
	recordOrder(t, b, partnerID, "ORD-1", 2, "100")

	requireBalanced(t, a)
	requireBalanced(t, b)
}
