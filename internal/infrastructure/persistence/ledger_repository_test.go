package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/clutch/ledger/internal/application/uow"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/clutch/ledger/internal/infrastructure/persistence"
	"github.com/clutch/ledger/internal/infrastructure/persistence/persistencetest"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTenant = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func newAccount(t *testing.T, number string, typ ledger.AccountType, subtype ledger.AccountSubtype) *ledger.Account {
	t.Helper()
	a, err := ledger.NewAccount(testTenant, ledger.AccountSpec{
		Number:   number,
		Name:     "Account " + number,
		Type:     typ,
		Subtype:  subtype,
		Currency: valueobject.DefaultCurrency,
	})
	require.NoError(t, err)
	return a
}

func TestGormAccountRepository(t *testing.T) {
	ctx := context.Background()
	db := persistencetest.NewSQLiteDB(t)
	repo := persistence.NewGormAccountRepository(db)

	cash := newAccount(t, "1010", ledger.AccountTypeAsset, ledger.SubtypeCash)
	revenue := newAccount(t, "4010", ledger.AccountTypeRevenue, ledger.SubtypeCommissionRev)
	require.NoError(t, repo.Create(ctx, cash))
	require.NoError(t, repo.Create(ctx, revenue))

	t.Run("finds by id and number", func(t *testing.T) {
		found, err := repo.FindByID(ctx, testTenant, cash.ID)
		require.NoError(t, err)
		assert.Equal(t, "1010", found.Number)
		assert.Equal(t, ledger.AccountTypeAsset, found.Type)
		assert.True(t, found.Balance.IsZero())
		assert.Equal(t, 1, found.Version)

		byNumber, err := repo.FindByNumber(ctx, testTenant, "4010")
		require.NoError(t, err)
		assert.Equal(t, revenue.ID, byNumber.ID)
	})

	t.Run("missing account is not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, testTenant, uuid.New())
		assert.True(t, shared.IsNotFound(err))

		_, err = repo.FindByNumber(ctx, uuid.New(), "1010")
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("FindByIDs requires every id", func(t *testing.T) {
		accounts, err := repo.FindByIDs(ctx, testTenant, []uuid.UUID{cash.ID, revenue.ID})
		require.NoError(t, err)
		assert.Len(t, accounts, 2)

		_, err = repo.FindByIDs(ctx, testTenant, []uuid.UUID{cash.ID, uuid.New()})
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("FindAll orders by number", func(t *testing.T) {
		accounts, err := repo.FindAll(ctx, testTenant)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "1010", accounts[0].Number)
		assert.Equal(t, "4010", accounts[1].Number)
	})

	t.Run("List filters by type", func(t *testing.T) {
		typ := ledger.AccountTypeRevenue
		accounts, total, err := repo.List(ctx, testTenant, ledger.AccountFilter{Type: &typ})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, accounts, 1)
		assert.Equal(t, revenue.ID, accounts[0].ID)
	})

	t.Run("SaveWithLock detects a stale version", func(t *testing.T) {
		first, err := repo.FindByID(ctx, testTenant, cash.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, testTenant, cash.ID)
		require.NoError(t, err)

		require.NoError(t, first.Rename("Cash at bank", ""))
		require.NoError(t, repo.SaveWithLock(ctx, first))

		require.NoError(t, second.Rename("Petty cash", ""))
		err = repo.SaveWithLock(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		stored, err := repo.FindByID(ctx, testTenant, cash.ID)
		require.NoError(t, err)
		assert.Equal(t, "Cash at bank", stored.Name)
		assert.Equal(t, 2, stored.Version)
	})

	t.Run("SaveWithLock writes zero values", func(t *testing.T) {
		account, err := repo.FindByID(ctx, testTenant, revenue.ID)
		require.NoError(t, err)
		require.NoError(t, account.Deactivate())
		require.NoError(t, repo.SaveWithLock(ctx, account))

		stored, err := repo.FindByID(ctx, testTenant, revenue.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
		assert.NotNil(t, stored.DeactivatedAt)
	})
}

func TestGormJournalEntryRepository(t *testing.T) {
	ctx := context.Background()
	db := persistencetest.NewSQLiteDB(t)
	accounts := persistence.NewGormAccountRepository(db)
	repo := persistence.NewGormJournalEntryRepository(db)

	cash := newAccount(t, "1010", ledger.AccountTypeAsset, ledger.SubtypeCash)
	equity := newAccount(t, "3010", ledger.AccountTypeEquity, ledger.SubtypeCapital)
	require.NoError(t, accounts.Create(ctx, cash))
	require.NoError(t, accounts.Create(ctx, equity))

	entry, err := ledger.NewJournalEntry(testTenant, "JE-1", day(2), ledger.EntryTypeManual, "Owner investment", []ledger.LineInput{
		{AccountID: cash.ID, Debit: dec("500")},
		{AccountID: equity.ID, Credit: dec("500")},
	}, valueobject.DefaultRounding)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, entry))

	t.Run("round-trips lines in order", func(t *testing.T) {
		found, err := repo.FindByID(ctx, testTenant, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "JE-1", found.EntryNumber)
		assert.Equal(t, ledger.EntryStatusDraft, found.Status)
		require.Len(t, found.Lines, 2)
		assert.Equal(t, 1, found.Lines[0].LineNo)
		assert.Equal(t, cash.ID, found.Lines[0].AccountID)
		assert.True(t, found.Lines[0].Debit.Equal(dec("500")))
		assert.Equal(t, equity.ID, found.Lines[1].AccountID)
	})

	t.Run("replaces the lines of a draft", func(t *testing.T) {
		found, err := repo.FindByID(ctx, testTenant, entry.ID)
		require.NoError(t, err)
		require.NoError(t, found.ReplaceLines([]ledger.LineInput{
			{AccountID: cash.ID, Debit: dec("300")},
			{AccountID: equity.ID, Credit: dec("300")},
		}, valueobject.DefaultRounding))
		require.NoError(t, repo.SaveWithLock(ctx, found))

		reloaded, err := repo.FindByID(ctx, testTenant, entry.ID)
		require.NoError(t, err)
		require.Len(t, reloaded.Lines, 2)
		debit, credit := reloaded.Totals()
		assert.True(t, debit.Equal(dec("300")))
		assert.True(t, credit.Equal(dec("300")))
	})

	t.Run("lists by account", func(t *testing.T) {
		entries, total, err := repo.List(ctx, testTenant, ledger.JournalEntryFilter{AccountID: &equity.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, entries, 1)
		assert.Equal(t, entry.ID, entries[0].ID)

		other := uuid.New()
		_, total, err = repo.List(ctx, testTenant, ledger.JournalEntryFilter{AccountID: &other})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("stale save is a conflict", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, testTenant, entry.ID)
		require.NoError(t, err)
		stale.Version--
		require.NoError(t, stale.Cancel("duplicate"))
		assert.ErrorIs(t, repo.SaveWithLock(ctx, stale), shared.ErrConcurrencyConflict)
	})
}

func ledgerRow(accountID uuid.UUID, seq int64, date time.Time, debit, credit string) *ledger.LedgerEntry {
	return &ledger.LedgerEntry{
		ID:             uuid.New(),
		TenantID:       testTenant,
		AccountID:      accountID,
		JournalEntryID: uuid.New(),
		EntryNumber:    "JE-test",
		Sequence:       seq,
		LineNo:         1,
		EntryDate:      date,
		Debit:          dec(debit),
		Credit:         dec(credit),
		Balance:        decimal.Zero,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestGormLedgerEntryRepository(t *testing.T) {
	ctx := context.Background()
	db := persistencetest.NewSQLiteDB(t)
	repo := persistence.NewGormLedgerEntryRepository(db)
	accountID := uuid.New()

	rows := []*ledger.LedgerEntry{
		ledgerRow(accountID, 3, day(5), "0", "40"),
		ledgerRow(accountID, 1, day(1), "100", "0"),
		ledgerRow(accountID, 2, day(5), "60", "0"),
		ledgerRow(uuid.New(), 4, day(2), "999", "0"),
	}
	require.NoError(t, repo.Append(ctx, rows))

	t.Run("FindByAccount orders by date then sequence", func(t *testing.T) {
		found, err := repo.FindByAccount(ctx, testTenant, accountID, nil, nil)
		require.NoError(t, err)
		require.Len(t, found, 3)
		assert.Equal(t, []int64{1, 2, 3}, []int64{found[0].Sequence, found[1].Sequence, found[2].Sequence})
	})

	t.Run("FindByAccount applies the date range", func(t *testing.T) {
		from, to := day(2), day(5)
		found, err := repo.FindByAccount(ctx, testTenant, accountID, &from, &to)
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("SumBefore excludes the boundary day", func(t *testing.T) {
		debit, credit, err := repo.SumBefore(ctx, testTenant, accountID, day(5))
		require.NoError(t, err)
		assert.True(t, debit.Equal(dec("100")), debit.String())
		assert.True(t, credit.IsZero())

		debit, credit, err = repo.SumBefore(ctx, testTenant, accountID, day(6))
		require.NoError(t, err)
		assert.True(t, debit.Equal(dec("160")), debit.String())
		assert.True(t, credit.Equal(dec("40")), credit.String())
	})

	t.Run("FindUnreconciled matches side and amount", func(t *testing.T) {
		found, err := repo.FindUnreconciled(ctx, testTenant, accountID, dec("60"), true, day(1), day(10))
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, int64(2), found[0].Sequence)

		found, err = repo.FindUnreconciled(ctx, testTenant, accountID, dec("60"), false, day(1), day(10))
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("MarkReconciled refuses rows already reconciled", func(t *testing.T) {
		runA, runB := uuid.New(), uuid.New()
		require.NoError(t, repo.MarkReconciled(ctx, testTenant, []uuid.UUID{rows[1].ID}, runA, time.Now().UTC()))

		err := repo.MarkReconciled(ctx, testTenant, []uuid.UUID{rows[1].ID, rows[2].ID}, runB, time.Now().UTC())
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		// the failed call stamps nothing
		row, err := repo.FindByID(ctx, testTenant, rows[2].ID)
		require.NoError(t, err)
		assert.False(t, row.Reconciled)

		released, err := repo.ReleaseReconciliation(ctx, testTenant, runA)
		require.NoError(t, err)
		assert.Equal(t, int64(1), released)
		row, err = repo.FindByID(ctx, testTenant, rows[1].ID)
		require.NoError(t, err)
		assert.False(t, row.Reconciled)
		assert.Nil(t, row.ReconciliationID)
	})
}

func TestGormSequenceGenerator_PerTenant(t *testing.T) {
	ctx := context.Background()
	db := persistencetest.NewSQLiteDB(t)
	seq := persistence.NewGormSequenceGenerator(db)
	other := uuid.New()

	for want := int64(1); want <= 3; want++ {
		got, err := seq.Next(ctx, testTenant)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := seq.Next(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestGormTransactionScope_RollsBackSequence(t *testing.T) {
	ctx := context.Background()
	db := persistencetest.NewSQLiteDB(t)
	scope := persistence.NewGormTransactionScope(db)

	var first int64
	require.NoError(t, scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		first, err = repos.Sequence().Next(ctx, testTenant)
		return err
	}))
	assert.Equal(t, int64(1), first)

	err := scope.Execute(ctx, func(repos uow.Repositories) error {
		if _, err := repos.Sequence().Next(ctx, testTenant); err != nil {
			return err
		}
		return shared.ErrInvalidInput
	})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	next, err := persistence.NewGormSequenceGenerator(db).Next(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next, "a rolled back posting returns its number")
}
