package ledger

import (
	"errors"
	"testing"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost_UnbalancedEntryLeavesBalancesUntouched(t *testing.T) {
	cash := mustAccount(t, "1010", AccountTypeAsset, SubtypeCash)
	rev := mustAccount(t, "4010", AccountTypeRevenue, SubtypeCommissionRev)
	entry := mustEntry(t, "JE-1", day(1), debit(cash, "100"), credit(rev, "90"))

	result, err := Post(entry, accountMap(cash, rev), 1, defaultOpts())
	require.Error(t, err)
	assert.Nil(t, result)

	var ub *UnbalancedEntryError
	require.ErrorAs(t, err, &ub)
	assert.True(t, ub.TotalDebit.Equal(dec("100")))
	assert.True(t, ub.TotalCredit.Equal(dec("90")))

	assert.True(t, cash.Balance.IsZero())
	assert.True(t, rev.Balance.IsZero())
	assert.Equal(t, 1, cash.Version)
	assert.Equal(t, EntryStatusDraft, entry.Status)
	assert.Zero(t, entry.Sequence)
}

func TestPost_AppliesSignConvention(t *testing.T) {
	cash := mustAccount(t, "1010", AccountTypeAsset, SubtypeCash)
	payable := mustAccount(t, "2010", AccountTypeLiability, SubtypePartnerPayable)
	rev := mustAccount(t, "4010", AccountTypeRevenue, SubtypeCommissionRev)
	vat := mustAccount(t, "2020", AccountTypeLiability, SubtypeTaxPayable)

	entry := mustEntry(t, "JE-1", day(1),
		debit(cash, "1000"), credit(payable, "900"), credit(rev, "87.72"), credit(vat, "12.28"))
	result, err := Post(entry, accountMap(cash, payable, rev, vat), 7, defaultOpts())
	require.NoError(t, err)

	assert.True(t, cash.Balance.Equal(dec("1000")))
	assert.True(t, payable.Balance.Equal(dec("900")))
	assert.True(t, rev.Balance.Equal(dec("87.72")))
	assert.True(t, vat.Balance.Equal(dec("12.28")))
	assert.Equal(t, 2, cash.Version)

	assert.Equal(t, EntryStatusPosted, entry.Status)
	assert.Equal(t, int64(7), entry.Sequence)
	require.Len(t, result.LedgerEntries, 4)
	for _, row := range result.LedgerEntries {
		assert.Equal(t, int64(7), row.Sequence)
		assert.Equal(t, entry.ID, row.JournalEntryID)
	}
	assert.Len(t, result.Accounts, 4)
	assert.Len(t, entry.GetDomainEvents(), 1)
}

func TestPost_SameAccountTwiceRunsBalance(t *testing.T) {
	cash := mustAccount(t, "1010", AccountTypeAsset, SubtypeCash)
	rev := mustAccount(t, "4010", AccountTypeRevenue, SubtypeCommissionRev)
	cash.Balance = dec("10")

	entry := mustEntry(t, "JE-1", day(1), debit(cash, "30"), debit(cash, "20"), credit(rev, "50"))
	result, err := Post(entry, accountMap(cash, rev), 1, defaultOpts())
	require.NoError(t, err)

	assert.True(t, result.LedgerEntries[0].Balance.Equal(dec("40")))
	assert.True(t, result.LedgerEntries[1].Balance.Equal(dec("60")))
	assert.True(t, cash.Balance.Equal(dec("60")))
	assert.Equal(t, 2, cash.Version, "one version bump per account per entry")
}

func TestPost_RejectsInactiveOrUnknownAccount(t *testing.T) {
	cash := mustAccount(t, "1010", AccountTypeAsset, SubtypeCash)
	rev := mustAccount(t, "4010", AccountTypeRevenue, SubtypeCommissionRev)
	require.NoError(t, rev.Deactivate())

	entry := mustEntry(t, "JE-1", day(1), debit(cash, "5"), credit(rev, "5"))
	_, err := Post(entry, accountMap(cash, rev), 1, defaultOpts())
	assert.True(t, errors.Is(err, shared.ErrInvalidAccountState))
	assert.True(t, cash.Balance.IsZero())

	entry2 := mustEntry(t, "JE-2", day(1), debit(cash, "5"), credit(rev, "5"))
	_, err = Post(entry2, accountMap(cash), 1, defaultOpts())
	var stateErr *InvalidAccountStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, rev.ID, stateErr.AccountID)
}

func TestPost_Backdating(t *testing.T) {
	cash := mustAccount(t, "1010", AccountTypeAsset, SubtypeCash)
	rev := mustAccount(t, "4010", AccountTypeRevenue, SubtypeCommissionRev)

	_, err := Post(mustEntry(t, "JE-1", day(10), debit(cash, "5"), credit(rev, "5")), accountMap(cash, rev), 1, defaultOpts())
	require.NoError(t, err)

	_, err = Post(mustEntry(t, "JE-2", day(9), debit(cash, "5"), credit(rev, "5")), accountMap(cash, rev), 2, defaultOpts())
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	opts := defaultOpts()
	opts.AllowBackdating = true
	_, err = Post(mustEntry(t, "JE-3", day(9), debit(cash, "5"), credit(rev, "5")), accountMap(cash, rev), 3, opts)
	require.NoError(t, err)
	assert.Equal(t, day(10), *cash.LastEntryDate)
}

func TestPost_RejectsNonDraft(t *testing.T) {
	cash := mustAccount(t, "1010", AccountTypeAsset, SubtypeCash)
	rev := mustAccount(t, "4010", AccountTypeRevenue, SubtypeCommissionRev)
	entry := mustEntry(t, "JE-1", day(1), debit(cash, "5"), credit(rev, "5"))

	_, err := Post(entry, accountMap(cash, rev), 1, defaultOpts())
	require.NoError(t, err)
	_, err = Post(entry, accountMap(cash, rev), 2, defaultOpts())
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	assert.True(t, cash.Balance.Equal(dec("5")))
}

func TestPost_ReversalNetsBalancesBack(t *testing.T) {
	cash := mustAccount(t, "1010", AccountTypeAsset, SubtypeCash)
	fees := mustAccount(t, "5020", AccountTypeExpense, SubtypeBankFees)
	capital := mustAccount(t, "3010", AccountTypeEquity, SubtypeCapital)
	accounts := accountMap(cash, fees, capital)

	_, err := Post(mustEntry(t, "JE-1", day(1), debit(cash, "500"), credit(capital, "500")), accounts, 1, defaultOpts())
	require.NoError(t, err)
	before := map[string]decimal.Decimal{"cash": cash.Balance, "fees": fees.Balance, "capital": capital.Balance}

	original := mustEntry(t, "JE-2", day(2), debit(fees, "35.10"), credit(cash, "35.10"))
	_, err = Post(original, accounts, 2, defaultOpts())
	require.NoError(t, err)
	assert.True(t, cash.Balance.Equal(dec("464.90")))

	reversal, err := original.NewReversal("JE-3", day(3), "duplicate fee")
	require.NoError(t, err)
	_, err = Post(reversal, accounts, 3, defaultOpts())
	require.NoError(t, err)
	require.NoError(t, original.MarkReversed(reversal))

	assert.True(t, cash.Balance.Equal(before["cash"]))
	assert.True(t, fees.Balance.Equal(before["fees"]))
	assert.True(t, capital.Balance.Equal(before["capital"]))
	assert.Equal(t, EntryStatusReversed, original.Status)
	require.NotNil(t, original.ReversedByID)
	assert.Equal(t, reversal.ID, *original.ReversedByID)

	_, err = original.NewReversal("JE-4", day(4), "again")
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}
