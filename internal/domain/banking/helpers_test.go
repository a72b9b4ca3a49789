package banking

import (
	"testing"
	"time"

	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testTenant = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func newBankAccount(t *testing.T) *BankAccount {
	t.Helper()
	b, err := NewBankAccount(testTenant, "Operating", "National Bank", "1234567890", valueobject.EGP, uuid.New())
	require.NoError(t, err)
	return b
}

func newReconciliation(t *testing.T, b *BankAccount, statement, book string) *BankReconciliation {
	t.Helper()
	r, err := StartReconciliation(b, "BR-1", day(31), dec(statement), dec(book), valueobject.DefaultRounding)
	require.NoError(t, err)
	return r
}

func newTx(t *testing.T, b *BankAccount, id string, date time.Time, amount string) *BankTransaction {
	t.Helper()
	tx, err := NewBankTransaction(testTenant, b.ID, TransactionInput{ExternalID: id, Date: date, Amount: dec(amount)})
	require.NoError(t, err)
	return tx
}

// ledgerRow builds a row on the bank's ledger account; a positive amount is a
// debit (money in), a negative one a credit.
func ledgerRow(b *BankAccount, seq int64, date time.Time, amount string) *ledger.LedgerEntry {
	row := &ledger.LedgerEntry{
		ID:          shared.NextID(),
		TenantID:    testTenant,
		AccountID:   b.LedgerAccountID,
		EntryNumber: "JE-" + decimal.NewFromInt(seq).String(),
		Sequence:    seq,
		LineNo:      1,
		EntryDate:   date,
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
	}
	a := dec(amount)
	if a.IsNegative() {
		row.Credit = a.Abs()
	} else {
		row.Debit = a
	}
	return row
}
