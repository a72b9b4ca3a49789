package ledger

import (
	"testing"
	"time"

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

func mustAccount(t *testing.T, number string, typ AccountType, subtype AccountSubtype) *Account {
	t.Helper()
	a, err := NewAccount(testTenant, AccountSpec{Number: number, Name: "Account " + number, Type: typ, Subtype: subtype})
	require.NoError(t, err)
	return a
}

func mustEntry(t *testing.T, number string, date time.Time, lines ...LineInput) *JournalEntry {
	t.Helper()
	e, err := NewJournalEntry(testTenant, number, date, EntryTypeManual, "test "+number, lines, valueobject.DefaultRounding)
	require.NoError(t, err)
	return e
}

func debit(a *Account, amount string) LineInput {
	return LineInput{AccountID: a.ID, Debit: dec(amount)}
}

func credit(a *Account, amount string) LineInput {
	return LineInput{AccountID: a.ID, Credit: dec(amount)}
}

func accountMap(accounts ...*Account) map[uuid.UUID]*Account {
	m := make(map[uuid.UUID]*Account, len(accounts))
	for _, a := range accounts {
		m[a.ID] = a
	}
	return m
}

func defaultOpts() PostingOptions {
	return PostingOptions{Rounding: valueobject.DefaultRounding}
}
