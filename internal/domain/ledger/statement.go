package ledger

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatementLine is one ledger row with the running balance at that point
type StatementLine struct {
	LedgerEntryID  uuid.UUID       `json:"ledger_entry_id"`
	JournalEntryID uuid.UUID       `json:"journal_entry_id"`
	EntryNumber    string          `json:"entry_number"`
	Sequence       int64           `json:"sequence"`
	LineNo         int             `json:"line_no"`
	EntryDate      time.Time       `json:"entry_date"`
	Description    string          `json:"description"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	Balance        decimal.Decimal `json:"balance"`
	Reconciled     bool            `json:"reconciled"`
}

// Statement is the replayable history of one account over a period
type Statement struct {
	AccountID      uuid.UUID       `json:"account_id"`
	AccountNumber  string          `json:"account_number"`
	AccountName    string          `json:"account_name"`
	AccountType    AccountType     `json:"account_type"`
	From           *time.Time      `json:"from,omitempty"`
	To             *time.Time      `json:"to,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	Lines          []StatementLine `json:"lines"`
}

// SortLedgerEntries orders rows by (date, sequence, line) in place
func SortLedgerEntries(entries []*LedgerEntry) {
	slices.SortStableFunc(entries, func(a, b *LedgerEntry) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		default:
			return 0
		}
	})
}

// BuildStatement replays the rows from the opening balance. It never fails:
// an account without activity yields an empty statement whose closing
// balance equals the opening balance.
func BuildStatement(account *Account, from, to *time.Time, opening decimal.Decimal, entries []*LedgerEntry) *Statement {
	sorted := slices.Clone(entries)
	SortLedgerEntries(sorted)

	st := &Statement{
		AccountID:      account.ID,
		AccountNumber:  account.Number,
		AccountName:    account.Name,
		AccountType:    account.Type,
		From:           from,
		To:             to,
		OpeningBalance: opening,
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
		Lines:          make([]StatementLine, 0, len(sorted)),
	}
	balance := opening
	for _, e := range sorted {
		balance = balance.Add(account.Type.SignedDelta(e.Debit, e.Credit))
		st.TotalDebit = st.TotalDebit.Add(e.Debit)
		st.TotalCredit = st.TotalCredit.Add(e.Credit)
		st.Lines = append(st.Lines, StatementLine{
			LedgerEntryID:  e.ID,
			JournalEntryID: e.JournalEntryID,
			EntryNumber:    e.EntryNumber,
			Sequence:       e.Sequence,
			LineNo:         e.LineNo,
			EntryDate:      e.EntryDate,
			Description:    e.Description,
			Debit:          e.Debit,
			Credit:         e.Credit,
			Balance:        balance,
			Reconciled:     e.Reconciled,
		})
	}
	st.ClosingBalance = balance
	return st
}

// OpeningBalance derives the balance before a period from debit and credit totals
func OpeningBalance(accountType AccountType, debitBefore, creditBefore decimal.Decimal) decimal.Decimal {
	return accountType.SignedDelta(debitBefore, creditBefore)
}

// BalanceDrift describes where a replay disagrees with stored balances
type BalanceDrift struct {
	AccountID       uuid.UUID       `json:"account_id"`
	AccountNumber   string          `json:"account_number"`
	StoredBalance   decimal.Decimal `json:"stored_balance"`
	ReplayedBalance decimal.Decimal `json:"replayed_balance"`
	// FirstMismatch is the first row whose stored running balance differs
	// from the replayed one
	FirstMismatch *uuid.UUID `json:"first_mismatch,omitempty"`
	RowsChecked   int        `json:"rows_checked"`
}

// IsConsistent reports whether the replay matched everywhere
func (d *BalanceDrift) IsConsistent() bool {
	return d.FirstMismatch == nil && d.StoredBalance.Equal(d.ReplayedBalance)
}

// Replay re-derives every intermediate balance of the account from its full
// ledger history and compares it with the stored values.
func Replay(account *Account, entries []*LedgerEntry) *BalanceDrift {
	sorted := slices.Clone(entries)
	SortLedgerEntries(sorted)

	drift := &BalanceDrift{
		AccountID:     account.ID,
		AccountNumber: account.Number,
		StoredBalance: account.Balance,
		RowsChecked:   len(sorted),
	}
	balance := decimal.Zero
	for _, e := range sorted {
		balance = balance.Add(account.Type.SignedDelta(e.Debit, e.Credit))
		if drift.FirstMismatch == nil && !balance.Equal(e.Balance) {
			id := e.ID
			drift.FirstMismatch = &id
		}
	}
	drift.ReplayedBalance = balance
	return drift
}
