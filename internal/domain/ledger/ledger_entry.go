package ledger

import (
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry is the general-ledger row written for one journal line. Rows
// are append-only; only the reconciliation stamp changes after posting.
type LedgerEntry struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	AccountID        uuid.UUID       `json:"account_id"`
	JournalEntryID   uuid.UUID       `json:"journal_entry_id"`
	EntryNumber      string          `json:"entry_number"`
	Sequence         int64           `json:"sequence"`
	LineNo           int             `json:"line_no"`
	EntryDate        time.Time       `json:"entry_date"`
	Description      string          `json:"description"`
	Debit            decimal.Decimal `json:"debit"`
	Credit           decimal.Decimal `json:"credit"`
	Balance          decimal.Decimal `json:"balance"`
	Reconciled       bool            `json:"reconciled"`
	ReconciledAt     *time.Time      `json:"reconciled_at,omitempty"`
	ReconciliationID *uuid.UUID      `json:"reconciliation_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Amount returns the non-zero side of the row
func (e *LedgerEntry) Amount() decimal.Decimal {
	if e.Debit.IsPositive() {
		return e.Debit
	}
	return e.Credit
}

// IsDebit reports whether the row debits its account
func (e *LedgerEntry) IsDebit() bool {
	return e.Debit.IsPositive()
}

// Before orders rows by (date, sequence, line)
func (e *LedgerEntry) Before(other *LedgerEntry) bool {
	if !e.EntryDate.Equal(other.EntryDate) {
		return e.EntryDate.Before(other.EntryDate)
	}
	if e.Sequence != other.Sequence {
		return e.Sequence < other.Sequence
	}
	return e.LineNo < other.LineNo
}

// MarkReconciled freezes the row as matched by a reconciliation
func (e *LedgerEntry) MarkReconciled(reconciliationID uuid.UUID, at time.Time) error {
	if e.Reconciled {
		return shared.NewDomainError(shared.CodeInvalidState, "ledger entry is already reconciled").
			WithDetail("ledger_entry_id", e.ID.String())
	}
	e.Reconciled = true
	e.ReconciledAt = &at
	e.ReconciliationID = &reconciliationID
	return nil
}
