package ledger

import (
	"fmt"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnbalancedEntryError is returned when the debits of an entry differ from its credits
type UnbalancedEntryError struct {
	EntryNumber string
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("journal entry %s is unbalanced: debit %s != credit %s (difference %s)",
		e.EntryNumber, e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2), e.Difference().StringFixed(2))
}

// Difference is debit minus credit
func (e *UnbalancedEntryError) Difference() decimal.Decimal {
	return e.TotalDebit.Sub(e.TotalCredit)
}

// Unwrap exposes the error as a DomainError carrying the numeric mismatch
func (e *UnbalancedEntryError) Unwrap() error {
	return shared.NewDomainError(shared.CodeUnbalancedEntry, e.Error()).
		WithDetail("total_debit", e.TotalDebit.StringFixed(2)).
		WithDetail("total_credit", e.TotalCredit.StringFixed(2)).
		WithDetail("difference", e.Difference().StringFixed(2))
}

// InvalidAccountStateError is returned when an account is unknown or cannot
// take the requested operation.
type InvalidAccountStateError struct {
	AccountID     uuid.UUID
	AccountNumber string
	Reason        string
	Balance       *decimal.Decimal
}

func (e *InvalidAccountStateError) Error() string {
	ref := e.AccountNumber
	if ref == "" {
		ref = e.AccountID.String()
	}
	if e.Balance != nil {
		return fmt.Sprintf("account %s: %s (balance %s)", ref, e.Reason, e.Balance.StringFixed(2))
	}
	return fmt.Sprintf("account %s: %s", ref, e.Reason)
}

// Unwrap exposes the error as a DomainError
func (e *InvalidAccountStateError) Unwrap() error {
	de := shared.NewDomainError(shared.CodeInvalidAccountState, e.Error()).
		WithDetail("account_id", e.AccountID.String())
	if e.Balance != nil {
		de = de.WithDetail("balance", e.Balance.StringFixed(2))
	}
	return de
}
