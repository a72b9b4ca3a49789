package banking

import (
	"fmt"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// UnreconciledDifferenceError is returned when a reconciliation is completed
// while the statement and adjusted book balances still disagree.
type UnreconciledDifferenceError struct {
	Number              string
	StatementBalance    decimal.Decimal
	BookBalance         decimal.Decimal
	TotalAdjustments    decimal.Decimal
	AdjustedBookBalance decimal.Decimal
	Difference          decimal.Decimal
}

func (e *UnreconciledDifferenceError) Error() string {
	return fmt.Sprintf("reconciliation %s has difference %s: statement %s - adjusted book %s (book %s + adjustments %s)",
		e.Number, e.Difference.StringFixed(2), e.StatementBalance.StringFixed(2),
		e.AdjustedBookBalance.StringFixed(2), e.BookBalance.StringFixed(2), e.TotalAdjustments.StringFixed(2))
}

// Unwrap exposes the error as a DomainError carrying the balances
func (e *UnreconciledDifferenceError) Unwrap() error {
	return shared.NewDomainError(shared.CodeUnreconciledDifference, e.Error()).
		WithDetail("statement_balance", e.StatementBalance.StringFixed(2)).
		WithDetail("book_balance", e.BookBalance.StringFixed(2)).
		WithDetail("total_adjustments", e.TotalAdjustments.StringFixed(2)).
		WithDetail("adjusted_book_balance", e.AdjustedBookBalance.StringFixed(2)).
		WithDetail("difference", e.Difference.StringFixed(2))
}
