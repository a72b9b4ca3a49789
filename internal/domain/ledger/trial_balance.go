package ledger

import (
	"time"

	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrialBalanceStatus represents the result status of a trial balance
type TrialBalanceStatus string

const (
	TrialBalanceStatusBalanced   TrialBalanceStatus = "BALANCED"
	TrialBalanceStatusUnbalanced TrialBalanceStatus = "UNBALANCED"
)

// IsBalanced returns true if the trial balance is balanced
func (s TrialBalanceStatus) IsBalanced() bool {
	return s == TrialBalanceStatusBalanced
}

// Discrepancy severities
const (
	SeverityCritical = "CRITICAL"
	SeverityWarning  = "WARNING"
)

// DiscrepancyType classifies a trial balance finding
type DiscrepancyType string

const (
	DiscrepancyDebitCreditMismatch DiscrepancyType = "DEBIT_CREDIT_MISMATCH"
	DiscrepancyReplayDrift         DiscrepancyType = "REPLAY_DRIFT"
)

// BalanceDiscrepancy is one finding of a trial balance run
type BalanceDiscrepancy struct {
	Type           DiscrepancyType `json:"type"`
	AccountID      *uuid.UUID      `json:"account_id,omitempty"`
	AccountNumber  string          `json:"account_number,omitempty"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	ActualAmount   decimal.Decimal `json:"actual_amount"`
	Difference     decimal.Decimal `json:"difference"`
	Severity       string          `json:"severity"`
}

func newDiscrepancy(t DiscrepancyType, expected, actual decimal.Decimal, tolerance decimal.Decimal) BalanceDiscrepancy {
	diff := expected.Sub(actual)
	severity := SeverityWarning
	if diff.Abs().GreaterThan(tolerance) {
		severity = SeverityCritical
	}
	return BalanceDiscrepancy{
		Type:           t,
		ExpectedAmount: expected,
		ActualAmount:   actual,
		Difference:     diff,
		Severity:       severity,
	}
}

// TrialBalanceRow is one account in debit/credit column form
type TrialBalanceRow struct {
	AccountID     uuid.UUID       `json:"account_id"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	AccountType   AccountType     `json:"account_type"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
}

// TrialBalance lists every account balance in its debit or credit column.
// Under double entry the two column totals are equal.
type TrialBalance struct {
	GeneratedAt   time.Time            `json:"generated_at"`
	Rows          []TrialBalanceRow    `json:"rows"`
	TotalDebit    decimal.Decimal      `json:"total_debit"`
	TotalCredit   decimal.Decimal      `json:"total_credit"`
	Status        TrialBalanceStatus   `json:"status"`
	Discrepancies []BalanceDiscrepancy `json:"discrepancies"`
}

// BuildTrialBalance computes the trial balance for the given accounts
func BuildTrialBalance(accounts []*Account, rounding valueobject.Rounding) *TrialBalance {
	tb := &TrialBalance{
		GeneratedAt:   time.Now(),
		Rows:          make([]TrialBalanceRow, 0, len(accounts)),
		TotalDebit:    decimal.Zero,
		TotalCredit:   decimal.Zero,
		Discrepancies: make([]BalanceDiscrepancy, 0),
	}
	for _, a := range accounts {
		row := TrialBalanceRow{
			AccountID:     a.ID,
			AccountNumber: a.Number,
			AccountName:   a.Name,
			AccountType:   a.Type,
			Debit:         decimal.Zero,
			Credit:        decimal.Zero,
		}
		// A debit-normal account with a negative balance shows in the credit
		// column, and the other way round.
		onDebitSide := a.Type.IsDebitNormal() != a.Balance.IsNegative()
		if onDebitSide {
			row.Debit = a.Balance.Abs()
		} else {
			row.Credit = a.Balance.Abs()
		}
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
		tb.Rows = append(tb.Rows, row)
	}

	tb.Status = TrialBalanceStatusBalanced
	if !rounding.Round(tb.TotalDebit).Equal(rounding.Round(tb.TotalCredit)) {
		tb.Status = TrialBalanceStatusUnbalanced
		tb.Discrepancies = append(tb.Discrepancies,
			newDiscrepancy(DiscrepancyDebitCreditMismatch, tb.TotalDebit, tb.TotalCredit, rounding.Tolerance))
	}
	return tb
}

// AddDrift records a replay mismatch found for one account
func (tb *TrialBalance) AddDrift(drift *BalanceDrift, rounding valueobject.Rounding) {
	if drift.IsConsistent() {
		return
	}
	d := newDiscrepancy(DiscrepancyReplayDrift, drift.ReplayedBalance, drift.StoredBalance, rounding.Tolerance)
	id := drift.AccountID
	d.AccountID = &id
	d.AccountNumber = drift.AccountNumber
	if drift.FirstMismatch != nil {
		// an intermediate mismatch is always critical even if the totals agree
		d.Severity = SeverityCritical
	}
	tb.Discrepancies = append(tb.Discrepancies, d)
	tb.Status = TrialBalanceStatusUnbalanced
}

// HasCriticalDiscrepancies returns true if any finding is critical
func (tb *TrialBalance) HasCriticalDiscrepancies() bool {
	for _, d := range tb.Discrepancies {
		if d.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
