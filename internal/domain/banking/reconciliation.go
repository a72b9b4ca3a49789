package banking

import (
	"slices"
	"strings"
	"time"

	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationStatus is the lifecycle state of a reconciliation run
type ReconciliationStatus string

const (
	ReconciliationStatusDraft      ReconciliationStatus = "DRAFT"
	ReconciliationStatusInProgress ReconciliationStatus = "IN_PROGRESS"
	ReconciliationStatusCompleted  ReconciliationStatus = "COMPLETED"
	ReconciliationStatusDisputed   ReconciliationStatus = "DISPUTED"
	ReconciliationStatusCancelled  ReconciliationStatus = "CANCELLED"
)

// IsValid reports whether the status is known
func (s ReconciliationStatus) IsValid() bool {
	switch s {
	case ReconciliationStatusDraft, ReconciliationStatusInProgress, ReconciliationStatusCompleted,
		ReconciliationStatusDisputed, ReconciliationStatusCancelled:
		return true
	}
	return false
}

// IsOpen reports whether matches and adjustments may still be recorded
func (s ReconciliationStatus) IsOpen() bool {
	return s == ReconciliationStatusDraft || s == ReconciliationStatusInProgress
}

// IsTerminal reports whether the run is finished
func (s ReconciliationStatus) IsTerminal() bool {
	return s == ReconciliationStatusCompleted || s == ReconciliationStatusCancelled
}

// AdjustmentType is the kind of a reconciling item
type AdjustmentType string

const (
	AdjustmentDepositInTransit AdjustmentType = "DEPOSIT_IN_TRANSIT"
	AdjustmentOutstandingCheck AdjustmentType = "OUTSTANDING_CHECK"
	AdjustmentBankFee          AdjustmentType = "BANK_FEE"
	AdjustmentInterest         AdjustmentType = "INTEREST"
	AdjustmentNSFFee           AdjustmentType = "NSF_FEE"
	AdjustmentOther            AdjustmentType = "OTHER"
)

// IsValid reports whether the adjustment type is known
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentDepositInTransit, AdjustmentOutstandingCheck, AdjustmentBankFee,
		AdjustmentInterest, AdjustmentNSFFee, AdjustmentOther:
		return true
	}
	return false
}

// checkSign enforces the sign an adjustment type can carry. Fees reduce the
// book balance and interest increases it; the other kinds go either way.
func (t AdjustmentType) checkSign(amount decimal.Decimal) error {
	switch t {
	case AdjustmentBankFee, AdjustmentNSFFee:
		if !amount.IsNegative() {
			return shared.NewValidationError("amount", string(t)+" adjustment must be negative")
		}
	case AdjustmentInterest:
		if !amount.IsPositive() {
			return shared.NewValidationError("amount", "INTEREST adjustment must be positive")
		}
	}
	return nil
}

// Adjustment is a reconciling item applied to the book balance
type Adjustment struct {
	ID          uuid.UUID       `json:"id"`
	Type        AdjustmentType  `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Match pairs a bank transaction with a general-ledger row
type Match struct {
	ID                uuid.UUID       `json:"id"`
	BankTransactionID uuid.UUID       `json:"bank_transaction_id"`
	LedgerEntryID     uuid.UUID       `json:"ledger_entry_id"`
	Amount            decimal.Decimal `json:"amount"`
	Automatic         bool            `json:"automatic"`
	MatchedBy         string          `json:"matched_by,omitempty"`
	MatchedAt         time.Time       `json:"matched_at"`
}

// Balances is the derived state of a reconciliation
type Balances struct {
	TotalAdjustments    decimal.Decimal `json:"total_adjustments"`
	AdjustedBookBalance decimal.Decimal `json:"adjusted_book_balance"`
	Difference          decimal.Decimal `json:"difference"`
}

// ComputeBalances derives adjustedBookBalance = book + sum(adjustments) and
// difference = statement - adjustedBookBalance.
func ComputeBalances(statementBalance, bookBalance decimal.Decimal, adjustments []Adjustment, rounding valueobject.Rounding) Balances {
	total := decimal.Zero
	for _, a := range adjustments {
		total = total.Add(a.Amount)
	}
	total = rounding.Round(total)
	adjusted := rounding.Round(bookBalance.Add(total))
	return Balances{
		TotalAdjustments:    total,
		AdjustedBookBalance: adjusted,
		Difference:          rounding.Round(statementBalance.Sub(adjusted)),
	}
}

// BankReconciliation is one reconciliation run for a statement period.
// Every match and adjustment is applied on its own, so a run can be resumed
// after a partial pass.
type BankReconciliation struct {
	shared.TenantAggregateRoot
	Number           string          `json:"number"`
	BankAccountID    uuid.UUID       `json:"bank_account_id"`
	LedgerAccountID  uuid.UUID       `json:"ledger_account_id"`
	StatementDate    time.Time       `json:"statement_date"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	BookBalance      decimal.Decimal `json:"book_balance"`
	Balances
	Adjustments    []Adjustment         `json:"adjustments"`
	Matches        []Match              `json:"matches"`
	Status         ReconciliationStatus `json:"status"`
	Override       bool                 `json:"override"`
	OverrideReason string               `json:"override_reason,omitempty"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	CompletedBy    string               `json:"completed_by,omitempty"`
	DisputeReason  string               `json:"dispute_reason,omitempty"`
	DisputedAt     *time.Time           `json:"disputed_at,omitempty"`
	CancelledAt    *time.Time           `json:"cancelled_at,omitempty"`
	CancelReason   string               `json:"cancel_reason,omitempty"`
	Notes          string               `json:"notes,omitempty"`

	rounding valueobject.Rounding
}

// StartReconciliation creates a draft reconciliation for a bank account
func StartReconciliation(account *BankAccount, number string, statementDate time.Time, statementBalance, bookBalance decimal.Decimal, rounding valueobject.Rounding) (*BankReconciliation, error) {
	if !account.IsActive {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "bank account "+account.Name+" is inactive")
	}
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewValidationError("number", "reconciliation number is required")
	}
	if statementDate.IsZero() {
		return nil, shared.NewValidationError("statement_date", "statement date is required")
	}
	r := &BankReconciliation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(account.TenantID),
		Number:              number,
		BankAccountID:       account.ID,
		LedgerAccountID:     account.LedgerAccountID,
		StatementDate:       statementDate,
		StatementBalance:    rounding.Round(statementBalance),
		BookBalance:         rounding.Round(bookBalance),
		Adjustments:         make([]Adjustment, 0),
		Matches:             make([]Match, 0),
		Status:              ReconciliationStatusDraft,
		rounding:            rounding,
	}
	r.recompute()
	r.AddDomainEvent(NewReconciliationStartedEvent(r))
	return r, nil
}

// SetRounding attaches the rounding policy to a reconciliation loaded from storage
func (r *BankReconciliation) SetRounding(rounding valueobject.Rounding) {
	r.rounding = rounding
}

func (r *BankReconciliation) recompute() {
	r.Balances = ComputeBalances(r.StatementBalance, r.BookBalance, r.Adjustments, r.roundingOrDefault())
}

func (r *BankReconciliation) requireOpen(op string) error {
	if !r.Status.IsOpen() {
		return shared.NewDomainError(shared.CodeInvalidState,
			"cannot "+op+" reconciliation "+r.Number+" in status "+string(r.Status))
	}
	return nil
}

func (r *BankReconciliation) begin() {
	if r.Status == ReconciliationStatusDraft {
		r.Status = ReconciliationStatusInProgress
	}
	r.Touch()
	r.IncrementVersion()
}

// AddAdjustment records a reconciling item and recomputes the difference
func (r *BankReconciliation) AddAdjustment(t AdjustmentType, amount decimal.Decimal, date time.Time, description string) (*Adjustment, error) {
	if err := r.requireOpen("adjust"); err != nil {
		return nil, err
	}
	if !t.IsValid() {
		return nil, shared.NewValidationError("type", "unknown adjustment type "+string(t))
	}
	amount = r.roundingOrDefault().Round(amount)
	if amount.IsZero() {
		return nil, shared.NewValidationError("amount", "adjustment amount cannot be zero")
	}
	if err := t.checkSign(amount); err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = r.StatementDate
	}
	adj := Adjustment{
		ID:          shared.NextID(),
		Type:        t,
		Amount:      amount,
		Date:        date,
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now(),
	}
	r.Adjustments = append(r.Adjustments, adj)
	r.recompute()
	r.begin()
	return &adj, nil
}

// RemoveAdjustment drops a reconciling item and recomputes the difference
func (r *BankReconciliation) RemoveAdjustment(id uuid.UUID) error {
	if err := r.requireOpen("adjust"); err != nil {
		return err
	}
	idx := slices.IndexFunc(r.Adjustments, func(a Adjustment) bool { return a.ID == id })
	if idx < 0 {
		return shared.ErrNotFound.WithDetail("adjustment_id", id.String())
	}
	r.Adjustments = slices.Delete(r.Adjustments, idx, idx+1)
	r.recompute()
	r.begin()
	return nil
}

func (r *BankReconciliation) roundingOrDefault() valueobject.Rounding {
	if r.rounding.Places == 0 && r.rounding.Tolerance.IsZero() {
		return valueobject.DefaultRounding
	}
	return r.rounding
}

// Match pairs the transaction with the ledger row and marks both reconciled.
// The amount must agree exactly and the row must sit on the side of the bound
// ledger account that mirrors the bank direction.
func (r *BankReconciliation) Match(tx *BankTransaction, entry *ledger.LedgerEntry, matchedBy string, automatic bool) (*Match, error) {
	if err := r.requireOpen("match"); err != nil {
		return nil, err
	}
	if tx.BankAccountID != r.BankAccountID {
		return nil, shared.NewValidationError("bank_transaction_id", "transaction belongs to another bank account")
	}
	if tx.Reconciled {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "bank transaction "+tx.ExternalID+" is already reconciled")
	}
	if entry.AccountID != r.LedgerAccountID {
		return nil, shared.NewValidationError("ledger_entry_id", "ledger entry is not on the bank's ledger account")
	}
	if entry.Reconciled {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "ledger entry "+entry.EntryNumber+" is already reconciled")
	}
	if entry.IsDebit() != tx.Direction.LedgerSideIsDebit() {
		return nil, shared.NewValidationError("ledger_entry_id", "ledger entry is on the opposite side of the transaction")
	}
	if !entry.Amount().Equal(tx.Amount) {
		return nil, shared.NewValidationError("ledger_entry_id", "amount "+entry.Amount().StringFixed(2)+
			" does not match transaction amount "+tx.Amount.StringFixed(2)).
			WithDetail("ledger_amount", entry.Amount().StringFixed(2)).
			WithDetail("transaction_amount", tx.Amount.StringFixed(2))
	}

	now := time.Now()
	if err := entry.MarkReconciled(r.ID, now); err != nil {
		return nil, err
	}
	tx.markMatched(entry.ID, r.ID, now)
	m := Match{
		ID:                shared.NextID(),
		BankTransactionID: tx.ID,
		LedgerEntryID:     entry.ID,
		Amount:            tx.Amount,
		Automatic:         automatic,
		MatchedBy:         matchedBy,
		MatchedAt:         now,
	}
	r.Matches = append(r.Matches, m)
	r.begin()
	r.AddDomainEvent(NewTransactionMatchedEvent(r, &m))
	return &m, nil
}

// IsMatched reports whether the bank transaction is paired in this run
func (r *BankReconciliation) IsMatched(txID uuid.UUID) bool {
	return slices.ContainsFunc(r.Matches, func(m Match) bool { return m.BankTransactionID == txID })
}

// Unmatched filters the transactions not paired in this run. It never fails;
// no input gives an empty result.
func (r *BankReconciliation) Unmatched(txs []*BankTransaction) []*BankTransaction {
	out := make([]*BankTransaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.Reconciled && !r.IsMatched(tx.ID) {
			out = append(out, tx)
		}
	}
	return out
}

// Complete closes the run. A nonzero difference is only accepted with an
// override and a recorded reason. A disputed run is reopened first.
func (r *BankReconciliation) Complete(override bool, reason, completedBy string) error {
	if err := r.requireOpen("complete"); err != nil {
		return err
	}
	r.recompute()
	reason = strings.TrimSpace(reason)
	if !r.Difference.IsZero() {
		if !override {
			return &UnreconciledDifferenceError{
				Number:              r.Number,
				StatementBalance:    r.StatementBalance,
				BookBalance:         r.BookBalance,
				TotalAdjustments:    r.TotalAdjustments,
				AdjustedBookBalance: r.AdjustedBookBalance,
				Difference:          r.Difference,
			}
		}
		if reason == "" {
			return shared.NewValidationError("reason", "an override requires a reason")
		}
		r.Override = true
		r.OverrideReason = reason
	}
	now := time.Now()
	r.Status = ReconciliationStatusCompleted
	r.CompletedAt = &now
	r.CompletedBy = completedBy
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewReconciliationCompletedEvent(r))
	return nil
}

// Dispute flags the run for investigation; matching stops until it is reopened
func (r *BankReconciliation) Dispute(reason string) error {
	if err := r.requireOpen("dispute"); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("reason", "a dispute requires a reason")
	}
	now := time.Now()
	r.Status = ReconciliationStatusDisputed
	r.DisputeReason = reason
	r.DisputedAt = &now
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewReconciliationDisputedEvent(r))
	return nil
}

// Reopen resumes a disputed run
func (r *BankReconciliation) Reopen() error {
	if r.Status != ReconciliationStatusDisputed {
		return shared.NewDomainError(shared.CodeInvalidState, "only a disputed reconciliation can be reopened")
	}
	r.Status = ReconciliationStatusInProgress
	r.Touch()
	r.IncrementVersion()
	return nil
}

// Cancel abandons the run. The caller releases the matched transactions and
// ledger rows; the ledger balances are never touched by a reconciliation.
func (r *BankReconciliation) Cancel(reason string) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState,
			"reconciliation "+r.Number+" is already "+string(r.Status))
	}
	now := time.Now()
	r.Status = ReconciliationStatusCancelled
	r.CancelledAt = &now
	r.CancelReason = strings.TrimSpace(reason)
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewReconciliationCancelledEvent(r))
	return nil
}
