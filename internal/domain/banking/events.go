package banking

import (
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeReconciliationStarted   = "ReconciliationStarted"
	EventTypeTransactionMatched      = "BankTransactionMatched"
	EventTypeReconciliationCompleted = "ReconciliationCompleted"
	EventTypeReconciliationDisputed  = "ReconciliationDisputed"
	EventTypeReconciliationCancelled = "ReconciliationCancelled"
)

const aggregateTypeReconciliation = "BankReconciliation"

// ReconciliationStartedEvent is raised when a run is opened
type ReconciliationStartedEvent struct {
	shared.BaseDomainEvent
	Number           string          `json:"number"`
	BankAccountID    uuid.UUID       `json:"bank_account_id"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	BookBalance      decimal.Decimal `json:"book_balance"`
}

// NewReconciliationStartedEvent creates a new ReconciliationStartedEvent
func NewReconciliationStartedEvent(r *BankReconciliation) *ReconciliationStartedEvent {
	return &ReconciliationStartedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeReconciliationStarted, aggregateTypeReconciliation, r.ID, r.TenantID),
		Number:           r.Number,
		BankAccountID:    r.BankAccountID,
		StatementBalance: r.StatementBalance,
		BookBalance:      r.BookBalance,
	}
}

// TransactionMatchedEvent is raised for every pair recorded
type TransactionMatchedEvent struct {
	shared.BaseDomainEvent
	BankTransactionID uuid.UUID       `json:"bank_transaction_id"`
	LedgerEntryID     uuid.UUID       `json:"ledger_entry_id"`
	Amount            decimal.Decimal `json:"amount"`
	Automatic         bool            `json:"automatic"`
}

// NewTransactionMatchedEvent creates a new TransactionMatchedEvent
func NewTransactionMatchedEvent(r *BankReconciliation, m *Match) *TransactionMatchedEvent {
	return &TransactionMatchedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeTransactionMatched, aggregateTypeReconciliation, r.ID, r.TenantID),
		BankTransactionID: m.BankTransactionID,
		LedgerEntryID:     m.LedgerEntryID,
		Amount:            m.Amount,
		Automatic:         m.Automatic,
	}
}

// ReconciliationCompletedEvent is raised when a run is closed
type ReconciliationCompletedEvent struct {
	shared.BaseDomainEvent
	Number         string          `json:"number"`
	BankAccountID  uuid.UUID       `json:"bank_account_id"`
	Difference     decimal.Decimal `json:"difference"`
	Override       bool            `json:"override"`
	OverrideReason string          `json:"override_reason,omitempty"`
	MatchCount     int             `json:"match_count"`
}

// NewReconciliationCompletedEvent creates a new ReconciliationCompletedEvent
func NewReconciliationCompletedEvent(r *BankReconciliation) *ReconciliationCompletedEvent {
	return &ReconciliationCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReconciliationCompleted, aggregateTypeReconciliation, r.ID, r.TenantID),
		Number:          r.Number,
		BankAccountID:   r.BankAccountID,
		Difference:      r.Difference,
		Override:        r.Override,
		OverrideReason:  r.OverrideReason,
		MatchCount:      len(r.Matches),
	}
}

// ReconciliationDisputedEvent is raised when a run is flagged for investigation
type ReconciliationDisputedEvent struct {
	shared.BaseDomainEvent
	Number     string          `json:"number"`
	Reason     string          `json:"reason"`
	Difference decimal.Decimal `json:"difference"`
}

// NewReconciliationDisputedEvent creates a new ReconciliationDisputedEvent
func NewReconciliationDisputedEvent(r *BankReconciliation) *ReconciliationDisputedEvent {
	return &ReconciliationDisputedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReconciliationDisputed, aggregateTypeReconciliation, r.ID, r.TenantID),
		Number:          r.Number,
		Reason:          r.DisputeReason,
		Difference:      r.Difference,
	}
}

// ReconciliationCancelledEvent is raised when a run is abandoned
type ReconciliationCancelledEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
	Reason string `json:"reason,omitempty"`
}

// NewReconciliationCancelledEvent creates a new ReconciliationCancelledEvent
func NewReconciliationCancelledEvent(r *BankReconciliation) *ReconciliationCancelledEvent {
	return &ReconciliationCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReconciliationCancelled, aggregateTypeReconciliation, r.ID, r.TenantID),
		Number:          r.Number,
		Reason:          r.CancelReason,
	}
}
