package banking

import (
	"context"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// BankAccountRepository persists bank accounts
type BankAccountRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*BankAccount, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*BankAccount, error)
	Create(ctx context.Context, account *BankAccount) error
	SaveWithLock(ctx context.Context, account *BankAccount) error
}

// TransactionFilter defines filtering options for bank transaction queries
type TransactionFilter struct {
	shared.Filter
	BankAccountID *uuid.UUID
	Category      *Category
	Reconciled    *bool
	From          *time.Time
	To            *time.Time
}

// BankTransactionRepository persists imported statement lines
type BankTransactionRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*BankTransaction, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*BankTransaction, error)
	// ExistingExternalIDs returns which of the given bank transaction ids are
	// already stored for the bank account
	ExistingExternalIDs(ctx context.Context, tenantID, bankAccountID uuid.UUID, externalIDs []string) (map[string]bool, error)
	CreateBatch(ctx context.Context, txs []*BankTransaction) error
	List(ctx context.Context, tenantID uuid.UUID, filter TransactionFilter) ([]*BankTransaction, int64, error)
	// FindUnreconciled returns unreconciled lines dated on or before upTo
	FindUnreconciled(ctx context.Context, tenantID, bankAccountID uuid.UUID, upTo time.Time) ([]*BankTransaction, error)
	UpdateCategory(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, category Category) (int64, error)
	// MarkMatched stores the match; a line matched concurrently causes ErrConcurrencyConflict
	MarkMatched(ctx context.Context, tx *BankTransaction) error
	// ReleaseByReconciliation clears the matches recorded by an abandoned run
	ReleaseByReconciliation(ctx context.Context, tenantID, reconciliationID uuid.UUID) (int64, error)
	// CashFlowByCategory sums credits and debits per category
	CashFlowByCategory(ctx context.Context, tenantID uuid.UUID, filter CashFlowFilter) ([]CategoryFlow, error)
}

// ReconciliationFilter defines filtering options for reconciliation queries
type ReconciliationFilter struct {
	shared.Filter
	BankAccountID *uuid.UUID
	Status        *ReconciliationStatus
}

// ReconciliationRepository persists reconciliation runs with their
// adjustments and matches
type ReconciliationRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*BankReconciliation, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ReconciliationFilter) ([]*BankReconciliation, int64, error)
	// FindOpenByBankAccount returns the draft or in-progress run of a bank account, if any
	FindOpenByBankAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*BankReconciliation, error)
	Create(ctx context.Context, r *BankReconciliation) error
	// SaveWithLock updates the header and stores the current adjustments and
	// matches, checking the optimistic version
	SaveWithLock(ctx context.Context, r *BankReconciliation) error
}
