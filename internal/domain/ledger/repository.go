package ledger

import (
	"context"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountFilter defines filtering options for account queries
type AccountFilter struct {
	shared.Filter
	Type     *AccountType
	ParentID *uuid.UUID
	IsActive *bool
}

// AccountRepository persists chart-of-accounts nodes
type AccountRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Account, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Account, error)
	// FindAll loads the whole chart of a tenant
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]*Account, error)
	List(ctx context.Context, tenantID uuid.UUID, filter AccountFilter) ([]*Account, int64, error)
	// Create inserts a new account
	Create(ctx context.Context, account *Account) error
	// SaveWithLock updates an account whose Version was incremented once since
	// it was loaded; it fails with ErrConcurrencyConflict if another writer
	// got there first.
	SaveWithLock(ctx context.Context, account *Account) error
}

// JournalEntryFilter defines filtering options for journal entry queries
type JournalEntryFilter struct {
	shared.Filter
	Status    *EntryStatus
	Type      *EntryType
	AccountID *uuid.UUID
	From      *time.Time
	To        *time.Time
	Reference string
}

// JournalEntryRepository persists journal entries with their lines
type JournalEntryRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)
	List(ctx context.Context, tenantID uuid.UUID, filter JournalEntryFilter) ([]*JournalEntry, int64, error)
	Create(ctx context.Context, entry *JournalEntry) error
	// SaveWithLock updates header fields and replaces lines of a draft
	SaveWithLock(ctx context.Context, entry *JournalEntry) error
}

// LedgerEntryRepository appends and queries general-ledger rows
type LedgerEntryRepository interface {
	Append(ctx context.Context, entries []*LedgerEntry) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*LedgerEntry, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*LedgerEntry, error)
	// FindByAccount returns rows of one account with from <= date <= to
	// (either bound optional) ordered by (date, sequence, line)
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, from, to *time.Time) ([]*LedgerEntry, error)
	// SumBefore returns debit and credit totals of rows dated strictly before the given time
	SumBefore(ctx context.Context, tenantID, accountID uuid.UUID, before time.Time) (debit, credit decimal.Decimal, err error)
	// FindUnreconciled returns unreconciled rows of the account with the given
	// amount on the given side within [from, to]
	FindUnreconciled(ctx context.Context, tenantID, accountID uuid.UUID, amount decimal.Decimal, debit bool, from, to time.Time) ([]*LedgerEntry, error)
	// MarkReconciled stamps the rows; rows already reconciled cause ErrConcurrencyConflict
	MarkReconciled(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, reconciliationID uuid.UUID, at time.Time) error
	// ReleaseReconciliation clears the stamps left by an abandoned reconciliation
	ReleaseReconciliation(ctx context.Context, tenantID, reconciliationID uuid.UUID) (int64, error)
}

// SequenceGenerator hands out the gap-free posting sequence of a tenant.
// It must run inside the posting transaction so that a rolled back posting
// also rolls back its number.
type SequenceGenerator interface {
	Next(ctx context.Context, tenantID uuid.UUID) (int64, error)
}
