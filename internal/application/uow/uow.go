// Package uow defines the transaction boundary shared by the ledger, banking,
// settlement and payout services. A posting that touches accounts, ledger
// rows, commissions and payouts commits or rolls back as one unit.
package uow

import (
	"context"

	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/payout"
	"github.com/clutch/ledger/internal/domain/settlement"
)

// TransactionScope runs fn inside one database transaction. The transaction
// is rolled back when fn returns an error and committed otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to every repository bound to the current
// transaction. Repositories obtained outside Execute must not be mixed in.
type Repositories interface {
	Accounts() ledger.AccountRepository
	JournalEntries() ledger.JournalEntryRepository
	LedgerEntries() ledger.LedgerEntryRepository
	// Sequence hands out posting sequence numbers; it is only valid inside
	// the transaction that commits the posting
	Sequence() ledger.SequenceGenerator

	BankAccounts() banking.BankAccountRepository
	BankTransactions() banking.BankTransactionRepository
	Reconciliations() banking.ReconciliationRepository

	PartnerFinancials() settlement.PartnerFinancialRepository
	Commissions() settlement.CommissionRepository

	Payouts() payout.Repository
}
