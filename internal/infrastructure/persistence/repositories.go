package persistence

import (
	"context"

	"github.com/clutch/ledger/internal/application/uow"
	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/payout"
	"github.com/clutch/ledger/internal/domain/settlement"
	"github.com/clutch/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTransactionScope implements uow.TransactionScope using GORM
// transactions. Every repository handed to fn shares the transaction.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. If fn returns an error the
// transaction is rolled back, otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos uow.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx))
	})
}

// GormRepositories builds every repository on one *gorm.DB, which is either
// the pool or a transaction.
type GormRepositories struct {
	db *gorm.DB
}

// NewGormRepositories creates a new GormRepositories
func NewGormRepositories(db *gorm.DB) *GormRepositories {
	return &GormRepositories{db: db}
}

// Accounts returns the account repository
func (r *GormRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.db)
}

// JournalEntries returns the journal entry repository
func (r *GormRepositories) JournalEntries() ledger.JournalEntryRepository {
	return NewGormJournalEntryRepository(r.db)
}

// LedgerEntries returns the ledger entry repository
func (r *GormRepositories) LedgerEntries() ledger.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.db)
}

// Sequence returns the posting sequence generator
func (r *GormRepositories) Sequence() ledger.SequenceGenerator {
	return NewGormSequenceGenerator(r.db)
}

// BankAccounts returns the bank account repository
func (r *GormRepositories) BankAccounts() banking.BankAccountRepository {
	return NewGormBankAccountRepository(r.db)
}

// BankTransactions returns the bank transaction repository
func (r *GormRepositories) BankTransactions() banking.BankTransactionRepository {
	return NewGormBankTransactionRepository(r.db)
}

// Reconciliations returns the reconciliation repository
func (r *GormRepositories) Reconciliations() banking.ReconciliationRepository {
	return NewGormReconciliationRepository(r.db)
}

// PartnerFinancials returns the partner financial repository
func (r *GormRepositories) PartnerFinancials() settlement.PartnerFinancialRepository {
	return NewGormPartnerFinancialRepository(r.db)
}

// Commissions returns the commission repository
func (r *GormRepositories) Commissions() settlement.CommissionRepository {
	return NewGormCommissionRepository(r.db)
}

// Payouts returns the payout repository
func (r *GormRepositories) Payouts() payout.Repository {
	return NewGormPayoutRepository(r.db)
}

// AllModels lists every persistence model, in dependency order, for
// AutoMigrate in tests and local development
func AllModels() []any {
	return []any{
		&models.AccountModel{},
		&models.JournalEntryModel{},
		&models.JournalLineModel{},
		&models.LedgerEntryModel{},
		&models.JournalSequenceModel{},
		&models.BankAccountModel{},
		&models.BankTransactionModel{},
		&models.BankReconciliationModel{},
		&models.ReconciliationAdjustmentModel{},
		&models.ReconciliationMatchModel{},
		&models.PartnerFinancialModel{},
		&models.CommissionModel{},
		&models.PayoutModel{},
		&models.PayoutItemModel{},
		&models.PayoutDeductionModel{},
		&models.PayoutAuditLogModel{},
	}
}

var (
	_ uow.TransactionScope = (*GormTransactionScope)(nil)
	_ uow.Repositories     = (*GormRepositories)(nil)
)
