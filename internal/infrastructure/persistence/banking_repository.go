package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBankAccountRepository implements BankAccountRepository using GORM
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewGormBankAccountRepository creates a new GormBankAccountRepository
func NewGormBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

// FindByID finds a bank account by ID
func (r *GormBankAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*banking.BankAccount, error) {
	var model models.BankAccountModel
	if err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("bank_account_id", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns every bank account of a tenant ordered by name
func (r *GormBankAccountRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*banking.BankAccount, error) {
	var accountModels []models.BankAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	accounts := make([]*banking.BankAccount, len(accountModels))
	for i := range accountModels {
		accounts[i] = accountModels[i].ToDomain()
	}
	return accounts, nil
}

// Create inserts a new bank account
func (r *GormBankAccountRepository) Create(ctx context.Context, account *banking.BankAccount) error {
	return r.db.WithContext(ctx).Create(models.BankAccountModelFromDomain(account)).Error
}

// SaveWithLock updates a bank account with optimistic locking
func (r *GormBankAccountRepository) SaveWithLock(ctx context.Context, account *banking.BankAccount) error {
	model := models.BankAccountModelFromDomain(account)
	return updateVersioned(r.db.WithContext(ctx), model, account.ID, account.Version, "bank_account_id")
}

// GormBankTransactionRepository implements BankTransactionRepository using GORM
type GormBankTransactionRepository struct {
	db *gorm.DB
}

// NewGormBankTransactionRepository creates a new GormBankTransactionRepository
func NewGormBankTransactionRepository(db *gorm.DB) *GormBankTransactionRepository {
	return &GormBankTransactionRepository{db: db}
}

// FindByID finds a bank transaction by ID
func (r *GormBankTransactionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*banking.BankTransaction, error) {
	var model models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("bank_transaction_id", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds bank transactions by ID; missing ids are left out
func (r *GormBankTransactionRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*banking.BankTransaction, error) {
	if len(ids) == 0 {
		return []*banking.BankTransaction{}, nil
	}
	var rows []models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toBankTransactions(rows), nil
}

// ExistingExternalIDs reports which external ids the bank account already holds
func (r *GormBankTransactionRepository) ExistingExternalIDs(ctx context.Context, tenantID, bankAccountID uuid.UUID, externalIDs []string) (map[string]bool, error) {
	known := make(map[string]bool)
	if len(externalIDs) == 0 {
		return known, nil
	}
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&models.BankTransactionModel{}).
		Where("tenant_id = ? AND bank_account_id = ? AND external_id IN ?", tenantID, bankAccountID, externalIDs).
		Pluck("external_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		known[id] = true
	}
	return known, nil
}

// CreateBatch inserts imported lines
func (r *GormBankTransactionRepository) CreateBatch(ctx context.Context, txs []*banking.BankTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	rows := make([]*models.BankTransactionModel, len(txs))
	for i, t := range txs {
		rows[i] = models.BankTransactionModelFromDomain(t)
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 500).Error
}

// List returns a page of bank transactions and the total count
func (r *GormBankTransactionRepository) List(ctx context.Context, tenantID uuid.UUID, filter banking.TransactionFilter) ([]*banking.BankTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BankTransactionModel{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("description ILIKE ? OR reference ILIKE ?", search, search)
	}
	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Reconciled != nil {
		query = query.Where("reconciled = ?", *filter.Reconciled)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BankTransactionModel
	if err := query.
		Scopes(bankTransactionSort.page(filter.Filter)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toBankTransactions(rows), total, nil
}

// FindUnreconciled returns open lines dated on or before upTo, oldest first
func (r *GormBankTransactionRepository) FindUnreconciled(ctx context.Context, tenantID, bankAccountID uuid.UUID, upTo time.Time) ([]*banking.BankTransaction, error) {
	var rows []models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account_id = ? AND reconciled = ? AND date <= ?", tenantID, bankAccountID, false, upTo).
		Order("date ASC, external_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toBankTransactions(rows), nil
}

// UpdateCategory sets the category of the given lines
func (r *GormBankTransactionRepository) UpdateCategory(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, category banking.Category) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.BankTransactionModel{}).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Update("category", category)
	return result.RowsAffected, result.Error
}

// MarkMatched stores the match of a line. The update only applies while the
// line is still open, so two runs cannot both claim it.
func (r *GormBankTransactionRepository) MarkMatched(ctx context.Context, tx *banking.BankTransaction) error {
	result := r.db.WithContext(ctx).
		Model(&models.BankTransactionModel{}).
		Where("tenant_id = ? AND id = ? AND reconciled = ?", tx.TenantID, tx.ID, false).
		Updates(map[string]any{
			"reconciled":              true,
			"reconciled_at":           tx.ReconciledAt,
			"matched_ledger_entry_id": tx.MatchedLedgerEntryID,
			"reconciliation_id":       tx.ReconciliationID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithDetail("bank_transaction_id", tx.ID.String())
	}
	return nil
}

// ReleaseByReconciliation clears the matches recorded by an abandoned run
func (r *GormBankTransactionRepository) ReleaseByReconciliation(ctx context.Context, tenantID, reconciliationID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BankTransactionModel{}).
		Where("tenant_id = ? AND reconciliation_id = ?", tenantID, reconciliationID).
		Updates(map[string]any{
			"reconciled":              false,
			"reconciled_at":           nil,
			"matched_ledger_entry_id": nil,
			"reconciliation_id":       nil,
		})
	return result.RowsAffected, result.Error
}

// CashFlowByCategory sums credits and debits per category
func (r *GormBankTransactionRepository) CashFlowByCategory(ctx context.Context, tenantID uuid.UUID, filter banking.CashFlowFilter) ([]banking.CategoryFlow, error) {
	query := r.db.WithContext(ctx).
		Model(&models.BankTransactionModel{}).
		Select("COALESCE(category, '') AS category, "+
			"COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE 0 END), 0) AS inflow, "+
			"COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE 0 END), 0) AS outflow, "+
			"COUNT(*) AS count", banking.DirectionCredit, banking.DirectionDebit).
		Where("tenant_id = ?", tenantID)
	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}

	var rows []banking.CategoryFlow
	if err := query.Group("category").Order("category").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func toBankTransactions(rows []models.BankTransactionModel) []*banking.BankTransaction {
	out := make([]*banking.BankTransaction, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// GormReconciliationRepository implements ReconciliationRepository using GORM
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewGormReconciliationRepository creates a new GormReconciliationRepository
func NewGormReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

func (r *GormReconciliationRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Adjustments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Matches", func(db *gorm.DB) *gorm.DB { return db.Order("matched_at ASC") })
}

// FindByID finds a reconciliation with its adjustments and matches
func (r *GormReconciliationRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*banking.BankReconciliation, error) {
	var model models.BankReconciliationModel
	if err := r.preloaded(ctx).
		First(&model, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("reconciliation_id", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a page of reconciliations and the total count
func (r *GormReconciliationRepository) List(ctx context.Context, tenantID uuid.UUID, filter banking.ReconciliationFilter) ([]*banking.BankReconciliation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BankReconciliationModel{}).Where("tenant_id = ?", tenantID)
	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BankReconciliationModel
	if err := query.
		Preload("Adjustments").
		Preload("Matches").
		Scopes(reconciliationSort.page(filter.Filter)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*banking.BankReconciliation, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// FindOpenByBankAccount returns the unfinished run of a bank account, or nil
// when there is none. Disputed runs count as unfinished.
func (r *GormReconciliationRepository) FindOpenByBankAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*banking.BankReconciliation, error) {
	var model models.BankReconciliationModel
	err := r.preloaded(ctx).
		Where("tenant_id = ? AND bank_account_id = ?", tenantID, bankAccountID).
		Where("status NOT IN ?", []banking.ReconciliationStatus{
			banking.ReconciliationStatusCompleted,
			banking.ReconciliationStatusCancelled,
		}).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a reconciliation with its children
func (r *GormReconciliationRepository) Create(ctx context.Context, rec *banking.BankReconciliation) error {
	return r.db.WithContext(ctx).Create(models.BankReconciliationModelFromDomain(rec)).Error
}

// SaveWithLock updates the header and rewrites adjustments and matches
func (r *GormReconciliationRepository) SaveWithLock(ctx context.Context, rec *banking.BankReconciliation) error {
	model := models.BankReconciliationModelFromDomain(rec)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateVersioned(tx, model, rec.ID, rec.Version, "reconciliation_id"); err != nil {
			return err
		}
		if err := tx.Where("reconciliation_id = ?", rec.ID).Delete(&models.ReconciliationAdjustmentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("reconciliation_id = ?", rec.ID).Delete(&models.ReconciliationMatchModel{}).Error; err != nil {
			return err
		}
		if len(model.Adjustments) > 0 {
			if err := tx.Create(&model.Adjustments).Error; err != nil {
				return err
			}
		}
		if len(model.Matches) > 0 {
			if err := tx.Create(&model.Matches).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

var (
	_ banking.BankAccountRepository     = (*GormBankAccountRepository)(nil)
	_ banking.BankTransactionRepository = (*GormBankTransactionRepository)(nil)
	_ banking.ReconciliationRepository  = (*GormReconciliationRepository)(nil)
)
