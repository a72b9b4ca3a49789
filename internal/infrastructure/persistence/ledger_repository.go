package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("account_id", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the given accounts, locking the rows for the rest of the
// transaction where the database supports it. A missing id is NOT_FOUND.
func (r *GormAccountRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*ledger.Account, error) {
	if len(ids) == 0 {
		return []*ledger.Account{}, nil
	}
	var accountModels []models.AccountModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("id").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}

	found := make(map[uuid.UUID]bool, len(accountModels))
	accounts := make([]*ledger.Account, len(accountModels))
	for i := range accountModels {
		accounts[i] = accountModels[i].ToDomain()
		found[accounts[i].ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, shared.ErrNotFound.WithDetail("account_id", id.String())
		}
	}
	return accounts, nil
}

// FindByNumber finds an account by its chart number
func (r *GormAccountRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ? AND number = ?", tenantID, number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("account_number", number)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll loads the whole chart of a tenant ordered by number
func (r *GormAccountRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*ledger.Account, error) {
	var accountModels []models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("number ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	accounts := make([]*ledger.Account, len(accountModels))
	for i := range accountModels {
		accounts[i] = accountModels[i].ToDomain()
	}
	return accounts, nil
}

// List returns a page of accounts and the total count
func (r *GormAccountRepository) List(ctx context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) ([]*ledger.Account, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AccountModel{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("number ILIKE ? OR name ILIKE ?", search, search)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.ParentID != nil {
		query = query.Where("parent_id = ?", *filter.ParentID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var accountModels []models.AccountModel
	if err := query.
		Scopes(accountSort.page(filter.Filter)).
		Find(&accountModels).Error; err != nil {
		return nil, 0, err
	}
	accounts := make([]*ledger.Account, len(accountModels))
	for i := range accountModels {
		accounts[i] = accountModels[i].ToDomain()
	}
	return accounts, total, nil
}

// Create inserts a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *ledger.Account) error {
	return r.db.WithContext(ctx).Create(models.AccountModelFromDomain(account)).Error
}

// SaveWithLock updates an account whose version was bumped once since load
func (r *GormAccountRepository) SaveWithLock(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)
	return updateVersioned(r.db.WithContext(ctx), model, account.ID, account.Version, "account_id")
}

// updateVersioned writes every column of model when the stored row still
// carries version-1. Select("*") makes zero values such as a false IsActive
// or a zero balance part of the update.
func updateVersioned(db *gorm.DB, model any, id uuid.UUID, version int, idField string) error {
	result := db.Model(model).
		Select("*").
		Omit(clause.Associations).
		Where("id = ? AND version = ?", id, version-1).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithDetail(idField, id.String())
	}
	return nil
}

// GormJournalEntryRepository implements JournalEntryRepository using GORM
type GormJournalEntryRepository struct {
	db *gorm.DB
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByID finds a journal entry with its lines
func (r *GormJournalEntryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		First(&model, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("journal_entry_id", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a page of journal entries and the total count
func (r *GormJournalEntryRepository) List(ctx context.Context, tenantID uuid.UUID, filter ledger.JournalEntryFilter) ([]*ledger.JournalEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("entry_number ILIKE ? OR description ILIKE ?", search, search)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.AccountID != nil {
		query = query.Where("id IN (?)", r.db.Model(&models.JournalLineModel{}).
			Select("journal_entry_id").
			Where("account_id = ?", *filter.AccountID))
	}
	if filter.From != nil {
		query = query.Where("entry_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("entry_date <= ?", *filter.To)
	}
	if filter.Reference != "" {
		query = query.Where("reference = ?", filter.Reference)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entryModels []models.JournalEntryModel
	if err := query.
		Preload("Lines", orderedLines).
		Scopes(journalEntrySort.page(filter.Filter)).
		Find(&entryModels).Error; err != nil {
		return nil, 0, err
	}
	entries := make([]*ledger.JournalEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = entryModels[i].ToDomain()
	}
	return entries, total, nil
}

// Create inserts a journal entry with its lines
func (r *GormJournalEntryRepository) Create(ctx context.Context, entry *ledger.JournalEntry) error {
	return r.db.WithContext(ctx).Create(models.JournalEntryModelFromDomain(entry)).Error
}

// SaveWithLock updates the header. The lines of a draft are replaced; the
// lines of a posted entry never change.
func (r *GormJournalEntryRepository) SaveWithLock(ctx context.Context, entry *ledger.JournalEntry) error {
	model := models.JournalEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateVersioned(tx, model, entry.ID, entry.Version, "journal_entry_id"); err != nil {
			return err
		}
		if entry.Status != ledger.EntryStatusDraft {
			return nil
		}
		if err := tx.Where("journal_entry_id = ?", entry.ID).Delete(&models.JournalLineModel{}).Error; err != nil {
			return err
		}
		if len(model.Lines) == 0 {
			return nil
		}
		return tx.Create(&model.Lines).Error
	})
}

// GormLedgerEntryRepository implements LedgerEntryRepository using GORM
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// Append inserts ledger rows
func (r *GormLedgerEntryRepository) Append(ctx context.Context, entries []*ledger.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.LedgerEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.LedgerEntryModelFromDomain(e)
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 200).Error
}

// FindByID finds a ledger row by ID
func (r *GormLedgerEntryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.LedgerEntry, error) {
	var model models.LedgerEntryModel
	if err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("ledger_entry_id", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds ledger rows by ID; missing ids are left out
func (r *GormLedgerEntryRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*ledger.LedgerEntry, error) {
	if len(ids) == 0 {
		return []*ledger.LedgerEntry{}, nil
	}
	var rows []models.LedgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toLedgerEntries(rows), nil
}

// FindByAccount returns the rows of one account in posting order
func (r *GormLedgerEntryRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, from, to *time.Time) ([]*ledger.LedgerEntry, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ? AND account_id = ?", tenantID, accountID)
	if from != nil {
		query = query.Where("entry_date >= ?", *from)
	}
	if to != nil {
		query = query.Where("entry_date <= ?", *to)
	}
	var rows []models.LedgerEntryModel
	if err := query.
		Order("entry_date ASC, sequence ASC, line_no ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toLedgerEntries(rows), nil
}

type sideTotals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// SumBefore returns the debit and credit totals dated strictly before the given time
func (r *GormLedgerEntryRepository) SumBefore(ctx context.Context, tenantID, accountID uuid.UUID, before time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var totals sideTotals
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntryModel{}).
		Select("COALESCE(SUM(debit), 0) AS debit, COALESCE(SUM(credit), 0) AS credit").
		Where("tenant_id = ? AND account_id = ? AND entry_date < ?", tenantID, accountID, before).
		Scan(&totals).Error; err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return totals.Debit, totals.Credit, nil
}

// FindUnreconciled returns open rows of the account with the amount on the
// requested side, oldest first
func (r *GormLedgerEntryRepository) FindUnreconciled(ctx context.Context, tenantID, accountID uuid.UUID, amount decimal.Decimal, debit bool, from, to time.Time) ([]*ledger.LedgerEntry, error) {
	side := "credit"
	if debit {
		side = "debit"
	}
	var rows []models.LedgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ? AND reconciled = ?", tenantID, accountID, false).
		Where(side+" = ?", amount).
		Where("entry_date >= ? AND entry_date <= ?", from, to).
		Order("entry_date ASC, sequence ASC, line_no ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toLedgerEntries(rows), nil
}

// MarkReconciled stamps the rows with the reconciliation. Every row must
// still be open, otherwise nothing is stamped.
func (r *GormLedgerEntryRepository) MarkReconciled(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, reconciliationID uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.LedgerEntryModel{}).
			Where("tenant_id = ? AND id IN ? AND reconciled = ?", tenantID, ids, false).
			Updates(map[string]any{
				"reconciled":        true,
				"reconciled_at":     at,
				"reconciliation_id": reconciliationID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(ids)) {
			return shared.ErrConcurrencyConflict.WithDetail("reason", "ledger entry already reconciled")
		}
		return nil
	})
}

// ReleaseReconciliation clears the stamps of an abandoned reconciliation
func (r *GormLedgerEntryRepository) ReleaseReconciliation(ctx context.Context, tenantID, reconciliationID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LedgerEntryModel{}).
		Where("tenant_id = ? AND reconciliation_id = ?", tenantID, reconciliationID).
		Updates(map[string]any{
			"reconciled":        false,
			"reconciled_at":     nil,
			"reconciliation_id": nil,
		})
	return result.RowsAffected, result.Error
}

func toLedgerEntries(rows []models.LedgerEntryModel) []*ledger.LedgerEntry {
	out := make([]*ledger.LedgerEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// GormSequenceGenerator hands out posting sequences from the
// journal_sequences table. The counter row is updated in the caller's
// transaction, so the row lock serializes concurrent postings of a tenant
// and a rollback returns the number.
type GormSequenceGenerator struct {
	db *gorm.DB
}

// NewGormSequenceGenerator creates a new GormSequenceGenerator
func NewGormSequenceGenerator(db *gorm.DB) *GormSequenceGenerator {
	return &GormSequenceGenerator{db: db}
}

// Next returns the next sequence of the tenant, starting at 1
func (g *GormSequenceGenerator) Next(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	db := g.db.WithContext(ctx)
	bumped, err := g.bump(db, tenantID)
	if err != nil {
		return 0, err
	}
	if !bumped {
		// First posting of the tenant. A concurrent first posting may insert
		// the row first; then the bump below applies to its row.
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.JournalSequenceModel{
			TenantID:  tenantID,
			LastValue: 0,
			UpdatedAt: time.Now(),
		}).Error; err != nil {
			return 0, err
		}
		if bumped, err = g.bump(db, tenantID); err != nil {
			return 0, err
		}
		if !bumped {
			return 0, fmt.Errorf("journal sequence row for tenant %s is missing", tenantID)
		}
	}

	var current models.JournalSequenceModel
	if err := db.First(&current, "tenant_id = ?", tenantID).Error; err != nil {
		return 0, err
	}
	return current.LastValue, nil
}

func (g *GormSequenceGenerator) bump(db *gorm.DB, tenantID uuid.UUID) (bool, error) {
	result := db.Model(&models.JournalSequenceModel{}).
		Where("tenant_id = ?", tenantID).
		Updates(map[string]any{
			"last_value": gorm.Expr("last_value + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

var (
	_ ledger.AccountRepository      = (*GormAccountRepository)(nil)
	_ ledger.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
	_ ledger.LedgerEntryRepository  = (*GormLedgerEntryRepository)(nil)
	_ ledger.SequenceGenerator      = (*GormSequenceGenerator)(nil)
)
