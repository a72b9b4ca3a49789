package persistence

import (
	"context"
	"errors"

	"github.com/clutch/ledger/internal/domain/payout"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPayoutRepository implements payout.Repository using GORM
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewGormPayoutRepository creates a new GormPayoutRepository
func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

func (r *GormPayoutRepository) preloaded(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Preload("Deductions", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Preload("AuditLog", func(db *gorm.DB) *gorm.DB { return db.Order("at ASC") })
}

// FindByID finds a payout with its items, deductions and audit log
func (r *GormPayoutRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*payout.Payout, error) {
	var model models.PayoutModel
	if err := r.preloaded(r.db.WithContext(ctx)).
		First(&model, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("payout_id", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a page of payouts and the total count
func (r *GormPayoutRepository) List(ctx context.Context, tenantID uuid.UUID, filter payout.Filter) ([]*payout.Payout, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PayoutModel{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		query = query.Where("number ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.PartnerID != nil {
		query = query.Where("partner_id = ?", *filter.PartnerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("period_end >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("period_start <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PayoutModel
	if err := r.preloaded(query).
		Scopes(payoutSort.page(filter.Filter)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	payouts := make([]*payout.Payout, len(rows))
	for i := range rows {
		payouts[i] = rows[i].ToDomain()
	}
	return payouts, total, nil
}

type claimRow struct {
	CommissionID uuid.UUID
	PayoutID     uuid.UUID
}

// ClaimedBy maps each of the given commissions held by an unreleased payout
// item to that payout
func (r *GormPayoutRepository) ClaimedBy(ctx context.Context, tenantID uuid.UUID, commissionIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	claimed := make(map[uuid.UUID]uuid.UUID)
	if len(commissionIDs) == 0 {
		return claimed, nil
	}
	var rows []claimRow
	if err := r.db.WithContext(ctx).
		Model(&models.PayoutItemModel{}).
		Select("commission_id, payout_id").
		Where("tenant_id = ? AND commission_id IN ? AND released = ?", tenantID, commissionIDs, false).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		claimed[row.CommissionID] = row.PayoutID
	}
	return claimed, nil
}

// Create inserts a payout with its children. The children are inserted
// explicitly so that a commission already held by another payout violates
// the claim index instead of being skipped.
func (r *GormPayoutRepository) Create(ctx context.Context, p *payout.Payout) error {
	model := models.PayoutModelFromDomain(p)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return shared.ErrConcurrencyConflict.WithDetail("reason", "commission already claimed by another payout")
				}
				return err
			}
		}
		if len(model.Deductions) > 0 {
			if err := tx.Create(&model.Deductions).Error; err != nil {
				return err
			}
		}
		if len(model.AuditLog) > 0 {
			if err := tx.Create(&model.AuditLog).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveWithLock updates the header and appends audit records not stored yet.
// Items and deductions are fixed at batch time; a cancelled payout releases
// its items so the commissions can be batched again.
func (r *GormPayoutRepository) SaveWithLock(ctx context.Context, p *payout.Payout) error {
	model := models.PayoutModelFromDomain(p)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateVersioned(tx, model, p.ID, p.Version, "payout_id"); err != nil {
			return err
		}
		if len(model.AuditLog) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.AuditLog).Error; err != nil {
				return err
			}
		}
		if !p.Status.HoldsClaims() {
			if err := tx.Model(&models.PayoutItemModel{}).
				Where("payout_id = ?", p.ID).
				Update("released", true).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

var _ payout.Repository = (*GormPayoutRepository)(nil)
