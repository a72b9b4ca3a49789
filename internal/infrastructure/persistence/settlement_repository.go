package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/clutch/ledger/internal/domain/settlement"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPartnerFinancialRepository implements PartnerFinancialRepository using GORM
type GormPartnerFinancialRepository struct {
	db *gorm.DB
}

// NewGormPartnerFinancialRepository creates a new GormPartnerFinancialRepository
func NewGormPartnerFinancialRepository(db *gorm.DB) *GormPartnerFinancialRepository {
	return &GormPartnerFinancialRepository{db: db}
}

// FindByPartner finds the financial configuration of a partner
func (r *GormPartnerFinancialRepository) FindByPartner(ctx context.Context, tenantID, partnerID uuid.UUID) (*settlement.PartnerFinancial, error) {
	var model models.PartnerFinancialModel
	if err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ? AND partner_id = ?", tenantID, partnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("partner_id", partnerID.String())
		}
		return nil, err
	}
	return model.ToDomain()
}

// ListActive returns every active partner of a tenant
func (r *GormPartnerFinancialRepository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*settlement.PartnerFinancial, error) {
	var rows []models.PartnerFinancialModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("partner_name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*settlement.PartnerFinancial, 0, len(rows))
	for i := range rows {
		pf, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, pf)
	}
	return out, nil
}

// Create inserts a partner configuration
func (r *GormPartnerFinancialRepository) Create(ctx context.Context, pf *settlement.PartnerFinancial) error {
	model, err := models.PartnerFinancialModelFromDomain(pf)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveWithLock updates a partner configuration with optimistic locking
func (r *GormPartnerFinancialRepository) SaveWithLock(ctx context.Context, pf *settlement.PartnerFinancial) error {
	model, err := models.PartnerFinancialModelFromDomain(pf)
	if err != nil {
		return err
	}
	return updateVersioned(r.db.WithContext(ctx), model, pf.ID, pf.Version, "partner_id")
}

// GormCommissionRepository implements CommissionRepository using GORM
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewGormCommissionRepository creates a new GormCommissionRepository
func NewGormCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// FindByID finds a commission by ID
func (r *GormCommissionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*settlement.Commission, error) {
	var model models.CommissionModel
	if err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("commission_id", id.String())
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByIDs finds commissions by ID; missing ids are left out
func (r *GormCommissionRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*settlement.Commission, error) {
	if len(ids) == 0 {
		return []*settlement.Commission{}, nil
	}
	var rows []models.CommissionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("order_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toCommissions(rows)
}

// FindByOrderID returns the commission of an order
func (r *GormCommissionRepository) FindByOrderID(ctx context.Context, tenantID uuid.UUID, orderID string) (*settlement.Commission, error) {
	var model models.CommissionModel
	if err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ? AND order_id = ?", tenantID, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("order_id", orderID)
		}
		return nil, err
	}
	return model.ToDomain()
}

// List returns a page of commissions and the total count
func (r *GormCommissionRepository) List(ctx context.Context, tenantID uuid.UUID, filter settlement.CommissionFilter) ([]*settlement.Commission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CommissionModel{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		query = query.Where("order_id ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.PartnerID != nil {
		query = query.Where("partner_id = ?", *filter.PartnerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("order_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("order_date <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.CommissionModel
	if err := query.
		Scopes(commissionSort.page(filter.Filter)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	commissions, err := toCommissions(rows)
	if err != nil {
		return nil, 0, err
	}
	return commissions, total, nil
}

// FindPending returns the partner's pending commissions in the period,
// oldest order first
func (r *GormCommissionRepository) FindPending(ctx context.Context, tenantID, partnerID uuid.UUID, from, to time.Time) ([]*settlement.Commission, error) {
	var rows []models.CommissionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND partner_id = ? AND status = ?", tenantID, partnerID, settlement.CommissionStatusPending).
		Where("order_date >= ? AND order_date <= ?", from, to).
		Order("order_date ASC, order_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toCommissions(rows)
}

// SummaryByStatus aggregates the partner's commissions per status
func (r *GormCommissionRepository) SummaryByStatus(ctx context.Context, tenantID, partnerID uuid.UUID) ([]settlement.StatusSummary, error) {
	var rows []settlement.StatusSummary
	if err := r.db.WithContext(ctx).
		Model(&models.CommissionModel{}).
		Select(`status,
			COUNT(*) AS count,
			COALESCE(SUM(order_amount), 0) AS order_amount,
			COALESCE(SUM(commission_amount), 0) AS commission_amount,
			COALESCE(SUM(partner_net), 0) AS partner_net`).
		Where("tenant_id = ? AND partner_id = ?", tenantID, partnerID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return settlement.CompleteSummary(rows), nil
}

// BreakdownRows groups the partner's commissions in the period by order
// date, status and category
func (r *GormCommissionRepository) BreakdownRows(ctx context.Context, tenantID, partnerID uuid.UUID, from, to time.Time) ([]settlement.BreakdownRow, error) {
	var rows []settlement.BreakdownRow
	if err := r.db.WithContext(ctx).
		Model(&models.CommissionModel{}).
		Select(`order_date, status, COALESCE(category, '') AS category,
			COUNT(*) AS count,
			COALESCE(SUM(order_amount), 0) AS order_amount,
			COALESCE(SUM(commission_amount), 0) AS commission_amount,
			COALESCE(SUM(partner_net), 0) AS partner_net`).
		Where("tenant_id = ? AND partner_id = ?", tenantID, partnerID).
		Where("order_date >= ? AND order_date <= ?", from, to).
		Group("order_date, status, category").
		Order("order_date").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UnpaidByPartner groups pending commissions in the period per partner
func (r *GormCommissionRepository) UnpaidByPartner(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]settlement.PartnerUnpaidSummary, error) {
	var rows []settlement.PartnerUnpaidSummary
	if err := r.db.WithContext(ctx).
		Model(&models.CommissionModel{}).
		Select(`partner_id,
			COUNT(*) AS commission_count,
			COALESCE(SUM(order_amount), 0) AS order_amount,
			COALESCE(SUM(commission_amount), 0) AS commission_amount,
			COALESCE(SUM(partner_net), 0) AS partner_net`).
		Where("tenant_id = ? AND status = ?", tenantID, settlement.CommissionStatusPending).
		Where("order_date >= ? AND order_date <= ?", from, to).
		Group("partner_id").
		Order("partner_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Create inserts a commission
func (r *GormCommissionRepository) Create(ctx context.Context, c *settlement.Commission) error {
	model, err := models.CommissionModelFromDomain(c)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveWithLock updates a commission with optimistic locking
func (r *GormCommissionRepository) SaveWithLock(ctx context.Context, c *settlement.Commission) error {
	model, err := models.CommissionModelFromDomain(c)
	if err != nil {
		return err
	}
	return updateVersioned(r.db.WithContext(ctx), model, c.ID, c.Version, "commission_id")
}

func toCommissions(rows []models.CommissionModel) ([]*settlement.Commission, error) {
	out := make([]*settlement.Commission, 0, len(rows))
	for i := range rows {
		c, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

var (
	_ settlement.PartnerFinancialRepository = (*GormPartnerFinancialRepository)(nil)
	_ settlement.CommissionRepository       = (*GormCommissionRepository)(nil)
)
