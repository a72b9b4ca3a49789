package telemetry

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSettlementMetricsProvider implements SettlementMetricsProvider with
// aggregate queries over the commissions and bank_reconciliations tables.
type GormSettlementMetricsProvider struct {
	db *gorm.DB
}

// NewGormSettlementMetricsProvider creates a new GormSettlementMetricsProvider.
func NewGormSettlementMetricsProvider(db *gorm.DB) *GormSettlementMetricsProvider {
	return &GormSettlementMetricsProvider{db: db}
}

// UnpaidCommission returns the pending partner net per partner for a tenant.
func (p *GormSettlementMetricsProvider) UnpaidCommission(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	type result struct {
		PartnerID  uuid.UUID       `gorm:"column:partner_id"`
		PartnerNet decimal.Decimal `gorm:"column:partner_net"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("commissions").
		Select("partner_id, COALESCE(SUM(partner_net), 0) as partner_net").
		Where("tenant_id = ? AND status = ?", tenantID, "PENDING").
		Group("partner_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]decimal.Decimal, len(results))
	for _, r := range results {
		out[r.PartnerID] = r.PartnerNet
	}
	return out, nil
}

// OpenReconciliations counts draft and in-progress reconciliations of a tenant.
func (p *GormSettlementMetricsProvider) OpenReconciliations(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("bank_reconciliations").
		Where("tenant_id = ? AND status IN ?", tenantID, []string{"DRAFT", "IN_PROGRESS"}).
		Count(&count).Error
	return count, err
}

// GormTenantProvider lists tenants that have settlement activity.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns the tenants with at least one active partner.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("partner_financials").
		Distinct("tenant_id").
		Where("is_active = ?", true).
		Pluck("tenant_id", &tenantIDs).Error
	return tenantIDs, err
}
