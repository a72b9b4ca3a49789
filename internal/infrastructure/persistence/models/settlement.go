package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/clutch/ledger/internal/domain/settlement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartnerFinancialModel is the persistence model for the PartnerFinancial
// aggregate root. The commission structure is stored as a JSON document
// tagged with its kind.
type PartnerFinancialModel struct {
	TenantAggregateModel
	PartnerID           uuid.UUID                  `gorm:"type:uuid;not null;index"`
	PartnerName         string                     `gorm:"type:varchar(200);not null"`
	StructureJSON       string                     `gorm:"column:structure;type:jsonb;not null"`
	VATApplicable       bool                       `gorm:"not null;default:false"`
	VATRate             decimal.Decimal            `gorm:"type:decimal(8,4);not null;default:0"`
	MarkupStrategy      settlement.MarkupStrategy  `gorm:"type:varchar(20)"`
	MarkupPercentage    decimal.Decimal            `gorm:"type:decimal(8,4);not null;default:0"`
	MarkupPartnerShare  decimal.Decimal            `gorm:"type:decimal(8,4);not null;default:0"`
	PayoutFrequency     settlement.PayoutFrequency `gorm:"type:varchar(20);not null"`
	PayoutWeekday       int                        `gorm:"not null;default:1"`
	PayoutMinimumAmount decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	OrderCount          int64                      `gorm:"not null;default:0"`
	TotalRevenue        decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	TotalCommission     decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	UnpaidCommission    decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPaid           decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	PendingReturns      decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	LastPayoutAt        *time.Time
	IsActive            bool `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (PartnerFinancialModel) TableName() string {
	return "partner_financials"
}

// ToDomain converts the persistence model to a domain PartnerFinancial
func (m *PartnerFinancialModel) ToDomain() (*settlement.PartnerFinancial, error) {
	structure, err := settlement.UnmarshalStructure([]byte(m.StructureJSON))
	if err != nil {
		return nil, fmt.Errorf("partner %s: %w", m.PartnerID, err)
	}
	return &settlement.PartnerFinancial{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		PartnerID:           m.PartnerID,
		PartnerName:         m.PartnerName,
		Structure:           structure,
		VATApplicable:       m.VATApplicable,
		VATRate:             m.VATRate,
		Markup: settlement.MarkupConfig{
			Strategy:     m.MarkupStrategy,
			Percentage:   m.MarkupPercentage,
			PartnerShare: m.MarkupPartnerShare,
		},
		Schedule: settlement.PayoutSchedule{
			Frequency:     m.PayoutFrequency,
			Weekday:       time.Weekday(m.PayoutWeekday),
			MinimumAmount: m.PayoutMinimumAmount,
		},
		Financials: settlement.Financials{
			OrderCount:       m.OrderCount,
			TotalRevenue:     m.TotalRevenue,
			TotalCommission:  m.TotalCommission,
			UnpaidCommission: m.UnpaidCommission,
			TotalPaid:        m.TotalPaid,
			PendingReturns:   m.PendingReturns,
		},
		LastPayoutAt: m.LastPayoutAt,
		IsActive:     m.IsActive,
	}, nil
}

// PartnerFinancialModelFromDomain creates a persistence model from a domain PartnerFinancial
func PartnerFinancialModelFromDomain(p *settlement.PartnerFinancial) (*PartnerFinancialModel, error) {
	structure, err := settlement.MarshalStructure(p.Structure)
	if err != nil {
		return nil, fmt.Errorf("encode commission structure: %w", err)
	}
	m := &PartnerFinancialModel{
		PartnerID:           p.PartnerID,
		PartnerName:         p.PartnerName,
		StructureJSON:       string(structure),
		VATApplicable:       p.VATApplicable,
		VATRate:             p.VATRate,
		MarkupStrategy:      p.Markup.Strategy,
		MarkupPercentage:    p.Markup.Percentage,
		MarkupPartnerShare:  p.Markup.PartnerShare,
		PayoutFrequency:     p.Schedule.Frequency,
		PayoutWeekday:       int(p.Schedule.Weekday),
		PayoutMinimumAmount: p.Schedule.MinimumAmount,
		OrderCount:          p.Financials.OrderCount,
		TotalRevenue:        p.Financials.TotalRevenue,
		TotalCommission:     p.Financials.TotalCommission,
		UnpaidCommission:    p.Financials.UnpaidCommission,
		TotalPaid:           p.Financials.TotalPaid,
		PendingReturns:      p.Financials.PendingReturns,
		LastPayoutAt:        p.LastPayoutAt,
		IsActive:            p.IsActive,
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	return m, nil
}

// CommissionModel is the persistence model for the Commission aggregate
// root. The order id is unique per tenant.
type CommissionModel struct {
	TenantAggregateModel
	OrderID          string                      `gorm:"type:varchar(100);not null;index"`
	PartnerID        uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Category         string                      `gorm:"type:varchar(100)"`
	PaymentMethod    string                      `gorm:"type:varchar(50)"`
	OrderDate        time.Time                   `gorm:"type:date;not null;index"`
	OrderAmount      decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	CommissionRate   decimal.Decimal             `gorm:"type:decimal(8,4);not null"`
	CommissionAmount decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	VATAmount        decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0"`
	PartnerNet       decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	PlatformRevenue  decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	MarkupRevenue    decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0"`
	CustomerCharged  decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	DetailJSON       string                      `gorm:"column:calculation_detail;type:jsonb;default:'{}'"`
	Status           settlement.CommissionStatus `gorm:"type:varchar(20);not null;index"`
	JournalEntryID   *uuid.UUID                  `gorm:"type:uuid"`
	PayoutID         *uuid.UUID                  `gorm:"type:uuid;index"`
	PaidAt           *time.Time
	CancelledAt      *time.Time
	RefundedAt       *time.Time
	Reason           string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (CommissionModel) TableName() string {
	return "commissions"
}

// ToDomain converts the persistence model to a domain Commission
func (m *CommissionModel) ToDomain() (*settlement.Commission, error) {
	var detail settlement.CalculationDetail
	if m.DetailJSON != "" {
		if err := json.Unmarshal([]byte(m.DetailJSON), &detail); err != nil {
			return nil, fmt.Errorf("decode calculation detail of order %s: %w", m.OrderID, err)
		}
	}
	return &settlement.Commission{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		OrderID:             m.OrderID,
		PartnerID:           m.PartnerID,
		Category:            m.Category,
		PaymentMethod:       m.PaymentMethod,
		OrderDate:           m.OrderDate,
		OrderAmount:         m.OrderAmount,
		CommissionRate:      m.CommissionRate,
		CommissionAmount:    m.CommissionAmount,
		VATAmount:           m.VATAmount,
		PartnerNet:          m.PartnerNet,
		PlatformRevenue:     m.PlatformRevenue,
		MarkupRevenue:       m.MarkupRevenue,
		CustomerCharged:     m.CustomerCharged,
		Detail:              detail,
		Status:              m.Status,
		JournalEntryID:      m.JournalEntryID,
		PayoutID:            m.PayoutID,
		PaidAt:              m.PaidAt,
		CancelledAt:         m.CancelledAt,
		RefundedAt:          m.RefundedAt,
		Reason:              m.Reason,
	}, nil
}

// CommissionModelFromDomain creates a persistence model from a domain Commission
func CommissionModelFromDomain(c *settlement.Commission) (*CommissionModel, error) {
	detail, err := json.Marshal(c.Detail)
	if err != nil {
		return nil, fmt.Errorf("encode calculation detail: %w", err)
	}
	m := &CommissionModel{
		OrderID:          c.OrderID,
		PartnerID:        c.PartnerID,
		Category:         c.Category,
		PaymentMethod:    c.PaymentMethod,
		OrderDate:        c.OrderDate,
		OrderAmount:      c.OrderAmount,
		CommissionRate:   c.CommissionRate,
		CommissionAmount: c.CommissionAmount,
		VATAmount:        c.VATAmount,
		PartnerNet:       c.PartnerNet,
		PlatformRevenue:  c.PlatformRevenue,
		MarkupRevenue:    c.MarkupRevenue,
		CustomerCharged:  c.CustomerCharged,
		DetailJSON:       string(detail),
		Status:           c.Status,
		JournalEntryID:   c.JournalEntryID,
		PayoutID:         c.PayoutID,
		PaidAt:           c.PaidAt,
		CancelledAt:      c.CancelledAt,
		RefundedAt:       c.RefundedAt,
		Reason:           c.Reason,
	}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	return m, nil
}
