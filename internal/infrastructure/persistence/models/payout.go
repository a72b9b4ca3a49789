package models

import (
	"time"

	"github.com/clutch/ledger/internal/domain/payout"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutModel is the persistence model for the Payout aggregate root.
type PayoutModel struct {
	TenantAggregateModel
	Number           string          `gorm:"type:varchar(50);not null;index"`
	PartnerID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	PeriodStart      time.Time       `gorm:"type:date;not null"`
	PeriodEnd        time.Time       `gorm:"type:date;not null;index"`
	TotalOrders      int             `gorm:"not null;default:0"`
	TotalRevenue     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PlatformShare    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	GrossCommission  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalDeductions  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	NetPayout        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status           payout.Status   `gorm:"type:varchar(20);not null;index"`
	PaymentReference string          `gorm:"type:varchar(100)"`
	FailureReason    string          `gorm:"type:varchar(500)"`
	CompletedAt      *time.Time
	JournalEntryID   *uuid.UUID             `gorm:"type:uuid"`
	Items            []PayoutItemModel      `gorm:"foreignKey:PayoutID;references:ID"`
	Deductions       []PayoutDeductionModel `gorm:"foreignKey:PayoutID;references:ID"`
	AuditLog         []PayoutAuditLogModel  `gorm:"foreignKey:PayoutID;references:ID"`
}

// TableName returns the table name for GORM
func (PayoutModel) TableName() string {
	return "payouts"
}

// PayoutItemModel is one commission claimed by a payout. A commission can be
// held by at most one unreleased item; cancelling the payout releases it.
type PayoutItemModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	PayoutID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	TenantID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	CommissionID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_payout_item_claim,where:released = false"`
	OrderID          string          `gorm:"type:varchar(100);not null"`
	OrderDate        time.Time       `gorm:"type:date;not null"`
	OrderAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PartnerNet       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineNo           int             `gorm:"not null"`
	Released         bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (PayoutItemModel) TableName() string {
	return "payout_items"
}

// PayoutDeductionModel is one amount withheld from a payout
type PayoutDeductionModel struct {
	ID          uuid.UUID            `gorm:"type:uuid;primary_key"`
	PayoutID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	Type        payout.DeductionType `gorm:"type:varchar(20);not null"`
	Amount      decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	OrderRef    string               `gorm:"type:varchar(100)"`
	Description string               `gorm:"type:varchar(500)"`
	Recovery    bool                 `gorm:"not null;default:false"`
	LineNo      int                  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PayoutDeductionModel) TableName() string {
	return "payout_deductions"
}

// PayoutAuditLogModel is one status transition of a payout. Rows are never
// updated.
type PayoutAuditLogModel struct {
	ID         uuid.UUID     `gorm:"type:uuid;primary_key"`
	PayoutID   uuid.UUID     `gorm:"type:uuid;not null;index"`
	Actor      string        `gorm:"type:varchar(100)"`
	At         time.Time     `gorm:"not null"`
	FromStatus payout.Status `gorm:"type:varchar(20)"`
	ToStatus   payout.Status `gorm:"type:varchar(20);not null"`
	Reason     string        `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PayoutAuditLogModel) TableName() string {
	return "payout_audit_logs"
}

// ToDomain converts the persistence model to a domain Payout. Children are
// expected in line order.
func (m *PayoutModel) ToDomain() *payout.Payout {
	p := &payout.Payout{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Number:              m.Number,
		PartnerID:           m.PartnerID,
		PeriodStart:         m.PeriodStart,
		PeriodEnd:           m.PeriodEnd,
		Items:               make([]payout.Item, len(m.Items)),
		TotalOrders:         m.TotalOrders,
		TotalRevenue:        m.TotalRevenue,
		PlatformShare:       m.PlatformShare,
		GrossCommission:     m.GrossCommission,
		Deductions:          make([]payout.Deduction, len(m.Deductions)),
		TotalDeductions:     m.TotalDeductions,
		NetPayout:           m.NetPayout,
		Status:              m.Status,
		AuditLog:            make([]payout.AuditRecord, len(m.AuditLog)),
		PaymentReference:    m.PaymentReference,
		FailureReason:       m.FailureReason,
		CompletedAt:         m.CompletedAt,
		JournalEntryID:      m.JournalEntryID,
	}
	for i, it := range m.Items {
		p.Items[i] = payout.Item{
			CommissionID:     it.CommissionID,
			OrderID:          it.OrderID,
			OrderDate:        it.OrderDate,
			OrderAmount:      it.OrderAmount,
			CommissionAmount: it.CommissionAmount,
			PartnerNet:       it.PartnerNet,
		}
	}
	for i, d := range m.Deductions {
		p.Deductions[i] = payout.Deduction{
			ID:          d.ID,
			Type:        d.Type,
			Amount:      d.Amount,
			OrderRef:    d.OrderRef,
			Description: d.Description,
			Recovery:    d.Recovery,
		}
	}
	for i, a := range m.AuditLog {
		p.AuditLog[i] = payout.AuditRecord{
			ID:         a.ID,
			Actor:      a.Actor,
			At:         a.At,
			FromStatus: a.FromStatus,
			ToStatus:   a.ToStatus,
			Reason:     a.Reason,
		}
	}
	return p
}

// PayoutModelFromDomain creates a persistence model, children included, from
// a domain Payout. Item ids are generated here since the domain identifies
// items by commission.
func PayoutModelFromDomain(p *payout.Payout) *PayoutModel {
	m := &PayoutModel{
		Number:           p.Number,
		PartnerID:        p.PartnerID,
		PeriodStart:      p.PeriodStart,
		PeriodEnd:        p.PeriodEnd,
		TotalOrders:      p.TotalOrders,
		TotalRevenue:     p.TotalRevenue,
		PlatformShare:    p.PlatformShare,
		GrossCommission:  p.GrossCommission,
		TotalDeductions:  p.TotalDeductions,
		NetPayout:        p.NetPayout,
		Status:           p.Status,
		PaymentReference: p.PaymentReference,
		FailureReason:    p.FailureReason,
		CompletedAt:      p.CompletedAt,
		JournalEntryID:   p.JournalEntryID,
		Items:            make([]PayoutItemModel, len(p.Items)),
		Deductions:       make([]PayoutDeductionModel, len(p.Deductions)),
		AuditLog:         make([]PayoutAuditLogModel, len(p.AuditLog)),
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	for i, it := range p.Items {
		m.Items[i] = PayoutItemModel{
			ID:               uuid.New(),
			PayoutID:         p.ID,
			TenantID:         p.TenantID,
			CommissionID:     it.CommissionID,
			OrderID:          it.OrderID,
			OrderDate:        it.OrderDate,
			OrderAmount:      it.OrderAmount,
			CommissionAmount: it.CommissionAmount,
			PartnerNet:       it.PartnerNet,
			LineNo:           i + 1,
			Released:         !p.Status.HoldsClaims(),
		}
	}
	for i, d := range p.Deductions {
		m.Deductions[i] = PayoutDeductionModel{
			ID:          d.ID,
			PayoutID:    p.ID,
			Type:        d.Type,
			Amount:      d.Amount,
			OrderRef:    d.OrderRef,
			Description: d.Description,
			Recovery:    d.Recovery,
			LineNo:      i + 1,
		}
	}
	for i, a := range p.AuditLog {
		m.AuditLog[i] = PayoutAuditLogModel{
			ID:         a.ID,
			PayoutID:   p.ID,
			Actor:      a.Actor,
			At:         a.At,
			FromStatus: a.FromStatus,
			ToStatus:   a.ToStatus,
			Reason:     a.Reason,
		}
	}
	return m
}
