package models

import (
	"time"

	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the Account aggregate root.
type AccountModel struct {
	TenantAggregateModel
	Number        string                `gorm:"type:varchar(20);not null;index"`
	Name          string                `gorm:"type:varchar(200);not null"`
	Type          ledger.AccountType    `gorm:"type:varchar(20);not null;index"`
	Subtype       ledger.AccountSubtype `gorm:"type:varchar(30);not null"`
	ParentID      *uuid.UUID            `gorm:"type:uuid;index"`
	Currency      string                `gorm:"type:varchar(3);not null"`
	Description   string                `gorm:"type:text"`
	Balance       decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	IsActive      bool                  `gorm:"not null;default:true;index"`
	IsSystem      bool                  `gorm:"not null;default:false"`
	LastEntryDate *time.Time
	DeactivatedAt *time.Time
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *ledger.Account {
	return &ledger.Account{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Number:              m.Number,
		Name:                m.Name,
		Type:                m.Type,
		Subtype:             m.Subtype,
		ParentID:            m.ParentID,
		Currency:            valueobject.Currency(m.Currency),
		Description:         m.Description,
		Balance:             m.Balance,
		IsActive:            m.IsActive,
		IsSystem:            m.IsSystem,
		LastEntryDate:       m.LastEntryDate,
		DeactivatedAt:       m.DeactivatedAt,
	}
}

// AccountModelFromDomain creates a persistence model from a domain Account
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{
		Number:        a.Number,
		Name:          a.Name,
		Type:          a.Type,
		Subtype:       a.Subtype,
		ParentID:      a.ParentID,
		Currency:      string(a.Currency),
		Description:   a.Description,
		Balance:       a.Balance,
		IsActive:      a.IsActive,
		IsSystem:      a.IsSystem,
		LastEntryDate: a.LastEntryDate,
		DeactivatedAt: a.DeactivatedAt,
	}
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	return m
}

// JournalEntryModel is the persistence model for the JournalEntry aggregate
// root. Sequence is zero for drafts and unique per tenant once posted.
type JournalEntryModel struct {
	TenantAggregateModel
	EntryNumber    string             `gorm:"type:varchar(50);not null;index"`
	Sequence       int64              `gorm:"not null;default:0;index"`
	EntryDate      time.Time          `gorm:"type:date;not null;index"`
	Type           ledger.EntryType   `gorm:"type:varchar(20);not null"`
	Description    string             `gorm:"type:varchar(500);not null"`
	Reference      string             `gorm:"type:varchar(100);index"`
	Status         ledger.EntryStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	PostedAt       *time.Time
	PostedBy       *uuid.UUID `gorm:"type:uuid"`
	ReversalOfID   *uuid.UUID `gorm:"type:uuid;index"`
	ReversedByID   *uuid.UUID `gorm:"type:uuid"`
	ReversedAt     *time.Time
	ReversalReason string `gorm:"type:varchar(500)"`
	CancelledAt    *time.Time
	CancelReason   string             `gorm:"type:varchar(500)"`
	Lines          []JournalLineModel `gorm:"foreignKey:JournalEntryID;references:ID"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// JournalLineModel is one line of a journal entry
type JournalLineModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	JournalEntryID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo         int             `gorm:"not null"`
	AccountID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Debit          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Credit         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Description    string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "journal_lines"
}

// ToDomain converts the persistence model to a domain JournalEntry
func (m *JournalEntryModel) ToDomain() *ledger.JournalEntry {
	lines := make([]ledger.JournalLine, len(m.Lines))
	for i, l := range m.Lines {
		lines[i] = ledger.JournalLine{
			ID:          l.ID,
			LineNo:      l.LineNo,
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	return &ledger.JournalEntry{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		EntryNumber:         m.EntryNumber,
		Sequence:            m.Sequence,
		EntryDate:           m.EntryDate,
		Type:                m.Type,
		Description:         m.Description,
		Reference:           m.Reference,
		Lines:               lines,
		Status:              m.Status,
		PostedAt:            m.PostedAt,
		PostedBy:            m.PostedBy,
		ReversalOfID:        m.ReversalOfID,
		ReversedByID:        m.ReversedByID,
		ReversedAt:          m.ReversedAt,
		ReversalReason:      m.ReversalReason,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
	}
}

// JournalEntryModelFromDomain creates a persistence model, lines included,
// from a domain JournalEntry
func JournalEntryModelFromDomain(e *ledger.JournalEntry) *JournalEntryModel {
	m := &JournalEntryModel{
		EntryNumber:    e.EntryNumber,
		Sequence:       e.Sequence,
		EntryDate:      e.EntryDate,
		Type:           e.Type,
		Description:    e.Description,
		Reference:      e.Reference,
		Status:         e.Status,
		PostedAt:       e.PostedAt,
		PostedBy:       e.PostedBy,
		ReversalOfID:   e.ReversalOfID,
		ReversedByID:   e.ReversedByID,
		ReversedAt:     e.ReversedAt,
		ReversalReason: e.ReversalReason,
		CancelledAt:    e.CancelledAt,
		CancelReason:   e.CancelReason,
		Lines:          make([]JournalLineModel, len(e.Lines)),
	}
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	for i, l := range e.Lines {
		m.Lines[i] = JournalLineModel{
			ID:             l.ID,
			JournalEntryID: e.ID,
			LineNo:         l.LineNo,
			AccountID:      l.AccountID,
			Debit:          l.Debit,
			Credit:         l.Credit,
			Description:    l.Description,
		}
	}
	return m
}

// LedgerEntryModel is one general-ledger row. Rows are append-only except
// for the reconciliation stamp.
type LedgerEntryModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_account_order,priority:1"`
	AccountID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_account_order,priority:2"`
	JournalEntryID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	EntryNumber      string          `gorm:"type:varchar(50);not null"`
	Sequence         int64           `gorm:"not null;index:idx_ledger_account_order,priority:4"`
	LineNo           int             `gorm:"not null;index:idx_ledger_account_order,priority:5"`
	EntryDate        time.Time       `gorm:"type:date;not null;index:idx_ledger_account_order,priority:3"`
	Description      string          `gorm:"type:varchar(500)"`
	Debit            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Credit           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Balance          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reconciled       bool            `gorm:"not null;default:false;index"`
	ReconciledAt     *time.Time
	ReconciliationID *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt        time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the persistence model to a domain LedgerEntry
func (m *LedgerEntryModel) ToDomain() *ledger.LedgerEntry {
	return &ledger.LedgerEntry{
		ID:               m.ID,
		TenantID:         m.TenantID,
		AccountID:        m.AccountID,
		JournalEntryID:   m.JournalEntryID,
		EntryNumber:      m.EntryNumber,
		Sequence:         m.Sequence,
		LineNo:           m.LineNo,
		EntryDate:        m.EntryDate,
		Description:      m.Description,
		Debit:            m.Debit,
		Credit:           m.Credit,
		Balance:          m.Balance,
		Reconciled:       m.Reconciled,
		ReconciledAt:     m.ReconciledAt,
		ReconciliationID: m.ReconciliationID,
		CreatedAt:        m.CreatedAt,
	}
}

// LedgerEntryModelFromDomain creates a persistence model from a domain LedgerEntry
func LedgerEntryModelFromDomain(e *ledger.LedgerEntry) *LedgerEntryModel {
	return &LedgerEntryModel{
		ID:               e.ID,
		TenantID:         e.TenantID,
		AccountID:        e.AccountID,
		JournalEntryID:   e.JournalEntryID,
		EntryNumber:      e.EntryNumber,
		Sequence:         e.Sequence,
		LineNo:           e.LineNo,
		EntryDate:        e.EntryDate,
		Description:      e.Description,
		Debit:            e.Debit,
		Credit:           e.Credit,
		Balance:          e.Balance,
		Reconciled:       e.Reconciled,
		ReconciledAt:     e.ReconciledAt,
		ReconciliationID: e.ReconciliationID,
		CreatedAt:        e.CreatedAt,
	}
}

// JournalSequenceModel holds the last posting sequence issued to a tenant
type JournalSequenceModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primary_key"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (JournalSequenceModel) TableName() string {
	return "journal_sequences"
}
