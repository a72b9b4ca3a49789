package models

import (
	"time"

	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccountModel is the persistence model for the BankAccount aggregate root.
type BankAccountModel struct {
	TenantAggregateModel
	Name                  string    `gorm:"type:varchar(200);not null"`
	BankName              string    `gorm:"type:varchar(200);not null"`
	AccountNumber         string    `gorm:"type:varchar(50);not null"`
	Currency              string    `gorm:"type:varchar(3);not null"`
	LedgerAccountID       uuid.UUID `gorm:"type:uuid;not null;index"`
	IsActive              bool      `gorm:"not null;default:true"`
	LastReconciledAt      *time.Time
	LastReconciledBalance *decimal.Decimal `gorm:"type:decimal(18,4)"`
	LastReconciliationID  *uuid.UUID       `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (BankAccountModel) TableName() string {
	return "bank_accounts"
}

// ToDomain converts the persistence model to a domain BankAccount
func (m *BankAccountModel) ToDomain() *banking.BankAccount {
	return &banking.BankAccount{
		TenantAggregateRoot:   m.ToTenantAggregateRoot(),
		Name:                  m.Name,
		BankName:              m.BankName,
		AccountNumber:         m.AccountNumber,
		Currency:              valueobject.Currency(m.Currency),
		LedgerAccountID:       m.LedgerAccountID,
		IsActive:              m.IsActive,
		LastReconciledAt:      m.LastReconciledAt,
		LastReconciledBalance: m.LastReconciledBalance,
		LastReconciliationID:  m.LastReconciliationID,
	}
}

// BankAccountModelFromDomain creates a persistence model from a domain BankAccount
func BankAccountModelFromDomain(a *banking.BankAccount) *BankAccountModel {
	m := &BankAccountModel{
		Name:                  a.Name,
		BankName:              a.BankName,
		AccountNumber:         a.AccountNumber,
		Currency:              string(a.Currency),
		LedgerAccountID:       a.LedgerAccountID,
		IsActive:              a.IsActive,
		LastReconciledAt:      a.LastReconciledAt,
		LastReconciledBalance: a.LastReconciledBalance,
		LastReconciliationID:  a.LastReconciliationID,
	}
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	return m
}

// BankTransactionModel is one imported statement line. ExternalID is unique
// per bank account so a re-import cannot duplicate a line.
type BankTransactionModel struct {
	ID                   uuid.UUID         `gorm:"type:uuid;primary_key"`
	TenantID             uuid.UUID         `gorm:"type:uuid;not null;index"`
	BankAccountID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_bank_tx_external,priority:1"`
	ExternalID           string            `gorm:"type:varchar(100);not null;uniqueIndex:idx_bank_tx_external,priority:2"`
	Date                 time.Time         `gorm:"type:date;not null;index"`
	Amount               decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Direction            banking.Direction `gorm:"type:varchar(10);not null"`
	Description          string            `gorm:"type:varchar(500)"`
	Reference            string            `gorm:"type:varchar(100)"`
	Category             banking.Category  `gorm:"type:varchar(30);index"`
	Reconciled           bool              `gorm:"not null;default:false;index"`
	ReconciledAt         *time.Time
	MatchedLedgerEntryID *uuid.UUID `gorm:"type:uuid"`
	ReconciliationID     *uuid.UUID `gorm:"type:uuid;index"`
	ImportedAt           time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BankTransactionModel) TableName() string {
	return "bank_transactions"
}

// ToDomain converts the persistence model to a domain BankTransaction
func (m *BankTransactionModel) ToDomain() *banking.BankTransaction {
	return &banking.BankTransaction{
		ID:                   m.ID,
		TenantID:             m.TenantID,
		BankAccountID:        m.BankAccountID,
		ExternalID:           m.ExternalID,
		Date:                 m.Date,
		Amount:               m.Amount,
		Direction:            m.Direction,
		Description:          m.Description,
		Reference:            m.Reference,
		Category:             m.Category,
		Reconciled:           m.Reconciled,
		ReconciledAt:         m.ReconciledAt,
		MatchedLedgerEntryID: m.MatchedLedgerEntryID,
		ReconciliationID:     m.ReconciliationID,
		ImportedAt:           m.ImportedAt,
	}
}

// BankTransactionModelFromDomain creates a persistence model from a domain BankTransaction
func BankTransactionModelFromDomain(t *banking.BankTransaction) *BankTransactionModel {
	return &BankTransactionModel{
		ID:                   t.ID,
		TenantID:             t.TenantID,
		BankAccountID:        t.BankAccountID,
		ExternalID:           t.ExternalID,
		Date:                 t.Date,
		Amount:               t.Amount,
		Direction:            t.Direction,
		Description:          t.Description,
		Reference:            t.Reference,
		Category:             t.Category,
		Reconciled:           t.Reconciled,
		ReconciledAt:         t.ReconciledAt,
		MatchedLedgerEntryID: t.MatchedLedgerEntryID,
		ReconciliationID:     t.ReconciliationID,
		ImportedAt:           t.ImportedAt,
	}
}

// BankReconciliationModel is the persistence model for the
// BankReconciliation aggregate root.
type BankReconciliationModel struct {
	TenantAggregateModel
	Number              string                       `gorm:"type:varchar(50);not null;index"`
	BankAccountID       uuid.UUID                    `gorm:"type:uuid;not null;index"`
	LedgerAccountID     uuid.UUID                    `gorm:"type:uuid;not null"`
	StatementDate       time.Time                    `gorm:"type:date;not null"`
	StatementBalance    decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	BookBalance         decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	TotalAdjustments    decimal.Decimal              `gorm:"type:decimal(18,4);not null;default:0"`
	AdjustedBookBalance decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	Difference          decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	Status              banking.ReconciliationStatus `gorm:"type:varchar(20);not null;index"`
	Override            bool                         `gorm:"not null;default:false"`
	OverrideReason      string                       `gorm:"type:varchar(500)"`
	CompletedAt         *time.Time
	CompletedBy         string `gorm:"type:varchar(100)"`
	DisputeReason       string `gorm:"type:varchar(500)"`
	DisputedAt          *time.Time
	CancelledAt         *time.Time
	CancelReason        string                          `gorm:"type:varchar(500)"`
	Notes               string                          `gorm:"type:text"`
	Adjustments         []ReconciliationAdjustmentModel `gorm:"foreignKey:ReconciliationID;references:ID"`
	Matches             []ReconciliationMatchModel      `gorm:"foreignKey:ReconciliationID;references:ID"`
}

// TableName returns the table name for GORM
func (BankReconciliationModel) TableName() string {
	return "bank_reconciliations"
}

// ReconciliationAdjustmentModel is one book adjustment of a reconciliation
type ReconciliationAdjustmentModel struct {
	ID               uuid.UUID              `gorm:"type:uuid;primary_key"`
	ReconciliationID uuid.UUID              `gorm:"type:uuid;not null;index"`
	Type             banking.AdjustmentType `gorm:"type:varchar(30);not null"`
	Amount           decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Date             time.Time              `gorm:"type:date;not null"`
	Description      string                 `gorm:"type:varchar(500)"`
	CreatedAt        time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReconciliationAdjustmentModel) TableName() string {
	return "reconciliation_adjustments"
}

// ReconciliationMatchModel pairs a bank line with a ledger row
type ReconciliationMatchModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReconciliationID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	BankTransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LedgerEntryID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Automatic         bool            `gorm:"not null;default:false"`
	MatchedBy         string          `gorm:"type:varchar(100)"`
	MatchedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReconciliationMatchModel) TableName() string {
	return "reconciliation_matches"
}

// ToDomain converts the persistence model to a domain BankReconciliation.
// The caller attaches the rounding policy with SetRounding.
func (m *BankReconciliationModel) ToDomain() *banking.BankReconciliation {
	r := &banking.BankReconciliation{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Number:              m.Number,
		BankAccountID:       m.BankAccountID,
		LedgerAccountID:     m.LedgerAccountID,
		StatementDate:       m.StatementDate,
		StatementBalance:    m.StatementBalance,
		BookBalance:         m.BookBalance,
		Balances: banking.Balances{
			TotalAdjustments:    m.TotalAdjustments,
			AdjustedBookBalance: m.AdjustedBookBalance,
			Difference:          m.Difference,
		},
		Adjustments:    make([]banking.Adjustment, len(m.Adjustments)),
		Matches:        make([]banking.Match, len(m.Matches)),
		Status:         m.Status,
		Override:       m.Override,
		OverrideReason: m.OverrideReason,
		CompletedAt:    m.CompletedAt,
		CompletedBy:    m.CompletedBy,
		DisputeReason:  m.DisputeReason,
		DisputedAt:     m.DisputedAt,
		CancelledAt:    m.CancelledAt,
		CancelReason:   m.CancelReason,
		Notes:          m.Notes,
	}
	for i, a := range m.Adjustments {
		r.Adjustments[i] = banking.Adjustment{
			ID:          a.ID,
			Type:        a.Type,
			Amount:      a.Amount,
			Date:        a.Date,
			Description: a.Description,
			CreatedAt:   a.CreatedAt,
		}
	}
	for i, mt := range m.Matches {
		r.Matches[i] = banking.Match{
			ID:                mt.ID,
			BankTransactionID: mt.BankTransactionID,
			LedgerEntryID:     mt.LedgerEntryID,
			Amount:            mt.Amount,
			Automatic:         mt.Automatic,
			MatchedBy:         mt.MatchedBy,
			MatchedAt:         mt.MatchedAt,
		}
	}
	return r
}

// BankReconciliationModelFromDomain creates a persistence model, children
// included, from a domain BankReconciliation
func BankReconciliationModelFromDomain(r *banking.BankReconciliation) *BankReconciliationModel {
	m := &BankReconciliationModel{
		Number:              r.Number,
		BankAccountID:       r.BankAccountID,
		LedgerAccountID:     r.LedgerAccountID,
		StatementDate:       r.StatementDate,
		StatementBalance:    r.StatementBalance,
		BookBalance:         r.BookBalance,
		TotalAdjustments:    r.TotalAdjustments,
		AdjustedBookBalance: r.AdjustedBookBalance,
		Difference:          r.Difference,
		Status:              r.Status,
		Override:            r.Override,
		OverrideReason:      r.OverrideReason,
		CompletedAt:         r.CompletedAt,
		CompletedBy:         r.CompletedBy,
		DisputeReason:       r.DisputeReason,
		DisputedAt:          r.DisputedAt,
		CancelledAt:         r.CancelledAt,
		CancelReason:        r.CancelReason,
		Notes:               r.Notes,
		Adjustments:         make([]ReconciliationAdjustmentModel, len(r.Adjustments)),
		Matches:             make([]ReconciliationMatchModel, len(r.Matches)),
	}
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	for i, a := range r.Adjustments {
		m.Adjustments[i] = ReconciliationAdjustmentModel{
			ID:               a.ID,
			ReconciliationID: r.ID,
			Type:             a.Type,
			Amount:           a.Amount,
			Date:             a.Date,
			Description:      a.Description,
			CreatedAt:        a.CreatedAt,
		}
	}
	for i, mt := range r.Matches {
		m.Matches[i] = ReconciliationMatchModel{
			ID:                mt.ID,
			ReconciliationID:  r.ID,
			BankTransactionID: mt.BankTransactionID,
			LedgerEntryID:     mt.LedgerEntryID,
			Amount:            mt.Amount,
			Automatic:         mt.Automatic,
			MatchedBy:         mt.MatchedBy,
			MatchedAt:         mt.MatchedAt,
		}
	}
	return m
}
