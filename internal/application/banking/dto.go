package banking

import (
	"time"

	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccountResponse represents a bank account in API responses. The
// account number is masked.
type BankAccountResponse struct {
	ID                    uuid.UUID        `json:"id"`
	TenantID              uuid.UUID        `json:"tenant_id"`
	Name                  string           `json:"name"`
	BankName              string           `json:"bank_name"`
	AccountNumber         string           `json:"account_number"`
	Currency              string           `json:"currency"`
	LedgerAccountID       uuid.UUID        `json:"ledger_account_id"`
	IsActive              bool             `json:"is_active"`
	LastReconciledAt      *time.Time       `json:"last_reconciled_at,omitempty"`
	LastReconciledBalance *decimal.Decimal `json:"last_reconciled_balance,omitempty"`
	LastReconciliationID  *uuid.UUID       `json:"last_reconciliation_id,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	Version               int              `json:"version"`
}

// ToBankAccountResponse converts a domain BankAccount to a response
func ToBankAccountResponse(b *banking.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:                    b.ID,
		TenantID:              b.TenantID,
		Name:                  b.Name,
		BankName:              b.BankName,
		AccountNumber:         b.MaskedNumber(),
		Currency:              string(b.Currency),
		LedgerAccountID:       b.LedgerAccountID,
		IsActive:              b.IsActive,
		LastReconciledAt:      b.LastReconciledAt,
		LastReconciledBalance: b.LastReconciledBalance,
		LastReconciliationID:  b.LastReconciliationID,
		CreatedAt:             b.CreatedAt,
		Version:               b.Version,
	}
}

// CreateBankAccountRequest holds the inputs for a new bank account
type CreateBankAccountRequest struct {
	Name            string
	BankName        string
	AccountNumber   string
	Currency        string
	LedgerAccountID uuid.UUID
}

// ImportResult reports the outcome of a statement import
type ImportResult struct {
	Imported     int                        `json:"imported"`
	Skipped      int                        `json:"skipped"`
	Transactions []*banking.BankTransaction `json:"transactions"`
}

// CategorizeRequest assigns one category to several transactions
type CategorizeRequest struct {
	TransactionIDs []uuid.UUID
	Category       string
}

// TransactionListFilter represents filter options for the transaction list
type TransactionListFilter struct {
	BankAccountID *uuid.UUID `form:"-"` // bank_account_id, parsed by the handler
	Category      string     `form:"category"`
	Reconciled    *bool      `form:"reconciled"`
	From          *time.Time `form:"from" time_format:"2006-01-02"`
	To            *time.Time `form:"to" time_format:"2006-01-02"`
	Search        string     `form:"search"`
	Page          int        `form:"page"`
	PageSize      int        `form:"page_size"`
	OrderBy       string     `form:"order_by"`
	OrderDir      string     `form:"order_dir"`
}

func (f TransactionListFilter) toDomain() banking.TransactionFilter {
	filter := banking.TransactionFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
			Search:   f.Search,
		},
		BankAccountID: f.BankAccountID,
		Reconciled:    f.Reconciled,
		From:          f.From,
		To:            f.To,
	}
	if f.Category != "" {
		c := banking.Category(f.Category)
		filter.Category = &c
	}
	return filter
}

// StartReconciliationRequest opens a run for a statement. BookBalance,
// when set, replaces the balance derived from the ledger up to the
// statement date.
type StartReconciliationRequest struct {
	BankAccountID    uuid.UUID
	StatementDate    time.Time
	StatementBalance decimal.Decimal
	BookBalance      *decimal.Decimal
	Notes            string
}

// MatchRequest pairs a bank transaction with a ledger row. Without a
// LedgerEntryID the best candidate in the match window is chosen.
type MatchRequest struct {
	BankTransactionID uuid.UUID
	LedgerEntryID     *uuid.UUID
}

// AutoMatchResult reports a matching pass over every open transaction
type AutoMatchResult struct {
	Matched        []banking.Match        `json:"matched"`
	Unmatched      int                    `json:"unmatched"`
	Reconciliation ReconciliationResponse `json:"reconciliation"`
}

// AdjustmentRequest records a reconciling item
type AdjustmentRequest struct {
	Type        string
	Amount      decimal.Decimal
	Date        time.Time
	Description string
}

// CompleteRequest closes a run; Override accepts a nonzero difference
type CompleteRequest struct {
	Override bool
	Reason   string
}

// ReconciliationListFilter represents filter options for the reconciliation list
type ReconciliationListFilter struct {
	BankAccountID *uuid.UUID `form:"-"` // bank_account_id, parsed by the handler
	Status        string     `form:"status"`
	Page          int        `form:"page"`
	PageSize      int        `form:"page_size"`
	OrderBy       string     `form:"order_by"`
	OrderDir      string     `form:"order_dir"`
}

func (f ReconciliationListFilter) toDomain() banking.ReconciliationFilter {
	filter := banking.ReconciliationFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
		},
		BankAccountID: f.BankAccountID,
	}
	if f.Status != "" {
		s := banking.ReconciliationStatus(f.Status)
		filter.Status = &s
	}
	return filter
}

// ReconciliationResponse represents a reconciliation run in API responses
type ReconciliationResponse struct {
	ID                  uuid.UUID            `json:"id"`
	TenantID            uuid.UUID            `json:"tenant_id"`
	Number              string               `json:"number"`
	BankAccountID       uuid.UUID            `json:"bank_account_id"`
	LedgerAccountID     uuid.UUID            `json:"ledger_account_id"`
	StatementDate       time.Time            `json:"statement_date"`
	StatementBalance    decimal.Decimal      `json:"statement_balance"`
	BookBalance         decimal.Decimal      `json:"book_balance"`
	TotalAdjustments    decimal.Decimal      `json:"total_adjustments"`
	AdjustedBookBalance decimal.Decimal      `json:"adjusted_book_balance"`
	Difference          decimal.Decimal      `json:"difference"`
	Adjustments         []banking.Adjustment `json:"adjustments"`
	Matches             []banking.Match      `json:"matches"`
	Status              string               `json:"status"`
	Override            bool                 `json:"override"`
	OverrideReason      string               `json:"override_reason,omitempty"`
	CompletedAt         *time.Time           `json:"completed_at,omitempty"`
	CompletedBy         string               `json:"completed_by,omitempty"`
	DisputeReason       string               `json:"dispute_reason,omitempty"`
	CancelReason        string               `json:"cancel_reason,omitempty"`
	Notes               string               `json:"notes,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
	Version             int                  `json:"version"`
}

// ToReconciliationResponse converts a domain BankReconciliation to a response
func ToReconciliationResponse(r *banking.BankReconciliation) ReconciliationResponse {
	return ReconciliationResponse{
		ID:                  r.ID,
		TenantID:            r.TenantID,
		Number:              r.Number,
		BankAccountID:       r.BankAccountID,
		LedgerAccountID:     r.LedgerAccountID,
		StatementDate:       r.StatementDate,
		StatementBalance:    r.StatementBalance,
		BookBalance:         r.BookBalance,
		TotalAdjustments:    r.TotalAdjustments,
		AdjustedBookBalance: r.AdjustedBookBalance,
		Difference:          r.Difference,
		Adjustments:         r.Adjustments,
		Matches:             r.Matches,
		Status:              string(r.Status),
		Override:            r.Override,
		OverrideReason:      r.OverrideReason,
		CompletedAt:         r.CompletedAt,
		CompletedBy:         r.CompletedBy,
		DisputeReason:       r.DisputeReason,
		CancelReason:        r.CancelReason,
		Notes:               r.Notes,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
		Version:             r.Version,
	}
}
