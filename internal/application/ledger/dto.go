package ledger

import (
	"time"

	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	Number        string          `json:"number"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Subtype       string          `json:"subtype"`
	ParentID      *uuid.UUID      `json:"parent_id,omitempty"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
	IsActive      bool            `json:"is_active"`
	IsSystem      bool            `json:"is_system"`
	LastEntryDate *time.Time      `json:"last_entry_date,omitempty"`
	DeactivatedAt *time.Time      `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// ToAccountResponse converts a domain Account to a response
func ToAccountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
		TenantID:      a.TenantID,
		Number:        a.Number,
		Name:          a.Name,
		Type:          string(a.Type),
		Subtype:       string(a.Subtype),
		ParentID:      a.ParentID,
		Currency:      string(a.Currency),
		Description:   a.Description,
		Balance:       a.Balance,
		IsActive:      a.IsActive,
		IsSystem:      a.IsSystem,
		LastEntryDate: a.LastEntryDate,
		DeactivatedAt: a.DeactivatedAt,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		Version:       a.Version,
	}
}

// ToAccountResponses converts a list of accounts
func ToAccountResponses(accounts []*ledger.Account) []AccountResponse {
	out := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = ToAccountResponse(a)
	}
	return out
}

// CreateAccountRequest holds the inputs for a new account
type CreateAccountRequest struct {
	Number      string
	Name        string
	Type        string
	Subtype     string
	ParentID    *uuid.UUID
	Currency    string
	Description string
}

// UpdateAccountRequest renames an account and optionally moves it
type UpdateAccountRequest struct {
	Name        string
	Description string
	// MoveParent applies ParentID, including a nil ParentID that makes the
	// account a root
	MoveParent bool
	ParentID   *uuid.UUID
}

// AccountListFilter represents filter options for the account list
type AccountListFilter struct {
	Search   string     `form:"search"`
	Type     string     `form:"type"`
	ParentID *uuid.UUID `form:"-"` // parent_id, parsed by the handler
	IsActive *bool      `form:"is_active"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir"`
}

func (f AccountListFilter) toDomain() ledger.AccountFilter {
	filter := ledger.AccountFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
			Search:   f.Search,
		},
		ParentID: f.ParentID,
		IsActive: f.IsActive,
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "number"
		filter.OrderDir = "asc"
	}
	if f.Type != "" {
		t := ledger.AccountType(f.Type)
		filter.Type = &t
	}
	return filter
}

// SeedResult reports what SeedDefaultChart created
type SeedResult struct {
	Created []AccountResponse `json:"created"`
	Skipped []string          `json:"skipped"`
}

// JournalLineRequest is one line of a journal entry request
type JournalLineRequest struct {
	AccountID   uuid.UUID
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

func toLineInputs(lines []JournalLineRequest) []ledger.LineInput {
	out := make([]ledger.LineInput, len(lines))
	for i, l := range lines {
		out[i] = ledger.LineInput{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	return out
}

// CreateJournalEntryRequest holds a new journal entry. With Post set the
// entry is posted in the same call; otherwise it is stored as a draft.
type CreateJournalEntryRequest struct {
	EntryDate   time.Time
	Type        string
	Description string
	Reference   string
	Lines       []JournalLineRequest
	Post        bool
}

// ReverseEntryRequest holds the inputs of a reversal
type ReverseEntryRequest struct {
	Reason string
	// EntryDate defaults to today; it is never earlier than the original
	EntryDate *time.Time
}

// JournalLineResponse represents a journal line in API responses
type JournalLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	LineNo      int             `json:"line_no"`
	AccountID   uuid.UUID       `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// JournalEntryResponse represents a journal entry in API responses
type JournalEntryResponse struct {
	ID             uuid.UUID             `json:"id"`
	TenantID       uuid.UUID             `json:"tenant_id"`
	EntryNumber    string                `json:"entry_number"`
	Sequence       int64                 `json:"sequence,omitempty"`
	EntryDate      time.Time             `json:"entry_date"`
	Type           string                `json:"type"`
	Status         string                `json:"status"`
	Description    string                `json:"description"`
	Reference      string                `json:"reference,omitempty"`
	TotalDebit     decimal.Decimal       `json:"total_debit"`
	TotalCredit    decimal.Decimal       `json:"total_credit"`
	Lines          []JournalLineResponse `json:"lines"`
	PostedAt       *time.Time            `json:"posted_at,omitempty"`
	PostedBy       *uuid.UUID            `json:"posted_by,omitempty"`
	ReversalOfID   *uuid.UUID            `json:"reversal_of_id,omitempty"`
	ReversedByID   *uuid.UUID            `json:"reversed_by_id,omitempty"`
	ReversedAt     *time.Time            `json:"reversed_at,omitempty"`
	ReversalReason string                `json:"reversal_reason,omitempty"`
	CancelledAt    *time.Time            `json:"cancelled_at,omitempty"`
	CancelReason   string                `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Version        int                   `json:"version"`
}

// ToJournalEntryResponse converts a domain JournalEntry to a response
func ToJournalEntryResponse(e *ledger.JournalEntry) JournalEntryResponse {
	debit, credit := e.Totals()
	lines := make([]JournalLineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLineResponse{
			ID:          l.ID,
			LineNo:      l.LineNo,
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	return JournalEntryResponse{
		ID:             e.ID,
		TenantID:       e.TenantID,
		EntryNumber:    e.EntryNumber,
		Sequence:       e.Sequence,
		EntryDate:      e.EntryDate,
		Type:           string(e.Type),
		Status:         string(e.Status),
		Description:    e.Description,
		Reference:      e.Reference,
		TotalDebit:     debit,
		TotalCredit:    credit,
		Lines:          lines,
		PostedAt:       e.PostedAt,
		PostedBy:       e.PostedBy,
		ReversalOfID:   e.ReversalOfID,
		ReversedByID:   e.ReversedByID,
		ReversedAt:     e.ReversedAt,
		ReversalReason: e.ReversalReason,
		CancelledAt:    e.CancelledAt,
		CancelReason:   e.CancelReason,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
		Version:        e.Version,
	}
}

// ReversalResponse carries both sides of a reversal
type ReversalResponse struct {
	Original JournalEntryResponse `json:"original"`
	Reversal JournalEntryResponse `json:"reversal"`
}

// JournalEntryListFilter represents filter options for the journal list
type JournalEntryListFilter struct {
	Status    string     `form:"status"`
	Type      string     `form:"type"`
	AccountID *uuid.UUID `form:"-"` // account_id, parsed by the handler
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	Reference string     `form:"reference"`
	Search    string     `form:"search"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir"`
}

func (f JournalEntryListFilter) toDomain() ledger.JournalEntryFilter {
	filter := ledger.JournalEntryFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
			Search:   f.Search,
		},
		AccountID: f.AccountID,
		From:      f.From,
		To:        f.To,
		Reference: f.Reference,
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "entry_date"
		filter.OrderDir = "desc"
	}
	if f.Status != "" {
		s := ledger.EntryStatus(f.Status)
		filter.Status = &s
	}
	if f.Type != "" {
		t := ledger.EntryType(f.Type)
		filter.Type = &t
	}
	return filter
}

// TrialBalanceQuery selects the trial balance to compute
type TrialBalanceQuery struct {
	// AsOf computes balances at the end of that day from the ledger rows;
	// nil uses the current account balances
	AsOf *time.Time `form:"as_of" time_format:"2006-01-02"`
	// Replay re-derives every account from its ledger history and reports
	// drift as discrepancies
	Replay bool `form:"replay"`
}
