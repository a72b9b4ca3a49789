package handler

import (
	"strings"

	ledgerapp "github.com/clutch/ledger/internal/application/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest represents a request to open a ledger account
//
//	@Description	Request body for creating a ledger account
type CreateAccountRequest struct {
	Number      string     `json:"number" binding:"required,max=32" example:"1020"`
	Name        string     `json:"name" binding:"required,max=200" example:"Bank"`
	Type        string     `json:"type" binding:"required" example:"ASSET"`
	Subtype     string     `json:"subtype" binding:"max=50" example:"BANK"`
	ParentID    *uuid.UUID `json:"parent_id"`
	Currency    string     `json:"currency" binding:"omitempty,len=3" example:"EUR"`
	Description string     `json:"description" binding:"max=500"`
}

func (r CreateAccountRequest) toApp() ledgerapp.CreateAccountRequest {
	return ledgerapp.CreateAccountRequest{
		Number:      r.Number,
		Name:        r.Name,
		Type:        strings.ToUpper(r.Type),
		Subtype:     strings.ToUpper(r.Subtype),
		ParentID:    r.ParentID,
		Currency:    r.Currency,
		Description: r.Description,
	}
}

// UpdateAccountRequest renames an account. Setting move_parent moves it
// under parent_id, or to the root when parent_id is null.
//
//	@Description	Request body for updating a ledger account
type UpdateAccountRequest struct {
	Name        string     `json:"name" binding:"required,max=200" example:"Operating bank"`
	Description string     `json:"description" binding:"max=500"`
	MoveParent  bool       `json:"move_parent"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

// JournalLineRequest is one line of a journal entry
type JournalLineRequest struct {
	AccountID   uuid.UUID       `json:"account_id" binding:"required"`
	Debit       decimal.Decimal `json:"debit" binding:"decimal_gte0" swaggertype:"string" example:"100.00"`
	Credit      decimal.Decimal `json:"credit" binding:"decimal_gte0" swaggertype:"string" example:"0"`
	Description string          `json:"description" binding:"max=500"`
}

func toLineRequests(lines []JournalLineRequest) []ledgerapp.JournalLineRequest {
	out := make([]ledgerapp.JournalLineRequest, len(lines))
	for i, l := range lines {
		out[i] = ledgerapp.JournalLineRequest{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	return out
}

// CreateJournalEntryRequest creates a draft, or posts it at once when post is true
//
//	@Description	Request body for creating a journal entry
type CreateJournalEntryRequest struct {
	EntryDate   string               `json:"entry_date" binding:"required" example:"2026-03-02"`
	Type        string               `json:"type" example:"MANUAL"`
	Description string               `json:"description" binding:"required,max=500" example:"Owner contribution"`
	Reference   string               `json:"reference" binding:"max=100"`
	Lines       []JournalLineRequest `json:"lines" binding:"required,min=2,dive"`
	Post        bool                 `json:"post" example:"true"`
}

// UpdateDraftRequest replaces the lines of a draft entry
type UpdateDraftRequest struct {
	Lines []JournalLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// ReverseEntryRequest reverses a posted entry
//
//	@Description	Request body for reversing a journal entry
type ReverseEntryRequest struct {
	Reason    string `json:"reason" binding:"required,max=500" example:"Posted to the wrong account"`
	EntryDate string `json:"entry_date" example:"2026-03-05"`
}

// CancelDraftRequest discards a draft entry
type CancelDraftRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}
