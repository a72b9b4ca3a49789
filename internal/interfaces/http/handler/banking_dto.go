package handler

import (
	"strings"

	bankingapp "github.com/clutch/ledger/internal/application/banking"
	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateBankAccountRequest binds a bank account to a ledger cash or bank account
//
//	@Description	Request body for creating a bank account
type CreateBankAccountRequest struct {
	Name            string    `json:"name" binding:"required,max=200" example:"Operating account"`
	BankName        string    `json:"bank_name" binding:"required,max=200" example:"First Bank"`
	AccountNumber   string    `json:"account_number" binding:"required,max=64" example:"DE89370400440532013000"`
	Currency        string    `json:"currency" binding:"omitempty,len=3" example:"EUR"`
	LedgerAccountID uuid.UUID `json:"ledger_account_id" binding:"required"`
}

// BankTransactionRequest is one statement line
type BankTransactionRequest struct {
	ExternalID  string          `json:"external_id" binding:"required,max=128" example:"TX-20260302-001"`
	Date        string          `json:"date" binding:"required" example:"2026-03-02"`
	Amount      decimal.Decimal `json:"amount" binding:"decimal" swaggertype:"string" example:"250.00"`
	Direction   string          `json:"direction" binding:"omitempty,oneof=CREDIT DEBIT credit debit"`
	Description string          `json:"description" binding:"max=500"`
	Reference   string          `json:"reference" binding:"max=128"`
	Category    string          `json:"category" binding:"omitempty,oneof=income expense transfer fee interest other"`
}

// ImportTransactionsRequest imports statement lines for one bank account
//
//	@Description	Request body for importing bank transactions
type ImportTransactionsRequest struct {
	Transactions []BankTransactionRequest `json:"transactions" binding:"required,min=1,dive"`
}

func (r ImportTransactionsRequest) toInputs() ([]banking.TransactionInput, error) {
	out := make([]banking.TransactionInput, len(r.Transactions))
	for i, tx := range r.Transactions {
		date, err := parseDate("date", tx.Date)
		if err != nil {
			return nil, err
		}
		out[i] = banking.TransactionInput{
			ExternalID:  tx.ExternalID,
			Date:        *date,
			Amount:      tx.Amount,
			Direction:   banking.Direction(strings.ToUpper(tx.Direction)),
			Description: tx.Description,
			Reference:   tx.Reference,
			Category:    banking.Category(tx.Category),
		}
	}
	return out, nil
}

// FeedImportRequest names a statement object in the bank-feed bucket
type FeedImportRequest struct {
	ObjectKey string `json:"object_key" binding:"required" example:"statements/2026-03-02.csv"`
}

// CategorizeRequest assigns one category to several transactions
type CategorizeRequest struct {
	TransactionIDs []uuid.UUID `json:"transaction_ids" binding:"required,min=1"`
	Category       string      `json:"category" binding:"required,oneof=income expense transfer fee interest other" example:"fee"`
}

// StartReconciliationRequest opens a reconciliation run
//
//	@Description	Request body for starting a reconciliation
type StartReconciliationRequest struct {
	BankAccountID    uuid.UUID        `json:"bank_account_id" binding:"required"`
	StatementDate    string           `json:"statement_date" binding:"required" example:"2026-03-31"`
	StatementBalance decimal.Decimal  `json:"statement_balance" binding:"decimal" swaggertype:"string" example:"1200.00"`
	BookBalance      *decimal.Decimal `json:"book_balance" swaggertype:"string" example:"1187.50"`
	Notes            string           `json:"notes" binding:"max=500"`
}

func (r StartReconciliationRequest) toApp() (bankingapp.StartReconciliationRequest, error) {
	date, err := parseDate("statement_date", r.StatementDate)
	if err != nil {
		return bankingapp.StartReconciliationRequest{}, err
	}
	return bankingapp.StartReconciliationRequest{
		BankAccountID:    r.BankAccountID,
		StatementDate:    *date,
		StatementBalance: r.StatementBalance,
		BookBalance:      r.BookBalance,
		Notes:            r.Notes,
	}, nil
}

// MatchRequest pairs a bank transaction with a ledger row. Without
// ledger_entry_id the best candidate is chosen.
type MatchRequest struct {
	BankTransactionID uuid.UUID  `json:"bank_transaction_id" binding:"required"`
	LedgerEntryID     *uuid.UUID `json:"ledger_entry_id"`
}

// AdjustmentRequest records a reconciling item. Fees are negative,
// interest positive.
type AdjustmentRequest struct {
	Type        string          `json:"type" binding:"required" example:"BANK_FEE"`
	Amount      decimal.Decimal `json:"amount" binding:"decimal" swaggertype:"string" example:"-12.50"`
	Date        string          `json:"date" example:"2026-03-31"`
	Description string          `json:"description" binding:"max=500"`
}

// CompleteReconciliationRequest closes a run. override accepts a nonzero
// difference and then requires a reason.
type CompleteReconciliationRequest struct {
	Override bool   `json:"override"`
	Reason   string `json:"reason" binding:"required_if=Override true,max=500"`
}

// ReasonRequest carries a mandatory reason
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,max=500" example:"Statement balance disputed with the bank"`
}

// OptionalReasonRequest carries an optional reason
type OptionalReasonRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}
