package banking

import (
	"strings"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccount mirrors an account held at a bank. Every bank account is bound
// to the ledger account (cash or bank subtype) that carries its book balance.
type BankAccount struct {
	shared.TenantAggregateRoot
	Name                  string               `json:"name"`
	BankName              string               `json:"bank_name"`
	AccountNumber         string               `json:"account_number"`
	Currency              valueobject.Currency `json:"currency"`
	LedgerAccountID       uuid.UUID            `json:"ledger_account_id"`
	IsActive              bool                 `json:"is_active"`
	LastReconciledAt      *time.Time           `json:"last_reconciled_at,omitempty"`
	LastReconciledBalance *decimal.Decimal     `json:"last_reconciled_balance,omitempty"`
	LastReconciliationID  *uuid.UUID           `json:"last_reconciliation_id,omitempty"`
}

// NewBankAccount creates an active bank account
func NewBankAccount(tenantID uuid.UUID, name, bankName, accountNumber string, currency valueobject.Currency, ledgerAccountID uuid.UUID) (*BankAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("name", "bank account name cannot be empty")
	}
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, shared.NewValidationError("account_number", "account number cannot be empty")
	}
	if ledgerAccountID == uuid.Nil {
		return nil, shared.NewValidationError("ledger_account_id", "ledger account is required")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !currency.IsValid() {
		return nil, shared.NewValidationError("currency", "unsupported currency "+string(currency))
	}
	return &BankAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		BankName:            strings.TrimSpace(bankName),
		AccountNumber:       accountNumber,
		Currency:            currency,
		LedgerAccountID:     ledgerAccountID,
		IsActive:            true,
	}, nil
}

// MaskedNumber hides all but the last four digits
func (b *BankAccount) MaskedNumber() string {
	n := b.AccountNumber
	if len(n) <= 4 {
		return n
	}
	return strings.Repeat("*", len(n)-4) + n[len(n)-4:]
}

// RecordReconciliation stamps the outcome of a completed reconciliation.
// An older statement never moves the stamp backwards.
func (b *BankAccount) RecordReconciliation(r *BankReconciliation) {
	if b.LastReconciledAt != nil && r.StatementDate.Before(*b.LastReconciledAt) {
		return
	}
	at := r.StatementDate
	balance := r.StatementBalance
	id := r.ID
	b.LastReconciledAt = &at
	b.LastReconciledBalance = &balance
	b.LastReconciliationID = &id
	b.Touch()
	b.IncrementVersion()
}
