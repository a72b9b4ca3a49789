package banking

import (
	"strings"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the side of a statement line as the bank reports it.
// A credit is money coming into the account, a debit money leaving it.
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

// IsValid reports whether the direction is known
func (d Direction) IsValid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// LedgerSideIsDebit reports which side of the bound asset account a matching
// ledger row sits on: a bank credit is a debit in the books.
func (d Direction) LedgerSideIsDebit() bool {
	return d == DirectionCredit
}

// Category classifies a bank transaction for reporting
type Category string

const (
	CategoryNone     Category = ""
	CategoryIncome   Category = "income"
	CategoryExpense  Category = "expense"
	CategoryTransfer Category = "transfer"
	CategoryFee      Category = "fee"
	CategoryInterest Category = "interest"
	CategoryOther    Category = "other"
)

// IsValid reports whether the category is one of the assignable categories
func (c Category) IsValid() bool {
	switch c {
	case CategoryIncome, CategoryExpense, CategoryTransfer, CategoryFee, CategoryInterest, CategoryOther:
		return true
	}
	return false
}

// TransactionInput is one imported statement line. A negative Amount without
// a Direction is read as a debit.
type TransactionInput struct {
	ExternalID  string
	Date        time.Time
	Amount      decimal.Decimal
	Direction   Direction
	Description string
	Reference   string
	Category    Category
}

// BankTransaction is one line of a bank statement
type BankTransaction struct {
	ID                   uuid.UUID       `json:"id"`
	TenantID             uuid.UUID       `json:"tenant_id"`
	BankAccountID        uuid.UUID       `json:"bank_account_id"`
	ExternalID           string          `json:"bank_transaction_id"`
	Date                 time.Time       `json:"date"`
	Amount               decimal.Decimal `json:"amount"`
	Direction            Direction       `json:"direction"`
	Description          string          `json:"description"`
	Reference            string          `json:"reference,omitempty"`
	Category             Category        `json:"category,omitempty"`
	Reconciled           bool            `json:"reconciled"`
	ReconciledAt         *time.Time      `json:"reconciled_at,omitempty"`
	MatchedLedgerEntryID *uuid.UUID      `json:"matched_ledger_entry_id,omitempty"`
	ReconciliationID     *uuid.UUID      `json:"reconciliation_id,omitempty"`
	ImportedAt           time.Time       `json:"imported_at"`
}

// NewBankTransaction validates one imported line
func NewBankTransaction(tenantID, bankAccountID uuid.UUID, in TransactionInput) (*BankTransaction, error) {
	externalID := strings.TrimSpace(in.ExternalID)
	if externalID == "" {
		return nil, shared.NewValidationError("bank_transaction_id", "bank transaction id is required")
	}
	if in.Date.IsZero() {
		return nil, shared.NewValidationError("date", "transaction date is required")
	}
	amount := in.Amount
	direction := in.Direction
	if direction == "" {
		direction = DirectionCredit
		if amount.IsNegative() {
			direction = DirectionDebit
		}
		amount = amount.Abs()
	}
	if !direction.IsValid() {
		return nil, shared.NewValidationError("direction", "unknown direction "+string(direction))
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("amount", "amount must be positive when a direction is given")
	}
	if in.Category != CategoryNone && !in.Category.IsValid() {
		return nil, shared.NewValidationError("category", "unknown category "+string(in.Category))
	}
	return &BankTransaction{
		ID:            shared.NextID(),
		TenantID:      tenantID,
		BankAccountID: bankAccountID,
		ExternalID:    externalID,
		Date:          in.Date,
		Amount:        amount,
		Direction:     direction,
		Description:   strings.TrimSpace(in.Description),
		Reference:     strings.TrimSpace(in.Reference),
		Category:      in.Category,
		ImportedAt:    time.Now(),
	}, nil
}

// SignedAmount is positive for credits and negative for debits
func (t *BankTransaction) SignedAmount() decimal.Decimal {
	if t.Direction == DirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Categorize assigns a reporting category
func (t *BankTransaction) Categorize(c Category) error {
	if !c.IsValid() {
		return shared.NewValidationError("category", "unknown category "+string(c))
	}
	t.Category = c
	return nil
}

func (t *BankTransaction) markMatched(ledgerEntryID, reconciliationID uuid.UUID, at time.Time) {
	t.Reconciled = true
	t.ReconciledAt = &at
	t.MatchedLedgerEntryID = &ledgerEntryID
	t.ReconciliationID = &reconciliationID
}

// Release clears the match left by an abandoned reconciliation
func (t *BankTransaction) Release() {
	t.Reconciled = false
	t.ReconciledAt = nil
	t.MatchedLedgerEntryID = nil
	t.ReconciliationID = nil
}

// NewTransactions validates a whole import and drops lines whose external id
// is already known or repeated within the batch. Nothing is returned when any
// line is invalid.
func NewTransactions(tenantID, bankAccountID uuid.UUID, inputs []TransactionInput, known map[string]bool) ([]*BankTransaction, int, error) {
	seen := make(map[string]bool, len(inputs))
	out := make([]*BankTransaction, 0, len(inputs))
	skipped := 0
	for i, in := range inputs {
		tx, err := NewBankTransaction(tenantID, bankAccountID, in)
		if err != nil {
			if de, ok := shared.AsDomainError(err); ok {
				return nil, 0, de.WithDetail("row", i+1)
			}
			return nil, 0, err
		}
		if known[tx.ExternalID] || seen[tx.ExternalID] {
			skipped++
			continue
		}
		seen[tx.ExternalID] = true
		out = append(out, tx)
	}
	return out, skipped, nil
}
