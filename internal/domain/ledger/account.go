package ledger

import (
	"strings"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType is the top-level classification of a ledger account
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is valid
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// IsDebitNormal returns true for types whose balance grows on debit
func (t AccountType) IsDebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// SignedDelta converts a debit/credit pair into the change of an account
// balance of this type: assets and expenses grow on debit, everything else
// grows on credit.
func (t AccountType) SignedDelta(debit, credit decimal.Decimal) decimal.Decimal {
	if t.IsDebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// AccountSubtype refines an AccountType
type AccountSubtype string

const (
	SubtypeCash           AccountSubtype = "CASH"
	SubtypeBank           AccountSubtype = "BANK"
	SubtypeReceivable     AccountSubtype = "RECEIVABLE"
	SubtypeInventory      AccountSubtype = "INVENTORY"
	SubtypePrepaid        AccountSubtype = "PREPAID"
	SubtypeFixedAsset     AccountSubtype = "FIXED_ASSET"
	SubtypeOtherAsset     AccountSubtype = "OTHER_ASSET"
	SubtypePayable        AccountSubtype = "PAYABLE"
	SubtypePartnerPayable AccountSubtype = "PARTNER_PAYABLE"
	SubtypeTaxPayable     AccountSubtype = "TAX_PAYABLE"
	SubtypeAccrued        AccountSubtype = "ACCRUED"
	SubtypeLoan           AccountSubtype = "LOAN"
	SubtypeOtherLiability AccountSubtype = "OTHER_LIABILITY"
	SubtypeCapital        AccountSubtype = "CAPITAL"
	SubtypeRetained       AccountSubtype = "RETAINED_EARNINGS"
	SubtypeOtherEquity    AccountSubtype = "OTHER_EQUITY"
	SubtypeOperatingRev   AccountSubtype = "OPERATING_REVENUE"
	SubtypeCommissionRev  AccountSubtype = "COMMISSION_REVENUE"
	SubtypeInterestIncome AccountSubtype = "INTEREST_INCOME"
	SubtypeOtherRevenue   AccountSubtype = "OTHER_REVENUE"
	SubtypeOperatingExp   AccountSubtype = "OPERATING_EXPENSE"
	SubtypeCostOfSales    AccountSubtype = "COST_OF_SALES"
	SubtypeBankFees       AccountSubtype = "BANK_FEES"
	SubtypePayroll        AccountSubtype = "PAYROLL"
	SubtypeOtherExpense   AccountSubtype = "OTHER_EXPENSE"
)

var subtypesByType = map[AccountType][]AccountSubtype{
	AccountTypeAsset:     {SubtypeCash, SubtypeBank, SubtypeReceivable, SubtypeInventory, SubtypePrepaid, SubtypeFixedAsset, SubtypeOtherAsset},
	AccountTypeLiability: {SubtypePayable, SubtypePartnerPayable, SubtypeTaxPayable, SubtypeAccrued, SubtypeLoan, SubtypeOtherLiability},
	AccountTypeEquity:    {SubtypeCapital, SubtypeRetained, SubtypeOtherEquity},
	AccountTypeRevenue:   {SubtypeOperatingRev, SubtypeCommissionRev, SubtypeInterestIncome, SubtypeOtherRevenue},
	AccountTypeExpense:   {SubtypeOperatingExp, SubtypeCostOfSales, SubtypeBankFees, SubtypePayroll, SubtypeOtherExpense},
}

// IsCompatibleWith reports whether the subtype may refine the given type
func (s AccountSubtype) IsCompatibleWith(t AccountType) bool {
	for _, candidate := range subtypesByType[t] {
		if candidate == s {
			return true
		}
	}
	return false
}

// SubtypesFor returns the subtypes allowed for an account type
func SubtypesFor(t AccountType) []AccountSubtype {
	return append([]AccountSubtype(nil), subtypesByType[t]...)
}

// AccountSpec holds the inputs for creating an account
type AccountSpec struct {
	Number      string
	Name        string
	Type        AccountType
	Subtype     AccountSubtype
	ParentID    *uuid.UUID
	Currency    valueobject.Currency
	Description string
	IsSystem    bool
}

// Account is a node of the chart of accounts. Its balance is only changed
// by posting a journal entry.
type Account struct {
	shared.TenantAggregateRoot
	Number        string               `json:"number"`
	Name          string               `json:"name"`
	Type          AccountType          `json:"type"`
	Subtype       AccountSubtype       `json:"subtype"`
	ParentID      *uuid.UUID           `json:"parent_id,omitempty"`
	Currency      valueobject.Currency `json:"currency"`
	Description   string               `json:"description"`
	Balance       decimal.Decimal      `json:"balance"`
	IsActive      bool                 `json:"is_active"`
	IsSystem      bool                 `json:"is_system"`
	LastEntryDate *time.Time           `json:"last_entry_date,omitempty"`
	DeactivatedAt *time.Time           `json:"deactivated_at,omitempty"`
}

// NewAccount creates a new active account with a zero balance
func NewAccount(tenantID uuid.UUID, spec AccountSpec) (*Account, error) {
	number := strings.TrimSpace(spec.Number)
	if number == "" {
		return nil, shared.NewValidationError("number", "account number cannot be empty")
	}
	if len(number) > 20 {
		return nil, shared.NewValidationError("number", "account number cannot exceed 20 characters")
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, shared.NewValidationError("name", "account name cannot be empty")
	}
	if !spec.Type.IsValid() {
		return nil, shared.NewValidationError("type", "unknown account type "+string(spec.Type))
	}
	if !spec.Subtype.IsCompatibleWith(spec.Type) {
		return nil, shared.NewValidationError("subtype",
			"subtype "+string(spec.Subtype)+" is not compatible with type "+string(spec.Type))
	}
	currency := spec.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !currency.IsValid() {
		return nil, shared.NewValidationError("currency", "unsupported currency "+string(currency))
	}

	account := &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		Name:                name,
		Type:                spec.Type,
		Subtype:             spec.Subtype,
		ParentID:            spec.ParentID,
		Currency:            currency,
		Description:         spec.Description,
		Balance:             decimal.Zero,
		IsActive:            true,
		IsSystem:            spec.IsSystem,
	}
	account.AddDomainEvent(NewAccountCreatedEvent(account))
	return account, nil
}

// CanPost returns an InvalidAccountStateError when the account cannot take
// new postings.
func (a *Account) CanPost() error {
	if !a.IsActive {
		return &InvalidAccountStateError{AccountID: a.ID, AccountNumber: a.Number, Reason: "account is inactive"}
	}
	return nil
}

// Deactivate closes the account for posting. Callers must also verify that
// no child is still active (see Chart.CheckDeactivate).
func (a *Account) Deactivate() error {
	if !a.IsActive {
		return shared.NewDomainError(shared.CodeInvalidState, "account "+a.Number+" is already inactive")
	}
	if !a.Balance.IsZero() {
		return &InvalidAccountStateError{
			AccountID:     a.ID,
			AccountNumber: a.Number,
			Reason:        "account balance is not zero",
			Balance:       &a.Balance,
		}
	}
	now := time.Now()
	a.IsActive = false
	a.DeactivatedAt = &now
	a.UpdatedAt = now
	a.IncrementVersion()
	a.AddDomainEvent(NewAccountDeactivatedEvent(a))
	return nil
}

// Activate reopens a deactivated account
func (a *Account) Activate() error {
	if a.IsActive {
		return shared.NewDomainError(shared.CodeInvalidState, "account "+a.Number+" is already active")
	}
	a.IsActive = true
	a.DeactivatedAt = nil
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Rename updates the descriptive fields of the account
func (a *Account) Rename(name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("name", "account name cannot be empty")
	}
	a.Name = name
	a.Description = description
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

func (a *Account) applyDelta(delta decimal.Decimal, entryDate time.Time) {
	a.Balance = a.Balance.Add(delta)
	if a.LastEntryDate == nil || entryDate.After(*a.LastEntryDate) {
		d := entryDate
		a.LastEntryDate = &d
	}
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}
