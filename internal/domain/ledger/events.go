package ledger

import (
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeAccountCreated      = "AccountCreated"
	EventTypeAccountDeactivated  = "AccountDeactivated"
	EventTypeJournalEntryPosted  = "JournalEntryPosted"
	EventTypeJournalEntryReverse = "JournalEntryReversed"
)

// AccountCreatedEvent is raised when an account is added to the chart
type AccountCreatedEvent struct {
	shared.BaseDomainEvent
	Number  string         `json:"number"`
	Name    string         `json:"name"`
	Type    AccountType    `json:"type"`
	Subtype AccountSubtype `json:"subtype"`
}

// NewAccountCreatedEvent creates a new AccountCreatedEvent
func NewAccountCreatedEvent(a *Account) *AccountCreatedEvent {
	return &AccountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountCreated, "Account", a.ID, a.TenantID),
		Number:          a.Number,
		Name:            a.Name,
		Type:            a.Type,
		Subtype:         a.Subtype,
	}
}

// AccountDeactivatedEvent is raised when an account is closed for posting
type AccountDeactivatedEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
}

// NewAccountDeactivatedEvent creates a new AccountDeactivatedEvent
func NewAccountDeactivatedEvent(a *Account) *AccountDeactivatedEvent {
	return &AccountDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountDeactivated, "Account", a.ID, a.TenantID),
		Number:          a.Number,
	}
}

// JournalEntryPostedEvent is raised when an entry is committed to the ledger
type JournalEntryPostedEvent struct {
	shared.BaseDomainEvent
	EntryNumber string          `json:"entry_number"`
	Sequence    int64           `json:"sequence"`
	EntryDate   time.Time       `json:"entry_date"`
	Type        EntryType       `json:"type"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AccountIDs  []uuid.UUID     `json:"account_ids"`
}

// NewJournalEntryPostedEvent creates a new JournalEntryPostedEvent
func NewJournalEntryPostedEvent(e *JournalEntry) *JournalEntryPostedEvent {
	debit, _ := e.Totals()
	return &JournalEntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryPosted, "JournalEntry", e.ID, e.TenantID),
		EntryNumber:     e.EntryNumber,
		Sequence:        e.Sequence,
		EntryDate:       e.EntryDate,
		Type:            e.Type,
		TotalAmount:     debit,
		AccountIDs:      e.AccountIDs(),
	}
}

// JournalEntryReversedEvent is raised on the original entry once its mirror is posted
type JournalEntryReversedEvent struct {
	shared.BaseDomainEvent
	EntryNumber    string    `json:"entry_number"`
	ReversalID     uuid.UUID `json:"reversal_id"`
	ReversalNumber string    `json:"reversal_number"`
	Reason         string    `json:"reason"`
}

// NewJournalEntryReversedEvent creates a new JournalEntryReversedEvent
func NewJournalEntryReversedEvent(original, reversal *JournalEntry) *JournalEntryReversedEvent {
	return &JournalEntryReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryReverse, "JournalEntry", original.ID, original.TenantID),
		EntryNumber:     original.EntryNumber,
		ReversalID:      reversal.ID,
		ReversalNumber:  reversal.EntryNumber,
		Reason:          reversal.ReversalReason,
	}
}
