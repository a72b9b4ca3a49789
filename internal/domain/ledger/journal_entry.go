package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType classifies how a journal entry came to exist
type EntryType string

const (
	EntryTypeManual     EntryType = "MANUAL"
	EntryTypeAutomatic  EntryType = "AUTOMATIC"
	EntryTypeRecurring  EntryType = "RECURRING"
	EntryTypeAdjustment EntryType = "ADJUSTMENT"
	EntryTypeReversal   EntryType = "REVERSAL"
	EntryTypeClosing    EntryType = "CLOSING"
)

// IsValid checks if the entry type is valid
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeManual, EntryTypeAutomatic, EntryTypeRecurring,
		EntryTypeAdjustment, EntryTypeReversal, EntryTypeClosing:
		return true
	}
	return false
}

// EntryStatus is the lifecycle state of a journal entry
type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "DRAFT"
	EntryStatusPosted    EntryStatus = "POSTED"
	EntryStatusReversed  EntryStatus = "REVERSED"
	EntryStatusCancelled EntryStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusDraft, EntryStatusPosted, EntryStatusReversed, EntryStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of EntryStatus
func (s EntryStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the entry can no longer change state
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusReversed || s == EntryStatusCancelled
}

// CanPost returns true if the entry can be posted
func (s EntryStatus) CanPost() bool {
	return s == EntryStatusDraft
}

// CanReverse returns true if the entry can be reversed
func (s EntryStatus) CanReverse() bool {
	return s == EntryStatusPosted
}

// LineInput is the caller-supplied content of a journal line
type LineInput struct {
	AccountID   uuid.UUID
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// JournalLine is one debit or credit of a journal entry
type JournalLine struct {
	ID          uuid.UUID       `json:"id"`
	LineNo      int             `json:"line_no"`
	AccountID   uuid.UUID       `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

// Amount returns whichever side of the line is non-zero
func (l JournalLine) Amount() decimal.Decimal {
	if l.Debit.IsPositive() {
		return l.Debit
	}
	return l.Credit
}

// JournalEntry is the atomic unit of posting
type JournalEntry struct {
	shared.TenantAggregateRoot
	EntryNumber    string        `json:"entry_number"`
	Sequence       int64         `json:"sequence"`
	EntryDate      time.Time     `json:"entry_date"`
	Type           EntryType     `json:"type"`
	Description    string        `json:"description"`
	Reference      string        `json:"reference"`
	Lines          []JournalLine `json:"lines"`
	Status         EntryStatus   `json:"status"`
	PostedAt       *time.Time    `json:"posted_at,omitempty"`
	PostedBy       *uuid.UUID    `json:"posted_by,omitempty"`
	ReversalOfID   *uuid.UUID    `json:"reversal_of_id,omitempty"`
	ReversedByID   *uuid.UUID    `json:"reversed_by_id,omitempty"`
	ReversedAt     *time.Time    `json:"reversed_at,omitempty"`
	ReversalReason string        `json:"reversal_reason,omitempty"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`
	CancelReason   string        `json:"cancel_reason,omitempty"`
}

// NewJournalEntry creates a draft entry. Balance is not checked here so that
// work-in-progress drafts can be saved; posting enforces it.
func NewJournalEntry(
	tenantID uuid.UUID,
	entryNumber string,
	entryDate time.Time,
	entryType EntryType,
	description string,
	lines []LineInput,
	rounding valueobject.Rounding,
) (*JournalEntry, error) {
	if strings.TrimSpace(entryNumber) == "" {
		return nil, shared.NewValidationError("entry_number", "entry number cannot be empty")
	}
	if entryDate.IsZero() {
		return nil, shared.NewValidationError("entry_date", "entry date is required")
	}
	if !entryType.IsValid() {
		return nil, shared.NewValidationError("type", "unknown entry type "+string(entryType))
	}
	built, err := buildLines(lines, rounding)
	if err != nil {
		return nil, err
	}

	return &JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		EntryNumber:         entryNumber,
		EntryDate:           entryDate,
		Type:                entryType,
		Description:         description,
		Lines:               built,
		Status:              EntryStatusDraft,
	}, nil
}

func buildLines(lines []LineInput, rounding valueobject.Rounding) ([]JournalLine, error) {
	if len(lines) < 2 {
		return nil, shared.NewValidationError("lines", "a journal entry needs at least two lines")
	}
	built := make([]JournalLine, 0, len(lines))
	for i, in := range lines {
		field := fmt.Sprintf("lines[%d]", i)
		if in.AccountID == uuid.Nil {
			return nil, shared.NewValidationError(field, "account is required")
		}
		debit := rounding.Round(in.Debit)
		credit := rounding.Round(in.Credit)
		if debit.IsNegative() || credit.IsNegative() {
			return nil, shared.NewValidationError(field, "debit and credit cannot be negative")
		}
		if debit.IsZero() == credit.IsZero() {
			return nil, shared.NewValidationError(field, "exactly one of debit or credit must be non-zero")
		}
		built = append(built, JournalLine{
			ID:          shared.NextID(),
			LineNo:      i + 1,
			AccountID:   in.AccountID,
			Debit:       debit,
			Credit:      credit,
			Description: in.Description,
		})
	}
	return built, nil
}

// Totals returns the sum of debits and credits
func (e *JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// CheckBalance returns an UnbalancedEntryError unless debits equal credits
// at the configured precision.
func (e *JournalEntry) CheckBalance(rounding valueobject.Rounding) error {
	debit, credit := e.Totals()
	if !rounding.Round(debit).Equal(rounding.Round(credit)) {
		return &UnbalancedEntryError{EntryNumber: e.EntryNumber, TotalDebit: debit, TotalCredit: credit}
	}
	return nil
}

// AccountIDs returns the distinct accounts referenced by the lines, in line order
func (e *JournalEntry) AccountIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(e.Lines))
	ids := make([]uuid.UUID, 0, len(e.Lines))
	for _, l := range e.Lines {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			ids = append(ids, l.AccountID)
		}
	}
	return ids
}

// ReplaceLines swaps the lines of a draft
func (e *JournalEntry) ReplaceLines(lines []LineInput, rounding valueobject.Rounding) error {
	if e.Status != EntryStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidState, "only draft entries can be edited")
	}
	built, err := buildLines(lines, rounding)
	if err != nil {
		return err
	}
	e.Lines = built
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
	return nil
}

// Cancel abandons a draft
func (e *JournalEntry) Cancel(reason string) error {
	if e.Status != EntryStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidState,
			"cannot cancel entry in status "+e.Status.String())
	}
	now := time.Now()
	e.Status = EntryStatusCancelled
	e.CancelledAt = &now
	e.CancelReason = reason
	e.UpdatedAt = now
	e.IncrementVersion()
	return nil
}

func (e *JournalEntry) markPosted(sequence int64, postedBy *uuid.UUID) {
	now := time.Now()
	e.Sequence = sequence
	e.Status = EntryStatusPosted
	e.PostedAt = &now
	e.PostedBy = postedBy
	e.UpdatedAt = now
	e.IncrementVersion()
	e.AddDomainEvent(NewJournalEntryPostedEvent(e))
}

// NewReversal builds the mirrored draft for a posted entry. Debit and credit
// are swapped line by line.
func (e *JournalEntry) NewReversal(entryNumber string, entryDate time.Time, reason string) (*JournalEntry, error) {
	if !e.Status.CanReverse() {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			"cannot reverse entry "+e.EntryNumber+" in status "+e.Status.String())
	}
	if e.ReversedByID != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "entry "+e.EntryNumber+" is already reversed")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewValidationError("reason", "reversal reason is required")
	}
	if entryDate.IsZero() {
		entryDate = time.Now()
	}
	if entryDate.Before(e.EntryDate) {
		entryDate = e.EntryDate
	}

	lines := make([]JournalLine, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLine{
			ID:          shared.NextID(),
			LineNo:      l.LineNo,
			AccountID:   l.AccountID,
			Debit:       l.Credit,
			Credit:      l.Debit,
			Description: l.Description,
		}
	}
	originalID := e.ID
	return &JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(e.TenantID),
		EntryNumber:         entryNumber,
		EntryDate:           entryDate,
		Type:                EntryTypeReversal,
		Description:         "Reversal of " + e.EntryNumber + ": " + reason,
		Reference:           e.EntryNumber,
		Lines:               lines,
		Status:              EntryStatusDraft,
		ReversalOfID:        &originalID,
		ReversalReason:      reason,
	}, nil
}

// MarkReversed links the original entry to its posted reversal
func (e *JournalEntry) MarkReversed(reversal *JournalEntry) error {
	if !e.Status.CanReverse() {
		return shared.NewDomainError(shared.CodeInvalidState,
			"cannot reverse entry "+e.EntryNumber+" in status "+e.Status.String())
	}
	if reversal.Status != EntryStatusPosted || reversal.ReversalOfID == nil || *reversal.ReversalOfID != e.ID {
		return shared.NewDomainError(shared.CodeInvalidState, "reversal entry is not a posted mirror of "+e.EntryNumber)
	}
	now := time.Now()
	reversalID := reversal.ID
	e.Status = EntryStatusReversed
	e.ReversedByID = &reversalID
	e.ReversedAt = &now
	e.ReversalReason = reversal.ReversalReason
	e.UpdatedAt = now
	e.IncrementVersion()
	e.AddDomainEvent(NewJournalEntryReversedEvent(e, reversal))
	return nil
}
