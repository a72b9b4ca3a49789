package ledger

import (
	"time"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostingResult is what committing one entry produces
type PostingResult struct {
	Entry         *JournalEntry
	LedgerEntries []*LedgerEntry
	// Accounts holds every touched account with its new balance, in the
	// order they first appear in the entry
	Accounts []*Account
}

// PostingOptions tunes the posting rules
type PostingOptions struct {
	Rounding valueobject.Rounding
	// AllowBackdating permits entries dated before the latest ledger row of
	// a touched account. When false, ledger rows of every account stay in
	// (date, sequence) order, so replaying them reproduces each stored
	// intermediate balance.
	AllowBackdating bool
	PostedBy        *uuid.UUID
}

// Post validates a draft and commits it in memory: it assigns the sequence,
// produces one ledger row per line and moves each account balance. Nothing
// is mutated unless every check passes.
func Post(entry *JournalEntry, accounts map[uuid.UUID]*Account, sequence int64, opts PostingOptions) (*PostingResult, error) {
	if !entry.Status.CanPost() {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			"cannot post entry "+entry.EntryNumber+" in status "+entry.Status.String())
	}
	if sequence <= 0 {
		return nil, shared.NewValidationError("sequence", "sequence must be positive")
	}
	if err := entry.CheckBalance(opts.Rounding); err != nil {
		return nil, err
	}

	for _, id := range entry.AccountIDs() {
		account, ok := accounts[id]
		if !ok {
			return nil, &InvalidAccountStateError{AccountID: id, Reason: "account does not exist"}
		}
		if account.TenantID != entry.TenantID {
			return nil, &InvalidAccountStateError{AccountID: id, AccountNumber: account.Number, Reason: "account belongs to another tenant"}
		}
		if err := account.CanPost(); err != nil {
			return nil, err
		}
		if !opts.AllowBackdating && account.LastEntryDate != nil && entry.EntryDate.Before(*account.LastEntryDate) {
			return nil, shared.NewValidationError("entry_date",
				"entry date "+entry.EntryDate.Format(time.DateOnly)+" is before the last posting on account "+
					account.Number+" ("+account.LastEntryDate.Format(time.DateOnly)+")")
		}
	}

	running := make(map[uuid.UUID]decimal.Decimal, len(accounts))
	rows := make([]*LedgerEntry, 0, len(entry.Lines))
	now := time.Now()
	for _, line := range entry.Lines {
		account := accounts[line.AccountID]
		balance, seen := running[line.AccountID]
		if !seen {
			balance = account.Balance
		}
		balance = balance.Add(account.Type.SignedDelta(line.Debit, line.Credit))
		running[line.AccountID] = balance

		description := line.Description
		if description == "" {
			description = entry.Description
		}
		rows = append(rows, &LedgerEntry{
			ID:             shared.NextID(),
			TenantID:       entry.TenantID,
			AccountID:      line.AccountID,
			JournalEntryID: entry.ID,
			EntryNumber:    entry.EntryNumber,
			Sequence:       sequence,
			LineNo:         line.LineNo,
			EntryDate:      entry.EntryDate,
			Description:    description,
			Debit:          line.Debit,
			Credit:         line.Credit,
			Balance:        balance,
			CreatedAt:      now,
		})
	}

	touched := make([]*Account, 0, len(running))
	for _, id := range entry.AccountIDs() {
		account := accounts[id]
		account.applyDelta(running[id].Sub(account.Balance), entry.EntryDate)
		touched = append(touched, account)
	}
	entry.markPosted(sequence, opts.PostedBy)

	return &PostingResult{Entry: entry, LedgerEntries: rows, Accounts: touched}, nil
}
