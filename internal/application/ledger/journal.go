package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clutch/ledger/internal/application/uow"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/clutch/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Journal builds journal entries and commits them inside a transaction owned
// by the caller. The settlement and payout services post through it so that
// every balance change in the system goes through the same path.
type Journal struct {
	numbers         shared.NumberGenerator
	rounding        valueobject.Rounding
	allowBackdating bool
	metrics         *telemetry.LedgerMetrics
	logger          *zap.Logger
}

// JournalOptions configures a Journal
type JournalOptions struct {
	Rounding        valueobject.Rounding
	AllowBackdating bool
	Metrics         *telemetry.LedgerMetrics
	Logger          *zap.Logger
}

// NewJournal creates a Journal
func NewJournal(numbers shared.NumberGenerator, opts JournalOptions) *Journal {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rounding := opts.Rounding
	if rounding.Places == 0 && rounding.Tolerance.IsZero() {
		rounding = valueobject.DefaultRounding
	}
	return &Journal{
		numbers:         numbers,
		rounding:        rounding,
		allowBackdating: opts.AllowBackdating,
		metrics:         opts.Metrics,
		logger:          logger,
	}
}

// Rounding returns the rounding policy entries are validated with
func (j *Journal) Rounding() valueobject.Rounding {
	return j.rounding
}

// Draft builds a draft entry under a freshly issued entry number
func (j *Journal) Draft(
	tenantID uuid.UUID,
	entryDate time.Time,
	entryType ledger.EntryType,
	description, reference string,
	lines []ledger.LineInput,
) (*ledger.JournalEntry, error) {
	entry, err := ledger.NewJournalEntry(
		tenantID,
		j.numbers.Next(shared.NumberPrefixJournalEntry),
		entryDate,
		entryType,
		description,
		lines,
		j.rounding,
	)
	if err != nil {
		return nil, err
	}
	entry.Reference = reference
	return entry, nil
}

// PostNew commits an entry that has not been stored yet
func (j *Journal) PostNew(ctx context.Context, repos uow.Repositories, entry *ledger.JournalEntry, postedBy *uuid.UUID) (*ledger.PostingResult, error) {
	return j.commit(ctx, repos, entry, postedBy, repos.JournalEntries().Create)
}

// PostDraft commits a draft previously stored with CreateDraft
func (j *Journal) PostDraft(ctx context.Context, repos uow.Repositories, entry *ledger.JournalEntry, postedBy *uuid.UUID) (*ledger.PostingResult, error) {
	return j.commit(ctx, repos, entry, postedBy, repos.JournalEntries().SaveWithLock)
}

// Reverse posts the mirror of a stored, posted entry and links the two.
// The original is loaded through repos so it is read inside the transaction.
func (j *Journal) Reverse(
	ctx context.Context,
	repos uow.Repositories,
	tenantID, entryID uuid.UUID,
	reversalDate time.Time,
	reason string,
	postedBy *uuid.UUID,
) (original *ledger.JournalEntry, result *ledger.PostingResult, err error) {
	original, err = repos.JournalEntries().FindByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, nil, err
	}
	reversal, err := original.NewReversal(j.numbers.Next(shared.NumberPrefixJournalEntry), reversalDate, reason)
	if err != nil {
		return nil, nil, err
	}
	result, err = j.PostNew(ctx, repos, reversal, postedBy)
	if err != nil {
		return nil, nil, err
	}
	if err := original.MarkReversed(reversal); err != nil {
		return nil, nil, err
	}
	if err := repos.JournalEntries().SaveWithLock(ctx, original); err != nil {
		return nil, nil, fmt.Errorf("failed to save reversed entry: %w", err)
	}
	return original, result, nil
}

func (j *Journal) commit(
	ctx context.Context,
	repos uow.Repositories,
	entry *ledger.JournalEntry,
	postedBy *uuid.UUID,
	store func(context.Context, *ledger.JournalEntry) error,
) (*ledger.PostingResult, error) {
	started := time.Now()

	// Reject an unbalanced entry before a sequence number is consumed.
	if err := entry.CheckBalance(j.rounding); err != nil {
		j.rejected(ctx, entry, err)
		return nil, err
	}

	accounts, err := repos.Accounts().FindByIDs(ctx, entry.TenantID, entry.AccountIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	byID := make(map[uuid.UUID]*ledger.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	sequence, err := repos.Sequence().Next(ctx, entry.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate posting sequence: %w", err)
	}

	result, err := ledger.Post(entry, byID, sequence, ledger.PostingOptions{
		Rounding:        j.rounding,
		AllowBackdating: j.allowBackdating,
		PostedBy:        postedBy,
	})
	if err != nil {
		j.rejected(ctx, entry, err)
		return nil, err
	}

	for _, account := range result.Accounts {
		if err := repos.Accounts().SaveWithLock(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to save account %s: %w", account.Number, err)
		}
	}
	if err := repos.LedgerEntries().Append(ctx, result.LedgerEntries); err != nil {
		return nil, fmt.Errorf("failed to append ledger entries: %w", err)
	}
	if err := store(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save journal entry: %w", err)
	}

	j.metrics.RecordPosting(ctx, entry.TenantID, string(entry.Type), time.Since(started))
	j.logger.Info("Journal entry posted",
		zap.String("entry_number", entry.EntryNumber),
		zap.Int64("sequence", sequence),
		zap.String("type", string(entry.Type)),
		zap.Int("lines", len(entry.Lines)),
	)
	return result, nil
}

func (j *Journal) rejected(ctx context.Context, entry *ledger.JournalEntry, err error) {
	code := shared.CodeInvalidInput
	if de, ok := shared.AsDomainError(err); ok {
		code = de.Code
	}
	j.metrics.RecordPostingRejected(ctx, entry.TenantID, code)

	fields := []zap.Field{
		zap.String("entry_number", entry.EntryNumber),
		zap.String("code", code),
		zap.Error(err),
	}
	var unbalanced *ledger.UnbalancedEntryError
	if errors.As(err, &unbalanced) {
		fields = append(fields,
			zap.String("total_debit", unbalanced.TotalDebit.String()),
			zap.String("total_credit", unbalanced.TotalCredit.String()),
			zap.String("difference", unbalanced.Difference().String()),
		)
	}
	j.logger.Warn("Journal entry rejected", fields...)
}

// AccountLockKeys returns the lock keys for the given accounts
func AccountLockKeys(ids []uuid.UUID) []string {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, shared.AccountLockKey(id))
	}
	return keys
}

// ResolveAccountNumbers maps account numbers to ids. A missing number is
// reported as NOT_FOUND naming the number, usually meaning the default chart
// has not been seeded for the tenant.
func ResolveAccountNumbers(ctx context.Context, repo ledger.AccountRepository, tenantID uuid.UUID, numbers ...string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(numbers))
	for _, number := range numbers {
		if _, done := out[number]; done {
			continue
		}
		account, err := repo.FindByNumber(ctx, tenantID, number)
		if err != nil {
			if shared.IsNotFound(err) {
				return nil, shared.ErrNotFound.WithDetail("account_number", number)
			}
			return nil, fmt.Errorf("failed to resolve account %s: %w", number, err)
		}
		out[number] = account.ID
	}
	return out, nil
}

// PostableDate moves date forward to the latest posting on any of the
// accounts, so an automatic entry never lands before existing activity.
// Call it inside the transaction that posts, with the accounts locked.
func PostableDate(ctx context.Context, repo ledger.AccountRepository, tenantID uuid.UUID, accountIDs []uuid.UUID, date time.Time) (time.Time, error) {
	accounts, err := repo.FindByIDs(ctx, tenantID, accountIDs)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load accounts: %w", err)
	}
	for _, a := range accounts {
		if a.LastEntryDate != nil && a.LastEntryDate.After(date) {
			date = *a.LastEntryDate
		}
	}
	return date, nil
}
