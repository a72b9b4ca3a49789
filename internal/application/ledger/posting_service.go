package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/clutch/ledger/internal/application/uow"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostingService records journal entries and posts them to the ledger.
// Postings are serialized per account: the keys of every account an entry
// touches are held from before the balances are read until the transaction
// has committed.
type PostingService struct {
	entries        ledger.JournalEntryRepository
	scope          uow.TransactionScope
	locker         shared.KeyedLocker
	journal        *Journal
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPostingService creates a new PostingService
func NewPostingService(
	entries ledger.JournalEntryRepository,
	scope uow.TransactionScope,
	locker shared.KeyedLocker,
	journal *Journal,
	logger *zap.Logger,
) *PostingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostingService{
		entries: entries,
		scope:   scope,
		locker:  locker,
		journal: journal,
		logger:  logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PostingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateEntry stores a new entry as a draft, or posts it right away when
// req.Post is set.
func (s *PostingService) CreateEntry(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, req CreateJournalEntryRequest) (*JournalEntryResponse, error) {
	entryType := ledger.EntryType(req.Type)
	if req.Type == "" {
		entryType = ledger.EntryTypeManual
	}
	if entryType == ledger.EntryTypeReversal {
		return nil, shared.NewValidationError("type", "reversal entries are created by reversing a posted entry")
	}
	entryDate := req.EntryDate
	if entryDate.IsZero() {
		entryDate = time.Now().UTC()
	}

	entry, err := s.journal.Draft(tenantID, entryDate, entryType, req.Description, req.Reference, toLineInputs(req.Lines))
	if err != nil {
		return nil, err
	}

	if !req.Post {
		if err := s.entries.Create(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to save draft: %w", err)
		}
		response := ToJournalEntryResponse(entry)
		return &response, nil
	}

	if err := s.post(ctx, entry, actor, s.journal.PostNew); err != nil {
		return nil, err
	}
	response := ToJournalEntryResponse(entry)
	return &response, nil
}

// UpdateDraft replaces the lines of a draft
func (s *PostingService) UpdateDraft(ctx context.Context, tenantID, entryID uuid.UUID, lines []JournalLineRequest) (*JournalEntryResponse, error) {
	entry, err := s.entries.FindByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if err := entry.ReplaceLines(toLineInputs(lines), s.journal.Rounding()); err != nil {
		return nil, err
	}
	if err := s.entries.SaveWithLock(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	response := ToJournalEntryResponse(entry)
	return &response, nil
}

// PostDraft posts a stored draft
func (s *PostingService) PostDraft(ctx context.Context, tenantID, entryID uuid.UUID, actor *uuid.UUID) (*JournalEntryResponse, error) {
	draft, err := s.entries.FindByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if !draft.Status.CanPost() {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			"cannot post entry "+draft.EntryNumber+" in status "+draft.Status.String())
	}

	var posted *ledger.JournalEntry
	err = s.post(ctx, draft, actor, func(ctx context.Context, repos uow.Repositories, _ *ledger.JournalEntry, postedBy *uuid.UUID) (*ledger.PostingResult, error) {
		// Re-read under the lock: the draft may have been edited or posted
		// since it was loaded above.
		current, err := repos.JournalEntries().FindByID(ctx, tenantID, entryID)
		if err != nil {
			return nil, err
		}
		if current.Version != draft.Version {
			return nil, shared.ErrConcurrencyConflict.WithDetail("journal_entry_id", entryID.String())
		}
		posted = current
		return s.journal.PostDraft(ctx, repos, current, postedBy)
	})
	if err != nil {
		return nil, err
	}
	response := ToJournalEntryResponse(posted)
	return &response, nil
}

type postFunc func(ctx context.Context, repos uow.Repositories, entry *ledger.JournalEntry, postedBy *uuid.UUID) (*ledger.PostingResult, error)

func (s *PostingService) post(ctx context.Context, entry *ledger.JournalEntry, actor *uuid.UUID, commit postFunc) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "post")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, entry.TenantID.String(),
		telemetry.SpanAttrEntryNumber, entry.EntryNumber,
		telemetry.SpanAttrLineCount, len(entry.Lines),
	)

	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationPostEntry, "ledger"), func(c context.Context) {
		release, err := shared.AcquireAll(c, s.locker, AccountLockKeys(entry.AccountIDs())...)
		if err != nil {
			operationErr = err
			return
		}
		defer release()

		var result *ledger.PostingResult
		err = s.scope.Execute(c, func(repos uow.Repositories) error {
			var err error
			result, err = commit(c, repos, entry, actor)
			return err
		})
		if err != nil {
			operationErr = err
			return
		}

		aggregates := []shared.AggregateRoot{result.Entry}
		for _, a := range result.Accounts {
			aggregates = append(aggregates, a)
		}
		uow.PublishCommitted(c, s.eventPublisher, s.logger, aggregates...)
		telemetry.SetAttribute(span, telemetry.SpanAttrSequence, result.Entry.Sequence)
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
	}
	return operationErr
}

// Reverse posts the mirror image of a posted entry and links both entries.
// Applying an entry and its reversal leaves every account where it started.
func (s *PostingService) Reverse(ctx context.Context, tenantID, entryID uuid.UUID, actor *uuid.UUID, req ReverseEntryRequest) (*ReversalResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "reverse")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrEntryID, entryID.String(),
	)

	original, err := s.entries.FindByID(ctx, tenantID, entryID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	reversalDate := time.Now().UTC()
	if req.EntryDate != nil {
		reversalDate = *req.EntryDate
	}

	var response *ReversalResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationReverseEntry, "ledger"), func(c context.Context) {
		release, err := shared.AcquireAll(c, s.locker, AccountLockKeys(original.AccountIDs())...)
		if err != nil {
			operationErr = err
			return
		}
		defer release()

		var reversed *ledger.JournalEntry
		var result *ledger.PostingResult
		err = s.scope.Execute(c, func(repos uow.Repositories) error {
			var err error
			reversed, result, err = s.journal.Reverse(c, repos, tenantID, entryID, reversalDate, req.Reason, actor)
			return err
		})
		if err != nil {
			operationErr = err
			return
		}

		aggregates := []shared.AggregateRoot{reversed, result.Entry}
		for _, a := range result.Accounts {
			aggregates = append(aggregates, a)
		}
		uow.PublishCommitted(c, s.eventPublisher, s.logger, aggregates...)
		s.logger.Info("Journal entry reversed",
			zap.String("entry_number", reversed.EntryNumber),
			zap.String("reversal_number", result.Entry.EntryNumber),
			zap.String("reason", req.Reason),
		)
		response = &ReversalResponse{
			Original: ToJournalEntryResponse(reversed),
			Reversal: ToJournalEntryResponse(result.Entry),
		}
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}
	return response, nil
}

// CancelDraft abandons a draft. Posted entries are reversed, never cancelled.
func (s *PostingService) CancelDraft(ctx context.Context, tenantID, entryID uuid.UUID, reason string) (*JournalEntryResponse, error) {
	entry, err := s.entries.FindByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if err := entry.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.entries.SaveWithLock(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to cancel draft: %w", err)
	}
	response := ToJournalEntryResponse(entry)
	return &response, nil
}

// GetEntry retrieves a journal entry by ID
func (s *PostingService) GetEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*JournalEntryResponse, error) {
	entry, err := s.entries.FindByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	response := ToJournalEntryResponse(entry)
	return &response, nil
}

// ListEntries returns a page of journal entries
func (s *PostingService) ListEntries(ctx context.Context, tenantID uuid.UUID, filter JournalEntryListFilter) (shared.Paginated[JournalEntryResponse], error) {
	domainFilter := filter.toDomain()
	entries, total, err := s.entries.List(ctx, tenantID, domainFilter)
	if err != nil {
		return shared.Paginated[JournalEntryResponse]{}, fmt.Errorf("failed to list journal entries: %w", err)
	}
	items := make([]JournalEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = ToJournalEntryResponse(e)
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.Limit()), nil
}
