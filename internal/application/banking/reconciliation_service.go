package banking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clutch/ledger/internal/application/uow"
	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/clutch/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconciliationOptions configures a ReconciliationService
type ReconciliationOptions struct {
	Rounding        valueobject.Rounding
	MatchWindowDays int
	Metrics         *telemetry.LedgerMetrics
	Logger          *zap.Logger
}

// ReconciliationService runs bank reconciliations. All work on the runs of
// one bank account is serialized under the reconciliation key of that
// account.
type ReconciliationService struct {
	reconciliations banking.ReconciliationRepository
	bankAccounts    banking.BankAccountRepository
	transactions    banking.BankTransactionRepository
	scope           uow.TransactionScope
	locker          shared.KeyedLocker
	numbers         shared.NumberGenerator
	rounding        valueobject.Rounding
	windowDays      int
	metrics         *telemetry.LedgerMetrics
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	reconciliations banking.ReconciliationRepository,
	bankAccounts banking.BankAccountRepository,
	transactions banking.BankTransactionRepository,
	scope uow.TransactionScope,
	locker shared.KeyedLocker,
	numbers shared.NumberGenerator,
	opts ReconciliationOptions,
) *ReconciliationService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rounding := opts.Rounding
	if rounding.Places == 0 && rounding.Tolerance.IsZero() {
		rounding = valueobject.DefaultRounding
	}
	windowDays := opts.MatchWindowDays
	if windowDays <= 0 {
		windowDays = banking.DefaultMatchWindowDays
	}
	return &ReconciliationService{
		reconciliations: reconciliations,
		bankAccounts:    bankAccounts,
		transactions:    transactions,
		scope:           scope,
		locker:          locker,
		numbers:         numbers,
		rounding:        rounding,
		windowDays:      windowDays,
		metrics:         opts.Metrics,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReconciliationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func actorName(actor *uuid.UUID) string {
	if actor == nil {
		return ""
	}
	return actor.String()
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}

// Start opens a reconciliation for a statement. The book balance is the
// balance of the bound ledger account at the end of the statement date. A
// bank account has at most one unfinished run.
func (s *ReconciliationService) Start(ctx context.Context, tenantID uuid.UUID, req StartReconciliationRequest) (*ReconciliationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "start")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrBankAccountID, req.BankAccountID.String(),
	)

	release, err := s.locker.Acquire(ctx, shared.ReconciliationLockKey(req.BankAccountID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	var rec *banking.BankReconciliation
	err = s.scope.Execute(ctx, func(repos uow.Repositories) error {
		account, err := repos.BankAccounts().FindByID(ctx, tenantID, req.BankAccountID)
		if err != nil {
			return err
		}
		open, err := repos.Reconciliations().FindOpenByBankAccount(ctx, tenantID, account.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return shared.NewDomainError(shared.CodeInvalidState,
				"bank account "+account.Name+" already has an unfinished reconciliation "+open.Number).
				WithDetail("reconciliation_id", open.ID.String())
		}

		bound, err := repos.Accounts().FindByID(ctx, tenantID, account.LedgerAccountID)
		if err != nil {
			return err
		}
		bookBalance := decimal.Zero
		switch {
		case req.BookBalance != nil:
			bookBalance = *req.BookBalance
		case !req.StatementDate.IsZero():
			debit, credit, err := repos.LedgerEntries().SumBefore(ctx, tenantID, bound.ID, endOfDay(req.StatementDate))
			if err != nil {
				return fmt.Errorf("failed to compute book balance: %w", err)
			}
			bookBalance = bound.Type.SignedDelta(debit, credit)
		}

		rec, err = banking.StartReconciliation(account, s.numbers.Next(shared.NumberPrefixReconciliation),
			req.StatementDate, req.StatementBalance, bookBalance, s.rounding)
		if err != nil {
			return err
		}
		rec.Notes = req.Notes
		return repos.Reconciliations().Create(ctx, rec)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrReconciliationID, rec.ID.String())
	uow.PublishCommitted(ctx, s.eventPublisher, s.logger, rec)
	s.logger.Info("Reconciliation started",
		zap.String("number", rec.Number),
		zap.String("bank_account_id", rec.BankAccountID.String()),
		zap.String("statement_balance", rec.StatementBalance.StringFixed(2)),
		zap.String("book_balance", rec.BookBalance.StringFixed(2)),
	)
	response := ToReconciliationResponse(rec)
	return &response, nil
}

// Get retrieves a reconciliation by ID
func (s *ReconciliationService) Get(ctx context.Context, tenantID, id uuid.UUID) (*ReconciliationResponse, error) {
	rec, err := s.reconciliations.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToReconciliationResponse(rec)
	return &response, nil
}

// List returns a page of reconciliations
func (s *ReconciliationService) List(ctx context.Context, tenantID uuid.UUID, filter ReconciliationListFilter) (shared.Paginated[ReconciliationResponse], error) {
	domainFilter := filter.toDomain()
	runs, total, err := s.reconciliations.List(ctx, tenantID, domainFilter)
	if err != nil {
		return shared.Paginated[ReconciliationResponse]{}, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	items := make([]ReconciliationResponse, len(runs))
	for i, r := range runs {
		items[i] = ToReconciliationResponse(r)
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.Limit()), nil
}

type mutateFunc func(ctx context.Context, repos uow.Repositories, rec *banking.BankReconciliation) error

// locked holds the reconciliation key of the run's bank account while fn
// runs. The run header is read once outside the lock to learn that account.
func (s *ReconciliationService) locked(ctx context.Context, tenantID, id uuid.UUID, fn func(ctx context.Context) error) error {
	head, err := s.reconciliations.FindByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	release, err := s.locker.Acquire(ctx, shared.ReconciliationLockKey(head.BankAccountID))
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// apply re-reads the run inside one transaction, hands it to fn and
// publishes the events it raised once the transaction has committed.
func (s *ReconciliationService) apply(ctx context.Context, tenantID, id uuid.UUID, fn mutateFunc) (*banking.BankReconciliation, error) {
	var rec *banking.BankReconciliation
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		rec, err = repos.Reconciliations().FindByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		rec.SetRounding(s.rounding)
		return fn(ctx, repos, rec)
	})
	if err != nil {
		return nil, err
	}
	uow.PublishCommitted(ctx, s.eventPublisher, s.logger, rec)
	return rec, nil
}

func (s *ReconciliationService) mutate(ctx context.Context, tenantID, id uuid.UUID, op string, fn mutateFunc) (*banking.BankReconciliation, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", op)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrReconciliationID, id.String(),
	)

	var rec *banking.BankReconciliation
	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationReconcile, "banking"), func(c context.Context) {
		err = s.locked(c, tenantID, id, func(c context.Context) error {
			var err error
			rec, err = s.apply(c, tenantID, id, fn)
			return err
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrStatus, string(rec.Status))
	return rec, nil
}

// candidates loads the open ledger rows that could pair with tx
func (s *ReconciliationService) candidates(ctx context.Context, repos uow.Repositories, rec *banking.BankReconciliation, tx *banking.BankTransaction) ([]banking.Candidate, error) {
	from, to := banking.MatchWindow(tx, s.windowDays)
	rows, err := repos.LedgerEntries().FindUnreconciled(ctx, rec.TenantID, rec.LedgerAccountID,
		tx.Amount, tx.Direction.LedgerSideIsDebit(), from, endOfDay(to))
	if err != nil {
		return nil, fmt.Errorf("failed to load match candidates: %w", err)
	}
	return banking.RankCandidates(tx, rows, s.windowDays), nil
}

// pair records the match on the run and stamps both sides in storage
func pair(ctx context.Context, repos uow.Repositories, rec *banking.BankReconciliation, tx *banking.BankTransaction, entry *ledger.LedgerEntry, matchedBy string, automatic bool) (*banking.Match, error) {
	m, err := rec.Match(tx, entry, matchedBy, automatic)
	if err != nil {
		return nil, err
	}
	if err := repos.BankTransactions().MarkMatched(ctx, tx); err != nil {
		return nil, err
	}
	if err := repos.LedgerEntries().MarkReconciled(ctx, rec.TenantID, []uuid.UUID{entry.ID}, rec.ID, m.MatchedAt); err != nil {
		return nil, err
	}
	if err := repos.Reconciliations().SaveWithLock(ctx, rec); err != nil {
		return nil, err
	}
	return m, nil
}

// Match pairs one bank transaction with a ledger row. Without an explicit
// ledger row the best candidate inside the match window is used.
func (s *ReconciliationService) Match(ctx context.Context, tenantID, id uuid.UUID, actor *uuid.UUID, req MatchRequest) (*banking.Match, error) {
	var match *banking.Match
	_, err := s.mutate(ctx, tenantID, id, "match", func(c context.Context, repos uow.Repositories, rec *banking.BankReconciliation) error {
		tx, err := repos.BankTransactions().FindByID(c, tenantID, req.BankTransactionID)
		if err != nil {
			return err
		}

		var entry *ledger.LedgerEntry
		automatic := req.LedgerEntryID == nil
		if automatic {
			ranked, err := s.candidates(c, repos, rec, tx)
			if err != nil {
				return err
			}
			if len(ranked) == 0 {
				return shared.NewDomainError(shared.CodeNotFound,
					"no ledger entry matches bank transaction "+tx.ExternalID).
					WithDetail("bank_transaction_id", tx.ID.String())
			}
			entry = ranked[0].Entry
		} else {
			entry, err = repos.LedgerEntries().FindByID(c, tenantID, *req.LedgerEntryID)
			if err != nil {
				return err
			}
		}

		match, err = pair(c, repos, rec, tx, entry, actorName(actor), automatic)
		return err
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// AutoMatch walks every unreconciled transaction up to the statement date
// and pairs it with its best candidate. Each pairing commits on its own, so
// an interrupted pass keeps what it matched and can simply be run again.
func (s *ReconciliationService) AutoMatch(ctx context.Context, tenantID, id uuid.UUID, actor *uuid.UUID) (*AutoMatchResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "auto_match")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrReconciliationID, id.String(),
	)

	result := &AutoMatchResult{Matched: []banking.Match{}}
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationAutoMatch, "banking"), func(c context.Context) {
		operationErr = s.locked(c, tenantID, id, func(c context.Context) error {
			rec, err := s.reconciliations.FindByID(c, tenantID, id)
			if err != nil {
				return err
			}
			if !rec.Status.IsOpen() {
				return shared.NewDomainError(shared.CodeInvalidState,
					"cannot match reconciliation "+rec.Number+" in status "+string(rec.Status))
			}
			open, err := s.transactions.FindUnreconciled(c, tenantID, rec.BankAccountID, endOfDay(rec.StatementDate))
			if err != nil {
				return fmt.Errorf("failed to load unreconciled transactions: %w", err)
			}

			for _, tx := range open {
				var m *banking.Match
				rec, err = s.apply(c, tenantID, id, func(c context.Context, repos uow.Repositories, rec *banking.BankReconciliation) error {
					ranked, err := s.candidates(c, repos, rec, tx)
					if err != nil || len(ranked) == 0 {
						return err
					}
					m, err = pair(c, repos, rec, tx, ranked[0].Entry, actorName(actor), true)
					return err
				})
				if err != nil {
					return err
				}
				if m == nil {
					result.Unmatched++
					continue
				}
				result.Matched = append(result.Matched, *m)
			}
			result.Reconciliation = ToReconciliationResponse(rec)
			return nil
		})
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}

	s.logger.Info("Automatic matching finished",
		zap.String("reconciliation_id", id.String()),
		zap.Int("matched", len(result.Matched)),
		zap.Int("unmatched", result.Unmatched),
	)
	return result, nil
}

// SuggestMatch ranks the candidates for a transaction without recording anything
func (s *ReconciliationService) SuggestMatch(ctx context.Context, tenantID, id, bankTransactionID uuid.UUID) ([]banking.Candidate, error) {
	rec, err := s.reconciliations.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	tx, err := s.transactions.FindByID(ctx, tenantID, bankTransactionID)
	if err != nil {
		return nil, err
	}
	var ranked []banking.Candidate
	err = s.scope.Execute(ctx, func(repos uow.Repositories) error {
		ranked, err = s.candidates(ctx, repos, rec, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ranked, nil
}

// AddAdjustment records a reconciling item on an open run
func (s *ReconciliationService) AddAdjustment(ctx context.Context, tenantID, id uuid.UUID, req AdjustmentRequest) (*ReconciliationResponse, error) {
	rec, err := s.mutate(ctx, tenantID, id, "add_adjustment", func(c context.Context, repos uow.Repositories, rec *banking.BankReconciliation) error {
		if _, err := rec.AddAdjustment(banking.AdjustmentType(req.Type), req.Amount, req.Date, req.Description); err != nil {
			return err
		}
		return repos.Reconciliations().SaveWithLock(c, rec)
	})
	if err != nil {
		return nil, err
	}
	response := ToReconciliationResponse(rec)
	return &response, nil
}

// RemoveAdjustment drops a reconciling item from an open run
func (s *ReconciliationService) RemoveAdjustment(ctx context.Context, tenantID, id, adjustmentID uuid.UUID) (*ReconciliationResponse, error) {
	rec, err := s.mutate(ctx, tenantID, id, "remove_adjustment", func(c context.Context, repos uow.Repositories, rec *banking.BankReconciliation) error {
		if err := rec.RemoveAdjustment(adjustmentID); err != nil {
			return err
		}
		return repos.Reconciliations().SaveWithLock(c, rec)
	})
	if err != nil {
		return nil, err
	}
	response := ToReconciliationResponse(rec)
	return &response, nil
}

// Unmatched lists the statement lines up to the statement date that the run
// has not paired yet. An empty run and an unknown one give an empty list.
func (s *ReconciliationService) Unmatched(ctx context.Context, tenantID, id uuid.UUID) ([]*banking.BankTransaction, error) {
	rec, err := s.reconciliations.FindByID(ctx, tenantID, id)
	if errors.Is(err, shared.ErrNotFound) {
		return []*banking.BankTransaction{}, nil
	}
	if err != nil {
		return nil, err
	}
	open, err := s.transactions.FindUnreconciled(ctx, tenantID, rec.BankAccountID, endOfDay(rec.StatementDate))
	if err != nil {
		return nil, fmt.Errorf("failed to load unreconciled transactions: %w", err)
	}
	return rec.Unmatched(open), nil
}

// Complete closes the run. A nonzero difference fails with
// UNRECONCILED_DIFFERENCE unless it is overridden with a reason. The bank
// account remembers the last completed statement.
func (s *ReconciliationService) Complete(ctx context.Context, tenantID, id uuid.UUID, actor *uuid.UUID, req CompleteRequest) (*ReconciliationResponse, error) {
	rec, err := s.mutate(ctx, tenantID, id, "complete", func(c context.Context, repos uow.Repositories, rec *banking.BankReconciliation) error {
		if err := rec.Complete(req.Override, req.Reason, actorName(actor)); err != nil {
			return err
		}
		if err := repos.Reconciliations().SaveWithLock(c, rec); err != nil {
			return err
		}

		account, err := repos.BankAccounts().FindByID(c, tenantID, rec.BankAccountID)
		if err != nil {
			return err
		}
		version := account.Version
		account.RecordReconciliation(rec)
		if account.Version == version {
			return nil
		}
		return repos.BankAccounts().SaveWithLock(c, account)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordReconciliationCompleted(ctx, tenantID, rec.BankAccountID, rec.Override, rec.Difference)
	s.logger.Info("Reconciliation completed",
		zap.String("number", rec.Number),
		zap.Bool("override", rec.Override),
		zap.String("difference", rec.Difference.StringFixed(2)),
	)
	response := ToReconciliationResponse(rec)
	return &response, nil
}

// Dispute flags an open run for investigation
func (s *ReconciliationService) Dispute(ctx context.Context, tenantID, id uuid.UUID, reason string) (*ReconciliationResponse, error) {
	rec, err := s.mutate(ctx, tenantID, id, "dispute", func(c context.Context, repos uow.Repositories, rec *banking.BankReconciliation) error {
		if err := rec.Dispute(reason); err != nil {
			return err
		}
		return repos.Reconciliations().SaveWithLock(c, rec)
	})
	if err != nil {
		return nil, err
	}
	response := ToReconciliationResponse(rec)
	return &response, nil
}

// Reopen resumes a disputed run
func (s *ReconciliationService) Reopen(ctx context.Context, tenantID, id uuid.UUID) (*ReconciliationResponse, error) {
	rec, err := s.mutate(ctx, tenantID, id, "reopen", func(c context.Context, repos uow.Repositories, rec *banking.BankReconciliation) error {
		if err := rec.Reopen(); err != nil {
			return err
		}
		return repos.Reconciliations().SaveWithLock(c, rec)
	})
	if err != nil {
		return nil, err
	}
	response := ToReconciliationResponse(rec)
	return &response, nil
}

// Cancel abandons the run and frees every transaction and ledger row it
// matched so a later run can pair them again.
func (s *ReconciliationService) Cancel(ctx context.Context, tenantID, id uuid.UUID, reason string) (*ReconciliationResponse, error) {
	var released int64
	rec, err := s.mutate(ctx, tenantID, id, "cancel", func(c context.Context, repos uow.Repositories, rec *banking.BankReconciliation) error {
		if err := rec.Cancel(reason); err != nil {
			return err
		}
		if err := repos.Reconciliations().SaveWithLock(c, rec); err != nil {
			return err
		}
		var err error
		if released, err = repos.BankTransactions().ReleaseByReconciliation(c, tenantID, rec.ID); err != nil {
			return err
		}
		_, err = repos.LedgerEntries().ReleaseReconciliation(c, tenantID, rec.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Reconciliation cancelled",
		zap.String("number", rec.Number),
		zap.Int64("released_transactions", released),
	)
	response := ToReconciliationResponse(rec)
	return &response, nil
}
