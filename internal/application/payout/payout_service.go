// Package payout batches pending commissions into partner payouts and drives
// them through approval, processing and completion.
package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledgerapp "github.com/clutch/ledger/internal/application/ledger"
	"github.com/clutch/ledger/internal/application/uow"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/payout"
	"github.com/clutch/ledger/internal/domain/settlement"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// completionAccounts are the system accounts a completed payout posts to
var completionAccounts = []string{
	ledger.AccountNumberPartnerPayable,
	ledger.AccountNumberBank,
	ledger.AccountNumberDeductionClearing,
}

// Options configures a PayoutService
type Options struct {
	Metrics *telemetry.LedgerMetrics
	Logger  *zap.Logger
}

// PayoutService batches commissions into payouts. Batching and every status
// change of a partner's payouts run under the partner key, so two batches
// can never claim the same commission.
type PayoutService struct {
	payouts        payout.Repository
	commissions    settlement.CommissionRepository
	partners       settlement.PartnerFinancialRepository
	accounts       ledger.AccountRepository
	scope          uow.TransactionScope
	locker         shared.KeyedLocker
	numbers        shared.NumberGenerator
	journal        *ledgerapp.Journal
	metrics        *telemetry.LedgerMetrics
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPayoutService creates a new PayoutService
func NewPayoutService(
	payouts payout.Repository,
	commissions settlement.CommissionRepository,
	partners settlement.PartnerFinancialRepository,
	accounts ledger.AccountRepository,
	scope uow.TransactionScope,
	locker shared.KeyedLocker,
	numbers shared.NumberGenerator,
	journal *ledgerapp.Journal,
	opts Options,
) *PayoutService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayoutService{
		payouts:     payouts,
		commissions: commissions,
		partners:    partners,
		accounts:    accounts,
		scope:       scope,
		locker:      locker,
		numbers:     numbers,
		journal:     journal,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PayoutService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func actorName(actor *uuid.UUID) string {
	if actor == nil {
		return "system"
	}
	return actor.String()
}

// Batch creates a pending payout from every pending commission of the
// partner with an order date inside the period. Pending returns of the
// partner are recovered as a deduction.
func (s *PayoutService) Batch(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, req BatchPayoutRequest) (*PayoutResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payout", "batch")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPartnerID, req.PartnerID.String(),
	)

	var (
		p   *payout.Payout
		err error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationBatchPayout, "payout"), func(c context.Context) {
		p, err = s.batch(c, tenantID, actorName(actor), req)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		var claim *payout.DoubleClaimError
		if errors.As(err, &claim) {
			s.logger.Warn("Payout batch rejected, commissions already claimed",
				zap.String("partner_id", req.PartnerID.String()),
				zap.Int("contested", len(claim.Claims)),
			)
		}
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPayoutID, p.ID.String(),
		telemetry.SpanAttrAmount, p.NetPayout.StringFixed(2),
	)
	uow.PublishCommitted(ctx, s.eventPublisher, s.logger, p)
	s.metrics.RecordPayoutTransition(ctx, tenantID, string(p.Status))
	s.logger.Info("Payout batched",
		zap.String("number", p.Number),
		zap.String("partner_id", p.PartnerID.String()),
		zap.Int("orders", p.TotalOrders),
		zap.String("gross", p.GrossCommission.StringFixed(2)),
		zap.String("net", p.NetPayout.StringFixed(2)),
	)
	response := ToPayoutResponse(p)
	return &response, nil
}

func (s *PayoutService) batch(ctx context.Context, tenantID uuid.UUID, actor string, req BatchPayoutRequest) (*payout.Payout, error) {
	release, err := s.locker.Acquire(ctx, shared.PartnerLockKey(req.PartnerID))
	if err != nil {
		return nil, err
	}
	defer release()

	var p *payout.Payout
	err = s.scope.Execute(ctx, func(repos uow.Repositories) error {
		pf, err := repos.PartnerFinancials().FindByPartner(ctx, tenantID, req.PartnerID)
		if err != nil {
			return err
		}
		pending, err := repos.Commissions().FindPending(ctx, tenantID, req.PartnerID, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			return fmt.Errorf("failed to load pending commissions: %w", err)
		}
		ids := make([]uuid.UUID, len(pending))
		for i, c := range pending {
			ids[i] = c.ID
		}
		claimed, err := repos.Payouts().ClaimedBy(ctx, tenantID, ids)
		if err != nil {
			return fmt.Errorf("failed to load payout claims: %w", err)
		}

		p, err = payout.Batch(tenantID, s.numbers.Next(shared.NumberPrefixPayout), payout.BatchRequest{
			PartnerID:      req.PartnerID,
			PeriodStart:    req.PeriodStart,
			PeriodEnd:      req.PeriodEnd,
			Deductions:     req.Deductions,
			PendingReturns: pf.Financials.PendingReturns,
			Actor:          actor,
		}, pending, claimed, s.journal.Rounding())
		if err != nil {
			return err
		}
		if err := repos.Payouts().Create(ctx, p); err != nil {
			return fmt.Errorf("failed to save payout: %w", err)
		}
		return nil
	})
	return p, err
}

// transition runs fn against the payout re-read inside a transaction while
// holding the payout and partner keys.
func (s *PayoutService) transition(
	ctx context.Context,
	tenantID, id uuid.UUID,
	op string,
	fn func(ctx context.Context, repos uow.Repositories, p *payout.Payout) error,
) (*payout.Payout, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payout", op)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPayoutID, id.String(),
	)

	head, err := s.payouts.FindByID(ctx, tenantID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	release, err := shared.AcquireAll(ctx, s.locker, shared.PayoutLockKey(id), shared.PartnerLockKey(head.PartnerID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	var p *payout.Payout
	err = s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		p, err = repos.Payouts().FindByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		return fn(ctx, repos, p)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrStatus, string(p.Status))
	s.metrics.RecordPayoutTransition(ctx, tenantID, string(p.Status))
	s.logger.Info("Payout status changed",
		zap.String("number", p.Number),
		zap.String("status", string(p.Status)),
	)
	return p, nil
}

func (s *PayoutService) simple(ctx context.Context, tenantID, id uuid.UUID, op string, change func(*payout.Payout) error) (*PayoutResponse, error) {
	p, err := s.transition(ctx, tenantID, id, op, func(ctx context.Context, repos uow.Repositories, p *payout.Payout) error {
		if err := change(p); err != nil {
			return err
		}
		return repos.Payouts().SaveWithLock(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	uow.PublishCommitted(ctx, s.eventPublisher, s.logger, p)
	response := ToPayoutResponse(p)
	return &response, nil
}

// Approve moves a pending payout to approved
func (s *PayoutService) Approve(ctx context.Context, tenantID, id uuid.UUID, actor *uuid.UUID) (*PayoutResponse, error) {
	return s.simple(ctx, tenantID, id, "approve", func(p *payout.Payout) error {
		return p.Approve(actorName(actor))
	})
}

// StartProcessing hands an approved or failed payout to the payment rail
func (s *PayoutService) StartProcessing(ctx context.Context, tenantID, id uuid.UUID, actor *uuid.UUID) (*PayoutResponse, error) {
	return s.simple(ctx, tenantID, id, "process", func(p *payout.Payout) error {
		return p.StartProcessing(actorName(actor))
	})
}

// Fail records a failed transfer
func (s *PayoutService) Fail(ctx context.Context, tenantID, id uuid.UUID, actor *uuid.UUID, req TransitionRequest) (*PayoutResponse, error) {
	return s.simple(ctx, tenantID, id, "fail", func(p *payout.Payout) error {
		return p.Fail(actorName(actor), req.Reason)
	})
}

// Cancel abandons a payout. Its commissions become available to a later
// batch; the ledger is not touched.
func (s *PayoutService) Cancel(ctx context.Context, tenantID, id uuid.UUID, actor *uuid.UUID, req TransitionRequest) (*PayoutResponse, error) {
	return s.simple(ctx, tenantID, id, "cancel", func(p *payout.Payout) error {
		return p.Cancel(actorName(actor), req.Reason)
	})
}

// completionLines builds the posting of a completed payout:
//
//	Dr partner payable       gross - recovered returns
//	Cr bank                  net payout
//	Cr deduction clearing    deductions other than recovered returns
//
// Recovered returns offset the debit the refund reversal left on the
// payable account, so they appear on neither side.
func completionLines(p *payout.Payout, ids map[string]uuid.UUID) []ledger.LineInput {
	recovered := p.RecoveredReturns()
	withheld := p.TotalDeductions.Sub(recovered)
	var lines []ledger.LineInput
	if debit := p.GrossCommission.Sub(recovered); debit.IsPositive() {
		lines = append(lines, ledger.LineInput{AccountID: ids[ledger.AccountNumberPartnerPayable], Debit: debit, Description: "payout " + p.Number})
	}
	if p.NetPayout.IsPositive() {
		lines = append(lines, ledger.LineInput{AccountID: ids[ledger.AccountNumberBank], Credit: p.NetPayout, Description: "transfer to partner"})
	}
	if withheld.IsPositive() {
		lines = append(lines, ledger.LineInput{AccountID: ids[ledger.AccountNumberDeductionClearing], Credit: withheld, Description: "payout deductions"})
	}
	return lines
}

// Complete confirms the transfer. Every claimed commission becomes paid,
// the partner counters move from unpaid to paid and the transfer is posted
// to the journal, all in one transaction.
func (s *PayoutService) Complete(ctx context.Context, tenantID, id uuid.UUID, actor *uuid.UUID, req CompletePayoutRequest) (*PayoutResponse, error) {
	ids, err := ledgerapp.ResolveAccountNumbers(ctx, s.accounts, tenantID, completionAccounts...)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(ids))
	for _, accountID := range ids {
		keys = append(keys, shared.AccountLockKey(accountID))
	}
	release, err := shared.AcquireAll(ctx, s.locker, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	entryDate := time.Now().UTC()
	if req.EntryDate != nil {
		entryDate = *req.EntryDate
	}
	var (
		commissions []*settlement.Commission
		pf          *settlement.PartnerFinancial
		result      *ledger.PostingResult
	)
	p, err := s.transition(ctx, tenantID, id, "complete", func(ctx context.Context, repos uow.Repositories, p *payout.Payout) error {
		var err error
		commissions, err = repos.Commissions().FindByIDs(ctx, tenantID, p.CommissionIDs())
		if err != nil {
			return err
		}
		if err := p.Complete(actorName(actor), req.PaymentReference, commissions); err != nil {
			return err
		}
		for _, c := range commissions {
			if err := repos.Commissions().SaveWithLock(ctx, c); err != nil {
				return fmt.Errorf("failed to save commission: %w", err)
			}
		}

		if lines := completionLines(p, ids); len(lines) > 0 {
			entry, err := s.journal.Draft(tenantID, entryDate, ledger.EntryTypeAutomatic,
				"Partner payout "+p.Number, p.Number, lines)
			if err != nil {
				return err
			}
			result, err = s.journal.PostNew(ctx, repos, entry, actor)
			if err != nil {
				return err
			}
			p.AttachJournalEntry(entry.ID)
		}
		if err := repos.Payouts().SaveWithLock(ctx, p); err != nil {
			return fmt.Errorf("failed to save payout: %w", err)
		}

		pf, err = repos.PartnerFinancials().FindByPartner(ctx, tenantID, p.PartnerID)
		if err != nil {
			return err
		}
		pf.SettlePayout(p.GrossCommission, p.NetPayout, p.RecoveredReturns(), *p.CompletedAt)
		return repos.PartnerFinancials().SaveWithLock(ctx, pf)
	})
	if err != nil {
		return nil, err
	}

	aggregates := []shared.AggregateRoot{p, pf}
	for _, c := range commissions {
		aggregates = append(aggregates, c)
	}
	if result != nil {
		aggregates = append(aggregates, result.Entry)
		for _, a := range result.Accounts {
			aggregates = append(aggregates, a)
		}
	}
	uow.PublishCommitted(ctx, s.eventPublisher, s.logger, aggregates...)
	response := ToPayoutResponse(p)
	return &response, nil
}

// Get retrieves a payout by ID
func (s *PayoutService) Get(ctx context.Context, tenantID, id uuid.UUID) (*PayoutResponse, error) {
	p, err := s.payouts.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToPayoutResponse(p)
	return &response, nil
}

// List returns a page of payouts
func (s *PayoutService) List(ctx context.Context, tenantID uuid.UUID, filter PayoutListFilter) (shared.Paginated[PayoutResponse], error) {
	domainFilter := filter.toDomain()
	rows, total, err := s.payouts.List(ctx, tenantID, domainFilter)
	if err != nil {
		return shared.Paginated[PayoutResponse]{}, fmt.Errorf("failed to list payouts: %w", err)
	}
	items := make([]PayoutResponse, len(rows))
	for i, p := range rows {
		items[i] = ToPayoutResponse(p)
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.Limit()), nil
}

// WeeklySummary totals the unpaid commissions of every partner with an
// order date in [from, to]. An empty period yields an empty summary.
func (s *PayoutService) WeeklySummary(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*WeeklySummaryResponse, error) {
	rows, err := s.commissions.UnpaidByPartner(ctx, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize unpaid commissions: %w", err)
	}
	partners, err := s.partners.ListActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}
	byPartner := make(map[uuid.UUID]*settlement.PartnerFinancial, len(partners))
	for _, pf := range partners {
		byPartner[pf.PartnerID] = pf
	}

	summary := &WeeklySummaryResponse{
		From:     from,
		To:       to,
		Partners: make([]WeeklySummaryRow, 0, len(rows)),
		TotalNet: decimal.Zero,
	}
	for _, r := range rows {
		row := WeeklySummaryRow{
			PartnerID:        r.PartnerID,
			CommissionCount:  r.CommissionCount,
			OrderAmount:      r.OrderAmount,
			CommissionAmount: r.CommissionAmount,
			PartnerNet:       r.PartnerNet,
			PendingReturns:   decimal.Zero,
		}
		if pf, ok := byPartner[r.PartnerID]; ok {
			row.PartnerName = pf.PartnerName
			row.PendingReturns = pf.Financials.PendingReturns
		}
		summary.Partners = append(summary.Partners, row)
		summary.TotalNet = summary.TotalNet.Add(r.PartnerNet)
		summary.TotalCount += r.CommissionCount
	}
	return summary, nil
}

// GeneratePayouts batches a payout for every active partner whose schedule
// is due on asOf. Partners with nothing pending, below their minimum amount
// or whose batch fails are reported as skipped; one partner never blocks
// the others.
func (s *PayoutService) GeneratePayouts(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*GenerationResult, error) {
	partners, err := s.partners.ListActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}

	result := &GenerationResult{AsOf: asOf, Created: []PayoutResponse{}, Skipped: map[uuid.UUID]string{}}
	for _, pf := range partners {
		if !pf.Schedule.IsDue(asOf, pf.LastPayoutAt) {
			continue
		}
		from, to := pf.Schedule.Period(asOf)
		if pf.Financials.UnpaidCommission.LessThan(pf.Schedule.MinimumAmount) {
			result.Skipped[pf.PartnerID] = "unpaid commission below minimum " + pf.Schedule.MinimumAmount.StringFixed(2)
			continue
		}
		created, err := s.Batch(ctx, tenantID, nil, BatchPayoutRequest{PartnerID: pf.PartnerID, PeriodStart: from, PeriodEnd: to})
		if err != nil {
			result.Skipped[pf.PartnerID] = err.Error()
			s.logger.Warn("Scheduled payout skipped",
				zap.String("partner_id", pf.PartnerID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Created = append(result.Created, *created)
	}
	s.logger.Info("Scheduled payouts generated",
		zap.String("tenant_id", tenantID.String()),
		zap.Time("as_of", asOf),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}
