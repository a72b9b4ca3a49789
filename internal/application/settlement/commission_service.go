// Package settlement holds the partner configuration and commission use
// cases. Recorded commissions are posted to the journal in the same
// transaction that stores them.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledgerapp "github.com/clutch/ledger/internal/application/ledger"
	"github.com/clutch/ledger/internal/application/uow"
	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/settlement"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/clutch/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// postingAccounts are the system accounts a commission posts to
var postingAccounts = []string{
	ledger.AccountNumberCash,
	ledger.AccountNumberPartnerPayable,
	ledger.AccountNumberCommissionRevenue,
	ledger.AccountNumberVATPayable,
}

// CommissionService configures partners and records, cancels and refunds
// commissions. Work on one partner is serialized under its partner key.
type CommissionService struct {
	partners       settlement.PartnerFinancialRepository
	commissions    settlement.CommissionRepository
	accounts       ledger.AccountRepository
	scope          uow.TransactionScope
	locker         shared.KeyedLocker
	journal        *ledgerapp.Journal
	calculator     *settlement.Calculator
	metrics        *telemetry.LedgerMetrics
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCommissionService creates a new CommissionService
func NewCommissionService(
	partners settlement.PartnerFinancialRepository,
	commissions settlement.CommissionRepository,
	accounts ledger.AccountRepository,
	scope uow.TransactionScope,
	locker shared.KeyedLocker,
	journal *ledgerapp.Journal,
	metrics *telemetry.LedgerMetrics,
	logger *zap.Logger,
) *CommissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommissionService{
		partners:    partners,
		commissions: commissions,
		accounts:    accounts,
		scope:       scope,
		locker:      locker,
		journal:     journal,
		calculator:  settlement.NewCalculator(journal.Rounding()),
		metrics:     metrics,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *CommissionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ConfigurePartner creates or replaces the commission configuration of a
// partner. The running counters survive a reconfiguration.
func (s *CommissionService) ConfigurePartner(ctx context.Context, tenantID, partnerID uuid.UUID, req ConfigurePartnerRequest) (*PartnerFinancialResponse, error) {
	release, err := s.locker.Acquire(ctx, shared.PartnerLockKey(partnerID))
	if err != nil {
		return nil, err
	}
	defer release()

	pf, err := s.partners.FindByPartner(ctx, tenantID, partnerID)
	switch {
	case shared.IsNotFound(err):
		pf, err = settlement.NewPartnerFinancial(tenantID, partnerID, req.toConfig())
		if err != nil {
			return nil, err
		}
		if err := s.partners.Create(ctx, pf); err != nil {
			return nil, fmt.Errorf("failed to save partner configuration: %w", err)
		}
	case err != nil:
		return nil, err
	default:
		if err := pf.Configure(req.toConfig()); err != nil {
			return nil, err
		}
		if err := s.partners.SaveWithLock(ctx, pf); err != nil {
			return nil, fmt.Errorf("failed to save partner configuration: %w", err)
		}
	}

	uow.PublishCommitted(ctx, s.eventPublisher, s.logger, pf)
	s.logger.Info("Partner commission configured",
		zap.String("partner_id", partnerID.String()),
		zap.String("structure", string(pf.Structure.Kind())),
	)
	response := ToPartnerFinancialResponse(pf)
	return &response, nil
}

// GetPartner returns the configuration and counters of a partner
func (s *CommissionService) GetPartner(ctx context.Context, tenantID, partnerID uuid.UUID) (*PartnerFinancialResponse, error) {
	pf, err := s.partners.FindByPartner(ctx, tenantID, partnerID)
	if err != nil {
		return nil, err
	}
	response := ToPartnerFinancialResponse(pf)
	return &response, nil
}

// Calculate previews the split of an order without storing anything
func (s *CommissionService) Calculate(ctx context.Context, tenantID uuid.UUID, req OrderRequest) (*settlement.Split, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "commission", "calculate")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPartnerID, req.PartnerID.String(),
	)

	pf, err := s.partners.FindByPartner(ctx, tenantID, req.PartnerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	var split *settlement.Split
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationCalculateSplit, "settlement"), func(c context.Context) {
		split, err = s.calculate(c, pf, req.toQuote())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return split, nil
}

func (s *CommissionService) calculate(ctx context.Context, pf *settlement.PartnerFinancial, quote settlement.OrderQuote) (*settlement.Split, error) {
	split, err := s.calculator.Calculate(pf, quote)
	if err != nil {
		var conservation *settlement.SplitConservationError
		if errors.As(err, &conservation) {
			s.metrics.RecordConservationFailure(ctx, pf.TenantID)
			s.logger.Error("Commission split does not conserve the order amount",
				zap.String("order_id", quote.OrderID),
				zap.String("order_amount", conservation.OrderAmount.String()),
				zap.String("partner_net", conservation.PartnerNet.String()),
				zap.String("platform_revenue", conservation.PlatformRevenue.String()),
				zap.String("vat_amount", conservation.VATAmount.String()),
			)
		}
		return nil, err
	}
	return split, nil
}

// splitLines builds the posting of a split:
//
//	Dr cash              customer charged
//	Cr partner payable   partner net
//	Cr commission rev.   platform revenue + customer markup
//	Cr VAT payable       VAT
//
// Zero lines are left out.
func splitLines(c *settlement.Commission, ids map[string]uuid.UUID) []ledger.LineInput {
	lines := []ledger.LineInput{{
		AccountID:   ids[ledger.AccountNumberCash],
		Debit:       c.CustomerCharged,
		Description: "order " + c.OrderID,
	}}
	credit := func(number string, amount decimal.Decimal, description string) {
		if amount.IsPositive() {
			lines = append(lines, ledger.LineInput{AccountID: ids[number], Credit: amount, Description: description})
		}
	}
	credit(ledger.AccountNumberPartnerPayable, c.PartnerNet, "partner net")
	credit(ledger.AccountNumberCommissionRevenue, c.PlatformRevenue.Add(c.MarkupRevenue), "platform commission")
	credit(ledger.AccountNumberVATPayable, c.VATAmount, "VAT on commission")
	return lines
}

// RecordCommission computes the split of an order, stores it, adds it to
// the partner counters and posts it to the journal, all in one transaction.
// An order can be recorded once.
func (s *CommissionService) RecordCommission(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, req OrderRequest) (*CommissionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "commission", "record")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPartnerID, req.PartnerID.String(),
	)

	ids, err := ledgerapp.ResolveAccountNumbers(ctx, s.accounts, tenantID, postingAccounts...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	keys := []string{shared.PartnerLockKey(req.PartnerID)}
	for _, id := range ids {
		keys = append(keys, shared.AccountLockKey(id))
	}
	release, err := shared.AcquireAll(ctx, s.locker, keys...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	quote := req.toQuote()
	var (
		commission *settlement.Commission
		pf         *settlement.PartnerFinancial
		result     *ledger.PostingResult
	)
	err = s.scope.Execute(ctx, func(repos uow.Repositories) error {
		existing, err := repos.Commissions().FindByOrderID(ctx, tenantID, quote.OrderID)
		if err == nil {
			return shared.ErrAlreadyExists.WithDetail("order_id", quote.OrderID).
				WithDetail("commission_id", existing.ID.String())
		}
		if !shared.IsNotFound(err) {
			return err
		}

		pf, err = repos.PartnerFinancials().FindByPartner(ctx, tenantID, quote.PartnerID)
		if err != nil {
			return err
		}
		if !pf.IsActive {
			return shared.NewDomainError(shared.CodeInvalidState, "partner "+pf.PartnerName+" is inactive")
		}
		split, err := s.calculate(ctx, pf, quote)
		if err != nil {
			return err
		}
		commission, err = settlement.NewCommission(tenantID, quote, split, s.journal.Rounding())
		if err != nil {
			return err
		}

		// Orders arrive out of date order and every split shares the cash and
		// payable accounts. The entry is dated no earlier than their last
		// posting; the commission keeps the order date for payout periods.
		lines := splitLines(commission, ids)
		lineAccounts := make([]uuid.UUID, len(lines))
		for i, l := range lines {
			lineAccounts[i] = l.AccountID
		}
		entryDate, err := ledgerapp.PostableDate(ctx, repos.Accounts(), tenantID, lineAccounts, commission.OrderDate)
		if err != nil {
			return err
		}
		entry, err := s.journal.Draft(tenantID, entryDate, ledger.EntryTypeAutomatic,
			"Commission settlement for order "+commission.OrderID, commission.OrderID, lines)
		if err != nil {
			return err
		}
		result, err = s.journal.PostNew(ctx, repos, entry, actor)
		if err != nil {
			return err
		}
		commission.AttachJournalEntry(entry.ID)
		if err := repos.Commissions().Create(ctx, commission); err != nil {
			return fmt.Errorf("failed to save commission: %w", err)
		}
		pf.ApplyCommission(commission)
		return repos.PartnerFinancials().SaveWithLock(ctx, pf)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCommissionID, commission.ID.String(),
		telemetry.SpanAttrEntryNumber, result.Entry.EntryNumber,
	)
	s.publish(ctx, result, commission, pf)
	s.metrics.RecordCommission(ctx, tenantID, string(pf.Structure.Kind()), commission.PlatformRevenue)
	s.logger.Info("Commission recorded",
		zap.String("order_id", commission.OrderID),
		zap.String("partner_id", commission.PartnerID.String()),
		zap.String("order_amount", commission.OrderAmount.StringFixed(2)),
		zap.String("partner_net", commission.PartnerNet.StringFixed(2)),
		zap.String("entry_number", result.Entry.EntryNumber),
	)
	response := ToCommissionResponse(commission)
	return &response, nil
}

func (s *CommissionService) publish(ctx context.Context, result *ledger.PostingResult, others ...shared.AggregateRoot) {
	aggregates := append([]shared.AggregateRoot{}, others...)
	if result != nil {
		aggregates = append(aggregates, result.Entry)
		for _, a := range result.Accounts {
			aggregates = append(aggregates, a)
		}
	}
	uow.PublishCommitted(ctx, s.eventPublisher, s.logger, aggregates...)
}

// CancelCommission voids a pending commission and reverses its posting
func (s *CommissionService) CancelCommission(ctx context.Context, tenantID, id uuid.UUID, actor *uuid.UUID, req VoidRequest) (*CommissionResponse, error) {
	return s.void(ctx, tenantID, id, actor, req, "cancel", func(c *settlement.Commission) (bool, error) {
		return false, c.Cancel(req.Reason)
	})
}

// RefundCommission voids the commission of a refunded order and reverses
// its posting. When the partner was already paid the partner net becomes a
// pending return recovered from the next payout.
func (s *CommissionService) RefundCommission(ctx context.Context, tenantID, id uuid.UUID, actor *uuid.UUID, req VoidRequest) (*CommissionResponse, error) {
	return s.void(ctx, tenantID, id, actor, req, "refund", func(c *settlement.Commission) (bool, error) {
		return c.Refund(req.Reason)
	})
}

func (s *CommissionService) void(
	ctx context.Context,
	tenantID, id uuid.UUID,
	actor *uuid.UUID,
	req VoidRequest,
	op string,
	change func(*settlement.Commission) (wasPaid bool, err error),
) (*CommissionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "commission", op)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrCommissionID, id.String(),
	)

	head, err := s.commissions.FindByID(ctx, tenantID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	ids, err := ledgerapp.ResolveAccountNumbers(ctx, s.accounts, tenantID, postingAccounts...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	keys := []string{shared.PartnerLockKey(head.PartnerID)}
	for _, accountID := range ids {
		keys = append(keys, shared.AccountLockKey(accountID))
	}
	release, err := shared.AcquireAll(ctx, s.locker, keys...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	entryDate := time.Now().UTC()
	if req.EntryDate != nil {
		entryDate = *req.EntryDate
	}
	var (
		commission *settlement.Commission
		pf         *settlement.PartnerFinancial
		reversed   *ledger.JournalEntry
		result     *ledger.PostingResult
	)
	err = s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		commission, err = repos.Commissions().FindByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if commission.Status == settlement.CommissionStatusPending {
			claims, err := repos.Payouts().ClaimedBy(ctx, tenantID, []uuid.UUID{commission.ID})
			if err != nil {
				return fmt.Errorf("failed to load payout claims: %w", err)
			}
			if payoutID, held := claims[commission.ID]; held {
				return shared.NewDomainError(shared.CodeInvalidState,
					"commission of order "+commission.OrderID+" is claimed by a payout, cancel the payout first").
					WithDetail("payout_id", payoutID.String())
			}
		}
		wasPaid, err := change(commission)
		if err != nil {
			return err
		}
		if err := repos.Commissions().SaveWithLock(ctx, commission); err != nil {
			return fmt.Errorf("failed to save commission: %w", err)
		}

		if commission.JournalEntryID != nil {
			reversed, result, err = s.journal.Reverse(ctx, repos, tenantID, *commission.JournalEntryID, entryDate,
				op+" of order "+commission.OrderID, actor)
			if err != nil {
				return err
			}
		}

		pf, err = repos.PartnerFinancials().FindByPartner(ctx, tenantID, commission.PartnerID)
		if err != nil {
			return err
		}
		pf.RevertCommission(commission, wasPaid)
		return repos.PartnerFinancials().SaveWithLock(ctx, pf)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	aggregates := []shared.AggregateRoot{commission, pf}
	if reversed != nil {
		aggregates = append(aggregates, reversed)
	}
	s.publish(ctx, result, aggregates...)
	s.logger.Info("Commission voided",
		zap.String("order_id", commission.OrderID),
		zap.String("status", string(commission.Status)),
		zap.String("reason", commission.Reason),
	)
	response := ToCommissionResponse(commission)
	return &response, nil
}

// GetCommission retrieves a commission by ID
func (s *CommissionService) GetCommission(ctx context.Context, tenantID, id uuid.UUID) (*CommissionResponse, error) {
	c, err := s.commissions.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToCommissionResponse(c)
	return &response, nil
}

// ListCommissions returns a page of commissions
func (s *CommissionService) ListCommissions(ctx context.Context, tenantID uuid.UUID, filter CommissionListFilter) (shared.Paginated[CommissionResponse], error) {
	domainFilter := filter.toDomain()
	rows, total, err := s.commissions.List(ctx, tenantID, domainFilter)
	if err != nil {
		return shared.Paginated[CommissionResponse]{}, fmt.Errorf("failed to list commissions: %w", err)
	}
	items := make([]CommissionResponse, len(rows))
	for i, c := range rows {
		items[i] = ToCommissionResponse(c)
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.Limit()), nil
}

// Summary groups a partner's commissions by status. Every status is
// present, with zeros when the partner has none in it.
func (s *CommissionService) Summary(ctx context.Context, tenantID, partnerID uuid.UUID) (*CommissionSummaryResponse, error) {
	pf, err := s.partners.FindByPartner(ctx, tenantID, partnerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.commissions.SummaryByStatus(ctx, tenantID, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize commissions: %w", err)
	}
	return &CommissionSummaryResponse{
		PartnerID:  partnerID,
		ByStatus:   settlement.CompleteSummary(rows),
		Financials: pf.Financials,
	}, nil
}

// Breakdown reports a partner's commissions over a trailing window: the paid
// trend per day, live totals per order category and totals per status
func (s *CommissionService) Breakdown(ctx context.Context, tenantID, partnerID uuid.UUID, req BreakdownRequest) (*settlement.CommissionBreakdown, error) {
	period, err := settlement.ParseBreakdownPeriod(req.Period)
	if err != nil {
		return nil, err
	}
	if _, err := s.partners.FindByPartner(ctx, tenantID, partnerID); err != nil {
		return nil, err
	}
	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}
	from, to := period.Range(asOf)
	rows, err := s.commissions.BreakdownRows(ctx, tenantID, partnerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load commission breakdown: %w", err)
	}
	return settlement.NewCommissionBreakdown(period, from, to, rows), nil
}
