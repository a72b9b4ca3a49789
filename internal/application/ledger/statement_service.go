package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/clutch/ledger/internal/domain/shared/valueobject"
	"github.com/clutch/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StatementExporter renders a statement into a downloadable document
type StatementExporter interface {
	RenderStatement(st *ledger.Statement) ([]byte, error)
	ContentType() string
}

// StatementService answers read-only questions about the ledger. It never
// mutates state and returns empty results rather than errors when an
// account has no activity.
type StatementService struct {
	accounts      ledger.AccountRepository
	ledgerEntries ledger.LedgerEntryRepository
	rounding      valueobject.Rounding
	exporter      StatementExporter
	logger        *zap.Logger
}

// NewStatementService creates a new StatementService
func NewStatementService(
	accounts ledger.AccountRepository,
	ledgerEntries ledger.LedgerEntryRepository,
	rounding valueobject.Rounding,
	exporter StatementExporter,
	logger *zap.Logger,
) *StatementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatementService{
		accounts:      accounts,
		ledgerEntries: ledgerEntries,
		rounding:      rounding,
		exporter:      exporter,
		logger:        logger,
	}
}

// Statement returns the account's ledger rows between from and to (both
// optional) with a running balance that starts from the balance before from.
func (s *StatementService) Statement(ctx context.Context, tenantID, accountID uuid.UUID, from, to *time.Time) (*ledger.Statement, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "statement")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrAccountID, accountID.String(),
	)

	account, err := s.accounts.FindByID(ctx, tenantID, accountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	opening := decimal.Zero
	if from != nil {
		debit, credit, err := s.ledgerEntries.SumBefore(ctx, tenantID, accountID, *from)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to compute opening balance: %w", err)
		}
		opening = ledger.OpeningBalance(account.Type, debit, credit)
	}

	rows, err := s.ledgerEntries.FindByAccount(ctx, tenantID, accountID, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	telemetry.SetAttribute(span, "row_count", len(rows))
	return ledger.BuildStatement(account, from, to, opening, rows), nil
}

// ExportStatement renders the statement with the configured exporter
func (s *StatementService) ExportStatement(ctx context.Context, tenantID, accountID uuid.UUID, from, to *time.Time) (data []byte, contentType string, err error) {
	if s.exporter == nil {
		return nil, "", fmt.Errorf("statement export is not configured")
	}
	st, err := s.Statement(ctx, tenantID, accountID, from, to)
	if err != nil {
		return nil, "", err
	}
	data, err = s.exporter.RenderStatement(st)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render statement: %w", err)
	}
	return data, s.exporter.ContentType(), nil
}

// ReplayCheck re-derives the account balance from its full ledger history
// and reports any drift from the stored balances.
func (s *StatementService) ReplayCheck(ctx context.Context, tenantID, accountID uuid.UUID) (*ledger.BalanceDrift, error) {
	account, err := s.accounts.FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	rows, err := s.ledgerEntries.FindByAccount(ctx, tenantID, accountID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	drift := ledger.Replay(account, rows)
	if !drift.IsConsistent() {
		s.logger.Warn("Ledger replay drift detected",
			zap.String("account_number", account.Number),
			zap.String("stored_balance", drift.StoredBalance.String()),
			zap.String("replayed_balance", drift.ReplayedBalance.String()),
		)
	}
	return drift, nil
}

// TrialBalance lists every account in debit/credit columns and checks that
// the two totals agree.
func (s *StatementService) TrialBalance(ctx context.Context, tenantID uuid.UUID, query TrialBalanceQuery) (*ledger.TrialBalance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "trial_balance")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID.String())

	var tb *ledger.TrialBalance
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationTrialBalance, "ledger"), func(c context.Context) {
		accounts, err := s.accounts.FindAll(c, tenantID)
		if err != nil {
			operationErr = fmt.Errorf("failed to load accounts: %w", err)
			return
		}

		if query.AsOf != nil {
			accounts, err = s.balancesAsOf(c, tenantID, accounts, *query.AsOf)
			if err != nil {
				operationErr = err
				return
			}
		}
		tb = ledger.BuildTrialBalance(accounts, s.rounding)

		if query.Replay && query.AsOf == nil {
			for _, account := range accounts {
				rows, err := s.ledgerEntries.FindByAccount(c, tenantID, account.ID, nil, nil)
				if err != nil {
					operationErr = fmt.Errorf("failed to load ledger entries for %s: %w", account.Number, err)
					return
				}
				tb.AddDrift(ledger.Replay(account, rows), s.rounding)
			}
		}
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrStatus, string(tb.Status),
		"discrepancy_count", len(tb.Discrepancies),
	)
	if !tb.Status.IsBalanced() {
		s.logger.Warn("Trial balance is not balanced",
			zap.String("tenant_id", tenantID.String()),
			zap.String("total_debit", tb.TotalDebit.String()),
			zap.String("total_credit", tb.TotalCredit.String()),
			zap.Bool("critical", tb.HasCriticalDiscrepancies()),
		)
	}
	return tb, nil
}

// balancesAsOf returns copies of the accounts carrying their balance at the
// end of the given day.
func (s *StatementService) balancesAsOf(ctx context.Context, tenantID uuid.UUID, accounts []*ledger.Account, asOf time.Time) ([]*ledger.Account, error) {
	endOfDay := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location()).AddDate(0, 0, 1)
	out := make([]*ledger.Account, 0, len(accounts))
	for _, a := range accounts {
		debit, credit, err := s.ledgerEntries.SumBefore(ctx, tenantID, a.ID, endOfDay)
		if err != nil {
			return nil, fmt.Errorf("failed to sum ledger entries for %s: %w", a.Number, err)
		}
		snapshot := *a
		snapshot.Balance = ledger.OpeningBalance(a.Type, debit, credit)
		out = append(out, &snapshot)
	}
	return out, nil
}
