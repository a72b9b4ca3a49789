// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics tracks posting, settlement, payout and reconciliation activity.
// Every method is safe on a nil receiver so services can run without metrics.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	entriesPosted          *Counter
	postingRejected        *Counter
	postingDuration        *Histogram
	commissionsRecorded    *Counter
	commissionAmount       *FloatCounter
	conservationFailures   *Counter
	payoutTransitions      *Counter
	reconciliationComplete *Counter
	reconciliationDiff     *FloatGauge

	unpaidCommission *FloatGauge
	openRecons       *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	provider SettlementMetricsProvider
}

// SettlementMetricsProvider exposes the point-in-time figures collected periodically.
type SettlementMetricsProvider interface {
	// UnpaidCommission returns the pending partner net per partner
	UnpaidCommission(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	// OpenReconciliations returns the number of draft or in-progress reconciliations
	OpenReconciliations(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter    metric.Meter
	Logger   *zap.Logger
	Provider SettlementMetricsProvider
}

// NewLedgerMetrics creates the ledger instruments on the given meter.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:    cfg.Meter,
		logger:   logger,
		stopChan: make(chan struct{}),
		provider: cfg.Provider,
	}

	var err error
	if lm.entriesPosted, err = NewCounter(cfg.Meter, "ledger_journal_entries_posted_total",
		"Journal entries committed to the ledger", "{entries}"); err != nil {
		return nil, err
	}
	if lm.postingRejected, err = NewCounter(cfg.Meter, "ledger_posting_rejected_total",
		"Postings rejected by an invariant", "{entries}"); err != nil {
		return nil, err
	}
	if lm.postingDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_posting_duration_seconds",
		Description: "Time spent committing a journal entry",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if lm.commissionsRecorded, err = NewCounter(cfg.Meter, "settlement_commissions_recorded_total",
		"Commissions recorded per order", "{commissions}"); err != nil {
		return nil, err
	}
	if lm.commissionAmount, err = NewFloatCounter(cfg.Meter, "settlement_platform_revenue_total",
		"Platform revenue recognised from commissions", "{currency}"); err != nil {
		return nil, err
	}
	if lm.conservationFailures, err = NewCounter(cfg.Meter, "settlement_conservation_failures_total",
		"Commission splits rejected because components did not sum to the order", "{splits}"); err != nil {
		return nil, err
	}
	if lm.payoutTransitions, err = NewCounter(cfg.Meter, "payout_transitions_total",
		"Payout status transitions", "{transitions}"); err != nil {
		return nil, err
	}
	if lm.reconciliationComplete, err = NewCounter(cfg.Meter, "bank_reconciliations_completed_total",
		"Completed bank reconciliations", "{reconciliations}"); err != nil {
		return nil, err
	}
	if lm.reconciliationDiff, err = NewFloatGauge(cfg.Meter, "bank_reconciliation_difference",
		"Difference left when a reconciliation was completed", "{currency}"); err != nil {
		return nil, err
	}
	if lm.unpaidCommission, err = NewFloatGauge(cfg.Meter, "settlement_unpaid_partner_net",
		"Pending partner net awaiting payout", "{currency}"); err != nil {
		return nil, err
	}
	if lm.openRecons, err = NewGauge(cfg.Meter, "bank_reconciliations_open",
		"Reconciliations in draft or in progress", "{reconciliations}"); err != nil {
		return nil, err
	}

	return lm, nil
}

// RecordPosting records a committed entry and how long the commit took.
func (lm *LedgerMetrics) RecordPosting(ctx context.Context, tenantID uuid.UUID, entryType string, d time.Duration) {
	if lm == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrEntryType.String(entryType),
	}
	lm.entriesPosted.Inc(ctx, attrs...)
	lm.postingDuration.RecordDuration(ctx, d, attrs...)
}

// RecordPostingRejected records a posting refused with the given error code.
func (lm *LedgerMetrics) RecordPostingRejected(ctx context.Context, tenantID uuid.UUID, code string) {
	if lm == nil {
		return
	}
	lm.postingRejected.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrErrorCode.String(code),
	)
}

// RecordCommission records a recorded commission and the platform's share of it.
func (lm *LedgerMetrics) RecordCommission(ctx context.Context, tenantID uuid.UUID, structureKind string, platformRevenue decimal.Decimal) {
	if lm == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrStructureKind.String(structureKind),
	}
	lm.commissionsRecorded.Inc(ctx, attrs...)
	lm.commissionAmount.Add(ctx, platformRevenue.InexactFloat64(), attrs...)
}

// RecordConservationFailure records a rejected split.
func (lm *LedgerMetrics) RecordConservationFailure(ctx context.Context, tenantID uuid.UUID) {
	if lm == nil {
		return
	}
	lm.conservationFailures.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordPayoutTransition records a payout moving into the given status.
func (lm *LedgerMetrics) RecordPayoutTransition(ctx context.Context, tenantID uuid.UUID, status string) {
	if lm == nil {
		return
	}
	lm.payoutTransitions.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPayoutStatus.String(status),
	)
}

// RecordReconciliationCompleted records a completed run and the difference it was closed with.
func (lm *LedgerMetrics) RecordReconciliationCompleted(ctx context.Context, tenantID, bankAccountID uuid.UUID, override bool, difference decimal.Decimal) {
	if lm == nil {
		return
	}
	lm.reconciliationComplete.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		attribute.Bool("override", override),
	)
	lm.reconciliationDiff.Record(ctx, difference.InexactFloat64(),
		AttrTenantID.String(tenantID.String()),
		AttrBankAccountID.String(bankAccountID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts collecting the gauge metrics every interval
// (default 5 minutes). It returns immediately; Stop ends the loop.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, tenants TenantProvider, interval time.Duration) {
	if lm == nil {
		return
	}
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go lm.runPeriodicCollection(ctx, tenants, interval)
	})
}

func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, tenants TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lm.collect(ctx, tenants)
	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collect(ctx, tenants)
		}
	}
}

func (lm *LedgerMetrics) collect(ctx context.Context, tenants TenantProvider) {
	if lm.provider == nil {
		lm.logger.Debug("No settlement metrics provider configured, skipping collection")
		return
	}
	tenantIDs, err := tenants.GetActiveTenantIDs(ctx)
	if err != nil {
		lm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}
	for _, tenantID := range tenantIDs {
		lm.collectTenant(ctx, tenantID)
	}
}

func (lm *LedgerMetrics) collectTenant(ctx context.Context, tenantID uuid.UUID) {
	unpaid, err := lm.provider.UnpaidCommission(ctx, tenantID)
	if err != nil {
		lm.logger.Warn("Failed to get unpaid commission for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		for partnerID, amount := range unpaid {
			lm.unpaidCommission.Record(ctx, amount.InexactFloat64(),
				AttrTenantID.String(tenantID.String()),
				AttrPartnerID.String(partnerID.String()),
			)
		}
	}

	open, err := lm.provider.OpenReconciliations(ctx, tenantID)
	if err != nil {
		lm.logger.Warn("Failed to count open reconciliations for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return
	}
	lm.openRecons.Record(ctx, open, AttrTenantID.String(tenantID.String()))
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	if lm == nil {
		return
	}
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
