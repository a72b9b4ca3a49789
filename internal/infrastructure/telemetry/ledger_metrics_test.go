package telemetry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/clutch/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newManualMetrics(t *testing.T, provider telemetry.SettlementMetricsProvider) (*telemetry.LedgerMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:    mp.Meter("test"),
		Logger:   zap.NewNop(),
		Provider: provider,
	})
	require.NoError(t, err)
	return lm, reader
}

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]float64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]float64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += float64(dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += float64(dp.Value)
				}
			case metricdata.Gauge[float64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += float64(dp.Count)
				}
			}
		}
	}
	return sums
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{})

	require.Error(t, err)
	assert.Nil(t, lm)
	assert.Equal(t, "NewLedgerMetrics: meter cannot be nil", err.Error())
}

func TestLedgerMetrics_NilReceiverIsSafe(t *testing.T) {
	var lm *telemetry.LedgerMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		lm.RecordPosting(ctx, uuid.New(), "standard", time.Millisecond)
		lm.RecordPostingRejected(ctx, uuid.New(), "UNBALANCED_ENTRY")
		lm.RecordCommission(ctx, uuid.New(), "tiered", decimal.NewFromInt(10))
		lm.RecordPayoutTransition(ctx, uuid.New(), "APPROVED")
		lm.Stop()
	})
}

func TestLedgerMetrics_Records(t *testing.T) {
	lm, reader := newManualMetrics(t, nil)
	ctx := context.Background()
	tenantID := uuid.New()

	lm.RecordPosting(ctx, tenantID, "standard", 3*time.Millisecond)
	lm.RecordPosting(ctx, tenantID, "reversal", 2*time.Millisecond)
	lm.RecordPostingRejected(ctx, tenantID, "UNBALANCED_ENTRY")
	lm.RecordCommission(ctx, tenantID, "tiered", decimal.RequireFromString("240.50"))
	lm.RecordConservationFailure(ctx, tenantID)
	lm.RecordPayoutTransition(ctx, tenantID, "APPROVED")
	lm.RecordReconciliationCompleted(ctx, tenantID, uuid.New(), false, decimal.Zero)

	sums := collectSums(t, reader)
	assert.Equal(t, 2.0, sums["ledger_journal_entries_posted_total"])
	assert.Equal(t, 2.0, sums["ledger_posting_duration_seconds"])
	assert.Equal(t, 1.0, sums["ledger_posting_rejected_total"])
	assert.Equal(t, 1.0, sums["settlement_commissions_recorded_total"])
	assert.InDelta(t, 240.50, sums["settlement_platform_revenue_total"], 0.001)
	assert.Equal(t, 1.0, sums["settlement_conservation_failures_total"])
	assert.Equal(t, 1.0, sums["payout_transitions_total"])
	assert.Equal(t, 1.0, sums["bank_reconciliations_completed_total"])
}

type stubSettlementProvider struct {
	mu     sync.Mutex
	calls  int
	unpaid map[uuid.UUID]decimal.Decimal
}

func (p *stubSettlementProvider) UnpaidCommission(_ context.Context, _ uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.unpaid, nil
}

func (p *stubSettlementProvider) OpenReconciliations(_ context.Context, _ uuid.UUID) (int64, error) {
	return 2, nil
}

func (p *stubSettlementProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type stubTenants struct{ ids []uuid.UUID }

func (s stubTenants) GetActiveTenantIDs(context.Context) ([]uuid.UUID, error) { return s.ids, nil }

func TestLedgerMetrics_PeriodicCollection(t *testing.T) {
	provider := &stubSettlementProvider{unpaid: map[uuid.UUID]decimal.Decimal{
		uuid.New(): decimal.RequireFromString("836.00"),
	}}
	lm, reader := newManualMetrics(t, provider)

	lm.StartPeriodicCollection(context.Background(), stubTenants{ids: []uuid.UUID{uuid.New()}}, time.Hour)
	defer lm.Stop()

	require.Eventually(t, func() bool { return provider.callCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		sums := collectSums(t, reader)
		return sums["bank_reconciliations_open"] == 2
	}, time.Second, 5*time.Millisecond)

	sums := collectSums(t, reader)
	assert.InDelta(t, 836.0, sums["settlement_unpaid_partner_net"], 0.001)
}

func TestLedgerMetrics_NoopMeter(t *testing.T) {
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: noop.NewMeterProvider().Meter("test"),
	})
	require.NoError(t, err)

	lm.StartPeriodicCollection(context.Background(), stubTenants{}, time.Hour)
	lm.Stop()
	lm.Stop()
}
