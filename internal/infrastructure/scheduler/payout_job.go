package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GenerateFunc runs one payout generation pass and reports how many
// payouts were created and how many due partners were skipped
type GenerateFunc func(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (created, skipped int, err error)

// PayoutJobExecutor executes JobKindGeneratePayouts jobs
type PayoutJobExecutor struct {
	generate GenerateFunc
	logger   *zap.Logger
}

// NewPayoutJobExecutor creates an executor backed by generate
func NewPayoutJobExecutor(generate GenerateFunc, logger *zap.Logger) *PayoutJobExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayoutJobExecutor{generate: generate, logger: logger}
}

// Execute implements JobExecutor
func (e *PayoutJobExecutor) Execute(ctx context.Context, job *Job) error {
	if job.Kind != JobKindGeneratePayouts {
		return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}
	created, skipped, err := e.generate(ctx, job.TenantID, job.AsOf)
	if err != nil {
		return fmt.Errorf("payout generation for tenant %s: %w", job.TenantID, err)
	}
	e.logger.Info("Payout generation finished",
		zap.String("tenant_id", job.TenantID.String()),
		zap.Time("as_of", job.AsOf),
		zap.Int("created", created),
		zap.Int("skipped", skipped),
	)
	return nil
}
