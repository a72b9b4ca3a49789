package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider lists the tenants that have scheduled work
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	// CheckInterval is how often tenants are scanned for due payouts
	CheckInterval time.Duration
	// Location decides which calendar day a tick belongs to
	Location *time.Location
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		CheckInterval: time.Hour,
		Location:      time.UTC,
	}
}

// CronTrigger submits one payout generation job per tenant and day. The
// generation itself decides which partners are due, so ticking more often
// than daily only shortens the delay after a restart.
type CronTrigger struct {
	config         CronTriggerConfig
	scheduler      *Scheduler
	tenantProvider TenantProvider
	logger         *zap.Logger
	now            func() time.Time

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	lastRun map[uuid.UUID]string
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, scheduler *Scheduler, tenantProvider TenantProvider, logger *zap.Logger) *CronTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultCronTriggerConfig().CheckInterval
	}
	return &CronTrigger{
		config:         config,
		scheduler:      scheduler,
		tenantProvider: tenantProvider,
		logger:         logger,
		now:            time.Now,
		lastRun:        make(map[uuid.UUID]string),
	}
}

// Start runs a first check immediately and then one per interval
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Payout cron trigger started", zap.Duration("check_interval", c.config.CheckInterval))
	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Payout cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	c.Trigger(ctx)

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Trigger(ctx)
		}
	}
}

// Trigger schedules payout generation for every tenant that has not been
// scheduled yet today and returns how many jobs were submitted
func (c *CronTrigger) Trigger(ctx context.Context) int {
	now := c.now().In(c.config.Location)
	today := now.Format("2006-01-02")
	asOf := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.config.Location)

	tenantIDs, err := c.tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		c.logger.Error("Failed to list tenants for payout generation", zap.Error(err))
		return 0
	}

	submitted := 0
	for _, tenantID := range tenantIDs {
		c.mu.Lock()
		done := c.lastRun[tenantID] == today
		c.mu.Unlock()
		if done {
			continue
		}

		err := c.scheduler.SchedulePayouts(tenantID, asOf)
		if err != nil && !errors.Is(err, ErrJobAlreadyQueued) {
			c.logger.Error("Failed to schedule payout generation",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		c.mu.Lock()
		c.lastRun[tenantID] = today
		c.mu.Unlock()
		if err == nil {
			submitted++
		}
	}

	if submitted > 0 {
		c.logger.Info("Payout generation scheduled",
			zap.String("date", today),
			zap.Int("tenant_count", submitted),
		)
	}
	return submitted
}
