// Package scheduler runs background ledger jobs on a bounded worker pool.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrJobQueueFull        = errors.New("job queue is full")
	// ErrJobAlreadyQueued means an equivalent job is queued or running
	ErrJobAlreadyQueued = errors.New("an equivalent job is already queued")
	ErrUnknownJobKind   = errors.New("unknown job kind")
)

// JobExecutor does the work of a job
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// Config sizes the worker pool
type Config struct {
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	// RetryDelay is the first backoff step
	RetryDelay time.Duration
	QueueSize  int
}

// DefaultConfig returns the pool used when nothing is configured
func DefaultConfig() Config {
	return Config{
		MaxConcurrentJobs: 3,
		JobTimeout:        10 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        time.Minute,
		QueueSize:         100,
	}
}

// Scheduler runs submitted jobs on a fixed pool of workers. At most one job
// per kind, tenant and day is in the pool at a time.
type Scheduler struct {
	config   Config
	executor JobExecutor
	logger   *zap.Logger
	jobs     chan *Job

	mu       sync.Mutex
	running  bool
	inFlight map[string]uuid.UUID
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewScheduler creates a stopped scheduler
func NewScheduler(config Config, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.MaxConcurrentJobs <= 0 {
		config.MaxConcurrentJobs = 1
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger.Named("scheduler"),
		jobs:     make(chan *Job, config.QueueSize),
		inFlight: make(map[string]uuid.UUID),
	}
}

// Start launches the workers. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	for i := range s.config.MaxConcurrentJobs {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	s.logger.Info("Job scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers until ctx expires.
// Queued jobs are dropped.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("Job scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Job scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob queues a job without blocking
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}
	key := job.dedupKey()
	if _, busy := s.inFlight[key]; busy {
		return ErrJobAlreadyQueued
	}
	select {
	case s.jobs <- job:
		s.inFlight[key] = job.ID
	default:
		return ErrJobQueueFull
	}
	s.logger.Debug("Job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
		zap.String("tenant_id", job.TenantID.String()),
	)
	return nil
}

// SchedulePayouts queues a payout generation pass for a tenant
func (s *Scheduler) SchedulePayouts(tenantID uuid.UUID, asOf time.Time) error {
	return s.SubmitJob(NewJob(JobKindGeneratePayouts, tenantID, asOf, s.config.RetryAttempts))
}

func (s *Scheduler) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			if s.run(ctx, job, id) {
				continue
			}
			s.release(job)
		}
	}
}

func (s *Scheduler) release(job *Job) {
	s.mu.Lock()
	delete(s.inFlight, job.dedupKey())
	s.mu.Unlock()
}

// run executes one attempt. It returns true when the job went back on the
// queue for another attempt and still holds its in-flight slot.
func (s *Scheduler) run(ctx context.Context, job *Job, worker int) bool {
	if job.NextRetryAt != nil {
		if wait := time.Until(*job.NextRetryAt); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return false
			case <-timer.C:
			}
		}
	}

	log := s.logger.With(
		zap.Int("worker_id", worker),
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
		zap.String("tenant_id", job.TenantID.String()),
		zap.Int("attempt", job.RetryCount+1),
	)
	job.Start()
	log.Info("Processing job")

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	err := s.executor.Execute(jobCtx, job)
	cancel()
	if err == nil {
		job.Complete()
		log.Info("Job completed")
		return false
	}

	job.Fail(err.Error())
	if !job.ShouldRetry() || ctx.Err() != nil {
		log.Error("Job failed", zap.Error(err))
		return false
	}
	job.ScheduleRetry(s.config.RetryDelay)
	select {
	case s.jobs <- job:
		log.Warn("Job failed, retrying", zap.Error(err), zap.Timep("next_attempt", job.NextRetryAt))
		return true
	default:
		log.Error("Job failed and the queue is full, giving up", zap.Error(err))
		return false
	}
}
