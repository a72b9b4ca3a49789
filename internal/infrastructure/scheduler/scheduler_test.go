package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecutor struct {
	mu       sync.Mutex
	calls    []uuid.UUID
	failures int
}

func (e *recordingExecutor) Execute(ctx context.Context, job *Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, job.TenantID)
	if e.failures > 0 {
		e.failures--
		return errors.New("transient")
	}
	return nil
}

func (e *recordingExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type executorFunc func(ctx context.Context, job *Job) error

func (f executorFunc) Execute(ctx context.Context, job *Job) error { return f(ctx, job) }

type staticTenants []uuid.UUID

func (s staticTenants) GetActiveTenantIDs(context.Context) ([]uuid.UUID, error) {
	return s, nil
}

func testConfig() Config {
	return Config{
		MaxConcurrentJobs: 2,
		JobTimeout:        time.Second,
		RetryAttempts:     2,
		RetryDelay:        10 * time.Millisecond,
		QueueSize:         10,
	}
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(JobKindGeneratePayouts, uuid.New(), time.Now(), 1)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.True(t, job.ShouldRetry())
	job.ScheduleRetry(time.Minute)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Empty(t, job.Error)

	job.Fail("boom again")
	assert.False(t, job.ShouldRetry())
}

func TestJob_BackoffDoubles(t *testing.T) {
	job := NewJob(JobKindGeneratePayouts, uuid.New(), time.Now(), 10)
	var delays []time.Duration
	for range 3 {
		before := time.Now()
		job.Fail("x")
		job.ScheduleRetry(time.Minute)
		delays = append(delays, job.NextRetryAt.Sub(before).Round(time.Minute))
	}
	assert.Equal(t, []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute}, delays)

	job.RetryCount = 8
	before := time.Now()
	job.ScheduleRetry(time.Minute)
	assert.LessOrEqual(t, job.NextRetryAt.Sub(before), maxBackoff+time.Second)
}

func TestScheduler_RejectsDuplicateJobs(t *testing.T) {
	block := make(chan struct{})
	s := NewScheduler(testConfig(), executorFunc(func(ctx context.Context, _ *Job) error {
		<-block
		return nil
	}), nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	tenant := uuid.New()
	monday := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SchedulePayouts(tenant, monday))
	assert.ErrorIs(t, s.SchedulePayouts(tenant, monday.Add(3*time.Hour)), ErrJobAlreadyQueued)
	assert.NoError(t, s.SchedulePayouts(tenant, monday.AddDate(0, 0, 1)))
	assert.NoError(t, s.SchedulePayouts(uuid.New(), monday))

	close(block)
	assert.Eventually(t, func() bool { return s.SchedulePayouts(tenant, monday) == nil }, time.Second, 5*time.Millisecond)
}

func TestScheduler_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.QueueSize = 1
	s := NewScheduler(cfg, &recordingExecutor{}, nil)
	s.running = true // accept submissions without workers draining the queue

	require.NoError(t, s.SchedulePayouts(uuid.New(), time.Now()))
	assert.ErrorIs(t, s.SchedulePayouts(uuid.New(), time.Now()), ErrJobQueueFull)
}

func TestScheduler_SubmitRequiresRunning(t *testing.T) {
	s := NewScheduler(testConfig(), &recordingExecutor{}, nil)
	err := s.SchedulePayouts(uuid.New(), time.Now())
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduler_RetriesFailedJobs(t *testing.T) {
	executor := &recordingExecutor{failures: 1}
	s := NewScheduler(testConfig(), executor, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	require.NoError(t, s.SchedulePayouts(uuid.New(), time.Now()))
	assert.Eventually(t, func() bool { return executor.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestCronTrigger_OncePerTenantPerDay(t *testing.T) {
	executor := &recordingExecutor{}
	s := NewScheduler(testConfig(), executor, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	tenants := staticTenants{uuid.New(), uuid.New()}
	trigger := NewCronTrigger(DefaultCronTriggerConfig(), s, tenants, nil)
	day := time.Date(2026, time.March, 9, 2, 0, 0, 0, time.UTC)
	trigger.now = func() time.Time { return day }

	assert.Equal(t, 2, trigger.Trigger(context.Background()))
	assert.Equal(t, 0, trigger.Trigger(context.Background()))

	day = day.AddDate(0, 0, 1)
	assert.Equal(t, 2, trigger.Trigger(context.Background()))
	assert.Eventually(t, func() bool { return executor.count() == 4 }, time.Second, 5*time.Millisecond)
}

func TestPayoutJobExecutor(t *testing.T) {
	tenant := uuid.New()
	asOf := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

	var gotTenant uuid.UUID
	var gotAsOf time.Time
	executor := NewPayoutJobExecutor(func(ctx context.Context, tenantID uuid.UUID, at time.Time) (int, int, error) {
		gotTenant, gotAsOf = tenantID, at
		return 1, 0, nil
	}, nil)

	require.NoError(t, executor.Execute(context.Background(), NewJob(JobKindGeneratePayouts, tenant, asOf, 0)))
	assert.Equal(t, tenant, gotTenant)
	assert.True(t, gotAsOf.Equal(asOf))

	err := executor.Execute(context.Background(), NewJob(JobKind("REBUILD"), tenant, asOf, 0))
	assert.ErrorIs(t, err, ErrUnknownJobKind)

	failing := NewPayoutJobExecutor(func(context.Context, uuid.UUID, time.Time) (int, int, error) {
		return 0, 0, errors.New("db down")
	}, nil)
	assert.ErrorContains(t, failing.Execute(context.Background(), NewJob(JobKindGeneratePayouts, tenant, asOf, 0)), "db down")
}
