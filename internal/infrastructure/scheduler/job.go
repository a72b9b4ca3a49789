package scheduler

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is where a job is in its lifecycle
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobKind identifies what a job does
type JobKind string

// JobKindGeneratePayouts batches the unpaid commissions of every partner
// whose payout schedule is due on AsOf
const JobKindGeneratePayouts JobKind = "GENERATE_PAYOUTS"

// maxBackoff caps the delay between retries
const maxBackoff = 30 * time.Minute

// Job is one unit of background work for one tenant and business day
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	TenantID    uuid.UUID
	AsOf        time.Time
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time
}

// NewJob creates a pending job
func NewJob(kind JobKind, tenantID uuid.UUID, asOf time.Time, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Kind:       kind,
		TenantID:   tenantID,
		AsOf:       asOf,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// dedupKey identifies jobs that would do the same work. Generating payouts
// twice for one tenant and day is harmless but wasteful: the second pass
// finds every commission already claimed.
func (j *Job) dedupKey() string {
	return string(j.Kind) + "|" + j.TenantID.String() + "|" + j.AsOf.Format(time.DateOnly)
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail records the error of the last attempt
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry reports whether a failed job has attempts left
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry puts the job back to pending. The delay doubles with every
// attempt: base, 2*base, 4*base, up to 30 minutes.
func (j *Job) ScheduleRetry(base time.Duration) {
	delay := base << j.RetryCount
	if delay <= 0 || delay > maxBackoff {
		delay = maxBackoff
	}
	j.RetryCount++
	j.Status = JobStatusPending
	next := time.Now().Add(delay)
	j.NextRetryAt = &next
	j.Error = ""
}
