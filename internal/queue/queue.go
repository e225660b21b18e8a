// Package queue implements the enqueue/claim/complete/retry primitives over
// the store. It owns the atomicity and retry bookkeeping for jobs; no other
// component mutates job status.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/db/repos"
	"github.com/atelierhq/atelier/internal/events"
	"github.com/atelierhq/atelier/internal/logger"
)

// Retry policy defaults
const (
	// DefaultMaxAttempts is how many executions a job gets before it fails
	// terminally.
	DefaultMaxAttempts = 3
	// DefaultBaseBackoff is the delay before the first retry; each further
	// retry doubles it.
	DefaultBaseBackoff = 2 * time.Second
	// DefaultMaxBackoff caps the retry delay.
	DefaultMaxBackoff = 5 * time.Minute
)

// ErrJobNotRunning mirrors the repository sentinel so queue callers don't
// need to import repos to detect a benign completion race.
var ErrJobNotRunning = repos.ErrJobNotRunning

// Config holds the queue's retry policy.
type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultConfig returns the default retry policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		BaseBackoff: DefaultBaseBackoff,
		MaxBackoff:  DefaultMaxBackoff,
	}
}

// EnqueueRequest describes a job to insert. GoalID and RunID are optional.
type EnqueueRequest struct {
	ProjectID uint
	GoalID    *uint
	RunID     *uint
	Kind      models.JobKind
	Payload   json.RawMessage
}

// Queue coordinates job state transitions against the store and publishes an
// event for every transition. Idempotency of Enqueue is the caller's
// responsibility: there is no dedup key, so a producer retrying its own
// request creates a duplicate job.
type Queue struct {
	jobs        *repos.JobRepository
	broadcaster *events.Broadcaster
	cfg         Config
}

// New creates a queue over the given repository and broadcaster.
func New(jobs *repos.JobRepository, broadcaster *events.Broadcaster, cfg Config) *Queue {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	return &Queue{jobs: jobs, broadcaster: broadcaster, cfg: cfg}
}

// MaxAttempts exposes the retry bound for callers that report "retrying
// (2/3)" style states.
func (q *Queue) MaxAttempts() int {
	return q.cfg.MaxAttempts
}

// Enqueue inserts a new queued job. It never blocks on worker availability;
// a store failure is propagated synchronously so the producer knows the job
// was not created. Unknown kinds are accepted here and rejected at dispatch.
func (q *Queue) Enqueue(ctx context.Context, req EnqueueRequest) (*models.Job, error) {
	job := &models.Job{
		ProjectID: req.ProjectID,
		GoalID:    req.GoalID,
		RunID:     req.RunID,
		Kind:      req.Kind,
		Status:    models.JobStatusQueued,
		Payload:   req.Payload,
		RunAfter:  time.Now().UTC(),
	}
	if err := q.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue %s job: %w", req.Kind, err)
	}
	logger.Debugf("Enqueued %s job %d for project %d", job.Kind, job.ID, job.ProjectID)
	return job, nil
}

// ClaimNext atomically claims the oldest claimable job, optionally scoped to
// a project. Returns (nil, nil) when no work is available; that is the idle
// signal, not an error.
func (q *Queue) ClaimNext(ctx context.Context, projectID uint) (*models.Job, error) {
	job, err := q.jobs.ClaimNext(ctx, projectID)
	if err != nil || job == nil {
		return nil, err
	}

	q.publishJobEvent(events.EventJobClaimed, job, map[string]interface{}{
		"kind":    job.Kind.String(),
		"attempt": job.Attempt,
	})
	return job, nil
}

// MarkDone records a successful execution. A job not in the running state
// signals ErrJobNotRunning so double completions stay observable.
func (q *Queue) MarkDone(ctx context.Context, job *models.Job, result json.RawMessage) error {
	if err := q.jobs.CompleteIfRunning(ctx, job.ID, result); err != nil {
		return err
	}
	job.Status = models.JobStatusDone
	job.Result = result

	q.publishJobEvent(events.EventJobCompleted, job, map[string]interface{}{
		"kind": job.Kind.String(),
	})
	return nil
}

// MarkErrorOrRetry is the sole retry path. While attempts remain the job
// re-enters the queued pool behind an exponential, jittered backoff window;
// once they are exhausted it fails terminally.
func (q *Queue) MarkErrorOrRetry(ctx context.Context, job *models.Job, cause error) error {
	errMsg := cause.Error()
	attempt := job.Attempt + 1

	if attempt < q.cfg.MaxAttempts {
		runAfter := time.Now().UTC().Add(q.backoff(attempt))
		if err := q.jobs.RequeueIfRunning(ctx, job.ID, attempt, errMsg, runAfter); err != nil {
			return err
		}
		job.Status = models.JobStatusQueued
		job.Attempt = attempt
		job.Error = errMsg

		logger.Warnf("Job %d (%s) failed, retrying (%d/%d): %v", job.ID, job.Kind, attempt, q.cfg.MaxAttempts, cause)
		q.publishJobEvent(events.EventJobRetried, job, map[string]interface{}{
			"kind":         job.Kind.String(),
			"attempt":      attempt,
			"max_attempts": q.cfg.MaxAttempts,
			"error":        errMsg,
		})
		return nil
	}

	if err := q.jobs.FailIfRunning(ctx, job.ID, attempt, errMsg); err != nil {
		return err
	}
	job.Status = models.JobStatusFailed
	job.Attempt = attempt
	job.Error = errMsg

	logger.Errorf("Job %d (%s) failed terminally after %d attempts: %v", job.ID, job.Kind, attempt, cause)
	q.publishJobEvent(events.EventJobFailed, job, map[string]interface{}{
		"kind":    job.Kind.String(),
		"attempt": attempt,
		"error":   errMsg,
	})
	return nil
}

// FailNoRetry terminally fails a running job without consuming the retry
// budget, for configuration bugs such as an unknown kind where retrying can
// never help.
func (q *Queue) FailNoRetry(ctx context.Context, job *models.Job, cause error) error {
	errMsg := cause.Error()
	if err := q.jobs.FailIfRunning(ctx, job.ID, job.Attempt, errMsg); err != nil {
		return err
	}
	job.Status = models.JobStatusFailed
	job.Error = errMsg

	logger.Errorf("Job %d (%s) failed without retry: %v", job.ID, job.Kind, cause)
	q.publishJobEvent(events.EventJobFailed, job, map[string]interface{}{
		"kind":    job.Kind.String(),
		"attempt": job.Attempt,
		"error":   errMsg,
	})
	return nil
}

// RequeueStale converts running jobs whose claim is older than maxAge back
// into retry candidates. This is the watchdog path for workers that died
// holding a claim.
func (q *Queue) RequeueStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	count, err := q.jobs.RequeueStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.Warnf("Requeued %d stale running jobs older than %s", count, maxAge)
	}
	return count, nil
}

func (q *Queue) backoff(attempt int) time.Duration {
	d := q.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= q.cfg.MaxBackoff {
			d = q.cfg.MaxBackoff
			break
		}
	}
	// Jitter up to half the delay spreads retries from jobs that failed
	// together.
	jitter := time.Duration(rand.Int63n(int64(d/2) + 1))
	d += jitter
	if d > q.cfg.MaxBackoff {
		d = q.cfg.MaxBackoff
	}
	return d
}

func (q *Queue) publishJobEvent(eventType events.EventType, job *models.Job, data map[string]interface{}) {
	if q.broadcaster == nil {
		return
	}
	jobID := job.ID
	q.broadcaster.Publish(events.Event{
		Type:      eventType,
		ProjectID: job.ProjectID,
		JobID:     &jobID,
		GoalID:    job.GoalID,
		RunID:     job.RunID,
		Data:      data,
	})
}
