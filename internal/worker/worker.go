// Package worker implements the poll loop that drains the job queue: claim,
// dispatch to the handler registry, record the outcome, and advance the
// owning run. One process may host several workers; the queue's atomic claim
// keeps them from executing the same job twice.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/db/repos"
	"github.com/atelierhq/atelier/internal/events"
	"github.com/atelierhq/atelier/internal/logger"
	"github.com/atelierhq/atelier/internal/pipeline"
	"github.com/atelierhq/atelier/internal/queue"
)

// Loop timing defaults
const (
	// DefaultPollInterval is how often an idle worker checks for work.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultStaleAge is how long a job may sit in running before the
	// watchdog assumes its worker died and requeues it.
	DefaultStaleAge = 10 * time.Minute
	// DefaultStaleInterval is the watchdog cadence.
	DefaultStaleInterval = time.Minute
	// DefaultIdleSeedAfter is how long the worker must sit idle before it
	// checks for projects that never had a run kicked off.
	DefaultIdleSeedAfter = 30 * time.Second
)

// RunStarter kicks off a pipeline run for a project. The run service
// implements it; the worker uses it to seed cold projects.
type RunStarter interface {
	Kickoff(ctx context.Context, projectID uint, pipelineName string) (*models.Run, error)
}

// Config holds the loop timing knobs. Zero values take the defaults.
type Config struct {
	PollInterval  time.Duration
	StaleAge      time.Duration
	StaleInterval time.Duration
	IdleSeedAfter time.Duration
	// ProjectID scopes the worker to one project's jobs; zero drains all.
	ProjectID uint
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.StaleAge <= 0 {
		c.StaleAge = DefaultStaleAge
	}
	if c.StaleInterval <= 0 {
		c.StaleInterval = DefaultStaleInterval
	}
	if c.IdleSeedAfter <= 0 {
		c.IdleSeedAfter = DefaultIdleSeedAfter
	}
	return c
}

// Worker drains the queue. It owns no job state itself; every transition
// goes through the queue so the state machine stays in one place.
type Worker struct {
	queue       *queue.Queue
	registry    *pipeline.Registry
	runs        *repos.RunRepository
	jobs        *repos.JobRepository
	projects    *repos.ProjectRepository
	starter     RunStarter
	broadcaster *events.Broadcaster
	cfg         Config

	lastWork      time.Time
	lastIdleCheck time.Time
	lastStale     time.Time
}

// New creates a worker. starter may be nil, which disables cold-project
// seeding; broadcaster may be nil.
func New(q *queue.Queue, registry *pipeline.Registry, runs *repos.RunRepository,
	jobs *repos.JobRepository, projects *repos.ProjectRepository,
	starter RunStarter, broadcaster *events.Broadcaster, cfg Config) *Worker {
	return &Worker{
		queue:       q,
		registry:    registry,
		runs:        runs,
		jobs:        jobs,
		projects:    projects,
		starter:     starter,
		broadcaster: broadcaster,
		cfg:         cfg.withDefaults(),
		lastWork:    time.Now().UTC(),
	}
}

// Run polls until the context is cancelled. Handler failures are absorbed
// into the retry path; a store error is fatal and returned so the process
// can exit for supervised restart.
func (w *Worker) Run(ctx context.Context) error {
	logger.Infof("Worker started (poll %s, stale age %s)", w.cfg.PollInterval, w.cfg.StaleAge)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker stopping")
			return nil
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				return fmt.Errorf("worker loop: %w", err)
			}
		}
	}
}

// Tick performs one loop iteration: watchdog, then claim and process jobs
// until the queue is empty, then the idle cold-start check. Exported so the
// loop body is testable without real time passing.
func (w *Worker) Tick(ctx context.Context) error {
	now := time.Now().UTC()
	if now.Sub(w.lastStale) >= w.cfg.StaleInterval {
		w.lastStale = now
		if _, err := w.queue.RequeueStale(ctx, w.cfg.StaleAge); err != nil {
			return fmt.Errorf("stale watchdog: %w", err)
		}
	}

	worked := false
	for {
		job, err := w.queue.ClaimNext(ctx, w.cfg.ProjectID)
		if err != nil {
			return fmt.Errorf("claim: %w", err)
		}
		if job == nil {
			break
		}
		worked = true
		w.lastWork = time.Now().UTC()
		w.process(ctx, job)
	}

	if !worked {
		return w.maybeSeedIdleProjects(ctx)
	}
	return nil
}

// process runs one claimed job end to end. Nothing in here may return an
// error to the loop: handler problems feed the retry path and the loop keeps
// going.
func (w *Worker) process(ctx context.Context, job *models.Job) {
	start := time.Now()

	handler, err := w.registry.Resolve(job.Kind)
	if err != nil {
		// A kind nothing handles is a configuration bug; retrying cannot
		// fix it.
		if failErr := w.queue.FailNoRetry(ctx, job, err); failErr != nil {
			logger.Errorf("Failed to record unknown-kind failure for job %d: %v", job.ID, failErr)
		}
		w.failRun(ctx, job)
		return
	}

	w.pointRunAt(ctx, job)

	result, err := w.dispatch(ctx, handler, job)
	elapsed := time.Since(start)

	if err != nil {
		if retryErr := w.queue.MarkErrorOrRetry(ctx, job, err); retryErr != nil {
			if !errors.Is(retryErr, queue.ErrJobNotRunning) {
				logger.Errorf("Failed to record outcome for job %d: %v", job.ID, retryErr)
			}
			return
		}
		if job.Status == models.JobStatusFailed {
			w.failRun(ctx, job)
			w.compensate(ctx, job)
		}
		return
	}

	if err := w.queue.MarkDone(ctx, job, result); err != nil {
		if !errors.Is(err, queue.ErrJobNotRunning) {
			logger.Errorf("Failed to mark job %d done: %v", job.ID, err)
		}
		return
	}
	logger.Debugf("Job %d (%s) done in %s", job.ID, job.Kind, elapsed)

	w.advanceRun(ctx, job, result)
}

// dispatch calls the handler with panic recovery so a bad handler costs one
// attempt, not the process.
func (w *Worker) dispatch(ctx context.Context, handler pipeline.HandlerFunc, job *models.Job) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Handler for job %d (%s) panicked: %v", job.ID, job.Kind, r)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job)
}

// pointRunAt marks the job as its run's current task.
func (w *Worker) pointRunAt(ctx context.Context, job *models.Job) {
	if job.RunID == nil {
		return
	}
	taskID := job.ID
	if err := w.runs.SetCurrentTask(ctx, *job.RunID, &taskID); err != nil {
		logger.Warnf("Failed to set current task on run %d: %v", *job.RunID, err)
	}
}

// advanceRun enqueues the successor stage of the job's run, deriving its
// payload from this stage's result, or finishes the run when the final
// stage completed.
func (w *Worker) advanceRun(ctx context.Context, job *models.Job, result json.RawMessage) {
	if job.RunID == nil {
		return
	}
	run, err := w.runs.GetByID(ctx, *job.RunID)
	if err != nil {
		logger.Errorf("Failed to load run %d for job %d: %v", *job.RunID, job.ID, err)
		return
	}

	if pipeline.IsFinalStage(run.Pipeline, job.Kind) {
		if err := w.runs.Finish(ctx, run.ID, models.RunStateCompleted); err != nil {
			logger.Errorf("Failed to complete run %d: %v", run.ID, err)
			return
		}
		w.publishRunEvent(run, models.RunStateCompleted, map[string]interface{}{
			"final_stage": job.Kind.String(),
		})
		logger.Infof("Run %d (%s) completed", run.ID, run.Pipeline)
		return
	}

	next, ok := pipeline.NextStage(run.Pipeline, job.Kind)
	if !ok {
		// The job's kind is not part of its run's declared sequence; leave
		// the run where it is rather than guess.
		logger.Warnf("Job %d kind %s has no successor in pipeline %s", job.ID, job.Kind, run.Pipeline)
		return
	}

	payload, err := pipeline.NextPayload(job.Kind, result)
	if err != nil {
		logger.Errorf("Failed to derive %s payload from job %d result: %v", next, job.ID, err)
		return
	}

	successor, err := w.queue.Enqueue(ctx, queue.EnqueueRequest{
		ProjectID: job.ProjectID,
		GoalID:    job.GoalID,
		RunID:     job.RunID,
		Kind:      next,
		Payload:   payload,
	})
	if err != nil {
		logger.Errorf("Failed to enqueue %s for run %d: %v", next, run.ID, err)
		return
	}

	w.publishRunEvent(run, run.State, map[string]interface{}{
		"completed_stage": job.Kind.String(),
		"next_stage":      next.String(),
		"next_job_id":     successor.ID,
	})
}

// failRun moves the job's run to failed, if it has one.
func (w *Worker) failRun(ctx context.Context, job *models.Job) {
	if job.RunID == nil {
		return
	}
	if err := w.runs.Finish(ctx, *job.RunID, models.RunStateFailed); err != nil {
		logger.Errorf("Failed to fail run %d: %v", *job.RunID, err)
		return
	}
	run, err := w.runs.GetByID(ctx, *job.RunID)
	if err == nil {
		w.publishRunEvent(run, models.RunStateFailed, map[string]interface{}{
			"failed_stage": job.Kind.String(),
			"error":        job.Error,
		})
	}
	logger.Warnf("Run %d failed at stage %s", *job.RunID, job.Kind)
}

// compensate enqueues the declared compensation stage for a terminally
// failed job, so a half-finished rollout gets rolled back.
func (w *Worker) compensate(ctx context.Context, job *models.Job) {
	comp, ok := pipeline.CompensationStage(job.Kind)
	if !ok {
		return
	}
	payload, err := json.Marshal(pipeline.OpsRollbackPayload{
		Reason: fmt.Sprintf("%s failed: %s", job.Kind, job.Error),
	})
	if err != nil {
		logger.Errorf("Failed to encode rollback payload for job %d: %v", job.ID, err)
		return
	}
	rollback, err := w.queue.Enqueue(ctx, queue.EnqueueRequest{
		ProjectID: job.ProjectID,
		GoalID:    job.GoalID,
		RunID:     job.RunID,
		Kind:      comp,
		Payload:   payload,
	})
	if err != nil {
		logger.Errorf("Failed to enqueue %s after job %d: %v", comp, job.ID, err)
		return
	}
	logger.Infof("Enqueued %s job %d compensating failed job %d", comp, rollback.ID, job.ID)
}

// maybeSeedIdleProjects kicks off a first delivery run for projects that
// have never had any job. It only fires after a sustained idle stretch and
// is guarded by a last-checked timestamp so it never re-enters itself.
func (w *Worker) maybeSeedIdleProjects(ctx context.Context) error {
	if w.starter == nil || w.projects == nil || w.jobs == nil {
		return nil
	}
	now := time.Now().UTC()
	if now.Sub(w.lastWork) < w.cfg.IdleSeedAfter || now.Sub(w.lastIdleCheck) < w.cfg.IdleSeedAfter {
		return nil
	}
	w.lastIdleCheck = now

	projects, err := w.projects.List(ctx, &models.ListOptions{Limit: models.DefaultLimit})
	if err != nil {
		return fmt.Errorf("idle check: %w", err)
	}
	for i := range projects {
		project := &projects[i]
		if w.cfg.ProjectID != 0 && project.ID != w.cfg.ProjectID {
			continue
		}
		count, err := w.jobs.CountByProject(ctx, project.ID)
		if err != nil {
			return fmt.Errorf("idle check: %w", err)
		}
		if count > 0 {
			continue
		}
		run, err := w.starter.Kickoff(ctx, project.ID, pipeline.PipelineDelivery)
		if err != nil {
			logger.Errorf("Failed to seed delivery run for project %d: %v", project.ID, err)
			continue
		}
		logger.Infof("Seeded delivery run %d for cold project %d (%s)", run.ID, project.ID, project.Name)
	}
	return nil
}

func (w *Worker) publishRunEvent(run *models.Run, state models.RunState, data map[string]interface{}) {
	if w.broadcaster == nil {
		return
	}
	runID := run.ID
	w.broadcaster.Publish(events.Event{
		Type:      events.EventRunUpdated,
		ProjectID: run.ProjectID,
		RunID:     &runID,
		Data: mergeData(data, map[string]interface{}{
			"pipeline": run.Pipeline,
			"state":    state.String(),
		}),
	})
}

func mergeData(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = make(map[string]interface{}, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
