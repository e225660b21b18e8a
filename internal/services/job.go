package services

import (
	"context"
	"encoding/json"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/db/repos"
	"github.com/atelierhq/atelier/internal/queue"
)

// Job exposes the queue to the API surface: enqueue and read back. All
// status transitions stay inside the queue.
type Job struct {
	jobs  *repos.JobRepository
	queue *queue.Queue
}

// NewJobService creates a new instance of Job
func NewJobService(jobs *repos.JobRepository, q *queue.Queue) *Job {
	return &Job{jobs: jobs, queue: q}
}

// Enqueue inserts a new queued job for the project.
func (s *Job) Enqueue(ctx context.Context, projectID uint, kind models.JobKind, goalID *uint, payload json.RawMessage) (*models.Job, error) {
	return s.queue.Enqueue(ctx, queue.EnqueueRequest{
		ProjectID: projectID,
		GoalID:    goalID,
		Kind:      kind,
		Payload:   payload,
	})
}

// Get retrieves a job by ID
func (s *Job) Get(ctx context.Context, id uint) (*models.Job, error) {
	return s.jobs.GetByID(ctx, id)
}

// List retrieves a project's jobs, optionally filtered by status.
func (s *Job) List(ctx context.Context, projectID uint, status models.JobStatus, opts *models.ListOptions) ([]models.Job, error) {
	return s.jobs.List(ctx, projectID, status, opts)
}
