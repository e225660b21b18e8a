package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/db/repos"
	"github.com/atelierhq/atelier/internal/logger"
	"github.com/atelierhq/atelier/internal/pipeline"
	"github.com/atelierhq/atelier/internal/queue"
)

// DefaultScaffoldTemplate is what new delivery runs scaffold from when the
// project does not say otherwise.
const DefaultScaffoldTemplate = "webapp"

// Run kicks off and tracks pipeline runs. The worker advances them; this
// service only creates them and reads them back.
type Run struct {
	runs     *repos.RunRepository
	projects *repos.ProjectRepository
	queue    *queue.Queue
}

// NewRunService creates a new instance of Run
func NewRunService(runs *repos.RunRepository, projects *repos.ProjectRepository, q *queue.Queue) *Run {
	return &Run{runs: runs, projects: projects, queue: q}
}

// Get retrieves a run by ID
func (s *Run) Get(ctx context.Context, id uint) (*models.Run, error) {
	return s.runs.GetByID(ctx, id)
}

// List retrieves all runs for a project with pagination
func (s *Run) List(ctx context.Context, projectID uint, opts *models.ListOptions) ([]models.Run, error) {
	return s.runs.ListByProject(ctx, projectID, opts)
}

// Kickoff creates an active run for the named pipeline and enqueues its
// first stage. The worker drives everything after that.
func (s *Run) Kickoff(ctx context.Context, projectID uint, pipelineName string) (*models.Run, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	first, ok := pipeline.FirstStage(pipelineName)
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q (known: %v)", pipelineName, pipeline.KnownPipelines())
	}

	payload, err := s.initialPayload(pipelineName, project)
	if err != nil {
		return nil, err
	}

	run := &models.Run{
		ProjectID: projectID,
		Pipeline:  pipelineName,
		State:     models.RunStateActive,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	runID := run.ID
	job, err := s.queue.Enqueue(ctx, queue.EnqueueRequest{
		ProjectID: projectID,
		RunID:     &runID,
		Kind:      first,
		Payload:   payload,
	})
	if err != nil {
		// Leave no orphaned active run behind.
		if finishErr := s.runs.Finish(ctx, run.ID, models.RunStateFailed); finishErr != nil {
			logger.Errorf("Failed to fail run %d after enqueue error: %v", run.ID, finishErr)
		}
		return nil, err
	}

	logger.Infof("Kicked off %s run %d for project %d (first job %d)", pipelineName, run.ID, projectID, job.ID)
	return run, nil
}

// initialPayload builds the entry stage's payload from the project record.
func (s *Run) initialPayload(pipelineName string, project *models.Project) (json.RawMessage, error) {
	var payload interface{}
	switch pipelineName {
	case pipeline.PipelineDelivery:
		payload = pipeline.ScaffoldPayload{
			Template: DefaultScaffoldTemplate,
			Spec:     project.Prompt,
		}
	case pipeline.PipelineOps:
		payload = pipeline.OpsDiffPayload{
			BaseRef: "main",
			Goal:    project.Prompt,
		}
	default:
		return nil, fmt.Errorf("no initial payload for pipeline %q", pipelineName)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode initial payload: %w", err)
	}
	return raw, nil
}
