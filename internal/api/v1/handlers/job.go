package handlers

import (
	"fmt"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/services"
	"github.com/atelierhq/atelier/internal/types"
)

// JobHandler handles HTTP requests for job operations
type JobHandler struct {
	jobs *services.Job
}

// NewJobHandler creates a new job handler instance
func NewJobHandler(jobs *services.Job) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// EnqueueJob handles the request to enqueue a job for a project
func (h *JobHandler) EnqueueJob(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	var req types.EnqueueJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(fmt.Sprintf("invalid request body: %v", err)))
	}
	if req.Kind == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput("job kind is required"))
	}

	job, err := h.jobs.Enqueue(c.Context(), projectID, models.JobKind(req.Kind), req.GoalID, req.Payload)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrInternal("failed to enqueue job", err.Error()))
	}
	return c.Status(fiber.StatusCreated).JSON(job)
}

// ListJobs lists a project's jobs, optionally filtered by status
func (h *JobHandler) ListJobs(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	var status models.JobStatus
	if statusStr := c.Query("status"); statusStr != "" {
		status, err = models.ParseJobStatus(statusStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(types.ErrInvalidInput(fmt.Sprintf("invalid job status: %v", err)))
		}
	}

	opts := listOptions(c)
	jobs, err := h.jobs.List(c.Context(), projectID, status, opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrInternal("failed to list jobs", err.Error()))
	}
	return c.JSON(types.ListResponse[models.Job]{
		Rows: jobs,
		Pagination: types.PaginationResponse{
			Total:  len(jobs),
			Limit:  opts.Limit,
			Offset: opts.Offset,
		},
	})
}

// GetJob returns details of a specific job
func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	job, err := h.jobs.Get(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).
			JSON(types.ErrNotFound(fmt.Sprintf("job %d not found", id)))
	}
	return c.JSON(job)
}
