package handlers

import (
	"fmt"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/pipeline"
	"github.com/atelierhq/atelier/internal/services"
	"github.com/atelierhq/atelier/internal/types"
)

// RunHandler handles HTTP requests for pipeline run operations
type RunHandler struct {
	runs *services.Run
}

// NewRunHandler creates a new run handler instance
func NewRunHandler(runs *services.Run) *RunHandler {
	return &RunHandler{runs: runs}
}

// KickoffRun creates an active run and enqueues its first stage
func (h *RunHandler) KickoffRun(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	req := types.KickoffRunRequest{Pipeline: pipeline.PipelineDelivery}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(types.ErrInvalidInput(fmt.Sprintf("invalid request body: %v", err)))
		}
	}

	run, err := h.runs.Kickoff(c.Context(), projectID, req.Pipeline)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(err.Error()))
	}
	return c.Status(fiber.StatusCreated).JSON(run)
}

// ListRuns handles the request to list a project's runs
func (h *RunHandler) ListRuns(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	opts := listOptions(c)
	runs, err := h.runs.List(c.Context(), projectID, opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrInternal("failed to list runs", err.Error()))
	}
	return c.JSON(types.ListResponse[models.Run]{
		Rows: runs,
		Pagination: types.PaginationResponse{
			Total:  len(runs),
			Limit:  opts.Limit,
			Offset: opts.Offset,
		},
	})
}

// GetRun returns details of a specific run
func (h *RunHandler) GetRun(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	run, err := h.runs.Get(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).
			JSON(types.ErrNotFound(fmt.Sprintf("run %d not found", id)))
	}
	return c.JSON(run)
}
