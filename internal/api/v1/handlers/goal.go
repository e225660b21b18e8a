package handlers

import (
	"fmt"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/services"
	"github.com/atelierhq/atelier/internal/types"
)

// GoalHandler handles HTTP requests for goal operations
type GoalHandler struct {
	goals *services.Goal
}

// NewGoalHandler creates a new goal handler instance
func NewGoalHandler(goals *services.Goal) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// ListGoals handles the request to list a project's goals
func (h *GoalHandler) ListGoals(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	opts := listOptions(c)
	goals, err := h.goals.List(c.Context(), projectID, opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrInternal("failed to list goals", err.Error()))
	}
	return c.JSON(types.ListResponse[models.Goal]{
		Rows: goals,
		Pagination: types.PaginationResponse{
			Total:  len(goals),
			Limit:  opts.Limit,
			Offset: opts.Offset,
		},
	})
}

// ScoreGoals re-scores every schedulable goal in the project
func (h *GoalHandler) ScoreGoals(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	scored, err := h.goals.Rescore(c.Context(), projectID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrInternal("failed to score goals", err.Error()))
	}
	return c.JSON(types.ScoreResponse{Scored: scored})
}

// NextGoals returns the prioritized next-actions slice for the project
func (h *GoalHandler) NextGoals(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	n := c.QueryInt("n", services.DefaultNextGoals)
	goals, err := h.goals.Next(c.Context(), projectID, n)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrInternal("failed to select next goals", err.Error()))
	}
	return c.JSON(types.ListResponse[models.Goal]{
		Rows:       goals,
		Pagination: types.PaginationResponse{Total: len(goals), Limit: n},
	})
}

// UpdateGoalStatus moves a goal through its lifecycle
func (h *GoalHandler) UpdateGoalStatus(c *fiber.Ctx) error {
	goalID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(fmt.Sprintf("invalid request body: %v", err)))
	}
	status, err := models.ParseGoalStatus(body.Status)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	if err := h.goals.UpdateStatus(c.Context(), goalID, status); err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrInternal("failed to update goal", err.Error()))
	}
	return c.JSON(types.SuccessResponse{Data: fiber.Map{"id": goalID, "status": status}})
}
