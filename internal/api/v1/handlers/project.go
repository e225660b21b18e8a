// Package handlers provides HTTP request handlers for the API
package handlers

import (
	"fmt"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/services"
	"github.com/atelierhq/atelier/internal/types"
)

// DefaultPageSize is the page size list endpoints use when the query does
// not set one.
const DefaultPageSize = models.DefaultLimit

// listOptions reads the shared pagination query params.
func listOptions(c *fiber.Ctx) *models.ListOptions {
	opts := &models.ListOptions{
		Limit:  c.QueryInt("limit", DefaultPageSize),
		Offset: c.QueryInt("offset", 0),
	}
	return opts.WithDefaults()
}

// paramID reads a positive :id-style route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil {
		return 0, fmt.Errorf("%s is required: %w", name, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return uint(id), nil
}

// ProjectHandler handles HTTP requests for project operations
type ProjectHandler struct {
	projects *services.Project
	goals    *services.Goal
}

// NewProjectHandler creates a new project handler instance
func NewProjectHandler(projects *services.Project, goals *services.Goal) *ProjectHandler {
	return &ProjectHandler{projects: projects, goals: goals}
}

// CreateProject handles the request to create a project
func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	var req types.CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(fmt.Sprintf("invalid request body: %v", err)))
	}

	project := models.Project{
		Name:        req.Name,
		Description: req.Description,
		Prompt:      req.Prompt,
	}
	if err := project.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	if err := h.projects.Create(c.Context(), &project); err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrInternal("failed to create project", err.Error()))
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// ListProjects handles the request to list all projects
func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	opts := listOptions(c)
	projects, err := h.projects.List(c.Context(), opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrInternal("failed to list projects", err.Error()))
	}
	return c.JSON(types.ListResponse[models.Project]{
		Rows: projects,
		Pagination: types.PaginationResponse{
			Total:  len(projects),
			Limit:  opts.Limit,
			Offset: opts.Offset,
		},
	})
}

// GetProject returns details of a specific project
func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	project, err := h.projects.Get(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).
			JSON(types.ErrNotFound(fmt.Sprintf("project %d not found", id)))
	}
	return c.JSON(project)
}

// PlanProject asks the planner for goals derived from the project prompt
func (h *ProjectHandler) PlanProject(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	goals, err := h.goals.Plan(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrInternal("failed to plan project", err.Error()))
	}
	return c.Status(fiber.StatusCreated).JSON(types.ListResponse[models.Goal]{
		Rows:       goals,
		Pagination: types.PaginationResponse{Total: len(goals), Limit: DefaultPageSize},
	})
}
