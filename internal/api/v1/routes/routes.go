// Package routes wires the v1 handlers onto the fiber app.
package routes

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/atelierhq/atelier/internal/api/v1/handlers"
	"github.com/atelierhq/atelier/pkg/api/v1/routes"
)

// Handlers bundles everything RegisterRoutes mounts.
type Handlers struct {
	Projects *handlers.ProjectHandler
	Goals    *handlers.GoalHandler
	Runs     *handlers.RunHandler
	Jobs     *handlers.JobHandler
	Proofs   *handlers.ProofHandler
	Events   *handlers.EventsHandler
}

// RegisterRoutes configures all the v1 routes.
//
// NOTE: route ordering matters; fiber matches in registration order, so
// static segments (e.g. /goals/score) must be registered before their
// sibling param routes.
func RegisterRoutes(app *fiber.App, h Handlers) {
	// Health check
	app.Get(routes.HealthCheckURL(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	v1 := app.Group(routes.APIv1Prefix)

	// Event stream
	v1.Get("/events/stream", h.Events.StreamEvents)

	// Project endpoints
	projects := v1.Group("/projects")
	projects.Get("/", h.Projects.ListProjects)
	projects.Post("/", h.Projects.CreateProject)
	projects.Get("/:id", h.Projects.GetProject)
	projects.Post("/:id/plan", h.Projects.PlanProject)

	// Per-project goal endpoints
	projects.Get("/:id/goals", h.Goals.ListGoals)
	projects.Get("/:id/goals/next", h.Goals.NextGoals)
	projects.Post("/:id/goals/score", h.Goals.ScoreGoals)

	// Per-project run and job endpoints
	projects.Get("/:id/runs", h.Runs.ListRuns)
	projects.Post("/:id/runs", h.Runs.KickoffRun)
	projects.Get("/:id/jobs", h.Jobs.ListJobs)
	projects.Post("/:id/jobs", h.Jobs.EnqueueJob)
	projects.Get("/:id/proofs", h.Proofs.ListProofs)

	// Direct lookups
	v1.Get("/runs/:id", h.Runs.GetRun)
	v1.Get("/jobs/:id", h.Jobs.GetJob)
	v1.Put("/goals/:id/status", h.Goals.UpdateGoalStatus)
}
