// Package app assembles the fiber application from the wired services.
package app

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/atelierhq/atelier/internal/api/v1/handlers"
	"github.com/atelierhq/atelier/internal/api/v1/middleware"
	"github.com/atelierhq/atelier/internal/api/v1/routes"
	"github.com/atelierhq/atelier/internal/events"
	"github.com/atelierhq/atelier/internal/services"
)

// Services bundles the wired business logic the API serves.
type Services struct {
	Projects    *services.Project
	Goals       *services.Goal
	Runs        *services.Run
	Jobs        *services.Job
	Proofs      *services.Proof
	Broadcaster *events.Broadcaster
}

// New builds the fiber app with middleware and v1 routes registered.
func New(s Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "atelier",
		ErrorHandler: errorHandler,
	})

	app.Use(middleware.Logger())

	routes.RegisterRoutes(app, routes.Handlers{
		Projects: handlers.NewProjectHandler(s.Projects, s.Goals),
		Goals:    handlers.NewGoalHandler(s.Goals),
		Runs:     handlers.NewRunHandler(s.Runs),
		Jobs:     handlers.NewJobHandler(s.Jobs),
		Proofs:   handlers.NewProofHandler(s.Proofs),
		Events:   handlers.NewEventsHandler(s.Broadcaster),
	})

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
