package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/atelierhq/atelier/internal/db/models"
)

// Planner turns a project prompt into an ordered set of goals. The real
// implementation calls an external model; StubPlanner is the deterministic
// default used when no collaborator is configured, and in tests.
type Planner interface {
	Plan(ctx context.Context, project *models.Project) ([]models.Goal, error)
}

// StubPlanner derives a fixed delivery plan from the project prompt. Same
// prompt in, same goals out.
type StubPlanner struct{}

// NewStubPlanner returns the deterministic planner.
func NewStubPlanner() *StubPlanner {
	return &StubPlanner{}
}

// Plan produces the standard delivery goals for a project. The prompt's
// first line becomes the scope note on each goal.
func (p *StubPlanner) Plan(_ context.Context, project *models.Project) ([]models.Goal, error) {
	if project == nil || project.ID == 0 {
		return nil, fmt.Errorf("planner requires a persisted project")
	}

	scope := project.Prompt
	if i := strings.IndexByte(scope, '\n'); i >= 0 {
		scope = scope[:i]
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = project.Name
	}

	titles := []struct {
		title    string
		priority int
	}{
		{"Scaffold the initial application", 8},
		{"Build and validate the artifact", 6},
		{"Deploy a preview environment", 5},
		{"Verify the deployed preview", 4},
		{"Publish to the audience", 3},
	}

	goals := make([]models.Goal, 0, len(titles))
	for _, t := range titles {
		goals = append(goals, models.Goal{
			ProjectID:   project.ID,
			Title:       t.title,
			Description: fmt.Sprintf("%s (scope: %s)", t.title, scope),
			Status:      models.GoalStatusPending,
			Priority:    t.priority,
		})
	}
	return goals, nil
}
