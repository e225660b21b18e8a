package services

import (
	"context"
	"fmt"
	"time"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/db/repos"
	"github.com/atelierhq/atelier/internal/events"
	"github.com/atelierhq/atelier/internal/logger"
	"github.com/atelierhq/atelier/internal/scoring"
)

// DefaultNextGoals is how many goals the prioritized next-actions slice
// holds.
const DefaultNextGoals = 3

// Goal handles goal planning and prioritization.
type Goal struct {
	goals       *repos.GoalRepository
	projects    *repos.ProjectRepository
	planner     Planner
	engine      *scoring.Engine
	broadcaster *events.Broadcaster
}

// NewGoalService creates a new instance of Goal
func NewGoalService(goals *repos.GoalRepository, projects *repos.ProjectRepository,
	planner Planner, engine *scoring.Engine, broadcaster *events.Broadcaster) *Goal {
	return &Goal{
		goals:       goals,
		projects:    projects,
		planner:     planner,
		engine:      engine,
		broadcaster: broadcaster,
	}
}

// Create creates a single goal
func (s *Goal) Create(ctx context.Context, goal *models.Goal) error {
	return s.goals.Create(ctx, goal)
}

// Get retrieves a goal by ID
func (s *Goal) Get(ctx context.Context, id uint) (*models.Goal, error) {
	return s.goals.GetByID(ctx, id)
}

// List retrieves all goals for a project with pagination
func (s *Goal) List(ctx context.Context, projectID uint, opts *models.ListOptions) ([]models.Goal, error) {
	return s.goals.ListByProject(ctx, projectID, opts)
}

// UpdateStatus moves a goal through its lifecycle
func (s *Goal) UpdateStatus(ctx context.Context, id uint, status models.GoalStatus) error {
	return s.goals.UpdateStatus(ctx, id, status)
}

// Plan asks the planner for goals derived from the project prompt, persists
// them, and scores the batch so they are immediately rankable.
func (s *Goal) Plan(ctx context.Context, projectID uint) ([]models.Goal, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	planned, err := s.planner.Plan(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("planner failed for project %d: %w", projectID, err)
	}

	batch := make([]*models.Goal, len(planned))
	for i := range planned {
		batch[i] = &planned[i]
	}
	if err := s.goals.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to persist planned goals: %w", err)
	}
	logger.Infof("Planned %d goals for project %d", len(planned), projectID)

	if _, err := s.Rescore(ctx, projectID); err != nil {
		return nil, err
	}
	return s.goals.ListByProject(ctx, projectID, nil)
}

// Rescore recomputes the score of every schedulable goal in the project and
// persists the results. Returns the number of goals scored.
func (s *Goal) Rescore(ctx context.Context, projectID uint) (int, error) {
	goals, err := s.goals.ListSchedulable(ctx, projectID)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for i := range goals {
		goal := &goals[i]
		score := s.engine.Score(s.engine.SignalsForGoal(goal, now))
		if err := s.goals.UpdateScore(ctx, goal.ID, score); err != nil {
			return i, fmt.Errorf("failed to store score for goal %d: %w", goal.ID, err)
		}

		if s.broadcaster != nil {
			goalID := goal.ID
			s.broadcaster.Publish(events.Event{
				Type:      events.EventGoalScored,
				ProjectID: projectID,
				GoalID:    &goalID,
				Data: map[string]interface{}{
					"title": goal.Title,
					"score": score,
				},
			})
		}
	}
	return len(goals), nil
}

// Next returns the top-n prioritized goals for the project. n <= 0 takes the
// default slice size.
func (s *Goal) Next(ctx context.Context, projectID uint, n int) ([]models.Goal, error) {
	if n <= 0 {
		n = DefaultNextGoals
	}
	goals, err := s.goals.ListSchedulable(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return scoring.TopN(goals, n), nil
}
