package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/atelierhq/atelier/internal/db/models"
)

// GoalRepository handles database operations for goals
type GoalRepository struct {
	db *gorm.DB
}

// NewGoalRepository creates a new instance of GoalRepository
func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

// Create creates a new goal in the database
func (r *GoalRepository) Create(ctx context.Context, goal *models.Goal) error {
	return r.db.WithContext(ctx).Create(goal).Error
}

// CreateBatch creates a batch of goals in the database
func (r *GoalRepository) CreateBatch(ctx context.Context, goals []*models.Goal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(goals, 100).Error
	})
}

// GetByID retrieves a goal by ID from the database
func (r *GoalRepository) GetByID(ctx context.Context, id uint) (*models.Goal, error) {
	var goal models.Goal
	err := r.db.WithContext(ctx).First(&goal, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("goal %d not found: %w", id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return &goal, nil
}

// ListByProject retrieves all goals for a project, oldest first, with
// pagination.
func (r *GoalRepository) ListByProject(ctx context.Context, projectID uint, opts *models.ListOptions) ([]models.Goal, error) {
	opts = opts.WithDefaults()
	var goals []models.Goal
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&goals).Error
	return goals, err
}

// ListSchedulable retrieves every goal of a project still competing for the
// prioritized next-actions slice, oldest first so score ties resolve to the
// older goal.
func (r *GoalRepository) ListSchedulable(ctx context.Context, projectID uint) ([]models.Goal, error) {
	var goals []models.Goal
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Where(models.GoalStatusField+" IN ?", []models.GoalStatus{
			models.GoalStatusPending,
			models.GoalStatusInProgress,
			models.GoalStatusBlocked,
		}).
		Order("id ASC").
		Find(&goals).Error
	return goals, err
}

// UpdateStatus updates the status of a goal
func (r *GoalRepository) UpdateStatus(ctx context.Context, id uint, status models.GoalStatus) error {
	return r.db.WithContext(ctx).Model(&models.Goal{}).
		Where("id = ?", id).
		Update(models.GoalStatusField, status).Error
}

// UpdateScore persists a recomputed score onto a goal
func (r *GoalRepository) UpdateScore(ctx context.Context, id uint, score float64) error {
	return r.db.WithContext(ctx).Model(&models.Goal{}).
		Where("id = ?", id).
		Update(models.GoalScoreField, score).Error
}
