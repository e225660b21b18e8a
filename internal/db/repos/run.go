package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atelierhq/atelier/internal/db/models"
)

// RunRepository handles database operations for pipeline runs
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new instance of RunRepository
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create creates a new run in the database
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// GetByID retrieves a run by ID from the database
func (r *RunRepository) GetByID(ctx context.Context, id uint) (*models.Run, error) {
	var run models.Run
	err := r.db.WithContext(ctx).First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("run %d not found: %w", id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListByProject retrieves all runs for a project, newest first, with
// pagination.
func (r *RunRepository) ListByProject(ctx context.Context, projectID uint, opts *models.ListOptions) ([]models.Run, error) {
	opts = opts.WithDefaults()
	var runs []models.Run
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&runs).Error
	return runs, err
}

// SetCurrentTask points an active run at the job presently executing.
func (r *RunRepository) SetCurrentTask(ctx context.Context, id uint, taskID *uint) error {
	return r.db.WithContext(ctx).Model(&models.Run{}).
		Where("id = ?", id).
		Update("current_task_id", taskID).Error
}

// Finish moves a run into a terminal state. The update is conditional on the
// run still being active so a run never leaves completed or failed.
func (r *RunRepository) Finish(ctx context.Context, id uint, state models.RunState) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Run{}).
		Where("id = ? AND "+models.RunStateField+" = ?", id, models.RunStateActive).
		Updates(map[string]interface{}{
			models.RunStateField: state,
			"current_task_id":    nil,
			"completed_at":       now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to finish run %d: %w", id, res.Error)
	}
	return nil
}
