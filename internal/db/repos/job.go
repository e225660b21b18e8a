package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atelierhq/atelier/internal/db/models"
)

// Contract errors surfaced by conditional job updates. Callers rely on these
// to tell a benign race apart from a real failure.
var (
	// ErrJobNotRunning is returned when a completion or failure report finds
	// the job no longer in the running state, e.g. a double MarkDone.
	ErrJobNotRunning = errors.New("job is not running")
)

// JobRepository handles database operations for queued jobs. All cross-worker
// coordination happens through its conditional updates: a row moves from
// queued to running (and out of running) only when the WHERE clause still
// matches, so concurrent workers can never both win the same transition.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new instance of JobRepository
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job in the database
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a job by ID from the database
func (r *JobRepository) GetByID(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).First(&job, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("job %d not found: %w", id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// List retrieves jobs, optionally filtered by project and status, oldest
// first, with pagination.
func (r *JobRepository) List(ctx context.Context, projectID uint, status models.JobStatus, opts *models.ListOptions) ([]models.Job, error) {
	opts = opts.WithDefaults()
	query := r.db.WithContext(ctx).Model(&models.Job{})
	if projectID != 0 {
		query = query.Where("project_id = ?", projectID)
	}
	if status != "" && status != models.JobStatusUnknown {
		query = query.Where(models.JobStatusField+" = ?", status)
	}
	var jobs []models.Job
	err := query.Order("id ASC").Limit(opts.Limit).Offset(opts.Offset).Find(&jobs).Error
	return jobs, err
}

// CountByProject returns the number of jobs a project has in any status.
func (r *JobRepository) CountByProject(ctx context.Context, projectID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	return count, err
}

// ClaimNext atomically claims the oldest queued job whose run_after time has
// passed, optionally scoped to a project. The claim is a single conditional
// UPDATE guarded on status=queued; if another worker wins the race the next
// candidate is tried. Returns (nil, nil) when nothing is claimable.
func (r *JobRepository) ClaimNext(ctx context.Context, projectID uint) (*models.Job, error) {
	now := time.Now().UTC()

	for {
		var candidate models.Job
		query := r.db.WithContext(ctx).
			Where(models.JobStatusField+" = ?", models.JobStatusQueued).
			Where("run_after <= ?", now)
		if projectID != 0 {
			query = query.Where("project_id = ?", projectID)
		}
		err := query.Order("id ASC").First(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to select claimable job: %w", err)
		}

		res := r.db.WithContext(ctx).Model(&models.Job{}).
			Where("id = ? AND "+models.JobStatusField+" = ?", candidate.ID, models.JobStatusQueued).
			Updates(map[string]interface{}{
				models.JobStatusField: models.JobStatusRunning,
				"started_at":          now,
			})
		if res.Error != nil {
			return nil, fmt.Errorf("failed to claim job %d: %w", candidate.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the race to another worker; try the next candidate.
			continue
		}

		candidate.Status = models.JobStatusRunning
		candidate.StartedAt = &now
		return &candidate, nil
	}
}

// CompleteIfRunning marks a running job done and stores its result. Returns
// ErrJobNotRunning when the job is not in the running state, so a
// double-completion is observable rather than silently swallowed.
func (r *JobRepository) CompleteIfRunning(ctx context.Context, id uint, result json.RawMessage) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND "+models.JobStatusField+" = ?", id, models.JobStatusRunning).
		Updates(map[string]interface{}{
			models.JobStatusField: models.JobStatusDone,
			"result":              result,
			"completed_at":        now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to complete job %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("complete job %d: %w", id, ErrJobNotRunning)
	}
	return nil
}

// RequeueIfRunning puts a running job back in the queued pool for another
// attempt, recording the failure and the earliest time it may be claimed
// again.
func (r *JobRepository) RequeueIfRunning(ctx context.Context, id uint, attempt int, errMsg string, runAfter time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND "+models.JobStatusField+" = ?", id, models.JobStatusRunning).
		Updates(map[string]interface{}{
			models.JobStatusField: models.JobStatusQueued,
			"attempt":             attempt,
			"error":               errMsg,
			"run_after":           runAfter,
			"started_at":          nil,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to requeue job %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("requeue job %d: %w", id, ErrJobNotRunning)
	}
	return nil
}

// FailIfRunning terminally fails a running job, recording the last error and
// the final attempt count.
func (r *JobRepository) FailIfRunning(ctx context.Context, id uint, attempt int, errMsg string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND "+models.JobStatusField+" = ?", id, models.JobStatusRunning).
		Updates(map[string]interface{}{
			models.JobStatusField: models.JobStatusFailed,
			"attempt":             attempt,
			"error":               errMsg,
			"completed_at":        now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to fail job %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("fail job %d: %w", id, ErrJobNotRunning)
	}
	return nil
}

// RequeueStale converts running jobs whose started_at is older than the
// cutoff back into retry candidates. A worker that died mid-job leaves its
// claim behind; this is the watchdog path that recovers those rows.
func (r *JobRepository) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where(models.JobStatusField+" = ? AND started_at < ?", models.JobStatusRunning, cutoff).
		Updates(map[string]interface{}{
			models.JobStatusField: models.JobStatusQueued,
			"attempt":             gorm.Expr("attempt + 1"),
			"started_at":          nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to requeue stale jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
