package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/atelierhq/atelier/internal/db/models"
)

// ProofRepository handles database operations for proofs. Proofs are
// write-once: there is deliberately no update or delete operation here.
type ProofRepository struct {
	db *gorm.DB
}

// NewProofRepository creates a new instance of ProofRepository
func NewProofRepository(db *gorm.DB) *ProofRepository {
	return &ProofRepository{db: db}
}

// Create creates a new proof in the database
func (r *ProofRepository) Create(ctx context.Context, proof *models.Proof) error {
	return r.db.WithContext(ctx).Create(proof).Error
}

// GetByID retrieves a proof by ID from the database
func (r *ProofRepository) GetByID(ctx context.Context, id uint) (*models.Proof, error) {
	var proof models.Proof
	err := r.db.WithContext(ctx).First(&proof, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("proof %d not found: %w", id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proof: %w", err)
	}
	return &proof, nil
}

// ListByProject retrieves all proofs for a project, newest first, with
// pagination.
func (r *ProofRepository) ListByProject(ctx context.Context, projectID uint, opts *models.ListOptions) ([]models.Proof, error) {
	opts = opts.WithDefaults()
	var proofs []models.Proof
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&proofs).Error
	return proofs, err
}

// ListByTask retrieves all proofs attached to one job.
func (r *ProofRepository) ListByTask(ctx context.Context, taskID uint) ([]models.Proof, error) {
	var proofs []models.Proof
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("id ASC").
		Find(&proofs).Error
	return proofs, err
}
