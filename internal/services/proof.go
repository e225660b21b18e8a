package services

import (
	"context"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/db/repos"
)

// Proof reads back the evidence records handlers attach to jobs. Proofs are
// write-once and written only by handlers, so there is no create here.
type Proof struct {
	repo *repos.ProofRepository
}

// NewProofService creates a new instance of Proof
func NewProofService(repo *repos.ProofRepository) *Proof {
	return &Proof{repo: repo}
}

// Get retrieves a proof by ID
func (s *Proof) Get(ctx context.Context, id uint) (*models.Proof, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByProject retrieves a project's proofs with pagination
func (s *Proof) ListByProject(ctx context.Context, projectID uint, opts *models.ListOptions) ([]models.Proof, error) {
	return s.repo.ListByProject(ctx, projectID, opts)
}

// ListByTask retrieves the proofs attached to one job
func (s *Proof) ListByTask(ctx context.Context, taskID uint) ([]models.Proof, error) {
	return s.repo.ListByTask(ctx, taskID)
}
