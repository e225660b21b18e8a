// Package services provides business logic implementation for the API
package services

import (
	"context"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/db/repos"
)

// Project handles project-related operations
type Project struct {
	repo *repos.ProjectRepository
}

// NewProjectService creates a new instance of Project
func NewProjectService(repo *repos.ProjectRepository) *Project {
	return &Project{repo: repo}
}

// Create creates a new project
func (s *Project) Create(ctx context.Context, project *models.Project) error {
	return s.repo.Create(ctx, project)
}

// Get retrieves a project by ID
func (s *Project) Get(ctx context.Context, id uint) (*models.Project, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByName retrieves a project by name
func (s *Project) GetByName(ctx context.Context, name string) (*models.Project, error) {
	return s.repo.GetByName(ctx, name)
}

// List retrieves all projects with pagination
func (s *Project) List(ctx context.Context, opts *models.ListOptions) ([]models.Project, error) {
	return s.repo.List(ctx, opts)
}

// Delete deletes a project by ID
func (s *Project) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
