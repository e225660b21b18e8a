package repos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/atelierhq/atelier/internal/db/models"
)

// RepositoryTestSuite provides a base test suite for repository tests backed
// by an in-memory sqlite database.
type RepositoryTestSuite struct {
	suite.Suite
	db          *gorm.DB
	ctx         context.Context
	projectRepo *ProjectRepository
	goalRepo    *GoalRepository
	jobRepo     *JobRepository
	runRepo     *RunRepository
	proofRepo   *ProofRepository
}

func (s *RepositoryTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_json=1"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err, "Failed to create in-memory database")

	// A single connection serializes writes; sqlite returns lock errors
	// otherwise when tests exercise concurrent claims.
	sqlDB, err := db.DB()
	require.NoError(s.T(), err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Project{},
		&models.Goal{},
		&models.Job{},
		&models.Run{},
		&models.Proof{},
	)
	require.NoError(s.T(), err, "Failed to run database migrations")

	s.db = db
	s.projectRepo = NewProjectRepository(db)
	s.goalRepo = NewGoalRepository(db)
	s.jobRepo = NewJobRepository(db)
	s.runRepo = NewRunRepository(db)
	s.proofRepo = NewProofRepository(db)
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}

// Helper methods for creating test data

func (s *RepositoryTestSuite) createTestProject() *models.Project {
	project := &models.Project{
		Name:        "test-project-" + time.Now().Format(time.RFC3339Nano),
		Description: "project used by repository tests",
	}
	err := s.projectRepo.Create(s.ctx, project)
	s.Require().NoError(err)
	return project
}

func (s *RepositoryTestSuite) createTestGoal(projectID uint) *models.Goal {
	goal := &models.Goal{
		ProjectID:   projectID,
		Title:       "test-goal-" + time.Now().Format(time.RFC3339Nano),
		Description: "goal used by repository tests",
		Status:      models.GoalStatusPending,
	}
	err := s.goalRepo.Create(s.ctx, goal)
	s.Require().NoError(err)
	return goal
}

func (s *RepositoryTestSuite) createTestJob(projectID uint, kind models.JobKind) *models.Job {
	job := &models.Job{
		ProjectID: projectID,
		Kind:      kind,
		Status:    models.JobStatusQueued,
		Payload:   json.RawMessage(`{"template":"basic"}`),
	}
	err := s.jobRepo.Create(s.ctx, job)
	s.Require().NoError(err)
	return job
}
