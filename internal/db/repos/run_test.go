package repos

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/atelierhq/atelier/internal/db/models"
)

type RunRepositoryTestSuite struct {
	RepositoryTestSuite
}

func (s *RunRepositoryTestSuite) createTestRun(projectID uint) *models.Run {
	run := &models.Run{ProjectID: projectID, Pipeline: "delivery"}
	s.Require().NoError(s.runRepo.Create(s.ctx, run))
	return run
}

func (s *RunRepositoryTestSuite) TestCreateRunDefaultsToActive() {
	project := s.createTestProject()
	run := s.createTestRun(project.ID)
	s.Require().NotZero(run.ID)
	s.Require().Equal(models.RunStateActive, run.State)
}

func (s *RunRepositoryTestSuite) TestSetCurrentTask() {
	project := s.createTestProject()
	run := s.createTestRun(project.ID)
	job := s.createTestJob(project.ID, models.KindScaffold)

	s.Require().NoError(s.runRepo.SetCurrentTask(s.ctx, run.ID, &job.ID))

	found, err := s.runRepo.GetByID(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.CurrentTaskID)
	s.Require().Equal(job.ID, *found.CurrentTaskID)
}

func (s *RunRepositoryTestSuite) TestFinishIsTerminal() {
	project := s.createTestProject()
	run := s.createTestRun(project.ID)

	s.Require().NoError(s.runRepo.Finish(s.ctx, run.ID, models.RunStateCompleted))

	finished, err := s.runRepo.GetByID(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.RunStateCompleted, finished.State)
	s.Require().NotNil(finished.CompletedAt)

	// Finishing again must not flip a completed run to failed.
	s.Require().NoError(s.runRepo.Finish(s.ctx, run.ID, models.RunStateFailed))
	finished, err = s.runRepo.GetByID(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.RunStateCompleted, finished.State)
}

func (s *RunRepositoryTestSuite) TestListByProject() {
	project := s.createTestProject()
	s.createTestRun(project.ID)
	s.createTestRun(project.ID)

	runs, err := s.runRepo.ListByProject(s.ctx, project.ID, nil)
	s.Require().NoError(err)
	s.Require().Len(runs, 2)
}

func TestRunRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RunRepositoryTestSuite))
}
