package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/db/repos"
	"github.com/atelierhq/atelier/internal/events"
	"github.com/atelierhq/atelier/internal/pipeline"
	"github.com/atelierhq/atelier/internal/queue"
	"github.com/atelierhq/atelier/internal/scoring"
)

type fixture struct {
	projects    *Project
	goals       *Goal
	runs        *Run
	jobs        *Job
	proofs      *Proof
	jobRepo     *repos.JobRepository
	broadcaster *events.Broadcaster
	project     *models.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_json=1"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Project{}, &models.Goal{}, &models.Job{}, &models.Run{}, &models.Proof{},
	))

	projectRepo := repos.NewProjectRepository(db)
	goalRepo := repos.NewGoalRepository(db)
	jobRepo := repos.NewJobRepository(db)
	runRepo := repos.NewRunRepository(db)
	proofRepo := repos.NewProofRepository(db)

	broadcaster := events.NewBroadcaster(128)
	q := queue.New(jobRepo, broadcaster, queue.DefaultConfig())

	f := &fixture{
		projects:    NewProjectService(projectRepo),
		goals:       NewGoalService(goalRepo, projectRepo, NewStubPlanner(), scoring.NewEngine(scoring.DefaultWeights()), broadcaster),
		runs:        NewRunService(runRepo, projectRepo, q),
		jobs:        NewJobService(jobRepo, q),
		proofs:      NewProofService(proofRepo),
		jobRepo:     jobRepo,
		broadcaster: broadcaster,
	}

	f.project = &models.Project{
		Name:   fmt.Sprintf("svc-%d", time.Now().UnixNano()),
		Prompt: "a todo app with auth\nmore detail here",
	}
	require.NoError(t, f.projects.Create(context.Background(), f.project))
	return f
}

func TestPlanPersistsAndScoresGoals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := f.broadcaster.Subscribe()
	defer f.broadcaster.Unsubscribe(sub)

	goals, err := f.goals.Plan(ctx, f.project.ID)
	require.NoError(t, err)
	require.Len(t, goals, 5)

	for _, goal := range goals {
		require.Equal(t, models.GoalStatusPending, goal.Status)
		require.Greater(t, goal.Score, 0.0)
		require.Contains(t, goal.Description, "a todo app with auth")
	}

	scored := 0
	for {
		select {
		case event := <-sub.C:
			if event.Type == events.EventGoalScored {
				scored++
			}
			continue
		default:
		}
		break
	}
	require.Equal(t, 5, scored)
}

func TestPlanIsDeterministic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := NewStubPlanner().Plan(ctx, f.project)
	require.NoError(t, err)
	second, err := NewStubPlanner().Plan(ctx, f.project)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestNextReturnsTopThreeByScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.goals.Plan(ctx, f.project.ID)
	require.NoError(t, err)

	next, err := f.goals.Next(ctx, f.project.ID, 0)
	require.NoError(t, err)
	require.Len(t, next, 3)

	// Highest-priority goal scores highest under the stub plan.
	require.Equal(t, "Scaffold the initial application", next[0].Title)
	for i := 1; i < len(next); i++ {
		require.GreaterOrEqual(t, next[i-1].Score, next[i].Score)
	}
}

func TestNextExcludesTerminalGoals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	goals, err := f.goals.Plan(ctx, f.project.ID)
	require.NoError(t, err)
	for _, goal := range goals {
		require.NoError(t, f.goals.UpdateStatus(ctx, goal.ID, models.GoalStatusCompleted))
	}

	next, err := f.goals.Next(ctx, f.project.ID, 3)
	require.NoError(t, err)
	require.Empty(t, next)
}

func TestKickoffCreatesRunAndFirstJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, err := f.runs.Kickoff(ctx, f.project.ID, pipeline.PipelineDelivery)
	require.NoError(t, err)
	require.Equal(t, models.RunStateActive, run.State)

	queued, err := f.jobs.List(ctx, f.project.ID, models.JobStatusQueued, nil)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	require.Equal(t, models.KindScaffold, queued[0].Kind)
	require.NotNil(t, queued[0].RunID)
	require.Equal(t, run.ID, *queued[0].RunID)
	require.Contains(t, string(queued[0].Payload), "a todo app with auth")
}

func TestKickoffOpsPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, err := f.runs.Kickoff(ctx, f.project.ID, pipeline.PipelineOps)
	require.NoError(t, err)

	queued, err := f.jobs.List(ctx, f.project.ID, models.JobStatusQueued, nil)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	require.Equal(t, models.KindOpsDiff, queued[0].Kind)
	require.Equal(t, run.ID, *queued[0].RunID)
}

func TestKickoffRejectsUnknownPipeline(t *testing.T) {
	f := newFixture(t)

	_, err := f.runs.Kickoff(context.Background(), f.project.ID, "midnight")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown pipeline")

	runs, listErr := f.runs.List(context.Background(), f.project.ID, nil)
	require.NoError(t, listErr)
	require.Empty(t, runs)
}

func TestJobEnqueueAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.jobs.Enqueue(ctx, f.project.ID, models.KindBuild, nil, []byte(`{"artifact_uri":"atelier://x"}`))
	require.NoError(t, err)
	require.Equal(t, models.JobStatusQueued, job.Status)

	got, err := f.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, job.ID, got.ID)
	require.Equal(t, models.KindBuild, got.Kind)
}
