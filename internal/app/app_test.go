package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/db/repos"
	"github.com/atelierhq/atelier/internal/events"
	"github.com/atelierhq/atelier/internal/queue"
	"github.com/atelierhq/atelier/internal/scoring"
	"github.com/atelierhq/atelier/internal/services"
	"github.com/atelierhq/atelier/internal/types"
	"github.com/atelierhq/atelier/pkg/api/v1/routes"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_json=1"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
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
	engine := scoring.NewEngine(scoring.DefaultWeights())

	return New(Services{
		Projects:    services.NewProjectService(projectRepo),
		Goals:       services.NewGoalService(goalRepo, projectRepo, services.NewStubPlanner(), engine, broadcaster),
		Runs:        services.NewRunService(runRepo, projectRepo, q),
		Jobs:        services.NewJobService(jobRepo, q),
		Proofs:      services.NewProofService(proofRepo),
		Broadcaster: broadcaster,
	})
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func createProject(t *testing.T, app *fiber.App) models.Project {
	t.Helper()
	resp, raw := doJSON(t, app, fiber.MethodPost, routes.ProjectsURL(), types.CreateProjectRequest{
		Name:   fmt.Sprintf("api-%d", time.Now().UnixNano()),
		Prompt: "a recipe sharing site",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))

	var project models.Project
	require.NoError(t, json.Unmarshal(raw, &project))
	return project
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)
	resp, raw := doJSON(t, app, fiber.MethodGet, routes.HealthCheckURL(), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"healthy"}`, string(raw))
}

func TestCreateAndGetProject(t *testing.T) {
	app := newTestApp(t)
	project := createProject(t, app)
	require.NotZero(t, project.ID)

	resp, raw := doJSON(t, app, fiber.MethodGet, routes.ProjectURL(project.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got models.Project
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, project.Name, got.Name)
	require.Equal(t, "a recipe sharing site", got.Prompt)
}

func TestCreateProjectRejectsMissingName(t *testing.T) {
	app := newTestApp(t)
	resp, _ := doJSON(t, app, fiber.MethodPost, routes.ProjectsURL(), types.CreateProjectRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetMissingProjectReturns404(t *testing.T) {
	app := newTestApp(t)
	resp, _ := doJSON(t, app, fiber.MethodGet, routes.ProjectURL(9999), nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPlanThenNextGoals(t *testing.T) {
	app := newTestApp(t)
	project := createProject(t, app)

	resp, raw := doJSON(t, app, fiber.MethodPost, routes.ProjectPlanURL(project.ID), nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))

	var planned types.ListResponse[models.Goal]
	require.NoError(t, json.Unmarshal(raw, &planned))
	require.Len(t, planned.Rows, 5)

	resp, raw = doJSON(t, app, fiber.MethodGet, routes.ProjectGoalsNextURL(project.ID, 3), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var next types.ListResponse[models.Goal]
	require.NoError(t, json.Unmarshal(raw, &next))
	require.Len(t, next.Rows, 3)
	require.Equal(t, "Scaffold the initial application", next.Rows[0].Title)
}

func TestScoreGoalsEndpoint(t *testing.T) {
	app := newTestApp(t)
	project := createProject(t, app)

	_, _ = doJSON(t, app, fiber.MethodPost, routes.ProjectPlanURL(project.ID), nil)

	resp, raw := doJSON(t, app, fiber.MethodPost, routes.ProjectGoalsScoreURL(project.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var score types.ScoreResponse
	require.NoError(t, json.Unmarshal(raw, &score))
	require.Equal(t, 5, score.Scored)
}

func TestKickoffRunEnqueuesFirstStage(t *testing.T) {
	app := newTestApp(t)
	project := createProject(t, app)

	resp, raw := doJSON(t, app, fiber.MethodPost, routes.ProjectRunsURL(project.ID),
		types.KickoffRunRequest{Pipeline: "delivery"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))

	var run models.Run
	require.NoError(t, json.Unmarshal(raw, &run))
	require.Equal(t, models.RunStateActive, run.State)

	resp, raw = doJSON(t, app, fiber.MethodGet, routes.ProjectJobsURL(project.ID, nil), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var jobs types.ListResponse[models.Job]
	require.NoError(t, json.Unmarshal(raw, &jobs))
	require.Len(t, jobs.Rows, 1)
	require.Equal(t, models.KindScaffold, jobs.Rows[0].Kind)

	resp, raw = doJSON(t, app, fiber.MethodGet, routes.RunURL(run.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got models.Run
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, run.ID, got.ID)
}

func TestKickoffRejectsUnknownPipeline(t *testing.T) {
	app := newTestApp(t)
	project := createProject(t, app)

	resp, _ := doJSON(t, app, fiber.MethodPost, routes.ProjectRunsURL(project.ID),
		types.KickoffRunRequest{Pipeline: "midnight"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEnqueueAndGetJob(t *testing.T) {
	app := newTestApp(t)
	project := createProject(t, app)

	resp, raw := doJSON(t, app, fiber.MethodPost, routes.ProjectJobsURL(project.ID, nil),
		types.EnqueueJobRequest{
			Kind:    models.KindBuild.String(),
			Payload: json.RawMessage(`{"artifact_uri":"atelier://x"}`),
		})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))

	var job models.Job
	require.NoError(t, json.Unmarshal(raw, &job))
	require.Equal(t, models.JobStatusQueued, job.Status)

	resp, raw = doJSON(t, app, fiber.MethodGet, routes.JobURL(job.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got models.Job
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, models.KindBuild, got.Kind)
}

func TestEnqueueRequiresKind(t *testing.T) {
	app := newTestApp(t)
	project := createProject(t, app)

	resp, _ := doJSON(t, app, fiber.MethodPost, routes.ProjectJobsURL(project.ID, nil),
		types.EnqueueJobRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestListJobsRejectsBadStatusFilter(t *testing.T) {
	app := newTestApp(t)
	project := createProject(t, app)

	resp, _ := doJSON(t, app, fiber.MethodGet,
		routes.ProjectJobsURL(project.ID, nil)+"?status=molten", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestListProofsEmpty(t *testing.T) {
	app := newTestApp(t)
	project := createProject(t, app)

	resp, raw := doJSON(t, app, fiber.MethodGet, routes.ProjectProofsURL(project.ID, nil), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var proofs types.ListResponse[models.Proof]
	require.NoError(t, json.Unmarshal(raw, &proofs))
	require.Empty(t, proofs.Rows)
}

func TestUpdateGoalStatus(t *testing.T) {
	app := newTestApp(t)
	project := createProject(t, app)
	_, _ = doJSON(t, app, fiber.MethodPost, routes.ProjectPlanURL(project.ID), nil)

	resp, raw := doJSON(t, app, fiber.MethodGet, routes.ProjectGoalsURL(project.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var goals types.ListResponse[models.Goal]
	require.NoError(t, json.Unmarshal(raw, &goals))
	require.NotEmpty(t, goals.Rows)

	goalID := goals.Rows[0].ID
	resp, _ = doJSON(t, app, fiber.MethodPut, routes.GoalStatusURL(goalID),
		map[string]string{"status": "completed"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodPut, routes.GoalStatusURL(goalID),
		map[string]string{"status": "molten"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
