// Package client provides the API client for interacting with the atelier API
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/types"
	"github.com/atelierhq/atelier/pkg/api/v1/routes"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client is the interface for API client
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Project endpoints
	CreateProject(ctx context.Context, req types.CreateProjectRequest) (models.Project, error)
	GetProject(ctx context.Context, id uint) (models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	PlanProject(ctx context.Context, id uint) ([]models.Goal, error)

	// Goal endpoints
	ListGoals(ctx context.Context, projectID uint) ([]models.Goal, error)
	ScoreGoals(ctx context.Context, projectID uint) (int, error)
	NextGoals(ctx context.Context, projectID uint, n int) ([]models.Goal, error)

	// Run endpoints
	KickoffRun(ctx context.Context, projectID uint, pipeline string) (models.Run, error)
	ListRuns(ctx context.Context, projectID uint) ([]models.Run, error)
	GetRun(ctx context.Context, id uint) (models.Run, error)

	// Job endpoints
	EnqueueJob(ctx context.Context, projectID uint, req types.EnqueueJobRequest) (models.Job, error)
	ListJobs(ctx context.Context, projectID uint, status string) ([]models.Job, error)
	GetJob(ctx context.Context, id uint) (models.Job, error)

	// Proof endpoints
	ListProofs(ctx context.Context, projectID uint) ([]models.Proof, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: opts.Timeout,
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	case http.MethodPut:
		agent = fiber.Put(fullURL)
	case http.MethodDelete:
		agent = fiber.Delete(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Timeout from context deadline when one is set, client default otherwise.
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")

	if body != nil {
		agent.JSON(body)
	}
	return agent, nil
}

// doRequest sends the HTTP request and decodes the response into v
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) error {
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	if statusCode < 200 || statusCode >= 300 {
		return &fiber.Error{
			Code:    statusCode,
			Message: string(body),
		}
	}

	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}
	return nil
}

// executeRequest creates an agent, sends the request, and processes the response
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	return c.doRequest(agent, response)
}

// HealthCheck checks the API health status
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	var response map[string]string
	err := c.executeRequest(ctx, http.MethodGet, routes.HealthCheckURL(), nil, &response)
	return response, err
}

// CreateProject creates a new project
func (c *APIClient) CreateProject(ctx context.Context, req types.CreateProjectRequest) (models.Project, error) {
	var project models.Project
	err := c.executeRequest(ctx, http.MethodPost, routes.ProjectsURL(), req, &project)
	return project, err
}

// GetProject retrieves a project by ID
func (c *APIClient) GetProject(ctx context.Context, id uint) (models.Project, error) {
	var project models.Project
	err := c.executeRequest(ctx, http.MethodGet, routes.ProjectURL(id), nil, &project)
	return project, err
}

// ListProjects retrieves all projects
func (c *APIClient) ListProjects(ctx context.Context) ([]models.Project, error) {
	var response types.ListResponse[models.Project]
	err := c.executeRequest(ctx, http.MethodGet, routes.ProjectsURL(), nil, &response)
	return response.Rows, err
}

// PlanProject asks the planner for goals derived from the project prompt
func (c *APIClient) PlanProject(ctx context.Context, id uint) ([]models.Goal, error) {
	var response types.ListResponse[models.Goal]
	err := c.executeRequest(ctx, http.MethodPost, routes.ProjectPlanURL(id), nil, &response)
	return response.Rows, err
}

// ListGoals retrieves a project's goals
func (c *APIClient) ListGoals(ctx context.Context, projectID uint) ([]models.Goal, error) {
	var response types.ListResponse[models.Goal]
	err := c.executeRequest(ctx, http.MethodGet, routes.ProjectGoalsURL(projectID), nil, &response)
	return response.Rows, err
}

// ScoreGoals re-scores a project's schedulable goals
func (c *APIClient) ScoreGoals(ctx context.Context, projectID uint) (int, error) {
	var response types.ScoreResponse
	err := c.executeRequest(ctx, http.MethodPost, routes.ProjectGoalsScoreURL(projectID), nil, &response)
	return response.Scored, err
}

// NextGoals retrieves the prioritized next-actions slice
func (c *APIClient) NextGoals(ctx context.Context, projectID uint, n int) ([]models.Goal, error) {
	var response types.ListResponse[models.Goal]
	err := c.executeRequest(ctx, http.MethodGet, routes.ProjectGoalsNextURL(projectID, n), nil, &response)
	return response.Rows, err
}

// KickoffRun creates a run and enqueues its first stage
func (c *APIClient) KickoffRun(ctx context.Context, projectID uint, pipeline string) (models.Run, error) {
	var run models.Run
	req := types.KickoffRunRequest{Pipeline: pipeline}
	err := c.executeRequest(ctx, http.MethodPost, routes.ProjectRunsURL(projectID), req, &run)
	return run, err
}

// ListRuns retrieves a project's runs
func (c *APIClient) ListRuns(ctx context.Context, projectID uint) ([]models.Run, error) {
	var response types.ListResponse[models.Run]
	err := c.executeRequest(ctx, http.MethodGet, routes.ProjectRunsURL(projectID), nil, &response)
	return response.Rows, err
}

// GetRun retrieves a run by ID
func (c *APIClient) GetRun(ctx context.Context, id uint) (models.Run, error) {
	var run models.Run
	err := c.executeRequest(ctx, http.MethodGet, routes.RunURL(id), nil, &run)
	return run, err
}

// EnqueueJob enqueues a job for the project
func (c *APIClient) EnqueueJob(ctx context.Context, projectID uint, req types.EnqueueJobRequest) (models.Job, error) {
	var job models.Job
	err := c.executeRequest(ctx, http.MethodPost, routes.ProjectJobsURL(projectID, nil), req, &job)
	return job, err
}

// ListJobs retrieves a project's jobs, optionally filtered by status
func (c *APIClient) ListJobs(ctx context.Context, projectID uint, status string) ([]models.Job, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var response types.ListResponse[models.Job]
	err := c.executeRequest(ctx, http.MethodGet, routes.ProjectJobsURL(projectID, query), nil, &response)
	return response.Rows, err
}

// GetJob retrieves a job by ID
func (c *APIClient) GetJob(ctx context.Context, id uint) (models.Job, error) {
	var job models.Job
	err := c.executeRequest(ctx, http.MethodGet, routes.JobURL(id), nil, &job)
	return job, err
}

// ListProofs retrieves a project's proofs
func (c *APIClient) ListProofs(ctx context.Context, projectID uint) ([]models.Proof, error) {
	var response types.ListResponse[models.Proof]
	err := c.executeRequest(ctx, http.MethodGet, routes.ProjectProofsURL(projectID, nil), nil, &response)
	return response.Rows, err
}
