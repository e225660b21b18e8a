// Package routes defines the API URL structure shared by the server and the
// client.
package routes

import (
	"fmt"
	"net/url"
)

// API base configuration
const (
	// DefaultPort is the default port for the API
	DefaultPort = "8080"
	// APIv1Prefix is the prefix for all API endpoints
	APIv1Prefix = "/api/v1"
)

// DefaultBaseURL is the default base URL for the API
var DefaultBaseURL = fmt.Sprintf("http://localhost:%s", DefaultPort)

// HealthCheckURL returns the URL for the health check endpoint
func HealthCheckURL() string {
	return "/health"
}

// ProjectsURL returns the URL for creating and listing projects
func ProjectsURL() string {
	return APIv1Prefix + "/projects"
}

// ProjectURL returns the URL for one project
func ProjectURL(id uint) string {
	return fmt.Sprintf("%s/projects/%d", APIv1Prefix, id)
}

// ProjectPlanURL returns the URL for planning a project's goals
func ProjectPlanURL(id uint) string {
	return ProjectURL(id) + "/plan"
}

// ProjectRunsURL returns the URL for kicking off and listing a project's runs
func ProjectRunsURL(id uint) string {
	return ProjectURL(id) + "/runs"
}

// RunURL returns the URL for one run
func RunURL(id uint) string {
	return fmt.Sprintf("%s/runs/%d", APIv1Prefix, id)
}

// ProjectJobsURL returns the URL for enqueueing and listing a project's jobs
func ProjectJobsURL(id uint, query url.Values) string {
	u := ProjectURL(id) + "/jobs"
	if len(query) > 0 {
		u = fmt.Sprintf("%s?%s", u, query.Encode())
	}
	return u
}

// JobURL returns the URL for one job
func JobURL(id uint) string {
	return fmt.Sprintf("%s/jobs/%d", APIv1Prefix, id)
}

// ProjectGoalsURL returns the URL for listing a project's goals
func ProjectGoalsURL(id uint) string {
	return ProjectURL(id) + "/goals"
}

// ProjectGoalsScoreURL returns the URL for re-scoring a project's goals
func ProjectGoalsScoreURL(id uint) string {
	return ProjectGoalsURL(id) + "/score"
}

// ProjectGoalsNextURL returns the URL for the prioritized next-actions slice
func ProjectGoalsNextURL(id uint, n int) string {
	u := ProjectGoalsURL(id) + "/next"
	if n > 0 {
		u = fmt.Sprintf("%s?n=%d", u, n)
	}
	return u
}

// GoalStatusURL returns the URL for updating one goal's status
func GoalStatusURL(id uint) string {
	return fmt.Sprintf("%s/goals/%d/status", APIv1Prefix, id)
}

// ProjectProofsURL returns the URL for listing a project's proofs
func ProjectProofsURL(id uint, query url.Values) string {
	u := ProjectURL(id) + "/proofs"
	if len(query) > 0 {
		u = fmt.Sprintf("%s?%s", u, query.Encode())
	}
	return u
}

// EventsStreamURL returns the URL for the SSE event stream
func EventsStreamURL(projectID uint) string {
	u := APIv1Prefix + "/events/stream"
	if projectID > 0 {
		u = fmt.Sprintf("%s?project_id=%d", u, projectID)
	}
	return u
}
