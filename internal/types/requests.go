package types

import "encoding/json"

// CreateProjectRequest is the body for POST /projects.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
}

// KickoffRunRequest is the body for POST /projects/:id/runs.
type KickoffRunRequest struct {
	Pipeline string `json:"pipeline"`
}

// EnqueueJobRequest is the body for POST /projects/:id/jobs.
type EnqueueJobRequest struct {
	Kind    string          `json:"kind"`
	GoalID  *uint           `json:"goal_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ScoreResponse reports a re-scoring pass.
type ScoreResponse struct {
	Scored int `json:"scored"`
}
