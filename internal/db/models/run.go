package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RunStateField is the field name for run state
const RunStateField = "state"

// RunState represents the current state of a pipeline run
type RunState string

// Run state constants
const (
	// RunStateUnknown represents an unknown or invalid run state
	RunStateUnknown RunState = "unknown"
	// RunStateActive indicates the run has stages left to execute
	RunStateActive RunState = "active"
	// RunStateCompleted indicates the final stage of the pipeline finished
	RunStateCompleted RunState = "completed"
	// RunStateFailed indicates a stage exhausted its retries
	RunStateFailed RunState = "failed"
)

// String returns the string representation of the run state
func (s RunState) String() string {
	return string(s)
}

// ParseRunState converts a string to a RunState type
func ParseRunState(str string) (RunState, error) {
	switch str {
	case string(RunStateActive):
		return RunStateActive, nil
	case string(RunStateCompleted):
		return RunStateCompleted, nil
	case string(RunStateFailed):
		return RunStateFailed, nil
	default:
		return RunStateUnknown, fmt.Errorf("invalid run state: %s", str)
	}
}

// UnmarshalJSON implements json.Unmarshaler for RunState
func (s *RunState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	state, err := ParseRunState(str)
	if err != nil {
		return err
	}

	*s = state
	return nil
}

// Run is a tracked execution session spanning one project's pipeline stages.
// It is created when a pipeline is kicked off, advanced as each stage's job
// completes, and terminal when the final stage completes or a stage exhausts
// its retries.
type Run struct {
	gorm.Model
	ProjectID     uint       `json:"project_id" gorm:"not null; index"`
	Pipeline      string     `json:"pipeline" gorm:"not null; index"`
	State         RunState   `json:"state" gorm:"not null; index"`
	CurrentTaskID *uint      `json:"current_task_id,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" gorm:"index"`
}

// Validate ensures that the run data is valid
func (r *Run) Validate() error {
	if r.ProjectID == 0 {
		return fmt.Errorf("run project id cannot be zero")
	}
	if r.Pipeline == "" {
		return fmt.Errorf("run pipeline cannot be empty")
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new run
func (r *Run) BeforeCreate(_ *gorm.DB) error {
	if r.State == "" {
		r.State = RunStateActive
	}
	return r.Validate()
}
