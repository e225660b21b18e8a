package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Field names for the goal model
const (
	// GoalStatusField is the field name for goal status
	GoalStatusField = "status"
	// GoalScoreField is the field name for the goal score
	GoalScoreField = "score"
)

// GoalStatus represents the current state of a planned unit of work
type GoalStatus string

// Goal status constants
const (
	// GoalStatusUnknown represents an unknown or invalid goal status
	GoalStatusUnknown GoalStatus = "unknown"
	// GoalStatusPending indicates the goal has not been started
	GoalStatusPending GoalStatus = "pending"
	// GoalStatusInProgress indicates work on the goal has begun
	GoalStatusInProgress GoalStatus = "in_progress"
	// GoalStatusBlocked indicates the goal is waiting on something else
	GoalStatusBlocked GoalStatus = "blocked"
	// GoalStatusCompleted indicates the goal is finished
	GoalStatusCompleted GoalStatus = "completed"
	// GoalStatusFailed indicates the goal was abandoned after failures
	GoalStatusFailed GoalStatus = "failed"
)

// String returns the string representation of the goal status
func (s GoalStatus) String() string {
	return string(s)
}

// Schedulable reports whether the goal competes for the prioritized
// next-actions slice. Completed and failed goals never do.
func (s GoalStatus) Schedulable() bool {
	switch s {
	case GoalStatusPending, GoalStatusInProgress, GoalStatusBlocked:
		return true
	default:
		return false
	}
}

// ParseGoalStatus converts a string to a GoalStatus type
func ParseGoalStatus(str string) (GoalStatus, error) {
	switch str {
	case string(GoalStatusPending):
		return GoalStatusPending, nil
	case string(GoalStatusInProgress):
		return GoalStatusInProgress, nil
	case string(GoalStatusBlocked):
		return GoalStatusBlocked, nil
	case string(GoalStatusCompleted):
		return GoalStatusCompleted, nil
	case string(GoalStatusFailed):
		return GoalStatusFailed, nil
	default:
		return GoalStatusUnknown, fmt.Errorf("invalid goal status: %s", str)
	}
}

// UnmarshalJSON implements json.Unmarshaler for GoalStatus
func (s *GoalStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status, err := ParseGoalStatus(str)
	if err != nil {
		return err
	}

	*s = status
	return nil
}

// Goal is a planned unit of user-facing work, scored and prioritized. A goal
// may spawn zero or more jobs; the queue and the scoring engine only touch
// its status and score.
type Goal struct {
	gorm.Model
	ProjectID   uint       `json:"project_id" gorm:"not null; index"`
	MilestoneID *uint      `json:"milestone_id,omitempty" gorm:"index"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description" gorm:"type:text"`
	Status      GoalStatus `json:"status" gorm:"not null; index"`
	Score       float64    `json:"score" gorm:"not null; default:0; index"`
	Priority    int        `json:"priority" gorm:"not null; default:0"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate ensures that the goal data is valid
func (g *Goal) Validate() error {
	if g.ProjectID == 0 {
		return fmt.Errorf("goal project id cannot be zero")
	}
	if g.Title == "" {
		return fmt.Errorf("goal title cannot be empty")
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new goal
func (g *Goal) BeforeCreate(_ *gorm.DB) error {
	if g.Status == "" {
		g.Status = GoalStatusPending
	}
	return g.Validate()
}
