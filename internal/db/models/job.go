package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Field names for the job model
const (
	// JobStatusField is the field name for job status
	JobStatusField = "status"
	// JobCreatedAtField is the field name for the job creation timestamp
	JobCreatedAtField = "created_at"
)

// JobStatus represents the current state of a job in the queue
type JobStatus string

// Job status constants
const (
	// JobStatusUnknown represents an unknown or invalid job status
	JobStatusUnknown JobStatus = "unknown"
	// JobStatusQueued indicates the job is waiting to be claimed by a worker
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning indicates the job has been claimed and is executing
	JobStatusRunning JobStatus = "running"
	// JobStatusDone indicates the job completed successfully (terminal)
	JobStatusDone JobStatus = "done"
	// JobStatusFailed indicates the job exhausted its retries (terminal)
	JobStatusFailed JobStatus = "failed"
)

// String returns the string representation of the job status
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition may move the job out of
// this status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// ParseJobStatus converts a string to a JobStatus type
func ParseJobStatus(str string) (JobStatus, error) {
	switch str {
	case string(JobStatusQueued):
		return JobStatusQueued, nil
	case string(JobStatusRunning):
		return JobStatusRunning, nil
	case string(JobStatusDone):
		return JobStatusDone, nil
	case string(JobStatusFailed):
		return JobStatusFailed, nil
	default:
		return JobStatusUnknown, fmt.Errorf("invalid job status: %s", str)
	}
}

// UnmarshalJSON implements json.Unmarshaler for JobStatus
func (s *JobStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status, err := ParseJobStatus(str)
	if err != nil {
		return err
	}

	*s = status
	return nil
}

// JobKind selects the pipeline stage handler a job is dispatched to.
type JobKind string

// Delivery pipeline stages
const (
	KindScaffold JobKind = "scaffold"
	KindBuild    JobKind = "build"
	KindDeploy   JobKind = "deploy"
	KindVerify   JobKind = "verify"
	KindPublish  JobKind = "publish"
)

// Ops sub-pipeline stages
const (
	KindOpsDiff         JobKind = "ops.diff"
	KindOpsPatch        JobKind = "ops.patch"
	KindOpsTest         JobKind = "ops.test"
	KindOpsPR           JobKind = "ops.pr"
	KindOpsDeployCanary JobKind = "ops.deploy-canary"
	KindOpsPromote      JobKind = "ops.promote"
	KindOpsRollback     JobKind = "ops.rollback"
)

// String returns the string representation of the job kind
func (k JobKind) String() string {
	return string(k)
}

// Job is one queued, atomically-claimable unit of pipeline work.
//
// A job transitions queued -> running only through the repository's
// conditional claim, so at most one worker holds a running job with a given
// id at any instant. Done and failed are terminal.
type Job struct {
	gorm.Model
	ProjectID   uint            `json:"project_id" gorm:"not null; index"`
	GoalID      *uint           `json:"goal_id,omitempty" gorm:"index"`
	RunID       *uint           `json:"run_id,omitempty" gorm:"index"`
	Kind        JobKind         `json:"kind" gorm:"not null; index"`
	Status      JobStatus       `json:"status" gorm:"not null; index"`
	Payload     json.RawMessage `json:"payload,omitempty" gorm:"type:jsonb"`
	Result      json.RawMessage `json:"result,omitempty" gorm:"type:jsonb"`
	Error       string          `json:"error,omitempty" gorm:"type:text"`
	Attempt     int             `json:"attempt" gorm:"not null; default:0"`
	RunAfter    time.Time       `json:"run_after" gorm:"index"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`
}

// Validate ensures that the job data is valid
func (j *Job) Validate() error {
	if j.ProjectID == 0 {
		return fmt.Errorf("job project id cannot be zero")
	}
	if j.Kind == "" {
		return fmt.Errorf("job kind cannot be empty")
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new job
func (j *Job) BeforeCreate(_ *gorm.DB) error {
	if j.Status == "" {
		j.Status = JobStatusQueued
	}
	return j.Validate()
}
