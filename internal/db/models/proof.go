package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ProofType classifies the evidence a handler attached to a job's outcome
type ProofType string

// Proof type constants
const (
	// ProofTypeLog is captured command or build output
	ProofTypeLog ProofType = "log"
	// ProofTypeDiff is a unified diff produced by a patch stage
	ProofTypeDiff ProofType = "diff"
	// ProofTypeFile is a generated artifact reference
	ProofTypeFile ProofType = "file"
	// ProofTypeScreenshot is a rendered verification capture
	ProofTypeScreenshot ProofType = "screenshot"
	// ProofTypeURL is a link to a deployed or published target
	ProofTypeURL ProofType = "url"
)

// Proof is an immutable evidence record attached to a job's outcome. It is
// written exactly once by a handler at completion time and never mutated
// afterward; the repository exposes no update operation.
type Proof struct {
	gorm.Model
	ProjectID uint            `json:"project_id" gorm:"not null; index"`
	TaskID    *uint           `json:"task_id,omitempty" gorm:"index"`
	Type      ProofType       `json:"type" gorm:"not null; index"`
	Title     string          `json:"title" gorm:"not null"`
	Content   string          `json:"content,omitempty" gorm:"type:text"`
	URI       string          `json:"uri,omitempty" gorm:"type:text"`
	Meta      json.RawMessage `json:"meta,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time       `json:"created_at" gorm:"index"`
}

// Validate ensures that the proof data is valid
func (p *Proof) Validate() error {
	if p.ProjectID == 0 {
		return fmt.Errorf("proof project id cannot be zero")
	}
	if p.Type == "" {
		return fmt.Errorf("proof type cannot be empty")
	}
	if p.Title == "" {
		return fmt.Errorf("proof title cannot be empty")
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new proof
func (p *Proof) BeforeCreate(_ *gorm.DB) error {
	return p.Validate()
}
