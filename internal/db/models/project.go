package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Project is the owning aggregate for goals, jobs, runs, and proofs.
type Project struct {
	gorm.Model
	Name        string    `json:"name" gorm:"not null; uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	Prompt      string    `json:"prompt" gorm:"type:text"`
	Goals       []Goal    `json:"goals,omitempty" gorm:"foreignKey:ProjectID"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

// Validate ensures that the project data is valid
func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new project
func (p *Project) BeforeCreate(_ *gorm.DB) error {
	return p.Validate()
}
