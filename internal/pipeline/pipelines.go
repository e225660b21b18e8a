// Package pipeline defines the stage handlers jobs are dispatched to and the
// declared stage sequences the worker advances through. The sequence of
// stages is data here, not handler side effects: handlers do domain work and
// the worker enqueues the successor stage after success.
package pipeline

import (
	"github.com/atelierhq/atelier/internal/db/models"
)

// Pipeline names
const (
	// PipelineDelivery is the main project delivery sequence
	PipelineDelivery = "delivery"
	// PipelineOps is the change-management sub-pipeline
	PipelineOps = "ops"
)

// stageTable declares the ordered stage sequence per pipeline name.
// ops.rollback is not part of the forward sequence; it is the compensation
// stage chained when a late ops stage fails terminally.
var stageTable = map[string][]models.JobKind{
	PipelineDelivery: {
		models.KindScaffold,
		models.KindBuild,
		models.KindDeploy,
		models.KindVerify,
		models.KindPublish,
	},
	PipelineOps: {
		models.KindOpsDiff,
		models.KindOpsPatch,
		models.KindOpsTest,
		models.KindOpsPR,
		models.KindOpsDeployCanary,
		models.KindOpsPromote,
	},
}

// compensationTable names the stage enqueued when a pipeline stage that has
// already touched a deployment target fails terminally.
var compensationTable = map[models.JobKind]models.JobKind{
	models.KindOpsDeployCanary: models.KindOpsRollback,
	models.KindOpsPromote:      models.KindOpsRollback,
}

// Stages returns the declared stage sequence for a pipeline name.
func Stages(pipeline string) ([]models.JobKind, bool) {
	stages, ok := stageTable[pipeline]
	return stages, ok
}

// FirstStage returns the entry stage of a pipeline.
func FirstStage(pipeline string) (models.JobKind, bool) {
	stages, ok := stageTable[pipeline]
	if !ok || len(stages) == 0 {
		return "", false
	}
	return stages[0], true
}

// NextStage returns the stage following kind in the named pipeline, or false
// when kind is the final stage (or not part of the pipeline at all).
func NextStage(pipeline string, kind models.JobKind) (models.JobKind, bool) {
	stages, ok := stageTable[pipeline]
	if !ok {
		return "", false
	}
	for i, stage := range stages {
		if stage == kind && i+1 < len(stages) {
			return stages[i+1], true
		}
	}
	return "", false
}

// IsFinalStage reports whether kind is the last stage of the named pipeline.
func IsFinalStage(pipeline string, kind models.JobKind) bool {
	stages, ok := stageTable[pipeline]
	if !ok || len(stages) == 0 {
		return false
	}
	return stages[len(stages)-1] == kind
}

// CompensationStage returns the stage to enqueue when kind fails terminally,
// if the pipeline declares one.
func CompensationStage(kind models.JobKind) (models.JobKind, bool) {
	stage, ok := compensationTable[kind]
	return stage, ok
}

// KnownPipelines lists the declared pipeline names.
func KnownPipelines() []string {
	return []string{PipelineDelivery, PipelineOps}
}
