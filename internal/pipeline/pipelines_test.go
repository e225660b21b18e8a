package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/internal/db/models"
)

func TestDeliveryStageSequence(t *testing.T) {
	stages, ok := Stages(PipelineDelivery)
	require.True(t, ok)
	require.Equal(t, []models.JobKind{
		models.KindScaffold,
		models.KindBuild,
		models.KindDeploy,
		models.KindVerify,
		models.KindPublish,
	}, stages)

	first, ok := FirstStage(PipelineDelivery)
	require.True(t, ok)
	require.Equal(t, models.KindScaffold, first)
}

func TestNextStageWalksDeclaredOrder(t *testing.T) {
	next, ok := NextStage(PipelineDelivery, models.KindScaffold)
	require.True(t, ok)
	require.Equal(t, models.KindBuild, next)

	next, ok = NextStage(PipelineOps, models.KindOpsPR)
	require.True(t, ok)
	require.Equal(t, models.KindOpsDeployCanary, next)

	// Final stages have no successor.
	_, ok = NextStage(PipelineDelivery, models.KindPublish)
	require.False(t, ok)
	_, ok = NextStage(PipelineOps, models.KindOpsPromote)
	require.False(t, ok)

	// A kind outside the pipeline has no successor either.
	_, ok = NextStage(PipelineDelivery, models.KindOpsDiff)
	require.False(t, ok)
	_, ok = NextStage("no-such-pipeline", models.KindScaffold)
	require.False(t, ok)
}

func TestIsFinalStage(t *testing.T) {
	require.True(t, IsFinalStage(PipelineDelivery, models.KindPublish))
	require.True(t, IsFinalStage(PipelineOps, models.KindOpsPromote))
	require.False(t, IsFinalStage(PipelineDelivery, models.KindVerify))
	require.False(t, IsFinalStage("no-such-pipeline", models.KindPublish))
}

func TestCompensationStage(t *testing.T) {
	stage, ok := CompensationStage(models.KindOpsPromote)
	require.True(t, ok)
	require.Equal(t, models.KindOpsRollback, stage)

	stage, ok = CompensationStage(models.KindOpsDeployCanary)
	require.True(t, ok)
	require.Equal(t, models.KindOpsRollback, stage)

	// Early stages have nothing deployed to roll back.
	_, ok = CompensationStage(models.KindOpsDiff)
	require.False(t, ok)
	_, ok = CompensationStage(models.KindBuild)
	require.False(t, ok)
}

func TestRollbackIsNotInForwardSequence(t *testing.T) {
	stages, ok := Stages(PipelineOps)
	require.True(t, ok)
	for _, stage := range stages {
		require.NotEqual(t, models.KindOpsRollback, stage)
	}
}
