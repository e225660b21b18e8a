package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atelierhq/atelier/internal/db/models"
)

// Ops sub-pipeline handlers: diff -> patch -> test -> pr -> deploy-canary ->
// promote, with rollback as the compensation stage for failed rollouts.

func (h *stageHandlers) opsDiff(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	payload, err := decodePayload[OpsDiffPayload](job.Payload)
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	result, err := h.deps.Tools.Build.Diff(ctx, job.ProjectID, payload)
	if err != nil {
		return nil, fmt.Errorf("ops.diff failed: %w", err)
	}

	if err := h.saveProof(ctx, job, models.ProofTypeDiff,
		fmt.Sprintf("Change set against %s (%d files)", payload.BaseRef, result.FilesChanged),
		result.Diff, ""); err != nil {
		return nil, err
	}
	return marshalResult(result)
}

func (h *stageHandlers) opsPatch(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	payload, err := decodePayload[OpsPatchPayload](job.Payload)
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	result, err := h.deps.Tools.Build.Patch(ctx, job.ProjectID, payload)
	if err != nil {
		return nil, fmt.Errorf("ops.patch failed: %w", err)
	}

	if err := h.saveProof(ctx, job, models.ProofTypeFile,
		"Applied patch", "", result.Ref); err != nil {
		return nil, err
	}
	return marshalResult(result)
}

func (h *stageHandlers) opsTest(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	payload, err := decodePayload[OpsTestPayload](job.Payload)
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	result, err := h.deps.Tools.Tests.RunTests(ctx, job.ProjectID, payload)
	if err != nil {
		return nil, fmt.Errorf("ops.test failed: %w", err)
	}
	if result.Failed > 0 {
		return nil, fmt.Errorf("ops.test: %d of %d tests failed on %s",
			result.Failed, result.Passed+result.Failed, payload.Ref)
	}

	if err := h.saveProof(ctx, job, models.ProofTypeLog,
		fmt.Sprintf("Test run for %s", payload.Ref),
		fmt.Sprintf("%d passed, %d failed\n%s", result.Passed, result.Failed, result.Log), ""); err != nil {
		return nil, err
	}
	return marshalResult(result)
}

func (h *stageHandlers) opsPR(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	payload, err := decodePayload[OpsPRPayload](job.Payload)
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	result, err := h.deps.Tools.Changes.OpenPR(ctx, job.ProjectID, payload)
	if err != nil {
		return nil, fmt.Errorf("ops.pr failed: %w", err)
	}

	if err := h.saveProof(ctx, job, models.ProofTypeURL,
		"Change request opened", "", result.URL); err != nil {
		return nil, err
	}
	return marshalResult(result)
}

func (h *stageHandlers) opsDeployCanary(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	payload, err := decodePayload[OpsDeployCanaryPayload](job.Payload)
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	result, err := h.deps.Tools.Deploy.DeployCanary(ctx, job.ProjectID, payload)
	if err != nil {
		return nil, fmt.Errorf("ops.deploy-canary failed: %w", err)
	}

	if err := h.saveProof(ctx, job, models.ProofTypeURL,
		"Canary deployment", "", result.CanaryURL); err != nil {
		return nil, err
	}
	return marshalResult(result)
}

func (h *stageHandlers) opsPromote(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	payload, err := decodePayload[OpsPromotePayload](job.Payload)
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	result, err := h.deps.Tools.Deploy.Promote(ctx, job.ProjectID, payload)
	if err != nil {
		return nil, fmt.Errorf("ops.promote failed: %w", err)
	}

	if err := h.saveProof(ctx, job, models.ProofTypeURL,
		"Promoted to full fleet", "", result.URL); err != nil {
		return nil, err
	}
	return marshalResult(result)
}

func (h *stageHandlers) opsRollback(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	payload, err := decodePayload[OpsRollbackPayload](job.Payload)
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	result, err := h.deps.Tools.Deploy.Rollback(ctx, job.ProjectID, payload)
	if err != nil {
		return nil, fmt.Errorf("ops.rollback failed: %w", err)
	}

	title := "Rolled back"
	if payload.Reason != "" {
		title = fmt.Sprintf("Rolled back: %s", payload.Reason)
	}
	if err := h.saveProof(ctx, job, models.ProofTypeLog,
		title, fmt.Sprintf("restored %s", result.RestoredRef), ""); err != nil {
		return nil, err
	}
	return marshalResult(result)
}
