package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/events"
)

// stageHandlers implements the delivery pipeline stages. Each handler
// decodes and validates its typed payload, calls the external collaborator,
// attaches a proof, and returns the stage result.
type stageHandlers struct {
	deps Deps
}

// saveProof writes the immutable evidence record for a stage outcome and
// announces it.
func (h *stageHandlers) saveProof(ctx context.Context, job *models.Job, proofType models.ProofType, title, content, uri string) error {
	if h.deps.Proofs == nil {
		return nil
	}
	taskID := job.ID
	proof := &models.Proof{
		ProjectID: job.ProjectID,
		TaskID:    &taskID,
		Type:      proofType,
		Title:     title,
		Content:   content,
		URI:       uri,
	}
	if err := h.deps.Proofs.Create(ctx, proof); err != nil {
		return fmt.Errorf("failed to save proof: %w", err)
	}

	if h.deps.Broadcaster != nil {
		h.deps.Broadcaster.Publish(events.Event{
			Type:      events.EventProofCreated,
			ProjectID: job.ProjectID,
			JobID:     &taskID,
			GoalID:    job.GoalID,
			RunID:     job.RunID,
			Data: map[string]interface{}{
				"proof_id": proof.ID,
				"type":     string(proofType),
				"title":    title,
			},
		})
	}
	return nil
}

func marshalResult(v interface{}) (json.RawMessage, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return out, nil
}

func (h *stageHandlers) scaffold(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	payload, err := decodePayload[ScaffoldPayload](job.Payload)
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	result, err := h.deps.Tools.Build.Scaffold(ctx, job.ProjectID, payload)
	if err != nil {
		return nil, fmt.Errorf("scaffold failed: %w", err)
	}

	if err := h.saveProof(ctx, job, models.ProofTypeFile,
		fmt.Sprintf("Scaffolded %s workspace", payload.Template),
		strings.Join(result.Files, "\n"), result.ArtifactURI); err != nil {
		return nil, err
	}
	return marshalResult(result)
}

func (h *stageHandlers) build(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	payload, err := decodePayload[BuildPayload](job.Payload)
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	result, err := h.deps.Tools.Build.Build(ctx, job.ProjectID, payload)
	if err != nil {
		return nil, fmt.Errorf("build failed: %w", err)
	}

	if err := h.saveProof(ctx, job, models.ProofTypeLog,
		"Build output", result.Log, ""); err != nil {
		return nil, err
	}
	return marshalResult(result)
}

func (h *stageHandlers) deploy(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	payload, err := decodePayload[DeployPayload](job.Payload)
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	result, err := h.deps.Tools.Deploy.Deploy(ctx, job.ProjectID, payload)
	if err != nil {
		return nil, fmt.Errorf("deploy failed: %w", err)
	}

	if err := h.saveProof(ctx, job, models.ProofTypeURL,
		"Preview deployment", "", result.URL); err != nil {
		return nil, err
	}
	return marshalResult(result)
}

func (h *stageHandlers) verify(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	payload, err := decodePayload[VerifyPayload](job.Payload)
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	result, err := h.deps.Tools.Tests.Verify(ctx, job.ProjectID, payload)
	if err != nil {
		return nil, fmt.Errorf("verify failed: %w", err)
	}

	if err := h.saveProof(ctx, job, models.ProofTypeLog,
		"Verification report",
		fmt.Sprintf("%d checks passed against %s", result.ChecksPassed, payload.URL), ""); err != nil {
		return nil, err
	}
	return marshalResult(result)
}

func (h *stageHandlers) publish(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	payload, err := decodePayload[PublishPayload](job.Payload)
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	result, err := h.deps.Tools.Deploy.Publish(ctx, job.ProjectID, payload)
	if err != nil {
		return nil, fmt.Errorf("publish failed: %w", err)
	}

	if err := h.saveProof(ctx, job, models.ProofTypeURL,
		"Published", "", result.PublicURL); err != nil {
		return nil, err
	}
	return marshalResult(result)
}
