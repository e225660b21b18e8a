package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/atelierhq/atelier/internal/db/models"
)

// Payloads and results form a tagged union keyed by job kind: one concrete
// shape per stage, decoded and validated at the handler boundary so nothing
// "any"-typed drifts out of sync with what handlers expect.

// ScaffoldPayload describes what to generate for a new project workspace.
type ScaffoldPayload struct {
	Template string `json:"template"`
	Spec     string `json:"spec,omitempty"`
}

// Validate ensures the payload is usable.
func (p *ScaffoldPayload) Validate() error {
	if p.Template == "" {
		return fmt.Errorf("scaffold payload requires a template")
	}
	return nil
}

// ScaffoldResult reports the generated workspace.
type ScaffoldResult struct {
	ArtifactURI string   `json:"artifact_uri"`
	Files       []string `json:"files"`
}

// BuildPayload names the source to build.
type BuildPayload struct {
	ArtifactURI string `json:"artifact_uri"`
	Target      string `json:"target,omitempty"`
}

// Validate ensures the payload is usable.
func (p *BuildPayload) Validate() error {
	if p.ArtifactURI == "" {
		return fmt.Errorf("build payload requires an artifact uri")
	}
	return nil
}

// BuildResult reports the built artifact.
type BuildResult struct {
	ArtifactDigest string `json:"artifact_digest"`
	Log            string `json:"log,omitempty"`
}

// DeployPayload names the artifact to roll out.
type DeployPayload struct {
	ArtifactDigest string `json:"artifact_digest"`
	Environment    string `json:"environment,omitempty"`
}

// Validate ensures the payload is usable.
func (p *DeployPayload) Validate() error {
	if p.ArtifactDigest == "" {
		return fmt.Errorf("deploy payload requires an artifact digest")
	}
	return nil
}

// DeployResult reports where the artifact is serving.
type DeployResult struct {
	URL string `json:"url"`
}

// VerifyPayload names the deployment to check.
type VerifyPayload struct {
	URL string `json:"url"`
}

// Validate ensures the payload is usable.
func (p *VerifyPayload) Validate() error {
	if p.URL == "" {
		return fmt.Errorf("verify payload requires a url")
	}
	return nil
}

// VerifyResult reports the verification outcome. The verified URL is echoed
// so the next stage can act on the same deployment.
type VerifyResult struct {
	ChecksPassed int    `json:"checks_passed"`
	URL          string `json:"url"`
}

// PublishPayload names the verified deployment to promote to its audience.
type PublishPayload struct {
	URL string `json:"url"`
}

// Validate ensures the payload is usable.
func (p *PublishPayload) Validate() error {
	if p.URL == "" {
		return fmt.Errorf("publish payload requires a url")
	}
	return nil
}

// PublishResult reports the published location.
type PublishResult struct {
	PublicURL string `json:"public_url"`
}

// OpsDiffPayload scopes the change set to compute.
type OpsDiffPayload struct {
	BaseRef string `json:"base_ref"`
	Goal    string `json:"goal,omitempty"`
}

// Validate ensures the payload is usable.
func (p *OpsDiffPayload) Validate() error {
	if p.BaseRef == "" {
		return fmt.Errorf("ops.diff payload requires a base ref")
	}
	return nil
}

// OpsDiffResult carries the computed change set.
type OpsDiffResult struct {
	Diff         string `json:"diff"`
	FilesChanged int    `json:"files_changed"`
}

// OpsPatchPayload carries the change set to apply.
type OpsPatchPayload struct {
	Diff string `json:"diff"`
}

// Validate ensures the payload is usable.
func (p *OpsPatchPayload) Validate() error {
	if p.Diff == "" {
		return fmt.Errorf("ops.patch payload requires a diff")
	}
	return nil
}

// OpsPatchResult reports the applied change.
type OpsPatchResult struct {
	Ref string `json:"ref"`
}

// OpsTestPayload names the ref to test.
type OpsTestPayload struct {
	Ref string `json:"ref"`
}

// Validate ensures the payload is usable.
func (p *OpsTestPayload) Validate() error {
	if p.Ref == "" {
		return fmt.Errorf("ops.test payload requires a ref")
	}
	return nil
}

// OpsTestResult reports the test outcome. The tested ref is echoed so the
// next stage can open a change request for it.
type OpsTestResult struct {
	Ref    string `json:"ref"`
	Passed int    `json:"passed"`
	Failed int    `json:"failed"`
	Log    string `json:"log,omitempty"`
}

// OpsPRPayload describes the change request to open.
type OpsPRPayload struct {
	Ref   string `json:"ref"`
	Title string `json:"title,omitempty"`
}

// Validate ensures the payload is usable.
func (p *OpsPRPayload) Validate() error {
	if p.Ref == "" {
		return fmt.Errorf("ops.pr payload requires a ref")
	}
	return nil
}

// OpsPRResult reports the opened change request and the ref it covers.
type OpsPRResult struct {
	URL string `json:"url"`
	Ref string `json:"ref"`
}

// OpsDeployCanaryPayload names the ref to roll out to the canary slice.
type OpsDeployCanaryPayload struct {
	Ref string `json:"ref"`
}

// Validate ensures the payload is usable.
func (p *OpsDeployCanaryPayload) Validate() error {
	if p.Ref == "" {
		return fmt.Errorf("ops.deploy-canary payload requires a ref")
	}
	return nil
}

// OpsDeployCanaryResult reports the canary deployment.
type OpsDeployCanaryResult struct {
	CanaryURL string `json:"canary_url"`
}

// OpsPromotePayload names the canary to promote.
type OpsPromotePayload struct {
	CanaryURL string `json:"canary_url"`
}

// Validate ensures the payload is usable.
func (p *OpsPromotePayload) Validate() error {
	if p.CanaryURL == "" {
		return fmt.Errorf("ops.promote payload requires a canary url")
	}
	return nil
}

// OpsPromoteResult reports the promoted deployment.
type OpsPromoteResult struct {
	URL string `json:"url"`
}

// OpsRollbackPayload names the deployment to roll back.
type OpsRollbackPayload struct {
	Ref    string `json:"ref,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Validate ensures the payload is usable. Rollback tolerates an empty
// payload: rolling back to the last known-good state needs no arguments.
func (p *OpsRollbackPayload) Validate() error {
	return nil
}

// OpsRollbackResult reports the restored state.
type OpsRollbackResult struct {
	RestoredRef string `json:"restored_ref"`
}

// decodePayload unmarshals a job payload into its concrete stage shape. A nil
// payload decodes to the zero value so stages with optional inputs still get
// their Validate call.
func decodePayload[T any](raw json.RawMessage) (*T, error) {
	var payload T
	if len(raw) == 0 {
		return &payload, nil
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return &payload, nil
}

// NextPayload derives the successor stage's payload from the finished
// stage's result, completing the declared chaining: each stage's output is
// the next stage's input.
func NextPayload(kind models.JobKind, result json.RawMessage) (json.RawMessage, error) {
	marshal := func(v interface{}) (json.RawMessage, error) {
		out, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode next payload: %w", err)
		}
		return out, nil
	}

	switch kind {
	case models.KindScaffold:
		res, err := decodePayload[ScaffoldResult](result)
		if err != nil {
			return nil, err
		}
		return marshal(BuildPayload{ArtifactURI: res.ArtifactURI})
	case models.KindBuild:
		res, err := decodePayload[BuildResult](result)
		if err != nil {
			return nil, err
		}
		return marshal(DeployPayload{ArtifactDigest: res.ArtifactDigest})
	case models.KindDeploy:
		res, err := decodePayload[DeployResult](result)
		if err != nil {
			return nil, err
		}
		return marshal(VerifyPayload{URL: res.URL})
	case models.KindVerify:
		res, err := decodePayload[VerifyResult](result)
		if err != nil {
			return nil, err
		}
		return marshal(PublishPayload{URL: res.URL})
	case models.KindOpsDiff:
		res, err := decodePayload[OpsDiffResult](result)
		if err != nil {
			return nil, err
		}
		return marshal(OpsPatchPayload{Diff: res.Diff})
	case models.KindOpsPatch:
		res, err := decodePayload[OpsPatchResult](result)
		if err != nil {
			return nil, err
		}
		return marshal(OpsTestPayload{Ref: res.Ref})
	case models.KindOpsTest:
		res, err := decodePayload[OpsTestResult](result)
		if err != nil {
			return nil, err
		}
		return marshal(OpsPRPayload{Ref: res.Ref})
	case models.KindOpsPR:
		res, err := decodePayload[OpsPRResult](result)
		if err != nil {
			return nil, err
		}
		return marshal(OpsDeployCanaryPayload{Ref: res.Ref})
	case models.KindOpsDeployCanary:
		res, err := decodePayload[OpsDeployCanaryResult](result)
		if err != nil {
			return nil, err
		}
		return marshal(OpsPromotePayload{CanaryURL: res.CanaryURL})
	default:
		return nil, nil
	}
}
