package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Stage handlers are capability calls to external collaborators. These
// interfaces are the contract boundary: the real build tool, deployment
// target, test runner, and change-request API live outside this service and
// are injected at startup. Every method must be idempotent-safe: at-least-once
// delivery means a stage may run twice for one logical job.

// BuildTool generates workspaces, builds artifacts, and computes/applies
// change sets.
type BuildTool interface {
	Scaffold(ctx context.Context, projectID uint, p *ScaffoldPayload) (*ScaffoldResult, error)
	Build(ctx context.Context, projectID uint, p *BuildPayload) (*BuildResult, error)
	Diff(ctx context.Context, projectID uint, p *OpsDiffPayload) (*OpsDiffResult, error)
	Patch(ctx context.Context, projectID uint, p *OpsPatchPayload) (*OpsPatchResult, error)
}

// TestRunner verifies deployments and runs test suites against refs.
type TestRunner interface {
	Verify(ctx context.Context, projectID uint, p *VerifyPayload) (*VerifyResult, error)
	RunTests(ctx context.Context, projectID uint, p *OpsTestPayload) (*OpsTestResult, error)
}

// DeployTarget rolls artifacts out, promotes canaries, and rolls back.
type DeployTarget interface {
	Deploy(ctx context.Context, projectID uint, p *DeployPayload) (*DeployResult, error)
	Publish(ctx context.Context, projectID uint, p *PublishPayload) (*PublishResult, error)
	DeployCanary(ctx context.Context, projectID uint, p *OpsDeployCanaryPayload) (*OpsDeployCanaryResult, error)
	Promote(ctx context.Context, projectID uint, p *OpsPromotePayload) (*OpsPromoteResult, error)
	Rollback(ctx context.Context, projectID uint, p *OpsRollbackPayload) (*OpsRollbackResult, error)
}

// ChangeRequestAPI opens change requests for reviewed rollout.
type ChangeRequestAPI interface {
	OpenPR(ctx context.Context, projectID uint, p *OpsPRPayload) (*OpsPRResult, error)
}

// Toolchain bundles the external collaborators a registry dispatches to.
type Toolchain struct {
	Build   BuildTool
	Tests   TestRunner
	Deploy  DeployTarget
	Changes ChangeRequestAPI
}

// LocalToolchain is the in-process collaborator set used by default and in
// tests: deterministic outputs derived from the inputs, no network calls.
type LocalToolchain struct{}

// NewLocalToolchain returns a toolchain backed entirely by LocalToolchain.
func NewLocalToolchain() Toolchain {
	local := &LocalToolchain{}
	return Toolchain{Build: local, Tests: local, Deploy: local, Changes: local}
}

func digest(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// Scaffold generates a workspace for the template.
func (t *LocalToolchain) Scaffold(_ context.Context, projectID uint, p *ScaffoldPayload) (*ScaffoldResult, error) {
	return &ScaffoldResult{
		ArtifactURI: fmt.Sprintf("atelier://projects/%d/workspace/%s", projectID, p.Template),
		Files:       []string{"server.py", "README.md"},
	}, nil
}

// Build produces an artifact digest for the workspace.
func (t *LocalToolchain) Build(_ context.Context, projectID uint, p *BuildPayload) (*BuildResult, error) {
	d := digest(fmt.Sprint(projectID), p.ArtifactURI, p.Target)
	return &BuildResult{
		ArtifactDigest: d,
		Log:            fmt.Sprintf("built %s -> %s", p.ArtifactURI, d),
	}, nil
}

// Deploy rolls the artifact out to a preview environment.
func (t *LocalToolchain) Deploy(_ context.Context, projectID uint, p *DeployPayload) (*DeployResult, error) {
	return &DeployResult{
		URL: fmt.Sprintf("https://preview.atelier.dev/p%d/%s", projectID, p.ArtifactDigest),
	}, nil
}

// Verify checks the deployment.
func (t *LocalToolchain) Verify(_ context.Context, _ uint, p *VerifyPayload) (*VerifyResult, error) {
	return &VerifyResult{ChecksPassed: 12, URL: p.URL}, nil
}

// Publish promotes the verified deployment to its audience.
func (t *LocalToolchain) Publish(_ context.Context, projectID uint, _ *PublishPayload) (*PublishResult, error) {
	return &PublishResult{
		PublicURL: fmt.Sprintf("https://apps.atelier.dev/p%d", projectID),
	}, nil
}

// Diff computes a change set against the base ref.
func (t *LocalToolchain) Diff(_ context.Context, _ uint, p *OpsDiffPayload) (*OpsDiffResult, error) {
	return &OpsDiffResult{
		Diff:         fmt.Sprintf("--- a/%s\n+++ b/%s\n", p.BaseRef, p.BaseRef),
		FilesChanged: 1,
	}, nil
}

// Patch applies the change set and returns the resulting ref.
func (t *LocalToolchain) Patch(_ context.Context, projectID uint, p *OpsPatchPayload) (*OpsPatchResult, error) {
	return &OpsPatchResult{Ref: "patch-" + digest(fmt.Sprint(projectID), p.Diff)}, nil
}

// RunTests runs the suite against the ref.
func (t *LocalToolchain) RunTests(_ context.Context, _ uint, p *OpsTestPayload) (*OpsTestResult, error) {
	return &OpsTestResult{Ref: p.Ref, Passed: 8, Failed: 0}, nil
}

// OpenPR opens a change request for the ref.
func (t *LocalToolchain) OpenPR(_ context.Context, projectID uint, p *OpsPRPayload) (*OpsPRResult, error) {
	return &OpsPRResult{
		URL: fmt.Sprintf("https://changes.atelier.dev/p%d/%s", projectID, p.Ref),
		Ref: p.Ref,
	}, nil
}

// DeployCanary rolls the ref out to the canary slice.
func (t *LocalToolchain) DeployCanary(_ context.Context, projectID uint, p *OpsDeployCanaryPayload) (*OpsDeployCanaryResult, error) {
	return &OpsDeployCanaryResult{
		CanaryURL: fmt.Sprintf("https://canary.atelier.dev/p%d/%s", projectID, p.Ref),
	}, nil
}

// Promote promotes the canary to the full fleet.
func (t *LocalToolchain) Promote(_ context.Context, projectID uint, p *OpsPromotePayload) (*OpsPromoteResult, error) {
	return &OpsPromoteResult{
		URL: fmt.Sprintf("https://apps.atelier.dev/p%d", projectID),
	}, nil
}

// Rollback restores the last known-good state.
func (t *LocalToolchain) Rollback(_ context.Context, _ uint, _ *OpsRollbackPayload) (*OpsRollbackResult, error) {
	return &OpsRollbackResult{RestoredRef: "last-known-good"}, nil
}
