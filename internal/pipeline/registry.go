package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/db/repos"
	"github.com/atelierhq/atelier/internal/events"
)

// ErrUnknownKind is returned when a job names a stage no handler exists for.
// This is a configuration bug: retrying cannot help, so the worker routes it
// straight to terminal failure.
var ErrUnknownKind = errors.New("unknown job kind")

// HandlerFunc executes one pipeline stage for a claimed job and returns the
// stage result, or an error routed to the queue's retry policy.
type HandlerFunc func(ctx context.Context, job *models.Job) (json.RawMessage, error)

// Deps holds what stage handlers need: the external collaborators and the
// proof store for evidence records.
type Deps struct {
	Tools       Toolchain
	Proofs      *repos.ProofRepository
	Broadcaster *events.Broadcaster
}

// Registry is the fixed mapping from job kind to stage handler. It is
// constructed explicitly at startup and passed into the worker; there is no
// module-level handler state.
type Registry struct {
	handlers map[models.JobKind]HandlerFunc
}

// NewRegistry builds the full stage table over the given dependencies.
func NewRegistry(deps Deps) *Registry {
	r := NewEmptyRegistry()
	h := &stageHandlers{deps: deps}

	r.Register(models.KindScaffold, h.scaffold)
	r.Register(models.KindBuild, h.build)
	r.Register(models.KindDeploy, h.deploy)
	r.Register(models.KindVerify, h.verify)
	r.Register(models.KindPublish, h.publish)

	r.Register(models.KindOpsDiff, h.opsDiff)
	r.Register(models.KindOpsPatch, h.opsPatch)
	r.Register(models.KindOpsTest, h.opsTest)
	r.Register(models.KindOpsPR, h.opsPR)
	r.Register(models.KindOpsDeployCanary, h.opsDeployCanary)
	r.Register(models.KindOpsPromote, h.opsPromote)
	r.Register(models.KindOpsRollback, h.opsRollback)

	return r
}

// NewEmptyRegistry creates a registry with no handlers, for tests that wire
// their own stage table.
func NewEmptyRegistry() *Registry {
	return &Registry{handlers: make(map[models.JobKind]HandlerFunc)}
}

// Register adds or replaces the handler for a kind.
func (r *Registry) Register(kind models.JobKind, handler HandlerFunc) {
	r.handlers[kind] = handler
}

// Resolve returns the handler for a kind or ErrUnknownKind.
func (r *Registry) Resolve(kind models.JobKind) (HandlerFunc, error) {
	handler, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return handler, nil
}

// Kinds lists the registered job kinds.
func (r *Registry) Kinds() []models.JobKind {
	kinds := make([]models.JobKind, 0, len(r.handlers))
	for kind := range r.handlers {
		kinds = append(kinds, kind)
	}
	return kinds
}
