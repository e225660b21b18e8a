package handlers

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/atelierhq/atelier/internal/db/models"
	"github.com/atelierhq/atelier/internal/services"
	"github.com/atelierhq/atelier/internal/types"
)

// ProofHandler handles HTTP requests for proof reads
type ProofHandler struct {
	proofs *services.Proof
}

// NewProofHandler creates a new proof handler instance
func NewProofHandler(proofs *services.Proof) *ProofHandler {
	return &ProofHandler{proofs: proofs}
}

// ListProofs lists a project's proofs, or one job's proofs when the task_id
// query is set
func (h *ProofHandler) ListProofs(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	var proofs []models.Proof
	opts := listOptions(c)
	if taskID := c.QueryInt("task_id", 0); taskID > 0 {
		proofs, err = h.proofs.ListByTask(c.Context(), uint(taskID))
	} else {
		proofs, err = h.proofs.ListByProject(c.Context(), projectID, opts)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrInternal("failed to list proofs", err.Error()))
	}
	return c.JSON(types.ListResponse[models.Proof]{
		Rows: proofs,
		Pagination: types.PaginationResponse{
			Total:  len(proofs),
			Limit:  opts.Limit,
			Offset: opts.Offset,
		},
	})
}
