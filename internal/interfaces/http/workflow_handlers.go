package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WorkflowState handles GET /api/v1/trips/:id/workflow
func (h *Handlers) WorkflowState(c *gin.Context) {
	state, err := h.services.Workflow.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, state)
}

// AdvanceWorkflow handles POST /api/v1/trips/:id/workflow/advance
func (h *Handlers) AdvanceWorkflow(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	state, err := h.services.Workflow.Advance(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, state)
}

// RetreatWorkflow handles POST /api/v1/trips/:id/workflow/retreat
func (h *Handlers) RetreatWorkflow(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	state, err := h.services.Workflow.Retreat(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, state)
}
