package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/trip-finance/internal/application/service"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// AddCost handles POST /api/v1/trips/:id/costs
func (h *Handlers) AddCost(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var in service.CostInput
	if !h.bind(c, &in) {
		return
	}
	cost, err := h.services.Costs.AddCost(c.Request.Context(), actor, c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, cost)
}

// UpdateCost handles PUT /api/v1/trips/:id/costs/:costId
func (h *Handlers) UpdateCost(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var in service.CostInput
	if !h.bind(c, &in) {
		return
	}
	cost, err := h.services.Costs.UpdateCost(c.Request.Context(), actor, c.Param("id"), c.Param("costId"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, cost)
}

// DeleteCost handles DELETE /api/v1/trips/:id/costs/:costId
func (h *Handlers) DeleteCost(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.services.Costs.DeleteCost(c.Request.Context(), actor, c.Param("id"), c.Param("costId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AttachCostDocument handles POST /api/v1/trips/:id/costs/:costId/attachments (multipart)
func (h *Handlers) AttachCostDocument(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	upload, ok := h.upload(c)
	if !ok {
		return
	}
	cost, err := h.services.Costs.AttachDocument(c.Request.Context(), actor, c.Param("id"), c.Param("costId"), upload)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, cost)
}

type noteRequest struct {
	Note string `json:"note"`
}

// ResolveFlag handles POST /api/v1/trips/:id/costs/:costId/resolve
func (h *Handlers) ResolveFlag(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req noteRequest
	if !h.bind(c, &req) {
		return
	}
	cost, err := h.services.Costs.ResolveFlag(c.Request.Context(), actor, c.Param("id"), c.Param("costId"), req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, cost)
}

// GenerateSystemCosts handles POST /api/v1/trips/:id/system-costs
func (h *Handlers) GenerateSystemCosts(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	costs, err := h.services.Costs.GenerateSystemCosts(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, costs)
}

// ListFlagged handles GET /api/v1/flags?status=pending|resolved
func (h *Handlers) ListFlagged(c *gin.Context) {
	limit, offset, ok := h.page(c)
	if !ok {
		return
	}
	costs, err := h.services.Costs.ListFlagged(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	if costs == nil {
		costs = []*entity.CostEntry{}
	}
	h.ok(c, http.StatusOK, costs)
}

// Categories handles GET /api/v1/cost-categories
func (h *Handlers) Categories(c *gin.Context) {
	h.ok(c, http.StatusOK, h.services.Costs.Categories())
}
