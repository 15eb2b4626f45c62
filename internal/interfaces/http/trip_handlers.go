package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/application/service"
	"github.com/garyjia/trip-finance/internal/domain/audit"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// ListTrips handles GET /api/v1/trips
func (h *Handlers) ListTrips(c *gin.Context) {
	limit, offset, ok := h.page(c)
	if !ok {
		return
	}
	trips, err := h.services.Trips.List(c.Request.Context(), port.TripFilter{
		Status: entity.TripStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if trips == nil {
		trips = []*entity.Trip{}
	}
	h.ok(c, http.StatusOK, trips)
}

// CreateTrip handles POST /api/v1/trips
func (h *Handlers) CreateTrip(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req service.TripRequest
	if !h.bind(c, &req) {
		return
	}
	trip, err := h.services.Trips.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, trip)
}

// GetTrip handles GET /api/v1/trips/:id
func (h *Handlers) GetTrip(c *gin.Context) {
	detail, err := h.services.Trips.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, detail)
}

// UpdateTrip handles PUT /api/v1/trips/:id for trips that are not yet completed
func (h *Handlers) UpdateTrip(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req service.TripRequest
	if !h.bind(c, &req) {
		return
	}
	trip, err := h.services.Trips.UpdateDraft(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, trip)
}

// CancelTrip handles POST /api/v1/trips/:id/cancel
func (h *Handlers) CancelTrip(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	trip, err := h.services.Trips.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, trip)
}

// AttachProofOfDelivery handles POST /api/v1/trips/:id/proof-of-delivery (multipart)
func (h *Handlers) AttachProofOfDelivery(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	upload, ok := h.upload(c)
	if !ok {
		return
	}
	trip, err := h.services.Trips.AttachProofOfDelivery(c.Request.Context(), actor, c.Param("id"), upload)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, trip)
}

// DeleteTrip handles DELETE /api/v1/trips/:id. Completed trips need a reason
// and the typed confirmation in the body.
func (h *Handlers) DeleteTrip(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req audit.DeletionRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	record, err := h.services.Audit.DeleteTrip(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if record == nil {
		c.Status(http.StatusNoContent)
		return
	}
	h.ok(c, http.StatusOK, record)
}

type editTripRequest struct {
	Trip    service.TripRequest `json:"trip"`
	Reason  string              `json:"reason"`
	Comment string              `json:"comment"`
}

// EditCompletedTrip handles POST /api/v1/trips/:id/edits
func (h *Handlers) EditCompletedTrip(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req editTripRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.services.Audit.EditCompletedTrip(c.Request.Context(), actor, c.Param("id"), req.Trip,
		audit.Justification{Reason: req.Reason, Comment: req.Comment})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, result)
}

// EditHistory handles GET /api/v1/trips/:id/edits
func (h *Handlers) EditHistory(c *gin.Context) {
	records, err := h.services.Audit.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if records == nil {
		records = []*entity.TripEditRecord{}
	}
	h.ok(c, http.StatusOK, records)
}

// DeletionRecords handles GET /api/v1/deletions
func (h *Handlers) DeletionRecords(c *gin.Context) {
	limit, offset, ok := h.page(c)
	if !ok {
		return
	}
	records, err := h.services.Audit.DeletionRecords(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	if records == nil {
		records = []*entity.TripDeletionRecord{}
	}
	h.ok(c, http.StatusOK, records)
}

// AuditReasons handles GET /api/v1/audit/reasons
func (h *Handlers) AuditReasons(c *gin.Context) {
	h.ok(c, http.StatusOK, h.services.Audit.Reasons())
}
