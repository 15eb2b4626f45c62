package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/application/service"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/invoicing"
)

// SubmitInvoice handles POST /api/v1/trips/:id/invoice
func (h *Handlers) SubmitInvoice(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req invoicing.SubmitRequest
	if !h.bind(c, &req) {
		return
	}
	inv, err := h.services.Invoices.Submit(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, inv)
}

// GetInvoice handles GET /api/v1/trips/:id/invoice
func (h *Handlers) GetInvoice(c *gin.Context) {
	view, err := h.services.Invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, view)
}

// MarkPaid handles POST /api/v1/trips/:id/invoice/payment
func (h *Handlers) MarkPaid(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req service.PaymentRequest
	if !h.bind(c, &req) {
		return
	}
	view, err := h.services.Invoices.MarkPaid(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, view)
}

// SendReminder handles POST /api/v1/trips/:id/invoice/reminders
func (h *Handlers) SendReminder(c *gin.Context) {
	h.followUp(c, h.services.Invoices.SendReminder)
}

// Escalate handles POST /api/v1/trips/:id/invoice/escalations
func (h *Handlers) Escalate(c *gin.Context) {
	h.followUp(c, h.services.Invoices.Escalate)
}

type followUpFunc func(ctx context.Context, actor entity.Actor, tripID, note string) (*entity.FollowUp, error)

func (h *Handlers) followUp(c *gin.Context, send followUpFunc) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req noteRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	followUp, err := send(c.Request.Context(), actor, c.Param("id"), req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, followUp)
}

// ListOutstanding handles GET /api/v1/invoices/outstanding
func (h *Handlers) ListOutstanding(c *gin.Context) {
	views, err := h.services.Invoices.ListOutstanding(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if views == nil {
		views = []*service.InvoiceView{}
	}
	h.ok(c, http.StatusOK, views)
}

// GenerateReport handles POST /api/v1/trips/:id/reports?format=xlsx|pdf and
// returns the rendered document as an attachment
func (h *Handlers) GenerateReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	format := port.ReportFormat(strings.ToLower(c.DefaultQuery("format", string(port.ReportFormatXLSX))))
	report, err := h.services.Reports.Generate(c.Request.Context(), actor, c.Param("id"), format)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	c.Header("X-Storage-Path", report.StoragePath)
	c.Data(http.StatusOK, report.ContentType, report.Content)
}
