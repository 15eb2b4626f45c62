package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/application/service"
	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services  Services
	identity  port.IdentityProvider
	maxUpload int64
	logger    Logger
}

// NewHandlers creates a new Handlers instance. maxUpload <= 0 disables the upload size check.
func NewHandlers(services Services, identity port.IdentityProvider, maxUpload int64, logger Logger) *Handlers {
	return &Handlers{
		services:  services,
		identity:  identity,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (h *Handlers) ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// fail maps err onto a status and a machine-readable code
func (h *Handlers) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	resp := Response{
		Success: false,
		Code:    apperr.Code(err),
		Error:   err.Error(),
	}

	var (
		verr *apperr.ValidationError
		gerr *apperr.GatingError
		cerr *apperr.ConfirmationMismatchError
	)
	switch {
	case errors.As(err, &verr):
		resp.Details = verr.Fields
	case errors.As(err, &gerr):
		resp.Details = gerr
	case errors.As(err, &cerr):
		resp.Details = cerr
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		resp.Error = "internal server error"
	}
	c.AbortWithStatusJSON(status, resp)
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Success: false,
		Code:    "BAD_REQUEST",
		Error:   msg,
	})
}

// actor resolves the caller; it writes the error response and returns false on failure
func (h *Handlers) actor(c *gin.Context) (entity.Actor, bool) {
	actor, err := h.identity.CurrentUser(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   err.Error(),
		})
		return entity.Actor{}, false
	}
	return actor, true
}

// bind decodes the JSON body into dst; it writes a 400 and returns false on failure
func (h *Handlers) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// page reads limit and offset query parameters
func (h *Handlers) page(c *gin.Context) (int, int, bool) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil || limit < 0 || limit > 200 {
		h.badRequest(c, "limit must be between 0 and 200")
		return 0, 0, false
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		h.badRequest(c, "offset must be a non-negative integer")
		return 0, 0, false
	}
	return limit, offset, true
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// multipartOverhead is the body allowance on top of maxUpload for boundaries and headers
const multipartOverhead = 1 << 20

// upload reads the multipart "file" field. Oversized files are rejected
// before any of their content is read.
func (h *Handlers) upload(c *gin.Context) (service.Upload, bool) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.badRequest(c, fmt.Sprintf("upload exceeds %d bytes", h.maxUpload))
			return service.Upload{}, false
		}
		h.badRequest(c, "multipart field \"file\" is required")
		return service.Upload{}, false
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		h.badRequest(c, fmt.Sprintf("file %s exceeds %d bytes", fh.Filename, h.maxUpload))
		return service.Upload{}, false
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("open upload: %w", err))
		return service.Upload{}, false
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, fmt.Errorf("read upload: %w", err))
		return service.Upload{}, false
	}
	return service.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, true
}
