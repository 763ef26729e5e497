package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wlwcreche/creche-api/internal/models"
	"github.com/wlwcreche/creche-api/internal/service"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
	"github.com/wlwcreche/creche-api/pkg/response"
)

// EnrollmentHandler exposes the application intake and decision endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	exports     *service.ExportService
	metrics     *service.MetricsService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, exports *service.ExportService, metrics *service.MetricsService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, exports: exports, metrics: metrics}
}

// Apply godoc
// @Summary Submit a public enrollment application
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.ApplicationPayload true "Application"
// @Success 201 {object} response.Envelope
// @Router /inscriptions [post]
func (h *EnrollmentHandler) Apply(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable payload"))
		return
	}
	enrollment, err := h.enrollments.Apply(c.Request.Context(), json.RawMessage(raw))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// List godoc
// @Summary List enrollment applications
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param q query string false "Free text search"
// @Param from query string false "Submitted after (YYYY-MM-DD)"
// @Param to query string false "Submitted before (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/inscriptions [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), *filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get one enrollment application
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /admin/inscriptions/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// UpdateStatus godoc
// @Summary Move an application along its lifecycle
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body models.UpdateEnrollmentStatusRequest true "Status change"
// @Success 200 {object} response.Envelope
// @Router /admin/inscriptions/{id}/status [put]
func (h *EnrollmentHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	var req models.UpdateEnrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.UpdateStatus(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Accept godoc
// @Summary Accept an application and provision family records
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /admin/inscriptions/{id}/accept [post]
func (h *EnrollmentHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	var req struct {
		Notes *string `json:"notes"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	result, err := h.enrollments.Accept(c.Request.Context(), c.Param("id"), claims.UserID, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordEnrollmentDecision("accept")
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject an application
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body models.RejectEnrollmentRequest false "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /admin/inscriptions/{id}/reject [post]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	var req models.RejectEnrollmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	enrollment, err := h.enrollments.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordEnrollmentDecision("reject")
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Stats godoc
// @Summary Count applications per status
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/inscriptions/stats [get]
func (h *EnrollmentHandler) Stats(c *gin.Context) {
	counts, err := h.enrollments.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// Export godoc
// @Summary Export the enrollment list
// @Tags Enrollments
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Success 200
// @Router /admin/inscriptions/export [get]
func (h *EnrollmentHandler) Export(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.exports.Enrollments(c.Request.Context(), *filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *EnrollmentHandler) parseFilter(c *gin.Context) (*models.EnrollmentFilter, bool) {
	var filter models.EnrollmentFilter
	if raw := strings.ToUpper(c.Query("status")); raw != "" {
		status := models.EnrollmentStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status"))
			return nil, false
		}
		filter.Status = &status
	}
	filter.Query = c.Query("q")
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date"))
			return nil, false
		}
		filter.DateMin = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date"))
			return nil, false
		}
		filter.DateMax = &parsed
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return &filter, true
}
