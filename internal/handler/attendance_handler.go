package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wlwcreche/creche-api/internal/models"
	"github.com/wlwcreche/creche-api/internal/service"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
	"github.com/wlwcreche/creche-api/pkg/response"
)

// AttendanceHandler exposes daily presence endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	exports    *service.ExportService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService, exports *service.ExportService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, exports: exports}
}

// Record godoc
// @Summary Record attendance for a class day
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.BulkAttendanceRequest true "Attendance batch"
// @Success 200 {object} response.Envelope
// @Router /presences [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	scope := scopeFromContext(c)
	var req models.BulkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	records, err := h.attendance.Record(c.Request.Context(), scope, req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Upsert godoc
// @Summary Record or correct a single attendance entry
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.UpsertAttendanceRequest true "Attendance entry"
// @Success 200 {object} response.Envelope
// @Router /presences [put]
func (h *AttendanceHandler) Upsert(c *gin.Context) {
	claims := claimsFromContext(c)
	scope := scopeFromContext(c)
	var req models.UpsertAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.RecordOne(c.Request.Context(), scope, req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// List godoc
// @Summary List attendance across the caller's scope
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param from query string false "Period start (YYYY-MM-DD)"
// @Param to query string false "Period end (YYYY-MM-DD)"
// @Param status query string false "Attendance status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /presences [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	scope := scopeFromContext(c)
	from, to, ok := rangeQuery(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date range"))
		return
	}

	filter := models.AttendanceFilter{From: from, To: to}
	if raw := c.Query("status"); raw != "" {
		status := models.AttendanceStatus(strings.ToUpper(raw))
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status"))
			return
		}
		filter.Status = &status
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	records, pagination, err := h.attendance.List(c.Request.Context(), scope, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// ListByClass godoc
// @Summary List attendance of a class for a day
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param date query string false "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /presences/classes/{classId} [get]
func (h *AttendanceHandler) ListByClass(c *gin.Context) {
	scope := scopeFromContext(c)
	date, ok := dateQuery(c, "date")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date"))
		return
	}
	records, err := h.attendance.ListByClass(c.Request.Context(), scope, c.Param("classId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ListByChild godoc
// @Summary List attendance of a child over a period
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param childId path string true "Child ID"
// @Param from query string false "Period start (YYYY-MM-DD)"
// @Param to query string false "Period end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /presences/enfants/{childId} [get]
func (h *AttendanceHandler) ListByChild(c *gin.Context) {
	scope := scopeFromContext(c)
	from, to, ok := rangeQuery(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date range"))
		return
	}
	records, err := h.attendance.ListByChild(c.Request.Context(), scope, c.Param("childId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Summary godoc
// @Summary Aggregate attendance counts of a class over a period
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param from query string false "Period start (YYYY-MM-DD)"
// @Param to query string false "Period end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /presences/classes/{classId}/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	scope := scopeFromContext(c)
	from, to, ok := rangeQuery(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date range"))
		return
	}
	summaries, err := h.attendance.Summary(c.Request.Context(), scope, c.Param("classId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// Export godoc
// @Summary Export class attendance over a period
// @Tags Attendance
// @Produce octet-stream
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param format query string false "csv or pdf"
// @Success 200
// @Router /admin/presences/classes/{classId}/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	from, to, ok := rangeQuery(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date range"))
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.exports.Attendance(c.Request.Context(), c.Param("classId"), from, to, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
