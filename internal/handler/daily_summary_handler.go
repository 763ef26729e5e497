package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wlwcreche/creche-api/internal/models"
	"github.com/wlwcreche/creche-api/internal/service"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
	"github.com/wlwcreche/creche-api/pkg/response"
)

// DailySummaryHandler exposes per-child daily report endpoints.
type DailySummaryHandler struct {
	summaries *service.DailySummaryService
}

// NewDailySummaryHandler constructs DailySummaryHandler.
func NewDailySummaryHandler(summaries *service.DailySummaryService) *DailySummaryHandler {
	return &DailySummaryHandler{summaries: summaries}
}

// Upsert godoc
// @Summary Write or overwrite a child's daily summary
// @Tags Summaries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpsertDailySummaryRequest true "Summary"
// @Success 200 {object} response.Envelope
// @Router /resumes [put]
func (h *DailySummaryHandler) Upsert(c *gin.Context) {
	claims := claimsFromContext(c)
	scope := scopeFromContext(c)
	if claims == nil || scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpsertDailySummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	summary, err := h.summaries.Upsert(c.Request.Context(), scope, req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// GetForChild godoc
// @Summary Get a child's summary for a day
// @Tags Summaries
// @Produce json
// @Security BearerAuth
// @Param childId path string true "Child ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /resumes/enfants/{childId} [get]
func (h *DailySummaryHandler) GetForChild(c *gin.Context) {
	scope := scopeFromContext(c)
	if scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	date, ok := dateQuery(c, "date")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date"))
		return
	}

	summary, err := h.summaries.GetForChild(c.Request.Context(), scope, c.Param("childId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// History godoc
// @Summary List a child's summaries over a period
// @Tags Summaries
// @Produce json
// @Security BearerAuth
// @Param childId path string true "Child ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /resumes/enfants/{childId}/historique [get]
func (h *DailySummaryHandler) History(c *gin.Context) {
	scope := scopeFromContext(c)
	if scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	from, to, ok := rangeQuery(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date range"))
		return
	}

	summaries, err := h.summaries.History(c.Request.Context(), scope, c.Param("childId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// ListByClass godoc
// @Summary List the summaries of a class for a day
// @Tags Summaries
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /resumes/classes/{classId} [get]
func (h *DailySummaryHandler) ListByClass(c *gin.Context) {
	scope := scopeFromContext(c)
	if scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	date, ok := dateQuery(c, "date")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date"))
		return
	}

	summaries, err := h.summaries.ListByClass(c.Request.Context(), scope, c.Param("classId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}
