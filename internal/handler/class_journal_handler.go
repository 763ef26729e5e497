package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wlwcreche/creche-api/internal/models"
	"github.com/wlwcreche/creche-api/internal/service"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
	"github.com/wlwcreche/creche-api/pkg/response"
)

// ClassJournalHandler exposes class journal endpoints.
type ClassJournalHandler struct {
	journals *service.ClassJournalService
	metrics  *service.MetricsService
}

// NewClassJournalHandler constructs ClassJournalHandler.
func NewClassJournalHandler(journals *service.ClassJournalService, metrics *service.MetricsService) *ClassJournalHandler {
	return &ClassJournalHandler{journals: journals, metrics: metrics}
}

// Create godoc
// @Summary Create a draft journal entry
// @Tags Journals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateJournalRequest true "Journal entry"
// @Success 201 {object} response.Envelope
// @Router /journaux [post]
func (h *ClassJournalHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	scope := scopeFromContext(c)
	if claims == nil || scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	journal, err := h.journals.Create(c.Request.Context(), scope, req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, journal)
}

// Get godoc
// @Summary Get a journal entry
// @Description Parents only see published entries. Reading marks their diffusion as read.
// @Tags Journals
// @Produce json
// @Security BearerAuth
// @Param id path string true "Journal ID"
// @Success 200 {object} response.Envelope
// @Router /journaux/{id} [get]
func (h *ClassJournalHandler) Get(c *gin.Context) {
	scope := scopeFromContext(c)
	if scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	journal, err := h.journals.Get(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, journal, nil)
}

// ListByClass godoc
// @Summary List the journals of a class over a period
// @Tags Journals
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /journaux/classes/{classId} [get]
func (h *ClassJournalHandler) ListByClass(c *gin.Context) {
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

	journals, err := h.journals.List(c.Request.Context(), scope, c.Param("classId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, journals, nil)
}

// Update godoc
// @Summary Update a draft journal entry
// @Tags Journals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Journal ID"
// @Param request body models.UpdateJournalRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /journaux/{id} [put]
func (h *ClassJournalHandler) Update(c *gin.Context) {
	scope := scopeFromContext(c)
	if scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	journal, err := h.journals.Update(c.Request.Context(), scope, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, journal, nil)
}

// Publish godoc
// @Summary Publish a journal entry and notify the parents of the class
// @Tags Journals
// @Produce json
// @Security BearerAuth
// @Param id path string true "Journal ID"
// @Success 200 {object} response.Envelope
// @Router /journaux/{id}/publish [post]
func (h *ClassJournalHandler) Publish(c *gin.Context) {
	claims := claimsFromContext(c)
	scope := scopeFromContext(c)
	if claims == nil || scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	journal, err := h.journals.Publish(c.Request.Context(), scope, c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordJournalNotification()
	response.JSON(c, http.StatusOK, journal, nil)
}

// Diffusions godoc
// @Summary List the delivery records of a journal
// @Tags Journals
// @Produce json
// @Security BearerAuth
// @Param id path string true "Journal ID"
// @Success 200 {object} response.Envelope
// @Router /journaux/{id}/diffusions [get]
func (h *ClassJournalHandler) Diffusions(c *gin.Context) {
	diffusions, err := h.journals.Diffusions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, diffusions, nil)
}
