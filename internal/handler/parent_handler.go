package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wlwcreche/creche-api/internal/models"
	"github.com/wlwcreche/creche-api/internal/service"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
	"github.com/wlwcreche/creche-api/pkg/response"
)

// ParentHandler exposes the parent facing dashboard.
type ParentHandler struct {
	parents *service.ParentService
}

// NewParentHandler constructs ParentHandler.
func NewParentHandler(parents *service.ParentService) *ParentHandler {
	return &ParentHandler{parents: parents}
}

// Dashboard godoc
// @Summary Daily dashboard of the authenticated parent
// @Description Attendance, summary and journal per child, today's menu and upcoming events.
// @Tags Parent
// @Produce json
// @Security BearerAuth
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /parent/dashboard [get]
func (h *ParentHandler) Dashboard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	day, ok := dateQuery(c, "date")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date"))
		return
	}

	dashboard, err := h.parents.Dashboard(c.Request.Context(), claims, day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// Me godoc
// @Summary Profile of the authenticated parent
// @Description Account, guardian contact fields and children of the family.
// @Tags Parent
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /parent/me [get]
func (h *ParentHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.parents.Profile(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateMe godoc
// @Summary Update the contact details of the authenticated parent
// @Tags Parent
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.UpdateParentProfileRequest true "Contact fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /parent/me [put]
func (h *ParentHandler) UpdateMe(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateParentProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	profile, err := h.parents.UpdateProfile(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
