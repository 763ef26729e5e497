package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wlwcreche/creche-api/internal/models"
	"github.com/wlwcreche/creche-api/internal/service"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
	"github.com/wlwcreche/creche-api/pkg/response"
)

// MenuHandler exposes menu management and consultation endpoints.
type MenuHandler struct {
	menus *service.MenuService
}

// NewMenuHandler constructs MenuHandler.
func NewMenuHandler(menus *service.MenuService) *MenuHandler {
	return &MenuHandler{menus: menus}
}

// Create godoc
// @Summary Create a draft menu
// @Tags Menus
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateMenuRequest true "Menu"
// @Success 201 {object} response.Envelope
// @Router /admin/menus [post]
func (h *MenuHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	menu, err := h.menus.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, menu)
}

// Get godoc
// @Summary Get a menu
// @Tags Menus
// @Produce json
// @Security BearerAuth
// @Param id path string true "Menu ID"
// @Success 200 {object} response.Envelope
// @Router /admin/menus/{id} [get]
func (h *MenuHandler) Get(c *gin.Context) {
	menu, err := h.menus.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, menu, nil)
}

// ListWeek godoc
// @Summary List menus over a period
// @Description Defaults to the current week. Non admin callers only see published menus.
// @Tags Menus
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /menus [get]
func (h *MenuHandler) ListWeek(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	from, to, ok := rangeQuery(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date range"))
		return
	}

	publishedOnly := claims.Role != models.RoleAdmin
	menus, err := h.menus.ListWeek(c.Request.Context(), from, to, publishedOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, menus, nil)
}

// Update godoc
// @Summary Update a menu
// @Tags Menus
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Menu ID"
// @Param request body models.UpdateMenuRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /admin/menus/{id} [put]
func (h *MenuHandler) Update(c *gin.Context) {
	var req models.UpdateMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	menu, err := h.menus.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, menu, nil)
}

// Publish godoc
// @Summary Publish a draft menu
// @Tags Menus
// @Produce json
// @Security BearerAuth
// @Param id path string true "Menu ID"
// @Success 200 {object} response.Envelope
// @Router /admin/menus/{id}/publish [post]
func (h *MenuHandler) Publish(c *gin.Context) {
	menu, err := h.menus.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, menu, nil)
}

// Delete godoc
// @Summary Delete a draft menu
// @Tags Menus
// @Security BearerAuth
// @Param id path string true "Menu ID"
// @Success 204 "No Content"
// @Router /admin/menus/{id} [delete]
func (h *MenuHandler) Delete(c *gin.Context) {
	if err := h.menus.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
