package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wlwcreche/creche-api/internal/models"
	"github.com/wlwcreche/creche-api/internal/service"
	"github.com/wlwcreche/creche-api/pkg/response"
)

// FamilyHandler exposes family read endpoints for administrators.
type FamilyHandler struct {
	families *service.FamilyService
}

// NewFamilyHandler constructs FamilyHandler.
func NewFamilyHandler(families *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{families: families}
}

// List godoc
// @Summary List families
// @Tags Families
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search by family or guardian name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/familles [get]
func (h *FamilyHandler) List(c *gin.Context) {
	var filter models.FamilyFilter
	filter.Search = c.Query("q")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	families, pagination, err := h.families.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, families, pagination)
}

// Get godoc
// @Summary Get a family with guardians and children
// @Tags Families
// @Produce json
// @Security BearerAuth
// @Param id path string true "Family ID"
// @Success 200 {object} response.Envelope
// @Router /admin/familles/{id} [get]
func (h *FamilyHandler) Get(c *gin.Context) {
	detail, err := h.families.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
