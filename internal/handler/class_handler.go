package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wlwcreche/creche-api/internal/models"
	"github.com/wlwcreche/creche-api/internal/service"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
	"github.com/wlwcreche/creche-api/pkg/response"
)

// ClassHandler exposes class management endpoints.
type ClassHandler struct {
	classes *service.ClassService
}

// NewClassHandler constructs ClassHandler.
func NewClassHandler(classes *service.ClassService) *ClassHandler {
	return &ClassHandler{classes: classes}
}

// List godoc
// @Summary List classes visible to the caller
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param active query bool false "Only active classes"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	scope := scopeFromContext(c)
	activeOnly := c.Query("active") == "true"
	classes, err := h.classes.List(c.Request.Context(), scope, activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// Get godoc
// @Summary Get a class with occupancy stats
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, stats, err := h.classes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"class": class, "stats": stats}, nil)
}

// Create godoc
// @Summary Create a class
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /admin/classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req models.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.classes.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Update a class
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param payload body models.UpdateClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Router /admin/classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	var req models.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.classes.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Roster godoc
// @Summary List the children of a class
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/children [get]
func (h *ClassHandler) Roster(c *gin.Context) {
	scope := scopeFromContext(c)
	children, err := h.classes.Roster(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, children, nil)
}

// AssignChild godoc
// @Summary Move a child into the class
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 204
// @Router /admin/classes/{id}/children [post]
func (h *ClassHandler) AssignChild(c *gin.Context) {
	var req struct {
		ChildID string `json:"child_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.classes.AssignChild(c.Request.Context(), c.Param("id"), req.ChildID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveChild godoc
// @Summary Move a child out of its class
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param childId path string true "Child ID"
// @Success 204
// @Router /admin/classes/{id}/children/{childId} [delete]
func (h *ClassHandler) RemoveChild(c *gin.Context) {
	if err := h.classes.RemoveChild(c.Request.Context(), c.Param("childId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignTeacher godoc
// @Summary Assign a teacher to the class
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param payload body models.AssignTeacherRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /admin/classes/{id}/teachers [post]
func (h *ClassHandler) AssignTeacher(c *gin.Context) {
	var req models.AssignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.classes.AssignTeacher(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Assignments godoc
// @Summary List the teacher assignments of a class
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /admin/classes/{id}/teachers [get]
func (h *ClassHandler) Assignments(c *gin.Context) {
	assignments, err := h.classes.Assignments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// EndAssignment godoc
// @Summary End a teacher assignment
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param assignmentId path string true "Assignment ID"
// @Success 204
// @Router /admin/classes/{id}/teachers/{assignmentId} [delete]
func (h *ClassHandler) EndAssignment(c *gin.Context) {
	if err := h.classes.EndTeacherAssignment(c.Request.Context(), c.Param("assignmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
