package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-api/internal/service"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
	"github.com/noah-isme/roster-api/pkg/response"
)

// ClassHandler exposes class and membership endpoints.
type ClassHandler struct {
	registry *service.ClassRegistry
}

// NewClassHandler constructs ClassHandler.
func NewClassHandler(registry *service.ClassRegistry) *ClassHandler {
	return &ClassHandler{registry: registry}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	classes, pagination := paginate(c, h.registry.Classes())
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	class, err := h.registry.CreateClass(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Get godoc
// @Summary Get class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, ok := h.registry.Get(c.Param("id"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "class not found"))
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Eligible godoc
// @Summary Students whose age fits the class range this year
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/eligible [get]
func (h *ClassHandler) Eligible(c *gin.Context) {
	students, err := h.registry.EligibleStudents(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Students godoc
// @Summary Enrolled students
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/students [get]
func (h *ClassHandler) Students(c *gin.Context) {
	students, err := h.registry.Students(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Enroll godoc
// @Summary Enroll students
// @Description Returns the ids actually added; students already enrolled are ignored
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.EnrollRequest true "Student ids"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/students [post]
func (h *ClassHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if len(req.StudentIDs) == 0 {
		response.Error(c, appErrors.Validation("invalid payload", appErrors.FieldViolation{Field: "student_ids", Rule: service.RuleRequired}))
		return
	}
	added, err := h.registry.Enroll(c.Request.Context(), c.Param("id"), req.StudentIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"added": added}, nil)
}

// Unenroll godoc
// @Summary Remove a student from the class
// @Tags Classes
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/students/{studentId} [delete]
func (h *ClassHandler) Unenroll(c *gin.Context) {
	if err := h.registry.Unenroll(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
