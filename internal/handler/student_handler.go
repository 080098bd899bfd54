package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-api/internal/models"
	"github.com/noah-isme/roster-api/internal/service"
	"github.com/noah-isme/roster-api/pkg/response"
)

// StudentHandler exposes student directory endpoints.
type StudentHandler struct {
	directory *service.StudentDirectory
	reports   *service.ReportService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(directory *service.StudentDirectory, reports *service.ReportService) *StudentHandler {
	return &StudentHandler{directory: directory, reports: reports}
}

type deleteStudentRequest struct {
	ID string `json:"id" binding:"required"`
}

// List godoc
// @Summary List students
// @Description Students in directory order, newest first, narrowed by the optional filters
// @Tags Students
// @Produce json
// @Param name query string false "Student name substring, accent-insensitive"
// @Param guardian query string false "Guardian name substring"
// @Param shift query string false "MANHÃ or TARDE"
// @Param schoolYear query string false "School year label"
// @Param guardianTaxId query string false "Guardian tax id digits"
// @Param birthFrom query string false "Born on or after (DD/MM/YYYY or YYYY-MM-DD)"
// @Param birthTo query string false "Born on or before"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter, err := parseStudentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	students, pagination := paginate(c, h.reports.Filter(filter))
	response.JSON(c, http.StatusOK, students, pagination)
}

// Create godoc
// @Summary Register student
// @Description The record is kept with a provisional id until the database confirms it
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.StudentDraft true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var draft models.StudentDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	student, err := h.directory.Add(c.Request.Context(), draft)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Description Targets the id when given, otherwise the student with the same guardian tax id
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.StudentPatch true "Student payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var patch models.StudentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	student, err := h.directory.Update(c.Request.Context(), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Remove student
// @Tags Students
// @Accept json
// @Param payload body deleteStudentRequest true "Student id"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /students [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	var req deleteStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.directory.Remove(c.Request.Context(), strings.TrimSpace(req.ID)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Birthdays godoc
// @Summary Students born in the current month
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/birthdays [get]
func (h *StudentHandler) Birthdays(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.reports.BirthdaysThisMonth(), nil)
}

// ShiftTotals godoc
// @Summary Student count per shift
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/shift-totals [get]
func (h *StudentHandler) ShiftTotals(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.reports.CountByShift(), nil)
}

// SchoolYears godoc
// @Summary Distinct school years
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/school-years [get]
func (h *StudentHandler) SchoolYears(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.reports.SchoolYears(), nil)
}

func parseStudentFilter(c *gin.Context) (models.StudentFilter, error) {
	filter := models.StudentFilter{
		Name:          strings.TrimSpace(c.Query("name")),
		GuardianName:  strings.TrimSpace(c.Query("guardian")),
		SchoolYear:    strings.TrimSpace(c.Query("schoolYear")),
		GuardianTaxID: strings.TrimSpace(c.Query("guardianTaxId")),
	}
	if raw := strings.TrimSpace(c.Query("shift")); raw != "" {
		shift, err := models.ParseShift(raw)
		if err != nil {
			return filter, invalidQuery("shift", service.RuleShift)
		}
		filter.Shift = shift
	}
	if raw := c.Query("birthFrom"); raw != "" {
		d, err := parseDateParam("birthFrom", raw)
		if err != nil {
			return filter, err
		}
		filter.BirthFrom = &d
	}
	if raw := c.Query("birthTo"); raw != "" {
		d, err := parseDateParam("birthTo", raw)
		if err != nil {
			return filter, err
		}
		filter.BirthTo = &d
	}
	return filter, nil
}
