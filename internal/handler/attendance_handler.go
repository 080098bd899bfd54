package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-api/internal/models"
	"github.com/noah-isme/roster-api/internal/service"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
	"github.com/noah-isme/roster-api/pkg/response"
)

// AttendanceHandler exposes daily attendance endpoints of a class.
type AttendanceHandler struct {
	ledger *service.AttendanceLedger
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(ledger *service.AttendanceLedger) *AttendanceHandler {
	return &AttendanceHandler{ledger: ledger}
}

// Mark godoc
// @Summary Set a student's presence on a date
// @Description The first mark of a date creates its record, even when the mark is an absence
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.MarkAttendanceRequest true "Attendance mark"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/attendance [put]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if req.StudentID == "" {
		response.Error(c, appErrors.Validation("invalid payload", appErrors.FieldViolation{Field: "student_id", Rule: service.RuleRequired}))
		return
	}
	date, err := parseDateParam("date", req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.ledger.MarkAttendance(c.Request.Context(), c.Param("id"), req.StudentID, date, req.Present)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// History godoc
// @Summary Attendance history, newest first
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param filter query string false "all, present or absent"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/attendance [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	filter, ok := models.ParseHistoryFilter(c.Query("filter"))
	if !ok {
		response.Error(c, invalidQuery("filter", "oneof"))
		return
	}
	classID := c.Param("id")
	history, err := h.ledger.History(classID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	rate, err := h.ledger.ClassAttendanceRate(classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, pagination := paginate(c, history)
	response.JSON(c, http.StatusOK, entries, pagination, map[string]interface{}{"attendance_rate": rate})
}

// Day godoc
// @Summary Attendance of one date
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/attendance/{date} [get]
func (h *AttendanceHandler) Day(c *gin.Context) {
	date, err := parseDateParam("date", c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	day, err := h.ledger.Day(c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// Months godoc
// @Summary Months having attendance records
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/months [get]
func (h *AttendanceHandler) Months(c *gin.Context) {
	months, err := h.ledger.MonthsWithRecords(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, months, nil)
}

// Student godoc
// @Summary Attendance history and rate of one student
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/students/{studentId}/attendance [get]
func (h *AttendanceHandler) Student(c *gin.Context) {
	summary, err := h.ledger.StudentSummary(c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
