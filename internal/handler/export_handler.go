package handler

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-api/internal/service"
	"github.com/noah-isme/roster-api/pkg/response"
)

// ExportHandler streams generated documents.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Report godoc
// @Summary Student report as PDF
// @Description Accepts the same filters as the student listing
// @Tags Exports
// @Produce application/pdf
// @Param title query string false "Report title"
// @Param code query string false "Report code, generated when empty"
// @Param description query string false "Report description"
// @Param name query string false "Student name substring"
// @Param shift query string false "MANHÃ or TARDE"
// @Param schoolYear query string false "School year label"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /students/report.pdf [get]
func (h *ExportHandler) Report(c *gin.Context) {
	filter, err := parseStudentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.StudentReport(c.Request.Context(), service.ReportRequest{
		Title:       strings.TrimSpace(c.Query("title")),
		Code:        strings.TrimSpace(c.Query("code")),
		Description: strings.TrimSpace(c.Query("description")),
		Filter:      filter,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data)
}

// CSV godoc
// @Summary Student listing as CSV
// @Tags Exports
// @Produce text/csv
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /students/export.csv [get]
func (h *ExportHandler) CSV(c *gin.Context) {
	filter, err := parseStudentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.StudentCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data)
}

// Contract godoc
// @Summary Enrollment contract of a student
// @Tags Exports
// @Accept json
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param payload body service.ContractRequest false "Contract value and signing date"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/contract [post]
func (h *ExportHandler) Contract(c *gin.Context) {
	var req service.ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, invalidPayload(err))
		return
	}
	file, err := h.exports.Contract(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data)
}
