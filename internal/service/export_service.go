package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
	"github.com/noah-isme/roster-api/pkg/export"
)

var studentExportHeaders = []string{"Nome", "Turma", "Turno", "Responsável", "Data de Nascimento"}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	RenderReport(report export.Report) ([]byte, error)
	RenderContract(contract export.Contract) ([]byte, error)
}

type studentGetter interface {
	Get(id string) (models.Student, bool)
}

// ContractSettings describes the issuer printed on contracts.
type ContractSettings struct {
	Issuer     export.Issuer
	SchoolYear int
}

// ReportRequest selects the students listed by a report.
type ReportRequest struct {
	Title       string
	Code        string
	Description string
	Filter      models.StudentFilter
}

// ContractRequest carries the contract value and signing date (DD/MM/YYYY or YYYY-MM-DD).
type ContractRequest struct {
	Value    float64 `json:"value" validate:"gte=0"`
	SignedAt string  `json:"signed_at"`
}

// ExportFile is a rendered document ready for download.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExportService renders student listings and enrollment contracts. Rendering never persists.
type ExportService struct {
	reports  *ReportService
	students studentGetter
	csv      csvRenderer
	pdf      pdfRenderer
	contract ContractSettings
	logger   *zap.Logger
	clock    func() time.Time
}

// NewExportService constructs the service.
func NewExportService(reports *ReportService, students studentGetter, csv csvRenderer, pdf pdfRenderer, contract ContractSettings, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reports: reports, students: students, csv: csv, pdf: pdf, contract: contract, logger: logger, clock: time.Now}
}

// StudentReport renders the filtered students as a paginated PDF named REL_<code>.pdf.
func (s *ExportService) StudentReport(ctx context.Context, req ReportRequest) (*ExportFile, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		code = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Relatório de Alunos"
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = describeFilter(req.Filter)
	}
	report := export.Report{
		Title:       title,
		Code:        code,
		Description: description,
		Data:        studentDataset(s.reports.Filter(req.Filter)),
	}
	data, err := s.pdf.RenderReport(report)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	s.logger.Info("report rendered", zap.String("code", code), zap.Int("rows", len(report.Data.Rows)))
	return &ExportFile{Name: report.FileName(), ContentType: "application/pdf", Data: data}, nil
}

// StudentCSV renders the filtered students as CSV.
func (s *ExportService) StudentCSV(ctx context.Context, filter models.StudentFilter) (*ExportFile, error) {
	data, err := s.csv.Render(studentDataset(s.reports.Filter(filter)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	name := fmt.Sprintf("alunos_%s.csv", s.clock().Format("20060102"))
	return &ExportFile{Name: name, ContentType: "text/csv; charset=utf-8", Data: data}, nil
}

// Contract renders the enrollment contract of a student. The file name carries the year of the
// signing date, which defaults to today.
func (s *ExportService) Contract(ctx context.Context, studentID string, req ContractRequest) (*ExportFile, error) {
	if req.Value < 0 {
		return nil, appErrors.Validation("invalid contract", appErrors.FieldViolation{Field: "value", Rule: RuleGTE})
	}
	student, ok := s.students.Get(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	signedAt := models.DateOf(s.clock())
	if raw := strings.TrimSpace(req.SignedAt); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			return nil, appErrors.Validation("invalid contract", appErrors.FieldViolation{Field: "signed_at", Rule: RuleDate})
		}
		signedAt = parsed
	}
	year := s.contract.SchoolYear
	if year == 0 {
		year = signedAt.Year
	}

	data, err := s.pdf.RenderContract(export.Contract{
		Issuer:        s.contract.Issuer,
		SchoolYear:    year,
		GuardianName:  student.GuardianName,
		GuardianTaxID: student.GuardianTaxID,
		GuardianPhone: student.GuardianPhone,
		StudentName:   student.Name,
		Shift:         student.Shift.Label(),
		Value:         req.Value,
		SignedAt:      signedAt.String(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render contract")
	}
	return &ExportFile{Name: export.ContractFileName(signedAt.Year, student.Name), ContentType: "application/pdf", Data: data}, nil
}

func studentDataset(students []models.Student) export.Dataset {
	rows := make([][]string, len(students))
	for i, st := range students {
		rows[i] = []string{st.Name, st.SchoolYear, st.Shift.Label(), st.GuardianName, st.BirthDate.String()}
	}
	return export.Dataset{Headers: studentExportHeaders, Rows: rows}
}

func describeFilter(f models.StudentFilter) string {
	var parts []string
	if f.Name != "" {
		parts = append(parts, "Nome: "+f.Name)
	}
	if f.GuardianName != "" {
		parts = append(parts, "Responsável: "+f.GuardianName)
	}
	if f.Shift != "" {
		parts = append(parts, "Turno: "+f.Shift.Label())
	}
	if f.SchoolYear != "" {
		parts = append(parts, "Turma: "+f.SchoolYear)
	}
	if f.GuardianTaxID != "" {
		parts = append(parts, "CPF: "+f.GuardianTaxID)
	}
	if f.BirthFrom != nil {
		parts = append(parts, "Nascidos a partir de "+f.BirthFrom.String())
	}
	if f.BirthTo != nil {
		parts = append(parts, "Nascidos até "+f.BirthTo.String())
	}
	if len(parts) == 0 {
		return "Todos os alunos"
	}
	return strings.Join(parts, " | ")
}
