package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// ReportRowsPerPage caps the table rows printed on a single report page.
const ReportRowsPerPage = 9

// Report describes a paginated listing.
type Report struct {
	Title       string
	Code        string
	Description string
	Data        Dataset
}

// FileName returns the download name of the report.
func (r Report) FileName() string {
	return fmt.Sprintf("REL_%s.pdf", r.Code)
}

// Paginate splits rows into pages of at most size rows. An empty input yields one empty page so the
// report still prints its header.
func Paginate(rows [][]string, size int) [][][]string {
	if size <= 0 {
		size = ReportRowsPerPage
	}
	if len(rows) == 0 {
		return [][][]string{{}}
	}
	pages := make([][][]string, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		pages = append(pages, rows[start:end])
	}
	return pages
}

// PDFExporter renders reports and contracts with gofpdf core fonts.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderReport creates a landscape A4 document listing the dataset in pages of ReportRowsPerPage rows.
func (e *PDFExporter) RenderReport(report Report) ([]byte, error) {
	if len(report.Data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	const margin = 15.0

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	colWidth := (pageWidth - 2*margin) / float64(len(report.Data.Headers))
	pages := Paginate(report.Data.Rows, ReportRowsPerPage)

	for n, rows := range pages {
		pdf.AddPage()
		if n == 0 {
			pdf.SetFont("Helvetica", "B", 20)
			pdf.CellFormat(0, 9, tr(report.Title), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 15)
			pdf.CellFormat(0, 7, tr("Código do Relatório: REL-"+report.Code), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(report.Description), "", "L", false)
			pdf.Ln(2)
		}

		pdf.SetFont("Helvetica", "", 10)
		caption := fmt.Sprintf("Página %d de %d - Listando %d items", n+1, len(pages), len(rows))
		pdf.CellFormat(0, 8, tr(caption), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "B", 10)
		for _, header := range report.Data.Headers {
			pdf.CellFormat(colWidth, 9, tr(header), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 9)
		for _, row := range rows {
			for i := range report.Data.Headers {
				value := ""
				if i < len(row) {
					value = row[i]
				}
				pdf.CellFormat(colWidth, 10, tr(value), "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
