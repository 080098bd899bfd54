package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Nome", "Turno"},
		Rows:    [][]string{{"Maria Silva", "MANHÃ"}, {"João"}},
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	lines := strings.Split(strings.TrimSpace(string(out[len(utf8BOM):])), "\n")
	assert.Equal(t, []string{"Nome;Turno", "Maria Silva;MANHÃ", "João;"}, lines)
}

func TestCSVRenderRejectsWideRows(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{Headers: []string{"a"}, Rows: [][]string{{"1", "2"}}})
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPaginate(t *testing.T) {
	rows := make([][]string, 20)
	pages := Paginate(rows, ReportRowsPerPage)
	require.Len(t, pages, 3)
	assert.Len(t, pages[0], 9)
	assert.Len(t, pages[1], 9)
	assert.Len(t, pages[2], 2)

	assert.Len(t, Paginate(nil, ReportRowsPerPage), 1)
	assert.Len(t, Paginate(make([][]string, 9), ReportRowsPerPage), 1)
}

func TestRenderReport(t *testing.T) {
	report := Report{
		Title:       "Alunos",
		Code:        "AB12",
		Description: "Turno: MANHÃ",
		Data: Dataset{
			Headers: []string{"Nome", "Turma", "Turno", "Responsável", "Data de Nascimento"},
			Rows:    [][]string{{"Maria Silva", "3° ANO", "MANHÃ", "Ana Silva", "10/05/2015"}},
		},
	}
	out, err := NewPDFExporter().RenderReport(report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, "REL_AB12.pdf", report.FileName())
}

func TestRenderContract(t *testing.T) {
	c := Contract{
		Issuer:        Issuer{Name: "ESCOLA", CNPJ: "00.000.000/0001-00", City: "Brasília"},
		SchoolYear:    2024,
		GuardianName:  "Ana Silva",
		GuardianTaxID: "123.456.789-01",
		GuardianPhone: "(61) 98765-4321",
		StudentName:   "Maria Silva",
		Shift:         "MANHÃ",
		Value:         350,
		SignedAt:      "01/02/2024",
	}
	out, err := NewPDFExporter().RenderContract(c)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Len(t, c.Clauses(), 8)
	assert.Contains(t, c.Clauses()[2], "R$ 350,00")

	_, err = NewPDFExporter().RenderContract(Contract{})
	assert.Error(t, err)
}

func TestContractFileName(t *testing.T) {
	assert.Equal(t, "Contrato_2024_Maria_Silva.pdf", ContractFileName(2024, "Maria  Silva"))
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 1.234,50", FormatBRL(1234.5))
}
