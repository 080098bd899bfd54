package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders an amount the way pt-BR invoices print it, e.g. "R$ 1.234,50".
func FormatBRL(value float64) string {
	return "R$ " + brl.Sprint(number.Decimal(value, number.Scale(2)))
}

// Issuer identifies the contracting institution.
type Issuer struct {
	Name    string
	CNPJ    string
	Address string
	Phones  string
	City    string
}

// Contract carries everything printed on an enrollment contract.
type Contract struct {
	Issuer        Issuer
	SchoolYear    int
	GuardianName  string
	GuardianTaxID string
	GuardianPhone string
	StudentName   string
	Shift         string
	Value         float64
	// SignedAt is the DD/MM/YYYY date written above the signatures.
	SignedAt string
}

// ContractFileName builds Contrato_<year>_<Student_Name>.pdf.
func ContractFileName(year int, studentName string) string {
	return fmt.Sprintf("Contrato_%d_%s.pdf", year, strings.Join(strings.Fields(studentName), "_"))
}

// Clauses returns the contract body in print order.
func (c Contract) Clauses() []string {
	year := c.SchoolYear
	return []string{
		fmt.Sprintf("CLÁUSULA 1ª\nO objeto do presente contrato é a prestação de serviços educacionais, a serem ministradas pela CONTRATADA, tendo como beneficiário o aluno acima indicado, que cursará durante o ano letivo de %d;", year),
		"CLÁUSULA 2ª\nA CONTRATADA assegura, ao aluno indicado, uma vaga no seu corpo discente, favorecendo a educação por meio do ensino presencial, de aulas e demais atividades pedagógicas, as aulas serão ministradas nas dependências da CONTRATADA.",
		fmt.Sprintf("CLÁUSULA 3ª\nA CONTRATADA cobrará como contraprestação dos serviços, objeto deste contrato, a serem prestados durante o período letivo de %d, o valor assinalado abaixo discriminado:\nValor Contratual: %s", year, FormatBRL(c.Value)),
		"CLÁUSULA 4ª\nAo firmar o presente contrato, o CONTRATANTE declara que tem conhecimento prévio do REGIMENTO INTERNO, que se encontra à disposição na secretaria da CONTRATADA, e das instruções específicas, que lhe foram apresentadas e que passam a fazer parte integrante deste contrato, submetendo-se às suas disposições.",
		"CLÁUSULA 5ª\nO CONTRATANTE, representante legal do (a) aluno (a), autoriza a CONTRATADA, durante o período de vigência deste CONTRATO, a utilizar e reproduzir a imagem, a voz e o nome do (a) aluno (a) para divulgações institucionais, sobretudo durante atividades pedagógicas e projetos especiais, em conformidade com a legislação vigente, em especial o Estatuto da Criança e do Adolescente.",
		"CLÁUSULA 6ª\nO presente instrumento entra em vigor no ato da sua assinatura, pelo prazo certo e determinado que deverá coincidir com o término do ano letivo.\n§ 1º - Antes do término previsto, o contrato poderá ser rescindido por iniciativa do CONTRATANTE, o que implicará o cancelamento imediato da matrícula, sendo devida a integralidade das parcelas vencidas.\n§ 2º - O contrato poderá ser rescindido por iniciativa da CONTRATADA, caso o aluno beneficiário cometa alguma infração disciplinar que justifique, nos termos do REGIMENTO INTERNO, seu desligamento do estabelecimento de ensino;",
		fmt.Sprintf("CLÁUSULA 7ª\nAs partes contratantes atribuem ao presente contrato plena eficácia e constitui o acordo integral entre as partes com relação ao seu objeto.\nAs partes elegem o foro de %s como o único competente para dirimir quaisquer questões que decorrerem deste contrato, com expressa renúncia de outro, por mais privilegiado que seja ou venha a ser.", c.Issuer.City),
		fmt.Sprintf("E, por estarem assim, justas e contratadas, firmam o presente instrumento, lavrado em duas vias de igual teor e forma.\n\n%s, %s\nCONTRATADA: %s\nCONTRATANTE: %s\nASSINATURA: ________________________", c.Issuer.City, c.SignedAt, c.Issuer.Name, c.GuardianName),
	}
}

// RenderContract creates the portrait A4 enrollment contract.
func (e *PDFExporter) RenderContract(c Contract) ([]byte, error) {
	if strings.TrimSpace(c.StudentName) == "" || strings.TrimSpace(c.GuardianName) == "" {
		return nil, fmt.Errorf("contract requires student and guardian names")
	}
	const (
		margin     = 15.0
		lineHeight = 5.0
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, 20, margin)
	pdf.SetAutoPageBreak(true, margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, tr(c.Issuer.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 4, tr("CNPJ: "+c.Issuer.CNPJ), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 4, tr(c.Issuer.Address), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 4, tr("TELEFONES: "+c.Issuer.Phones), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("CONTRATO ANO LETIVO %d", c.SchoolYear)), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	header := fmt.Sprintf("Pelo presente instrumento particular denominado CONTRATO DE MATRÍCULA NO ANO LETIVO %d, que entre si fazem as partes a seguir qualificadas, tendo de um lado, %s, inscrita no CNPJ sob o nº %s, com sede a %s, doravante denominada simplesmente CONTRATADA, e de outro lado:\n\nResponsável: %s | CPF: %s | Celular: %s\nDenominado CONTRATANTE e RESPONSÁVEL FINANCEIRO pelo aluno(a):\n%s | Turno: %s\n\nTêm entre si como justas e contratadas as cláusulas e condições seguintes:",
		c.SchoolYear, c.Issuer.Name, c.Issuer.CNPJ, c.Issuer.Address,
		c.GuardianName, c.GuardianTaxID, c.GuardianPhone,
		c.StudentName, c.Shift)
	pdf.MultiCell(0, lineHeight, tr(header), "", "L", false)
	pdf.Ln(2)

	for _, clause := range c.Clauses() {
		pdf.MultiCell(0, lineHeight, tr(clause), "", "L", false)
		pdf.Ln(2)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render contract: %w", err)
	}
	return buf.Bytes(), nil
}
