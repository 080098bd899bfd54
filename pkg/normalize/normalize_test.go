package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	cases := map[string]string{
		"maria silva":       "Maria Silva",
		"  ANA   de SOUZA ": "Ana De Souza",
		"joão PEDRO":        "João Pedro",
		"":                  "",
		"élida\tmarques":    "Élida Marques",
		"Maria Silva":       "Maria Silva",
	}
	for in, want := range cases {
		assert.Equal(t, want, Name(in), "input %q", in)
	}
}

func TestTaxID(t *testing.T) {
	assert.Equal(t, "123.456.789-01", TaxID("12345678901"))
	assert.Equal(t, "123.456.789-01", TaxID("123.456.789-01"))
	assert.Equal(t, "123.456.789-01", TaxID("123456789012"))
	assert.Equal(t, "123.456.78", TaxID("12345678"))
	assert.Equal(t, "123.4", TaxID("1234"))
	assert.Equal(t, "12", TaxID("a1b2"))
	assert.Equal(t, "", TaxID("abc"))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "(61) 91234-5678", Phone("61912345678"))
	assert.Equal(t, "(61) 3456-1234", Phone("6134561234"))
	assert.Equal(t, "(61) 91234-5678", Phone("(61) 91234-5678"))
	assert.Equal(t, "(61) 345", Phone("61345"))
	assert.Equal(t, "6", Phone("6"))
}

func TestWithAreaCode(t *testing.T) {
	assert.Equal(t, "61987654321", WithAreaCode("98765-4321", "61"))
	assert.Equal(t, "61987654321", WithAreaCode("61987654321", "61"))
	assert.Equal(t, "98765-4321", WithAreaCode("98765-4321", ""))
}

func TestShift(t *testing.T) {
	assert.Equal(t, ShiftMorningLabel, Shift("manha"))
	assert.Equal(t, ShiftMorningLabel, Shift(" Manhã "))
	assert.Equal(t, ShiftMorningLabel, Shift("MANHÃ"))
	assert.Equal(t, ShiftAfternoonLabel, Shift("tarde"))
	assert.Equal(t, "NOITE", Shift(" noite "))
}

func TestSchoolYear(t *testing.T) {
	assert.Equal(t, "5° ANO", SchoolYear("5 ano"))
	assert.Equal(t, "5° ANO", SchoolYear("5ano"))
	assert.Equal(t, "5° ANO", SchoolYear("5° ANO"))
	assert.Equal(t, "PRÉ II", SchoolYear("pre ii"))
	assert.Equal(t, "PRÉ II", SchoolYear("PRÉ   II"))
	assert.Equal(t, "3° ANO", SchoolYear("  3   ano "))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "MANHA", Fold("manhã"))
	assert.Equal(t, "JOAO", Fold("João"))
}
