// Package normalize canonicalizes free-text roster fields. Every function is total: malformed input
// yields a best-effort value and never an error, so callers validate digit counts separately.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	ShiftMorningLabel   = "MANHÃ"
	ShiftAfternoonLabel = "TARDE"

	taxIDDigits = 11
)

var (
	yearOrdinal = regexp.MustCompile(`(\d+)\s*ANO`)
	spaces      = regexp.MustCompile(`\s+`)
)

// Digits strips every non-digit rune.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Fold upper-cases s and removes diacritics ("manhã" -> "MANHA").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToUpper(folded)
}

// Name lower-cases the input and capitalizes the first letter of every whitespace-delimited token.
// Surrounding whitespace is trimmed and inner runs collapse to one space.
func Name(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	for i, token := range tokens {
		r := []rune(token)
		r[0] = unicode.ToUpper(r[0])
		tokens[i] = string(r)
	}
	return strings.Join(tokens, " ")
}

// TaxID formats the digits of s as NNN.NNN.NNN-NN. Short input produces a partial mask and digits
// past the eleventh are dropped.
func TaxID(s string) string {
	d := Digits(s)
	if len(d) > taxIDDigits {
		d = d[:taxIDDigits]
	}
	switch {
	case len(d) <= 3:
		return d
	case len(d) <= 6:
		return d[:3] + "." + d[3:]
	case len(d) <= 9:
		return d[:3] + "." + d[3:6] + "." + d[6:]
	default:
		return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
	}
}

// Phone formats landlines (up to 10 digits) as (DD) NNNN-NNNN and mobiles as (DD) NNNNN-NNNN.
func Phone(s string) string {
	d := Digits(s)
	if len(d) <= 2 {
		return d
	}
	area, body := d[:2], d[2:]
	full := 8
	if len(d) > 10 {
		full = 9
	}
	if len(body) >= full {
		body = body[:len(body)-4] + "-" + body[len(body)-4:]
	}
	return "(" + area + ") " + body
}

// WithAreaCode prefixes a bare 9-digit mobile number with the given two-digit area code.
func WithAreaCode(phone, areaCode string) string {
	areaCode = Digits(areaCode)
	if len(areaCode) != 2 {
		return phone
	}
	if len(Digits(phone)) == 9 {
		return areaCode + Digits(phone)
	}
	return phone
}

// Shift folds case and accents and maps MANHA to MANHÃ. Unknown labels pass through upper-cased.
func Shift(s string) string {
	folded := strings.TrimSpace(Fold(s))
	folded = strings.ReplaceAll(folded, "MANHA", ShiftMorningLabel)
	return folded
}

// SchoolYear upper-cases a grade label, writes the ordinal mark ("5 ano" -> "5° ANO") and the
// accented PRÉ, and collapses whitespace.
func SchoolYear(s string) string {
	out := strings.ToUpper(s)
	out = yearOrdinal.ReplaceAllString(out, "${1}° ANO")
	out = spaces.ReplaceAllString(out, " ")
	out = strings.ReplaceAll(out, "PRE", "PRÉ")
	return strings.TrimSpace(out)
}
