package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/noah-isme/roster-api/pkg/normalize"
)

// Shift is the half-day session a student attends.
type Shift string

const (
	ShiftMorning   Shift = "MORNING"
	ShiftAfternoon Shift = "AFTERNOON"
)

// Shifts lists every shift in display order.
var Shifts = []Shift{ShiftMorning, ShiftAfternoon}

// Valid reports whether s is a known shift.
func (s Shift) Valid() bool {
	return s == ShiftMorning || s == ShiftAfternoon
}

// Label returns the Portuguese display label.
func (s Shift) Label() string {
	switch s {
	case ShiftMorning:
		return normalize.ShiftMorningLabel
	case ShiftAfternoon:
		return normalize.ShiftAfternoonLabel
	default:
		return string(s)
	}
}

// ParseShift maps free text ("manha", "Tarde", "MORNING") to a Shift.
func ParseShift(raw string) (Shift, error) {
	switch label := normalize.Shift(raw); label {
	case normalize.ShiftMorningLabel, string(ShiftMorning):
		return ShiftMorning, nil
	case normalize.ShiftAfternoonLabel, string(ShiftAfternoon):
		return ShiftAfternoon, nil
	default:
		return "", fmt.Errorf("unknown shift %q", raw)
	}
}

// MarshalText writes the display label.
func (s Shift) MarshalText() ([]byte, error) {
	return []byte(s.Label()), nil
}

// UnmarshalText accepts labels and enum values. Empty input yields the zero Shift.
func (s *Shift) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = ""
		return nil
	}
	parsed, err := ParseShift(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Scan implements sql.Scanner.
func (s *Shift) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return s.UnmarshalText(v)
	case string:
		return s.UnmarshalText([]byte(v))
	case nil:
		*s = ""
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Shift", src)
	}
}

// Value stores the enum value.
func (s Shift) Value() (driver.Value, error) {
	return string(s), nil
}
