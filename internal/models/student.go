package models

import (
	"strings"
	"time"
)

// ProvisionalIDPrefix marks ids minted locally before the database assigns one.
const ProvisionalIDPrefix = "tmp-"

// SyncState tells whether a record's latest local change reached the database.
type SyncState string

const (
	SyncLocalOnly SyncState = "local-only"
	SyncSynced    SyncState = "synced"
	SyncFailed    SyncState = "sync-failed"
)

// Student is a learner registered in the roster together with the guardian's contact data.
type Student struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	BirthDate       Date      `db:"birth_date" json:"birth_date"`
	GuardianName    string    `db:"guardian_name" json:"guardian_name"`
	GuardianTaxID   string    `db:"guardian_tax_id" json:"guardian_tax_id"`
	GuardianPhone   string    `db:"guardian_phone" json:"guardian_phone"`
	SchoolYear      string    `db:"school_year" json:"school_year"`
	Shift           Shift     `db:"shift" json:"shift"`
	AdditionalNotes string    `db:"additional_notes" json:"additional_notes,omitempty"`
	SyncState       SyncState `db:"-" json:"sync_state"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// IsProvisional reports whether the student has not been assigned a database id yet.
func (s Student) IsProvisional() bool {
	return IsProvisionalID(s.ID)
}

// IsProvisionalID reports whether id was minted locally.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, ProvisionalIDPrefix)
}

// StudentDraft is the raw registration input before normalization.
type StudentDraft struct {
	Name            string `json:"name" validate:"required,full_name"`
	BirthDate       string `json:"birth_date" validate:"required,birth_date"`
	GuardianName    string `json:"guardian_name" validate:"required,full_name"`
	GuardianTaxID   string `json:"guardian_tax_id" validate:"required,tax_id_digits"`
	GuardianPhone   string `json:"guardian_phone" validate:"required,phone_digits"`
	SchoolYear      string `json:"school_year"`
	Shift           string `json:"shift" validate:"omitempty,shift"`
	AdditionalNotes string `json:"additional_notes"`
}

// StudentPatch is a partial update. ID is optional; without it the target is found by guardian tax id.
type StudentPatch struct {
	ID              string  `json:"id"`
	Name            *string `json:"name"`
	BirthDate       *string `json:"birth_date"`
	GuardianName    *string `json:"guardian_name"`
	GuardianTaxID   *string `json:"guardian_tax_id"`
	GuardianPhone   *string `json:"guardian_phone"`
	SchoolYear      *string `json:"school_year"`
	Shift           *string `json:"shift"`
	AdditionalNotes *string `json:"additional_notes"`
}

// StudentFilter combines the directory search criteria. Empty fields do not constrain.
type StudentFilter struct {
	Name          string
	GuardianName  string
	Shift         Shift
	SchoolYear    string
	GuardianTaxID string
	BirthFrom     *Date
	BirthTo       *Date
}

// ShiftTotals tallies students per shift.
type ShiftTotals struct {
	Morning   int `json:"morning"`
	Afternoon int `json:"afternoon"`
	Total     int `json:"total"`
}
