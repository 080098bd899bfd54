package models

import "encoding/json"

// AttendanceRecord holds the students present in a class on one date. Absence is never stored: it is
// the complement of PresentIDs within the class members.
type AttendanceRecord struct {
	Date       Date     `json:"date"`
	PresentIDs []string `json:"present_student_ids"`
}

// IsPresent reports whether studentID is marked present.
func (r AttendanceRecord) IsPresent(studentID string) bool {
	for _, id := range r.PresentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// MarshalJSON writes the date as YYYY-MM-DD.
func (r AttendanceRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date       string   `json:"date"`
		PresentIDs []string `json:"present_student_ids"`
	}{r.Date.ISO(), r.PresentIDs})
}

// Clone returns a copy with its own present slice.
func (r AttendanceRecord) Clone() AttendanceRecord {
	return AttendanceRecord{Date: r.Date, PresentIDs: append([]string{}, r.PresentIDs...)}
}

// AttendanceStats summarizes a record against the current members.
type AttendanceStats struct {
	Date       Date `json:"date"`
	Recorded   bool `json:"recorded"`
	Present    int  `json:"present"`
	Absent     int  `json:"absent"`
	Total      int  `json:"total"`
	Percentage int  `json:"percentage"`
}

type statsJSON struct {
	Date       string `json:"date"`
	Recorded   bool   `json:"recorded"`
	Present    int    `json:"present"`
	Absent     int    `json:"absent"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

func (s AttendanceStats) wire() statsJSON {
	return statsJSON{
		Date:       s.Date.ISO(),
		Recorded:   s.Recorded,
		Present:    s.Present,
		Absent:     s.Absent,
		Total:      s.Total,
		Percentage: s.Percentage,
	}
}

// MarshalJSON writes the date as YYYY-MM-DD.
func (s AttendanceStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

// AttendanceHistoryEntry is one recorded date in a class history.
type AttendanceHistoryEntry struct {
	AttendanceStats
	PresentIDs []string `json:"present_student_ids"`
	AbsentIDs  []string `json:"absent_student_ids"`
}

// MarshalJSON flattens the stats next to the id lists. Without it the promoted stats marshaler
// would drop the ids.
func (e AttendanceHistoryEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		statsJSON
		PresentIDs []string `json:"present_student_ids"`
		AbsentIDs  []string `json:"absent_student_ids"`
	}{e.AttendanceStats.wire(), e.PresentIDs, e.AbsentIDs})
}

// StudentAttendanceEntry tells whether a student was present on a recorded date.
type StudentAttendanceEntry struct {
	Date    Date `json:"date"`
	Present bool `json:"present"`
}

// MarshalJSON writes the date as YYYY-MM-DD.
func (e StudentAttendanceEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date    string `json:"date"`
		Present bool   `json:"present"`
	}{e.Date.ISO(), e.Present})
}

// StudentAttendanceSummary is a student's history plus the derived percentage.
type StudentAttendanceSummary struct {
	StudentID  string                   `json:"student_id"`
	Percentage int                      `json:"percentage"`
	History    []StudentAttendanceEntry `json:"history"`
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Less orders months chronologically.
func (m YearMonth) Less(other YearMonth) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// HistoryFilter narrows a class history.
type HistoryFilter string

const (
	HistoryAll     HistoryFilter = "all"
	HistoryPresent HistoryFilter = "present"
	HistoryAbsent  HistoryFilter = "absent"
)

// ParseHistoryFilter maps query input to a filter; empty means all.
func ParseHistoryFilter(raw string) (HistoryFilter, bool) {
	switch HistoryFilter(raw) {
	case "", HistoryAll:
		return HistoryAll, true
	case HistoryPresent:
		return HistoryPresent, true
	case HistoryAbsent:
		return HistoryAbsent, true
	default:
		return "", false
	}
}
