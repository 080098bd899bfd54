package service

import (
	"strings"
	"time"

	"github.com/noah-isme/roster-api/internal/models"
	"github.com/noah-isme/roster-api/pkg/normalize"
)

type studentSource interface {
	Snapshot() []models.Student
}

// ReportService derives read-only views over the directory. Nothing is cached; every call reflects
// the current students.
type ReportService struct {
	students studentSource
	clock    func() time.Time
}

// NewReportService constructs a report service. clock defaults to time.Now.
func NewReportService(students studentSource, clock func() time.Time) *ReportService {
	if clock == nil {
		clock = time.Now
	}
	return &ReportService{students: students, clock: clock}
}

// BirthdaysThisMonth returns the students born in the current month, in directory order.
func (s *ReportService) BirthdaysThisMonth() []models.Student {
	month := s.clock().Month()
	out := make([]models.Student, 0)
	for _, st := range s.students.Snapshot() {
		if st.BirthDate.Month == month {
			out = append(out, st)
		}
	}
	return out
}

// CountByShift tallies students per shift.
func (s *ReportService) CountByShift() models.ShiftTotals {
	var totals models.ShiftTotals
	for _, st := range s.students.Snapshot() {
		switch st.Shift {
		case models.ShiftMorning:
			totals.Morning++
		case models.ShiftAfternoon:
			totals.Afternoon++
		}
		totals.Total++
	}
	return totals
}

// Filter returns the students matching every non-empty criterion, in directory order.
func (s *ReportService) Filter(f models.StudentFilter) []models.Student {
	out := make([]models.Student, 0)
	for _, st := range s.students.Snapshot() {
		if MatchesFilter(st, f) {
			out = append(out, st)
		}
	}
	return out
}

// SchoolYears lists the distinct grade labels in first-seen order.
func (s *ReportService) SchoolYears() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, st := range s.students.Snapshot() {
		if st.SchoolYear == "" {
			continue
		}
		if _, dup := seen[st.SchoolYear]; dup {
			continue
		}
		seen[st.SchoolYear] = struct{}{}
		out = append(out, st.SchoolYear)
	}
	return out
}

// MatchesFilter applies the directory filter to one student. Name matching ignores case and accents.
// With only an upper birth bound a student matches when born on or before it; with a lower bound the
// student must be born on or after it and, when both are set, inside the inclusive range.
func MatchesFilter(st models.Student, f models.StudentFilter) bool {
	if q := strings.TrimSpace(f.Name); q != "" && !strings.Contains(normalize.Fold(st.Name), normalize.Fold(q)) {
		return false
	}
	if q := strings.TrimSpace(f.GuardianName); q != "" && !strings.Contains(normalize.Fold(st.GuardianName), normalize.Fold(q)) {
		return false
	}
	if f.Shift != "" && st.Shift != f.Shift {
		return false
	}
	if q := strings.TrimSpace(f.SchoolYear); q != "" && st.SchoolYear != normalize.SchoolYear(q) {
		return false
	}
	if q := strings.TrimSpace(f.GuardianTaxID); q != "" {
		digits := normalize.Digits(q)
		if digits == "" || !strings.Contains(normalize.Digits(st.GuardianTaxID), digits) {
			return false
		}
	}
	if f.BirthFrom != nil && st.BirthDate.Before(*f.BirthFrom) {
		return false
	}
	if f.BirthTo != nil && st.BirthDate.After(*f.BirthTo) {
		return false
	}
	return true
}
