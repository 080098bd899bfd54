package service

import (
	"context"
	"math"
	"sort"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

// MarkAttendanceRequest sets one student's presence on one date.
type MarkAttendanceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Present   bool   `json:"present"`
}

// AttendanceLedger records daily presence per class. Only present students are stored; a record's
// existence is what tells "attendance taken" apart from "not taken yet".
type AttendanceLedger struct {
	registry *ClassRegistry
}

// NewAttendanceLedger binds a ledger to the registry that owns the classes.
func NewAttendanceLedger(registry *ClassRegistry) *AttendanceLedger {
	return &AttendanceLedger{registry: registry}
}

// MarkAttendance sets the presence of an enrolled student. The first mark of a date creates its
// record, even when the mark is an absence.
func (l *AttendanceLedger) MarkAttendance(ctx context.Context, classID, studentID string, date models.Date, present bool) (models.AttendanceStats, error) {
	if date.IsZero() {
		return models.AttendanceStats{}, appErrors.Validation("invalid attendance", appErrors.FieldViolation{Field: "date", Rule: RuleRequired})
	}
	memberID := studentID
	if s, ok := l.registry.students.Get(studentID); ok {
		memberID = s.ID
	}

	var (
		stats       models.AttendanceStats
		notEnrolled bool
	)
	err := l.registry.mutate(classID, func(c *models.Class) bool {
		if !c.Enrolled(memberID) {
			notEnrolled = true
			return false
		}
		idx := recordIndex(c.Attendance, date)
		if idx < 0 {
			rec := models.AttendanceRecord{Date: date, PresentIDs: []string{}}
			if present {
				rec.PresentIDs = append(rec.PresentIDs, memberID)
			}
			c.Attendance = insertRecord(c.Attendance, rec)
		} else {
			rec := &c.Attendance[idx]
			switch {
			case present && !rec.IsPresent(memberID):
				rec.PresentIDs = append(rec.PresentIDs, memberID)
			case !present:
				removeID(&rec.PresentIDs, memberID)
			}
		}
		stats = statsFor(*c, date)
		return true
	})
	if err != nil {
		return models.AttendanceStats{}, err
	}
	if notEnrolled {
		return models.AttendanceStats{}, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this class")
	}
	return stats, nil
}

// Record returns the attendance record of a date and whether one exists.
func (l *AttendanceLedger) Record(classID string, date models.Date) (models.AttendanceRecord, bool, error) {
	class, ok := l.registry.Get(classID)
	if !ok {
		return models.AttendanceRecord{}, false, classNotFound()
	}
	if idx := recordIndex(class.Attendance, date); idx >= 0 {
		return class.Attendance[idx], true, nil
	}
	return models.AttendanceRecord{}, false, nil
}

// DailyStats counts present and absent members for a date. Absent is the complement of present within
// the current members.
func (l *AttendanceLedger) DailyStats(classID string, date models.Date) (models.AttendanceStats, error) {
	class, ok := l.registry.Get(classID)
	if !ok {
		return models.AttendanceStats{}, classNotFound()
	}
	return statsFor(class, date), nil
}

// AttendanceRate is the rounded percentage of current members present on date, 0 for an empty class.
func (l *AttendanceLedger) AttendanceRate(classID string, date models.Date) (int, error) {
	stats, err := l.DailyStats(classID, date)
	if err != nil {
		return 0, err
	}
	return stats.Percentage, nil
}

// StudentHistory lists, newest first, whether the student was present on each recorded date.
func (l *AttendanceLedger) StudentHistory(classID, studentID string) ([]models.StudentAttendanceEntry, error) {
	class, ok := l.registry.Get(classID)
	if !ok {
		return nil, classNotFound()
	}
	memberID := l.memberID(studentID)
	out := make([]models.StudentAttendanceEntry, 0, len(class.Attendance))
	for i := len(class.Attendance) - 1; i >= 0; i-- {
		rec := class.Attendance[i]
		out = append(out, models.StudentAttendanceEntry{Date: rec.Date, Present: rec.IsPresent(memberID)})
	}
	return out, nil
}

// StudentAttendanceRate is the rounded share of the class records in which the student was present.
func (l *AttendanceLedger) StudentAttendanceRate(classID, studentID string) (int, error) {
	history, err := l.StudentHistory(classID, studentID)
	if err != nil {
		return 0, err
	}
	present := 0
	for _, h := range history {
		if h.Present {
			present++
		}
	}
	return percent(present, len(history)), nil
}

// StudentSummary bundles the history and rate of one student.
func (l *AttendanceLedger) StudentSummary(classID, studentID string) (models.StudentAttendanceSummary, error) {
	history, err := l.StudentHistory(classID, studentID)
	if err != nil {
		return models.StudentAttendanceSummary{}, err
	}
	present := 0
	for _, h := range history {
		if h.Present {
			present++
		}
	}
	return models.StudentAttendanceSummary{
		StudentID:  l.memberID(studentID),
		Percentage: percent(present, len(history)),
		History:    history,
	}, nil
}

// MonthsWithRecords lists the distinct months having at least one record, oldest first.
func (l *AttendanceLedger) MonthsWithRecords(classID string) ([]models.YearMonth, error) {
	class, ok := l.registry.Get(classID)
	if !ok {
		return nil, classNotFound()
	}
	seen := make(map[models.YearMonth]struct{})
	months := make([]models.YearMonth, 0)
	for _, rec := range class.Attendance {
		m := models.YearMonth{Year: rec.Date.Year, Month: int(rec.Date.Month)}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Less(months[j]) })
	return months, nil
}

// ClassAttendanceRate aggregates every record: members present over members expected.
func (l *AttendanceLedger) ClassAttendanceRate(classID string) (int, error) {
	class, ok := l.registry.Get(classID)
	if !ok {
		return 0, classNotFound()
	}
	present, expected := 0, 0
	for _, rec := range class.Attendance {
		s := statsFor(class, rec.Date)
		present += s.Present
		expected += s.Total
	}
	return percent(present, expected), nil
}

// History lists the class records newest first, narrowed by filter.
func (l *AttendanceLedger) History(classID string, filter models.HistoryFilter) ([]models.AttendanceHistoryEntry, error) {
	class, ok := l.registry.Get(classID)
	if !ok {
		return nil, classNotFound()
	}
	out := make([]models.AttendanceHistoryEntry, 0, len(class.Attendance))
	for i := len(class.Attendance) - 1; i >= 0; i-- {
		entry := entryFor(class, class.Attendance[i])
		switch filter {
		case models.HistoryPresent:
			if entry.Present == 0 {
				continue
			}
		case models.HistoryAbsent:
			if entry.Absent == 0 {
				continue
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// Day returns the stats of one date with the member ids split by presence. Ids of students who left
// the class are not listed. A date without a record yields every member as absent.
func (l *AttendanceLedger) Day(classID string, date models.Date) (models.AttendanceHistoryEntry, error) {
	class, ok := l.registry.Get(classID)
	if !ok {
		return models.AttendanceHistoryEntry{}, classNotFound()
	}
	rec := models.AttendanceRecord{Date: date}
	if idx := recordIndex(class.Attendance, date); idx >= 0 {
		rec = class.Attendance[idx]
	}
	return entryFor(class, rec), nil
}

func entryFor(class models.Class, rec models.AttendanceRecord) models.AttendanceHistoryEntry {
	entry := models.AttendanceHistoryEntry{
		AttendanceStats: statsFor(class, rec.Date),
		PresentIDs:      []string{},
		AbsentIDs:       []string{},
	}
	for _, id := range class.StudentIDs {
		if rec.IsPresent(id) {
			entry.PresentIDs = append(entry.PresentIDs, id)
		} else {
			entry.AbsentIDs = append(entry.AbsentIDs, id)
		}
	}
	return entry
}

func (l *AttendanceLedger) memberID(studentID string) string {
	if s, ok := l.registry.students.Get(studentID); ok {
		return s.ID
	}
	return studentID
}

func statsFor(class models.Class, date models.Date) models.AttendanceStats {
	stats := models.AttendanceStats{Date: date, Total: len(class.StudentIDs)}
	idx := recordIndex(class.Attendance, date)
	if idx >= 0 {
		stats.Recorded = true
		rec := class.Attendance[idx]
		for _, id := range class.StudentIDs {
			if rec.IsPresent(id) {
				stats.Present++
			}
		}
	}
	stats.Absent = stats.Total - stats.Present
	stats.Percentage = percent(stats.Present, stats.Total)
	return stats
}

// percent rounds n/d to the nearest whole percent, halves away from zero. A zero denominator gives 0.
func percent(n, d int) int {
	if d == 0 {
		return 0
	}
	return int(math.Round(float64(n) * 100 / float64(d)))
}

func recordIndex(records []models.AttendanceRecord, date models.Date) int {
	for i, rec := range records {
		if rec.Date == date {
			return i
		}
	}
	return -1
}

// insertRecord keeps records in ascending date order.
func insertRecord(records []models.AttendanceRecord, rec models.AttendanceRecord) []models.AttendanceRecord {
	i := sort.Search(len(records), func(i int) bool { return !records[i].Date.Before(rec.Date) })
	records = append(records, models.AttendanceRecord{})
	copy(records[i+1:], records[i:])
	records[i] = rec
	return records
}
