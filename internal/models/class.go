package models

import "time"

// AgeRange is an inclusive eligibility window in whole years.
type AgeRange struct {
	Min int `json:"min_age"`
	Max int `json:"max_age"`
}

// Contains reports whether age falls inside the range.
func (r AgeRange) Contains(age int) bool {
	return age >= r.Min && age <= r.Max
}

// Class groups students by age range and owns their attendance records, kept in ascending date
// order.
type Class struct {
	ID          string             `db:"id" json:"id"`
	Name        string             `db:"name" json:"name"`
	Description string             `db:"description" json:"description"`
	AgeRange    AgeRange           `db:"-" json:"age_range"`
	StudentIDs  []string           `db:"-" json:"student_ids"`
	Attendance  []AttendanceRecord `db:"-" json:"attendance"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}

// Enrolled reports whether studentID is a member of the class.
func (c Class) Enrolled(studentID string) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (c Class) Clone() Class {
	out := c
	out.StudentIDs = append([]string(nil), c.StudentIDs...)
	out.Attendance = make([]AttendanceRecord, len(c.Attendance))
	for i, rec := range c.Attendance {
		out.Attendance[i] = rec.Clone()
	}
	return out
}
