package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/roster-api/internal/models"
)

type classRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	MinAge      int       `db:"min_age"`
	MaxAge      int       `db:"max_age"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type memberRow struct {
	ClassID   string `db:"class_id"`
	StudentID string `db:"student_id"`
}

type presenceRow struct {
	ClassID   string      `db:"class_id"`
	Date      models.Date `db:"date"`
	StudentID *string     `db:"student_id"`
}

// ClassRepository persists classes with their members and attendance.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List loads every class. Members keep their enrollment order and records are sorted by date.
func (r *ClassRepository) List(ctx context.Context) ([]models.Class, error) {
	var rows []classRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, description, min_age, max_age, created_at, updated_at FROM classes ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	var members []memberRow
	if err := r.db.SelectContext(ctx, &members, `SELECT class_id, student_id FROM class_students ORDER BY class_id, position`); err != nil {
		return nil, fmt.Errorf("list class members: %w", err)
	}
	var presences []presenceRow
	const presenceQuery = `SELECT r.class_id, r.date, p.student_id FROM attendance_records r
        LEFT JOIN attendance_presences p ON p.class_id = r.class_id AND p.date = r.date
        ORDER BY r.class_id, r.date, p.student_id`
	if err := r.db.SelectContext(ctx, &presences, presenceQuery); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	classes := make([]models.Class, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		classes[i] = models.Class{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			AgeRange:    models.AgeRange{Min: row.MinAge, Max: row.MaxAge},
			StudentIDs:  []string{},
			Attendance:  []models.AttendanceRecord{},
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		}
		index[row.ID] = i
	}
	for _, m := range members {
		if i, ok := index[m.ClassID]; ok {
			classes[i].StudentIDs = append(classes[i].StudentIDs, m.StudentID)
		}
	}
	for _, p := range presences {
		i, ok := index[p.ClassID]
		if !ok {
			continue
		}
		records := classes[i].Attendance
		if n := len(records); n == 0 || records[n-1].Date != p.Date {
			records = append(records, models.AttendanceRecord{Date: p.Date, PresentIDs: []string{}})
		}
		if p.StudentID != nil {
			last := &records[len(records)-1]
			last.PresentIDs = append(last.PresentIDs, *p.StudentID)
		}
		classes[i].Attendance = records
	}
	return classes, nil
}

// Save writes the full class snapshot: the class row is upserted, then members and attendance are
// replaced inside one transaction.
func (r *ClassRepository) Save(ctx context.Context, class *models.Class) (err error) {
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin class save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO classes (id, name, description, min_age, max_age, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
        min_age = EXCLUDED.min_age, max_age = EXCLUDED.max_age, updated_at = EXCLUDED.updated_at`
	if _, err = tx.ExecContext(ctx, upsert, class.ID, class.Name, class.Description, class.AgeRange.Min, class.AgeRange.Max, class.CreatedAt, class.UpdatedAt); err != nil {
		return fmt.Errorf("upsert class: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM class_students WHERE class_id = $1`, class.ID); err != nil {
		return fmt.Errorf("clear class members: %w", err)
	}
	for pos, studentID := range class.StudentIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO class_students (class_id, student_id, position) VALUES ($1, $2, $3)`, class.ID, studentID, pos); err != nil {
			return fmt.Errorf("insert class member: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE class_id = $1`, class.ID); err != nil {
		return fmt.Errorf("clear attendance: %w", err)
	}
	for _, record := range class.Attendance {
		if _, err = tx.ExecContext(ctx, `INSERT INTO attendance_records (class_id, date) VALUES ($1, $2)`, class.ID, record.Date); err != nil {
			return fmt.Errorf("insert attendance record: %w", err)
		}
		for _, studentID := range record.PresentIDs {
			if _, err = tx.ExecContext(ctx, `INSERT INTO attendance_presences (class_id, date, student_id) VALUES ($1, $2, $3)`, class.ID, record.Date, studentID); err != nil {
				return fmt.Errorf("insert attendance presence: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit class save: %w", err)
	}
	return nil
}
