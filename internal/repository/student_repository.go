package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/roster-api/internal/models"
)

const studentColumns = `id, name, birth_date, guardian_name, guardian_tax_id, guardian_phone, school_year, shift, additional_notes, created_at, updated_at`

// StudentRepository persists roster students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns every student, most recently created first.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students ORDER BY created_at DESC, id", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	for i := range students {
		students[i].SyncState = models.SyncSynced
	}
	return students, nil
}

// Create inserts the student under a new database id, replacing any provisional id.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" || student.IsProvisional() {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, birth_date, guardian_name, guardian_tax_id, guardian_phone, school_year, shift, additional_notes, created_at, updated_at)
        VALUES (:id, :name, :birth_date, :guardian_name, :guardian_tax_id, :guardian_phone, :school_year, :shift, :additional_notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	student.SyncState = models.SyncSynced
	return nil
}

// Update overwrites the stored student. sql.ErrNoRows is returned when the id is unknown.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET name = $2, birth_date = $3, guardian_name = $4, guardian_tax_id = $5, guardian_phone = $6,
        school_year = $7, shift = $8, additional_notes = $9, updated_at = $10
        WHERE id = $1 RETURNING created_at, updated_at`
	var stamps struct {
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	err := r.db.GetContext(ctx, &stamps, query,
		student.ID, student.Name, student.BirthDate, student.GuardianName, student.GuardianTaxID, student.GuardianPhone,
		student.SchoolYear, student.Shift, student.AdditionalNotes, time.Now().UTC())
	if err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("update student: %w", err)
	}
	student.CreatedAt = stamps.CreatedAt
	student.UpdatedAt = stamps.UpdatedAt
	student.SyncState = models.SyncSynced
	return nil
}

// Delete removes the student and its class memberships. Deleting an unknown id succeeds.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM class_students WHERE student_id = $1`, id); err != nil {
		return fmt.Errorf("delete student memberships: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student delete: %w", err)
	}
	return nil
}
