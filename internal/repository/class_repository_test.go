package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-api/internal/models"
)

func TestClassRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	day1 := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, name, description, min_age, max_age, created_at, updated_at FROM classes").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "min_age", "max_age", "created_at", "updated_at"}).
			AddRow("c1", "Turma A", "", 6, 8, now, now))
	mock.ExpectQuery("SELECT class_id, student_id FROM class_students").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "student_id"}).
			AddRow("c1", "s2").
			AddRow("c1", "s1"))
	mock.ExpectQuery("FROM attendance_records r").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "date", "student_id"}).
			AddRow("c1", day1, "s1").
			AddRow("c1", day1, "s2").
			AddRow("c1", day2, nil))

	classes, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, classes, 1)

	class := classes[0]
	assert.Equal(t, models.AgeRange{Min: 6, Max: 8}, class.AgeRange)
	assert.Equal(t, []string{"s2", "s1"}, class.StudentIDs)
	require.Len(t, class.Attendance, 2)
	assert.Equal(t, []string{"s1", "s2"}, class.Attendance[0].PresentIDs)
	assert.Equal(t, models.NewDate(2024, time.May, 11), class.Attendance[1].Date)
	assert.Empty(t, class.Attendance[1].PresentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositorySave(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewClassRepository(db)

	class := &models.Class{
		ID:         "c1",
		Name:       "Turma A",
		AgeRange:   models.AgeRange{Min: 6, Max: 8},
		StudentIDs: []string{"s1", "s2"},
		Attendance: []models.AttendanceRecord{{Date: models.NewDate(2024, time.May, 10), PresentIDs: []string{"s1"}}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("(?s)INSERT INTO classes .* ON CONFLICT \\(id\\) DO UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM class_students WHERE class_id").WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO class_students").WithArgs("c1", "s1", 0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO class_students").WithArgs("c1", "s2", 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM attendance_records WHERE class_id").WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO attendance_records").WithArgs("c1", "2024-05-10").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO attendance_presences").WithArgs("c1", "2024-05-10", "s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), class))
	assert.False(t, class.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositorySaveRollsBack(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO classes").WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), &models.Class{ID: "c1", Name: "Turma A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert class")
	assert.NoError(t, mock.ExpectationsWereMet())
}
