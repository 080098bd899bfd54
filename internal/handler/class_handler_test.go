package handler

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-api/internal/models"
)

func loadStudents(srv *testServer, years ...int) {
	students := make([]models.Student, len(years))
	for i, y := range years {
		students[i] = models.Student{
			ID:        "s" + strconv.Itoa(y),
			Name:      "Aluno " + strconv.Itoa(y),
			BirthDate: models.NewDate(y, time.June, 1),
			Shift:     models.ShiftMorning,
		}
	}
	srv.directory.Load(students)
}

func TestClassHandlerAttendanceFlow(t *testing.T) {
	srv := newTestServer(t)
	loadStudents(srv, 2015, 2016, 2017, 2018, 2019)

	w := srv.do(t, http.MethodPost, "/classes", map[string]interface{}{"name": "Turma A", "min_age": 6, "max_age": 8})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var class models.Class
	decode(t, w, &class)
	base := "/classes/" + class.ID

	var eligible []models.Student
	decode(t, srv.do(t, http.MethodGet, base+"/eligible", nil), &eligible)
	require.Len(t, eligible, 3)
	assert.Equal(t, "s2016", eligible[0].ID)
	assert.Equal(t, "s2018", eligible[2].ID)

	var enrolled struct {
		Added []string `json:"added"`
	}
	w = srv.do(t, http.MethodPost, base+"/students", map[string]interface{}{"student_ids": []string{"s2017", "s2017"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &enrolled)
	assert.Equal(t, []string{"s2017"}, enrolled.Added)

	mark := map[string]interface{}{"student_id": "s2017", "date": "2024-05-10", "present": true}
	var stats models.AttendanceStats
	w = srv.do(t, http.MethodPut, base+"/attendance", mark)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &stats)
	assert.Equal(t, 100, stats.Percentage)

	mark["present"] = false
	decode(t, srv.do(t, http.MethodPut, base+"/attendance", mark), &stats)
	assert.Equal(t, 0, stats.Percentage)

	var day struct {
		Date       string   `json:"date"`
		Recorded   bool     `json:"recorded"`
		Absent     int      `json:"absent"`
		PresentIDs []string `json:"present_student_ids"`
		AbsentIDs  []string `json:"absent_student_ids"`
	}
	decode(t, srv.do(t, http.MethodGet, base+"/attendance/2024-05-10", nil), &day)
	assert.Equal(t, "2024-05-10", day.Date)
	assert.True(t, day.Recorded)
	assert.Equal(t, 1, day.Absent)
	assert.Empty(t, day.PresentIDs)
	assert.Equal(t, []string{"s2017"}, day.AbsentIDs)

	var history []map[string]interface{}
	env := decode(t, srv.do(t, http.MethodGet, base+"/attendance?filter=absent", nil), &history)
	require.Len(t, history, 1)
	assert.Equal(t, "2024-05-10", history[0]["date"])
	assert.EqualValues(t, 0, env.Meta["attendance_rate"])
	decode(t, srv.do(t, http.MethodGet, base+"/attendance?filter=present", nil), &history)
	assert.Empty(t, history)
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, base+"/attendance?filter=late", nil).Code)

	var months []models.YearMonth
	decode(t, srv.do(t, http.MethodGet, base+"/months", nil), &months)
	assert.Equal(t, []models.YearMonth{{Year: 2024, Month: 5}}, months)

	var summary models.StudentAttendanceSummary
	decode(t, srv.do(t, http.MethodGet, base+"/students/s2017/attendance", nil), &summary)
	assert.Equal(t, 0, summary.Percentage)
	assert.Len(t, summary.History, 1)

	assert.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, base+"/students/s2017", nil).Code)
	var members []models.Student
	decode(t, srv.do(t, http.MethodGet, base+"/students", nil), &members)
	assert.Empty(t, members)
}

func TestAttendanceDayOmitsFormerMembers(t *testing.T) {
	srv := newTestServer(t)
	loadStudents(srv, 2016, 2017)

	var class models.Class
	decode(t, srv.do(t, http.MethodPost, "/classes", map[string]interface{}{"name": "Turma A", "min_age": 6, "max_age": 8}), &class)
	base := "/classes/" + class.ID
	w := srv.do(t, http.MethodPost, base+"/students", map[string]interface{}{"student_ids": []string{"s2016", "s2017"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, id := range []string{"s2016", "s2017"} {
		mark := map[string]interface{}{"student_id": id, "date": "10/05/2024", "present": true}
		require.Equal(t, http.StatusOK, srv.do(t, http.MethodPut, base+"/attendance", mark).Code)
	}
	require.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, base+"/students/s2017", nil).Code)

	var day struct {
		Date       string   `json:"date"`
		Present    int      `json:"present"`
		PresentIDs []string `json:"present_student_ids"`
	}
	w = srv.do(t, http.MethodGet, base+"/attendance/2024-05-10", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &day)
	assert.Equal(t, "2024-05-10", day.Date)
	assert.Equal(t, 1, day.Present)
	assert.Equal(t, []string{"s2016"}, day.PresentIDs)

	var summary struct {
		History []struct {
			Date string `json:"date"`
		} `json:"history"`
	}
	decode(t, srv.do(t, http.MethodGet, base+"/students/s2016/attendance", nil), &summary)
	require.Len(t, summary.History, 1)
	assert.Equal(t, "2024-05-10", summary.History[0].Date)
}

func TestClassHandlerErrors(t *testing.T) {
	srv := newTestServer(t)
	loadStudents(srv, 2017)

	w := srv.do(t, http.MethodPost, "/classes", map[string]interface{}{"name": "Turma B", "min_age": 9, "max_age": 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/classes/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/classes/missing/eligible", nil).Code)

	var class models.Class
	decode(t, srv.do(t, http.MethodPost, "/classes", map[string]interface{}{"name": "Turma A", "min_age": 6, "max_age": 8}), &class)
	base := "/classes/" + class.ID

	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodPost, base+"/students", map[string]interface{}{"student_ids": []string{}}).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodPost, base+"/students", map[string]interface{}{"student_ids": []string{"ghost"}}).Code)

	mark := map[string]interface{}{"student_id": "s2017", "date": "2024-05-10", "present": true}
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodPut, base+"/attendance", mark).Code, "not enrolled")
	mark["date"] = "amanhã"
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodPut, base+"/attendance", mark).Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, base+"/attendance/yesterday", nil).Code)

	var classes []models.Class
	decode(t, srv.do(t, http.MethodGet, "/classes", nil), &classes)
	assert.Len(t, classes, 1)
}
