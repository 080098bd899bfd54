package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-api/internal/middleware"
	"github.com/noah-isme/roster-api/internal/models"
	"github.com/noah-isme/roster-api/internal/service"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
	"github.com/noah-isme/roster-api/pkg/export"
	"github.com/noah-isme/roster-api/pkg/jobs"
)

var fixedNow = time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type memoryStudentRepo struct {
	mu   sync.Mutex
	rows map[string]models.Student
	next int
}

func (m *memoryStudentRepo) List(ctx context.Context) ([]models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Student, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryStudentRepo) Create(ctx context.Context, s *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	s.ID = fmt.Sprintf("db-%d", m.next)
	m.rows[s.ID] = *s
	return nil
}

func (m *memoryStudentRepo) Update(ctx context.Context, s *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[s.ID]; !ok {
		return sql.ErrNoRows
	}
	m.rows[s.ID] = *s
	return nil
}

func (m *memoryStudentRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

type memoryClassRepo struct {
	mu   sync.Mutex
	rows map[string]models.Class
}

func (m *memoryClassRepo) List(ctx context.Context) ([]models.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Class, 0, len(m.rows))
	for _, c := range m.rows {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryClassRepo) Save(ctx context.Context, c *models.Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = c.Clone()
	return nil
}

type memoryAllowedUsers struct {
	mu   sync.Mutex
	rows map[string]models.AllowedUser
}

func (m *memoryAllowedUsers) FindByEmail(ctx context.Context, email string) (*models.AllowedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (m *memoryAllowedUsers) Create(ctx context.Context, u *models.AllowedUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = "u-" + u.Email
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = fixedNow
	m.rows[u.Email] = *u
	return nil
}

func (m *memoryAllowedUsers) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	return nil
}

// inlineJobs runs persistence jobs synchronously so responses reflect their outcome.
type inlineJobs struct {
	mu       sync.Mutex
	handlers map[string]jobs.Handler
}

func (j *inlineJobs) register(handlers map[string]jobs.Handler) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for k, h := range handlers {
		j.handlers[k] = h
	}
}

func (j *inlineJobs) Enqueue(job jobs.Job) error {
	j.mu.Lock()
	h := j.handlers[job.Type]
	j.mu.Unlock()
	if h != nil {
		_ = h(context.Background(), job)
	}
	return nil
}

type testServer struct {
	router        *gin.Engine
	directory     *service.StudentDirectory
	registry      *service.ClassRegistry
	notifications *service.NotificationService
	token         string
}

const adminEmail = "diretora@escola.org"

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	queue := &inlineJobs{handlers: make(map[string]jobs.Handler)}
	notes := service.NewNotificationService(10, nil)
	directory := service.NewStudentDirectory(&memoryStudentRepo{rows: map[string]models.Student{}}, queue, notes, nil, nil, service.StudentDirectoryOptions{Clock: fixedClock})
	registry := service.NewClassRegistry(&memoryClassRepo{rows: map[string]models.Class{}}, directory, queue, notes, nil, nil, fixedClock)
	ledger := service.NewAttendanceLedger(registry)
	directory.OnRemap(registry.RemapStudent)
	directory.OnRemove(registry.DropStudent)
	queue.register(directory.Jobs())
	queue.register(registry.Jobs())

	reports := service.NewReportService(directory, fixedClock)
	exports := service.NewExportService(reports, directory, nil, nil, service.ContractSettings{
		Issuer: export.Issuer{Name: "Escola Teste", City: "Brasília"},
	}, nil)
	access := service.NewAccessService(&memoryAllowedUsers{rows: map[string]models.AllowedUser{}}, []string{adminEmail}, nil, nil)
	auth := service.NewAuthService(access, nil, nil, service.AuthConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "roster-test"})

	router := gin.New()
	Handlers{
		Students:      NewStudentHandler(directory, reports),
		Classes:       NewClassHandler(registry),
		Attendance:    NewAttendanceHandler(ledger),
		Exports:       NewExportHandler(exports),
		Notifications: NewNotificationHandler(notes),
		Users:         NewUserHandler(access),
		Auth:          NewAuthHandler(auth),
	}.Register(router.Group("/api/v1"), middleware.JWT(auth))

	session, err := auth.StartSession(context.Background(), service.StartSessionRequest{Email: adminEmail})
	require.NoError(t, err)

	return &testServer{router: router, directory: directory, registry: registry, notifications: notes, token: session.Token}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return s.doWithToken(t, method, path, body, s.token)
}

func (s *testServer) doWithToken(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func mariaPayload() map[string]string {
	return map[string]string{
		"name":            "maria silva",
		"birth_date":      "10/05/2015",
		"guardian_name":   "ana silva",
		"guardian_tax_id": "12345678901",
		"guardian_phone":  "61987654321",
		"school_year":     "3 ano",
		"shift":           "manha",
	}
}
