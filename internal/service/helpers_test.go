package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-api/internal/models"
	"github.com/noah-isme/roster-api/pkg/jobs"
)

var fixedNow = time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type mockStudentRepo struct {
	mu        sync.Mutex
	students  map[string]models.Student
	next      int
	deleted   []string
	updates   int
	createErr error
	updateErr error
	deleteErr error
	listErr   error
	lists     int
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]models.Student)}
}

func (m *mockStudentRepo) List(ctx context.Context) ([]models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		s.SyncState = models.SyncSynced
		out = append(out, s)
	}
	return out, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.next++
	student.ID = fmt.Sprintf("db-%d", m.next)
	student.CreatedAt = fixedNow
	student.UpdatedAt = fixedNow
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	m.updates++
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	delete(m.students, id)
	return nil
}

type mockClassRepo struct {
	mu      sync.Mutex
	saved   map[string]models.Class
	saves   int
	err     error
	listErr error
	lists   int
}

func newMockClassRepo() *mockClassRepo {
	return &mockClassRepo{saved: make(map[string]models.Class)}
}

func (m *mockClassRepo) List(ctx context.Context) ([]models.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Class, 0, len(m.saved))
	for _, c := range m.saved {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (m *mockClassRepo) Save(ctx context.Context, class *models.Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.saved[class.ID] = class.Clone()
	return nil
}

// inlineDispatcher runs every job as soon as it is enqueued.
type inlineDispatcher struct {
	mu       sync.Mutex
	handlers map[string]jobs.Handler
	errs     []error
}

func newInlineDispatcher() *inlineDispatcher {
	return &inlineDispatcher{handlers: make(map[string]jobs.Handler)}
}

func (d *inlineDispatcher) register(handlers map[string]jobs.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, h := range handlers {
		d.handlers[k] = h
	}
}

func (d *inlineDispatcher) Enqueue(job jobs.Job) error {
	d.mu.Lock()
	h := d.handlers[job.Type]
	d.mu.Unlock()
	if h == nil {
		return nil
	}
	if err := h(context.Background(), job); err != nil {
		d.mu.Lock()
		d.errs = append(d.errs, err)
		d.mu.Unlock()
	}
	return nil
}

// deferredDispatcher holds jobs until run is called, like a queue whose worker is behind.
type deferredDispatcher struct {
	mu       sync.Mutex
	handlers map[string]jobs.Handler
	queued   []jobs.Job
}

func newDeferredDispatcher() *deferredDispatcher {
	return &deferredDispatcher{handlers: make(map[string]jobs.Handler)}
}

func (d *deferredDispatcher) register(handlers map[string]jobs.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, h := range handlers {
		d.handlers[k] = h
	}
}

func (d *deferredDispatcher) Enqueue(job jobs.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queued = append(d.queued, job)
	return nil
}

func (d *deferredDispatcher) kinds() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.queued))
	for i, j := range d.queued {
		out[i] = j.Type
	}
	return out
}

// run drains the queue in order, including jobs enqueued by the handlers themselves.
func (d *deferredDispatcher) run(t *testing.T) {
	t.Helper()
	for {
		d.mu.Lock()
		if len(d.queued) == 0 {
			d.mu.Unlock()
			return
		}
		job := d.queued[0]
		d.queued = d.queued[1:]
		h := d.handlers[job.Type]
		d.mu.Unlock()
		require.NotNil(t, h, "no handler for %s", job.Type)
		_ = h(context.Background(), job)
	}
}

type refusingDispatcher struct{}

func (refusingDispatcher) Enqueue(jobs.Job) error { return errors.New("queue is not running") }

type recordingNotifier struct {
	mu    sync.Mutex
	items []models.Notification
}

func (n *recordingNotifier) Publish(level models.NotificationLevel, title, message, code string) models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	item := models.Notification{Seq: uint64(len(n.items) + 1), Level: level, Title: title, Message: message, Code: code}
	n.items = append(n.items, item)
	return item
}

func (n *recordingNotifier) byLevel(level models.NotificationLevel) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.Notification
	for _, item := range n.items {
		if item.Level == level {
			out = append(out, item)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

func mariaDraft() models.StudentDraft {
	return models.StudentDraft{
		Name:          "Maria Silva",
		BirthDate:     "10/05/2015",
		GuardianName:  "Ana Silva",
		GuardianTaxID: "12345678901",
		GuardianPhone: "61987654321",
		SchoolYear:    "3 ano",
		Shift:         "manha",
	}
}

func synced(id, name string, birthYear int) models.Student {
	return models.Student{
		ID:            id,
		Name:          name,
		BirthDate:     models.NewDate(birthYear, time.March, 1),
		GuardianName:  "Responsavel " + name,
		GuardianTaxID: fmt.Sprintf("%03d.000.000-00", birthYear%1000),
		Shift:         models.ShiftMorning,
		SyncState:     models.SyncSynced,
	}
}

type rosterFixture struct {
	students   *mockStudentRepo
	classes    *mockClassRepo
	notes      *recordingNotifier
	directory  *StudentDirectory
	registry   *ClassRegistry
	ledger     *AttendanceLedger
	dispatcher *inlineDispatcher
}

// newRosterFixture wires a directory and registry the way main does, with jobs run inline.
func newRosterFixture(t *testing.T) *rosterFixture {
	t.Helper()
	f := &rosterFixture{
		students:   newMockStudentRepo(),
		classes:    newMockClassRepo(),
		notes:      &recordingNotifier{},
		dispatcher: newInlineDispatcher(),
	}
	f.directory = NewStudentDirectory(f.students, f.dispatcher, f.notes, nil, nil, StudentDirectoryOptions{Clock: fixedClock})
	f.registry = NewClassRegistry(f.classes, f.directory, f.dispatcher, f.notes, nil, nil, fixedClock)
	f.ledger = NewAttendanceLedger(f.registry)
	f.directory.OnRemap(f.registry.RemapStudent)
	f.directory.OnRemove(f.registry.DropStudent)
	f.dispatcher.register(f.directory.Jobs())
	f.dispatcher.register(f.registry.Jobs())
	return f
}
