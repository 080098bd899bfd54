package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
	"github.com/noah-isme/roster-api/pkg/jobs"
	"github.com/noah-isme/roster-api/pkg/normalize"
)

type studentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// studentJob is the payload of every student persistence job. ID is the directory id at submission
// time and is resolved through the alias table when the job runs.
type studentJob struct {
	ID      string
	Student models.Student
}

// StudentDirectoryOptions tunes normalization at the write boundary.
type StudentDirectoryOptions struct {
	// DefaultAreaCode is prefixed to bare 9-digit mobile numbers. Empty disables it.
	DefaultAreaCode string
	Clock           func() time.Time
}

// StudentDirectory owns the in-memory student collection, newest first. Writes are applied
// optimistically and persisted in the background; SyncState tells how far each record got.
type StudentDirectory struct {
	mu       sync.RWMutex
	students []models.Student
	aliases  map[string]string
	pending  map[string]int
	removed  map[string]struct{}

	repo      studentRepository
	jobs      dispatcher
	notify    notifier
	validator *validator.Validate
	logger    *zap.Logger
	areaCode  string
	clock     func() time.Time

	hooksMu  sync.RWMutex
	onChange []func()
	onRemap  []func(oldID, newID string)
	onRemove []func(id string)
}

// NewStudentDirectory constructs an empty directory.
func NewStudentDirectory(repo studentRepository, jobs dispatcher, notify notifier, validate *validator.Validate, logger *zap.Logger, opts StudentDirectoryOptions) *StudentDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = NewNotificationService(0, logger)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &StudentDirectory{
		aliases:   make(map[string]string),
		pending:   make(map[string]int),
		removed:   make(map[string]struct{}),
		repo:      repo,
		jobs:      jobs,
		notify:    notify,
		validator: registerRosterRules(validate),
		logger:    logger,
		areaCode:  opts.DefaultAreaCode,
		clock:     opts.Clock,
	}
}

// OnChange registers fn to run after every mutation, outside the directory lock.
func (d *StudentDirectory) OnChange(fn func()) {
	d.hooksMu.Lock()
	defer d.hooksMu.Unlock()
	d.onChange = append(d.onChange, fn)
}

// OnRemap registers fn to run when a provisional id is replaced by its database id.
func (d *StudentDirectory) OnRemap(fn func(oldID, newID string)) {
	d.hooksMu.Lock()
	defer d.hooksMu.Unlock()
	d.onRemap = append(d.onRemap, fn)
}

// OnRemove registers fn to run after a student leaves the directory.
func (d *StudentDirectory) OnRemove(fn func(id string)) {
	d.hooksMu.Lock()
	defer d.hooksMu.Unlock()
	d.onRemove = append(d.onRemove, fn)
}

// Add validates and normalizes the draft, then inserts it at the head with a provisional id.
// Nothing changes when validation fails.
func (d *StudentDirectory) Add(ctx context.Context, draft models.StudentDraft) (models.Student, error) {
	draft = d.prepareDraft(draft)
	if err := d.validator.StructCtx(ctx, draft); err != nil {
		return models.Student{}, validationError("invalid student", err)
	}
	student, err := canonicalStudent(draft)
	if err != nil {
		return models.Student{}, err
	}
	now := d.clock().UTC()
	student.ID = models.ProvisionalIDPrefix + uuid.NewString()
	student.SyncState = models.SyncLocalOnly
	student.CreatedAt = now
	student.UpdatedAt = now

	d.mu.Lock()
	siblings := d.countTaxIDLocked(student.GuardianTaxID)
	d.students = append([]models.Student{student}, d.students...)
	d.pending[student.ID]++
	d.mu.Unlock()

	if siblings > 0 {
		d.logger.Warn("guardian tax id already registered",
			zap.String("student_id", student.ID),
			zap.String("guardian_tax_id", student.GuardianTaxID),
			zap.Int("existing", siblings))
		d.notify.Publish(models.NotificationWarning, "Responsável já cadastrado",
			fmt.Sprintf("O CPF %s já está vinculado a outro aluno", student.GuardianTaxID), appErrors.ErrConflict.Code)
	}

	d.dispatch(JobStudentCreate, student.ID, student)
	d.changed()
	return student, nil
}

// Update overwrites a student with the patch. The five required fields must be present. The target
// is patch.ID when given, otherwise the single student whose guardian tax id equals the patch's.
func (d *StudentDirectory) Update(ctx context.Context, patch models.StudentPatch) (models.Student, error) {
	var missing []appErrors.FieldViolation
	required := []struct {
		field string
		value *string
	}{
		{"name", patch.Name},
		{"birth_date", patch.BirthDate},
		{"guardian_name", patch.GuardianName},
		{"guardian_tax_id", patch.GuardianTaxID},
		{"guardian_phone", patch.GuardianPhone},
	}
	for _, r := range required {
		if r.value == nil || strings.TrimSpace(*r.value) == "" {
			missing = append(missing, appErrors.FieldViolation{Field: r.field, Rule: RuleRequired})
		}
	}
	if len(missing) > 0 {
		return models.Student{}, appErrors.Validation("incomplete student update", missing...)
	}

	draft := d.prepareDraft(models.StudentDraft{
		Name:          *patch.Name,
		BirthDate:     *patch.BirthDate,
		GuardianName:  *patch.GuardianName,
		GuardianTaxID: *patch.GuardianTaxID,
		GuardianPhone: *patch.GuardianPhone,
	})
	if patch.Shift != nil {
		draft.Shift = strings.TrimSpace(*patch.Shift)
	}
	if err := d.validator.StructCtx(ctx, draft); err != nil {
		return models.Student{}, validationError("invalid student", err)
	}
	updated, err := canonicalStudent(draft)
	if err != nil {
		return models.Student{}, err
	}

	d.mu.Lock()
	idx, err := d.resolveTargetLocked(strings.TrimSpace(patch.ID), updated.GuardianTaxID)
	if err != nil {
		d.mu.Unlock()
		return models.Student{}, err
	}
	current := d.students[idx]
	if patch.Shift == nil {
		updated.Shift = current.Shift
	}
	updated.SchoolYear = current.SchoolYear
	if patch.SchoolYear != nil {
		updated.SchoolYear = normalize.SchoolYear(*patch.SchoolYear)
	}
	updated.AdditionalNotes = current.AdditionalNotes
	if patch.AdditionalNotes != nil {
		updated.AdditionalNotes = strings.TrimSpace(*patch.AdditionalNotes)
	}
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = d.clock().UTC()
	updated.SyncState = models.SyncLocalOnly
	d.students[idx] = updated
	d.pending[updated.ID]++
	d.mu.Unlock()

	d.dispatch(JobStudentUpdate, updated.ID, updated)
	d.changed()
	return updated, nil
}

// Remove deletes a student by id. Unknown ids are a no-op.
func (d *StudentDirectory) Remove(ctx context.Context, id string) error {
	d.mu.Lock()
	idx := d.indexLocked(id)
	if idx < 0 {
		d.mu.Unlock()
		return nil
	}
	removed := d.students[idx]
	d.students = append(d.students[:idx:idx], d.students[idx+1:]...)
	delete(d.pending, removed.ID)
	if removed.IsProvisional() {
		d.removed[removed.ID] = struct{}{}
	}
	d.mu.Unlock()

	d.dispatch(JobStudentDelete, removed.ID, models.Student{ID: removed.ID})

	d.hooksMu.RLock()
	hooks := append([]func(string){}, d.onRemove...)
	d.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(removed.ID)
	}
	d.changed()
	return nil
}

// List yields the students in directory order. Each iteration walks a fresh copy, so the sequence
// can be ranged over again.
func (d *StudentDirectory) List() iter.Seq[models.Student] {
	return func(yield func(models.Student) bool) {
		for _, s := range d.Snapshot() {
			if !yield(s) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the students in directory order.
func (d *StudentDirectory) Snapshot() []models.Student {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Student(nil), d.students...)
}

// Len reports the number of students.
func (d *StudentDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.students)
}

// Get returns the student with the given id. Provisional ids of synced students still resolve.
func (d *StudentDirectory) Get(id string) (models.Student, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	idx := d.indexLocked(id)
	if idx < 0 {
		return models.Student{}, false
	}
	return d.students[idx], true
}

// ResolveID maps id to the database id. A provisional id whose create has not completed does not
// resolve.
func (d *StudentDirectory) ResolveID(id string) (string, bool) {
	if !models.IsProvisionalID(id) {
		return id, id != ""
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	serverID, ok := d.aliases[id]
	return serverID, ok
}

// Load replaces the directory contents, typically on hydrate. Records saved while still provisional
// lost their create job and are marked sync-failed.
func (d *StudentDirectory) Load(students []models.Student) {
	loaded := append([]models.Student(nil), students...)
	for i := range loaded {
		switch {
		case loaded[i].IsProvisional():
			loaded[i].SyncState = models.SyncFailed
		case loaded[i].SyncState == "":
			loaded[i].SyncState = models.SyncSynced
		}
	}
	d.mu.Lock()
	d.students = loaded
	d.pending = make(map[string]int)
	d.mu.Unlock()
}

// Jobs returns the persistence handlers owned by the directory.
func (d *StudentDirectory) Jobs() map[string]jobs.Handler {
	return map[string]jobs.Handler{
		JobStudentCreate: d.persistCreate,
		JobStudentUpdate: d.persistUpdate,
		JobStudentDelete: d.persistDelete,
	}
}

func (d *StudentDirectory) persistCreate(ctx context.Context, job jobs.Job) error {
	p, ok := job.Payload.(studentJob)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	stored := p.Student
	if err := d.repo.Create(ctx, &stored); err != nil {
		d.failed(p.ID, job.Type, err)
		return err
	}

	d.mu.Lock()
	d.aliases[p.ID] = stored.ID
	idx := d.indexLocked(p.ID)
	if _, gone := d.removed[p.ID]; gone {
		delete(d.removed, p.ID)
		idx = -1
	} else if idx < 0 {
		idx = d.provisionalByTaxIDLocked(stored.GuardianTaxID)
	}
	if idx < 0 {
		d.mu.Unlock()
		return nil
	}
	oldID := d.students[idx].ID
	remaining := d.pending[oldID] - 1
	delete(d.pending, oldID)
	if remaining > 0 {
		d.pending[stored.ID] = remaining
		d.students[idx].ID = stored.ID
		d.students[idx].CreatedAt = stored.CreatedAt
	} else {
		stored.SyncState = models.SyncSynced
		d.students[idx] = stored
	}
	d.mu.Unlock()

	d.logger.Info("student synced", zap.String("provisional_id", oldID), zap.String("id", stored.ID))
	d.hooksMu.RLock()
	hooks := append([]func(string, string){}, d.onRemap...)
	d.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(oldID, stored.ID)
	}
	d.changed()
	return nil
}

func (d *StudentDirectory) persistUpdate(ctx context.Context, job jobs.Job) error {
	p, ok := job.Payload.(studentJob)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	id, ok := d.ResolveID(p.ID)
	if !ok {
		err := appErrors.Clone(appErrors.ErrPersistence, "student was never created")
		d.failed(p.ID, job.Type, err)
		return err
	}
	stored := p.Student
	stored.ID = id
	if err := d.repo.Update(ctx, &stored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "student not found in database")
		}
		d.failed(id, job.Type, err)
		return err
	}

	d.mu.Lock()
	if idx := d.indexLocked(id); idx >= 0 {
		remaining := d.pending[id] - 1
		if remaining > 0 {
			d.pending[id] = remaining
		} else {
			delete(d.pending, id)
			stored.SyncState = models.SyncSynced
			d.students[idx] = stored
		}
	}
	d.mu.Unlock()
	d.changed()
	return nil
}

func (d *StudentDirectory) persistDelete(ctx context.Context, job jobs.Job) error {
	p, ok := job.Payload.(studentJob)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	d.mu.Lock()
	delete(d.removed, p.ID)
	d.mu.Unlock()

	id, ok := d.ResolveID(p.ID)
	if !ok {
		return nil
	}
	if err := d.repo.Delete(ctx, id); err != nil {
		d.failed(id, job.Type, err)
		return err
	}
	return nil
}

func (d *StudentDirectory) dispatch(kind, id string, student models.Student) {
	job := jobs.Job{ID: uuid.NewString(), Type: kind, Payload: studentJob{ID: id, Student: student}}
	if err := d.jobs.Enqueue(job); err != nil {
		d.failed(id, kind, err)
	}
}

// failed marks the record sync-failed and tells the operator. Local state is kept as is.
func (d *StudentDirectory) failed(id, kind string, cause error) {
	d.mu.Lock()
	name := ""
	if idx := d.indexLocked(id); idx >= 0 {
		rec := &d.students[idx]
		rec.SyncState = models.SyncFailed
		name = rec.Name
		if d.pending[rec.ID] > 1 {
			d.pending[rec.ID]--
		} else {
			delete(d.pending, rec.ID)
		}
	}
	d.mu.Unlock()

	d.logger.Error("student persistence failed", zap.String("student_id", id), zap.String("job", kind), zap.Error(cause))
	message := "Não foi possível salvar as alterações do aluno"
	if name != "" {
		message = fmt.Sprintf("Não foi possível salvar as alterações de %s", name)
	}
	d.notify.Publish(models.NotificationError, "Erro ao salvar", message, appErrors.ErrPersistence.Code)
	d.changed()
}

func (d *StudentDirectory) changed() {
	d.hooksMu.RLock()
	hooks := append([]func(){}, d.onChange...)
	d.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

func (d *StudentDirectory) prepareDraft(draft models.StudentDraft) models.StudentDraft {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.BirthDate = strings.TrimSpace(draft.BirthDate)
	draft.GuardianName = strings.TrimSpace(draft.GuardianName)
	draft.GuardianTaxID = strings.TrimSpace(draft.GuardianTaxID)
	draft.GuardianPhone = normalize.WithAreaCode(strings.TrimSpace(draft.GuardianPhone), d.areaCode)
	draft.SchoolYear = strings.TrimSpace(draft.SchoolYear)
	draft.Shift = strings.TrimSpace(draft.Shift)
	draft.AdditionalNotes = strings.TrimSpace(draft.AdditionalNotes)
	return draft
}

// canonicalStudent normalizes a validated draft. An empty shift defaults to MORNING.
func canonicalStudent(draft models.StudentDraft) (models.Student, error) {
	birth, err := models.ParseDate(draft.BirthDate)
	if err != nil {
		return models.Student{}, appErrors.Validation("invalid student", appErrors.FieldViolation{Field: "birth_date", Rule: RuleBirthDate})
	}
	shift := models.ShiftMorning
	if draft.Shift != "" {
		if shift, err = models.ParseShift(draft.Shift); err != nil {
			return models.Student{}, appErrors.Validation("invalid student", appErrors.FieldViolation{Field: "shift", Rule: RuleShift})
		}
	}
	return models.Student{
		Name:            normalize.Name(draft.Name),
		BirthDate:       birth,
		GuardianName:    normalize.Name(draft.GuardianName),
		GuardianTaxID:   normalize.TaxID(draft.GuardianTaxID),
		GuardianPhone:   normalize.Phone(draft.GuardianPhone),
		SchoolYear:      normalize.SchoolYear(draft.SchoolYear),
		Shift:           shift,
		AdditionalNotes: draft.AdditionalNotes,
	}, nil
}

func (d *StudentDirectory) resolveTargetLocked(id, taxID string) (int, error) {
	if id != "" {
		if idx := d.indexLocked(id); idx >= 0 {
			return idx, nil
		}
		return -1, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	idx := -1
	for i, s := range d.students {
		if s.GuardianTaxID != taxID {
			continue
		}
		if idx >= 0 {
			return -1, appErrors.Clone(appErrors.ErrConflict, "guardian tax id matches more than one student, provide the student id")
		}
		idx = i
	}
	if idx < 0 {
		return -1, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return idx, nil
}

// indexLocked finds id directly or through the alias table.
func (d *StudentDirectory) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	alias, hasAlias := d.aliases[id]
	for i, s := range d.students {
		if s.ID == id || (hasAlias && s.ID == alias) {
			return i
		}
	}
	return -1
}

// provisionalByTaxIDLocked returns the only provisional record carrying taxID that is not waiting on
// its own create, or -1.
func (d *StudentDirectory) provisionalByTaxIDLocked(taxID string) int {
	idx := -1
	for i, s := range d.students {
		if !s.IsProvisional() || s.GuardianTaxID != taxID || d.pending[s.ID] > 0 {
			continue
		}
		if idx >= 0 {
			return -1
		}
		idx = i
	}
	return idx
}

func (d *StudentDirectory) countTaxIDLocked(taxID string) int {
	n := 0
	for _, s := range d.students {
		if s.GuardianTaxID == taxID {
			n++
		}
	}
	return n
}
