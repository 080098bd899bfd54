package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
	"github.com/noah-isme/roster-api/pkg/jobs"
)

type classRepository interface {
	List(ctx context.Context) ([]models.Class, error)
	Save(ctx context.Context, class *models.Class) error
}

// studentLookup resolves class members through the directory, which owns student records.
type studentLookup interface {
	Get(id string) (models.Student, bool)
	ResolveID(id string) (string, bool)
	Snapshot() []models.Student
}

type classJob struct {
	ClassID string
}

// CreateClassRequest describes a new class.
type CreateClassRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	MinAge      int    `json:"min_age" validate:"gte=0"`
	MaxAge      int    `json:"max_age" validate:"gte=0"`
}

// EnrollRequest lists the students to add to a class.
type EnrollRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
}

// IsEligible reports whether a student born on birth fits r in the year of now. Age is the plain
// difference of calendar years.
func IsEligible(birth models.Date, r models.AgeRange, now time.Time) bool {
	return r.Contains(now.Year() - birth.Year)
}

// ClassRegistry owns classes, their membership and, through AttendanceLedger, their attendance.
type ClassRegistry struct {
	mu      sync.RWMutex
	classes []*models.Class

	repo      classRepository
	students  studentLookup
	jobs      dispatcher
	notify    notifier
	validator *validator.Validate
	logger    *zap.Logger
	clock     func() time.Time

	hooksMu  sync.RWMutex
	onChange []func()
}

// NewClassRegistry constructs an empty registry. clock defaults to time.Now.
func NewClassRegistry(repo classRepository, students studentLookup, jobs dispatcher, notify notifier, validate *validator.Validate, logger *zap.Logger, clock func() time.Time) *ClassRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = NewNotificationService(0, logger)
	}
	if clock == nil {
		clock = time.Now
	}
	return &ClassRegistry{
		repo:      repo,
		students:  students,
		jobs:      jobs,
		notify:    notify,
		validator: registerRosterRules(validate),
		logger:    logger,
		clock:     clock,
	}
}

// OnChange registers fn to run after every mutation, outside the registry lock.
func (r *ClassRegistry) OnChange(fn func()) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// CreateClass validates the request and registers an empty class.
func (r *ClassRegistry) CreateClass(ctx context.Context, req CreateClassRequest) (models.Class, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)

	var violations []appErrors.FieldViolation
	if err := r.validator.StructCtx(ctx, req); err != nil {
		if appErr := appErrors.FromError(validationError("invalid class", err)); appErr != nil {
			violations = append(violations, appErr.Details...)
		}
	}
	if req.MinAge > req.MaxAge {
		violations = append(violations, appErrors.FieldViolation{Field: "max_age", Rule: RuleAgeRange})
	}
	if len(violations) > 0 {
		return models.Class{}, appErrors.Validation("invalid class", violations...)
	}

	now := r.clock().UTC()
	class := &models.Class{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		AgeRange:    models.AgeRange{Min: req.MinAge, Max: req.MaxAge},
		StudentIDs:  []string{},
		Attendance:  []models.AttendanceRecord{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.classes = append(r.classes, class)
	out := class.Clone()
	r.mu.Unlock()

	r.dispatch(class.ID)
	r.changed()
	return out, nil
}

// Classes returns a copy of every class in creation order.
func (r *ClassRegistry) Classes() []models.Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Class, len(r.classes))
	for i, c := range r.classes {
		out[i] = c.Clone()
	}
	return out
}

// Get returns a copy of the class.
func (r *ClassRegistry) Get(id string) (models.Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.findLocked(id)
	if c == nil {
		return models.Class{}, false
	}
	return c.Clone(), true
}

// Len reports the number of classes.
func (r *ClassRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.classes)
}

// Load replaces the registry contents, typically on hydrate.
func (r *ClassRegistry) Load(classes []models.Class) {
	loaded := make([]*models.Class, len(classes))
	for i := range classes {
		c := classes[i].Clone()
		loaded[i] = &c
	}
	r.mu.Lock()
	r.classes = loaded
	r.mu.Unlock()
}

// EligibleStudents lists, in directory order, the students whose age in the registry's current year
// falls inside the class age range.
func (r *ClassRegistry) EligibleStudents(classID string) ([]models.Student, error) {
	class, ok := r.Get(classID)
	if !ok {
		return nil, classNotFound()
	}
	now := r.clock()
	eligible := make([]models.Student, 0)
	for _, s := range r.students.Snapshot() {
		if IsEligible(s.BirthDate, class.AgeRange, now) {
			eligible = append(eligible, s)
		}
	}
	return eligible, nil
}

// Enroll adds the students not yet in the class and returns the ids actually added. Age eligibility
// is left to the caller.
func (r *ClassRegistry) Enroll(ctx context.Context, classID string, studentIDs []string) ([]string, error) {
	resolved := make([]string, 0, len(studentIDs))
	for _, id := range studentIDs {
		s, ok := r.students.Get(strings.TrimSpace(id))
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", id))
		}
		resolved = append(resolved, s.ID)
	}

	added := make([]string, 0, len(resolved))
	err := r.mutate(classID, func(c *models.Class) bool {
		for _, id := range resolved {
			if c.Enrolled(id) {
				continue
			}
			c.StudentIDs = append(c.StudentIDs, id)
			added = append(added, id)
		}
		return len(added) > 0
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Unenroll removes a student from the class. Removing a non-member is a no-op.
func (r *ClassRegistry) Unenroll(ctx context.Context, classID, studentID string) error {
	target := studentID
	if s, ok := r.students.Get(studentID); ok {
		target = s.ID
	}
	return r.mutate(classID, func(c *models.Class) bool {
		return removeID(&c.StudentIDs, target) || removeID(&c.StudentIDs, studentID)
	})
}

// Students resolves the members through the directory in enrollment order. Ids that no longer exist
// are skipped.
func (r *ClassRegistry) Students(classID string) ([]models.Student, error) {
	class, ok := r.Get(classID)
	if !ok {
		return nil, classNotFound()
	}
	out := make([]models.Student, 0, len(class.StudentIDs))
	for _, id := range class.StudentIDs {
		if s, ok := r.students.Get(id); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// RemapStudent replaces oldID by newID in memberships and attendance.
func (r *ClassRegistry) RemapStudent(oldID, newID string) {
	r.mu.Lock()
	var touched []string
	for _, c := range r.classes {
		hit := false
		for i, id := range c.StudentIDs {
			if id == oldID {
				c.StudentIDs[i] = newID
				hit = true
			}
		}
		for ri := range c.Attendance {
			for i, id := range c.Attendance[ri].PresentIDs {
				if id == oldID {
					c.Attendance[ri].PresentIDs[i] = newID
					hit = true
				}
			}
		}
		if hit {
			touched = append(touched, c.ID)
		}
	}
	r.mu.Unlock()

	for _, id := range touched {
		r.dispatch(id)
	}
	if len(touched) > 0 {
		r.changed()
	}
}

// DropStudent removes a deleted student from every class. Attendance history is kept.
func (r *ClassRegistry) DropStudent(id string) {
	r.mu.Lock()
	var touched []string
	for _, c := range r.classes {
		if removeID(&c.StudentIDs, id) {
			c.UpdatedAt = r.clock().UTC()
			touched = append(touched, c.ID)
		}
	}
	r.mu.Unlock()

	for _, classID := range touched {
		r.dispatch(classID)
	}
	if len(touched) > 0 {
		r.changed()
	}
}

// Jobs returns the persistence handlers owned by the registry.
func (r *ClassRegistry) Jobs() map[string]jobs.Handler {
	return map[string]jobs.Handler{JobClassSave: r.persistSave}
}

// persistSave writes the current class snapshot, leaving out students the database does not know yet.
func (r *ClassRegistry) persistSave(ctx context.Context, job jobs.Job) error {
	p, ok := job.Payload.(classJob)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	class, ok := r.Get(p.ClassID)
	if !ok {
		return nil
	}
	class.StudentIDs = r.serverIDs(class.StudentIDs)
	for i := range class.Attendance {
		class.Attendance[i].PresentIDs = r.serverIDs(class.Attendance[i].PresentIDs)
	}
	if err := r.repo.Save(ctx, &class); err != nil {
		r.logger.Error("class persistence failed", zap.String("class_id", class.ID), zap.Error(err))
		r.notify.Publish(models.NotificationError, "Erro ao salvar",
			fmt.Sprintf("Não foi possível salvar a turma %s", class.Name), appErrors.ErrPersistence.Code)
		return err
	}
	return nil
}

// mutate applies fn to the class under the lock and persists it when fn reports a change.
func (r *ClassRegistry) mutate(classID string, fn func(*models.Class) bool) error {
	r.mu.Lock()
	c := r.findLocked(classID)
	if c == nil {
		r.mu.Unlock()
		return classNotFound()
	}
	changed := fn(c)
	if changed {
		c.UpdatedAt = r.clock().UTC()
	}
	r.mu.Unlock()

	if changed {
		r.dispatch(classID)
		r.changed()
	}
	return nil
}

func (r *ClassRegistry) serverIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if serverID, ok := r.students.ResolveID(id); ok {
			out = append(out, serverID)
		}
	}
	return out
}

func (r *ClassRegistry) dispatch(classID string) {
	job := jobs.Job{ID: uuid.NewString(), Type: JobClassSave, Payload: classJob{ClassID: classID}}
	if err := r.jobs.Enqueue(job); err != nil {
		r.logger.Error("class persistence not queued", zap.String("class_id", classID), zap.Error(err))
		r.notify.Publish(models.NotificationError, "Erro ao salvar", "Não foi possível agendar o salvamento da turma", appErrors.ErrPersistence.Code)
	}
}

func (r *ClassRegistry) changed() {
	r.hooksMu.RLock()
	hooks := append([]func(){}, r.onChange...)
	r.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

func (r *ClassRegistry) findLocked(id string) *models.Class {
	for _, c := range r.classes {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func classNotFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, "class not found")
}

// removeID deletes the first occurrence of id and reports whether one was found.
func removeID(ids *[]string, id string) bool {
	for i, v := range *ids {
		if v == id {
			*ids = append((*ids)[:i], (*ids)[i+1:]...)
			return true
		}
	}
	return false
}
