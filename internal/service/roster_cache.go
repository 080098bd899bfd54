package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

type snapshotStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type studentLister interface {
	List(ctx context.Context) ([]models.Student, error)
}

type classLister interface {
	List(ctx context.Context) ([]models.Class, error)
}

// RosterCacheConfig names and expires the snapshot keys.
type RosterCacheConfig struct {
	Prefix string
	TTL    time.Duration
}

// RosterCache mirrors the directory and registry into a local snapshot and rebuilds them from it on
// start. A snapshot is trusted unless it is missing or empty; otherwise the database is listed.
type RosterCache struct {
	store     snapshotStore
	students  studentLister
	classes   classLister
	directory *StudentDirectory
	registry  *ClassRegistry
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       RosterCacheConfig

	writeMu sync.Mutex
}

// NewRosterCache wires the cache around the in-memory components.
func NewRosterCache(store snapshotStore, students studentLister, classes classLister, directory *StudentDirectory, registry *ClassRegistry, metrics *MetricsService, logger *zap.Logger, cfg RosterCacheConfig) *RosterCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "roster"
	}
	return &RosterCache{
		store:     store,
		students:  students,
		classes:   classes,
		directory: directory,
		registry:  registry,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// StudentsKey is the snapshot key of the directory.
func (c *RosterCache) StudentsKey() string { return c.cfg.Prefix + ":students" }

// ClassesKey is the snapshot key of the registry.
func (c *RosterCache) ClassesKey() string { return c.cfg.Prefix + ":classes" }

// Hydrate loads students and classes, each from its snapshot or, failing that, from the database.
func (c *RosterCache) Hydrate(ctx context.Context) error {
	var students []models.Student
	if !c.read(ctx, "students", c.StudentsKey(), &students, func() bool { return len(students) > 0 }) {
		listed, err := c.students.List(ctx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list students")
		}
		students = listed
		c.directory.Load(students)
		c.WriteStudents(ctx)
	} else {
		c.directory.Load(students)
	}

	var classes []models.Class
	if !c.read(ctx, "classes", c.ClassesKey(), &classes, func() bool { return len(classes) > 0 }) {
		listed, err := c.classes.List(ctx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list classes")
		}
		classes = listed
		c.registry.Load(classes)
		c.WriteClasses(ctx)
	} else {
		c.registry.Load(classes)
	}

	c.metrics.SetRosterSize("students", c.directory.Len())
	c.metrics.SetRosterSize("classes", c.registry.Len())
	c.logger.Info("roster hydrated", zap.Int("students", c.directory.Len()), zap.Int("classes", c.registry.Len()))
	return nil
}

// Attach writes a fresh snapshot after every directory or registry mutation.
func (c *RosterCache) Attach() {
	c.directory.OnChange(func() { c.WriteStudents(context.Background()) })
	c.registry.OnChange(func() { c.WriteClasses(context.Background()) })
}

// WriteStudents stores the current directory. Failures are logged; the snapshot is best effort.
func (c *RosterCache) WriteStudents(ctx context.Context) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	students := c.directory.Snapshot()
	c.write(ctx, c.StudentsKey(), students)
	c.metrics.SetRosterSize("students", len(students))
}

// WriteClasses stores the current registry.
func (c *RosterCache) WriteClasses(ctx context.Context) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	classes := c.registry.Classes()
	c.write(ctx, c.ClassesKey(), classes)
	c.metrics.SetRosterSize("classes", len(classes))
}

func (c *RosterCache) read(ctx context.Context, collection, key string, dest interface{}, nonEmpty func() bool) bool {
	start := time.Now()
	err := c.store.Get(ctx, key, dest)
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		c.logger.Warn("snapshot read failed", zap.String("key", key), zap.Error(err))
	}
	hit := err == nil && nonEmpty()
	c.metrics.RecordSnapshotLookup(collection, hit, time.Since(start))
	return hit
}

func (c *RosterCache) write(ctx context.Context, key string, value interface{}) {
	start := time.Now()
	if err := c.store.Set(ctx, key, value, c.cfg.TTL); err != nil {
		c.logger.Warn("snapshot write failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.metrics.ObserveSnapshotWrite(time.Since(start))
}
