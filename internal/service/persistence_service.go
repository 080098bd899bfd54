package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
	"github.com/noah-isme/roster-api/pkg/jobs"
)

// Persistence job kinds.
const (
	JobStudentCreate = "student.create"
	JobStudentUpdate = "student.update"
	JobStudentDelete = "student.delete"
	JobClassSave     = "class.save"
)

// dispatcher accepts persistence jobs. PersistenceService is the production implementation.
type dispatcher interface {
	Enqueue(job jobs.Job) error
}

// notifier receives user-facing transient notifications.
type notifier interface {
	Publish(level models.NotificationLevel, title, message, code string) models.Notification
}

// PersistenceService serializes writes to the database through a single-worker queue.
type PersistenceService struct {
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger

	mu       sync.RWMutex
	handlers map[string]jobs.Handler
}

// NewPersistenceService builds the queue. Jobs run one at a time in submission order and failures are
// never retried.
func NewPersistenceService(bufferSize int, metrics *MetricsService, logger *zap.Logger) *PersistenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &PersistenceService{metrics: metrics, logger: logger, handlers: make(map[string]jobs.Handler)}
	svc.queue = jobs.NewQueue("persistence", svc.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: bufferSize,
		Logger:     logger,
	})
	return svc
}

// Register binds handlers by job kind, replacing previous bindings.
func (s *PersistenceService) Register(handlers map[string]jobs.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for kind, h := range handlers {
		s.handlers[kind] = h
	}
}

// Start launches the worker.
func (s *PersistenceService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Drain waits for accepted jobs to finish.
func (s *PersistenceService) Drain(ctx context.Context) error {
	return s.queue.Drain(ctx)
}

// Stop halts the worker; jobs still queued are dropped.
func (s *PersistenceService) Stop() {
	s.queue.Stop()
}

// Enqueue submits a job.
func (s *PersistenceService) Enqueue(job jobs.Job) error {
	return s.queue.Enqueue(job)
}

func (s *PersistenceService) handle(ctx context.Context, job jobs.Job) error {
	s.mu.RLock()
	h, ok := s.handlers[job.Type]
	s.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("no handler for job type %s", job.Type)
		s.metrics.RecordPersistenceJob(job.Type, err)
		return err
	}
	err := h(ctx, job)
	s.metrics.RecordPersistenceJob(job.Type, err)
	if err == nil {
		s.logger.Debug("persistence job done", zap.String("job_id", job.ID), zap.String("type", job.Type))
	}
	return err
}
