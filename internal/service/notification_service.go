package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
)

const defaultNotificationBuffer = 50

// NotificationService keeps the most recent transient notifications in a bounded buffer.
type NotificationService struct {
	mu     sync.RWMutex
	buf    []models.Notification
	size   int
	seq    uint64
	clock  func() time.Time
	logger *zap.Logger
}

// NewNotificationService constructs the service. size <= 0 selects the default of 50 entries.
func NewNotificationService(size int, logger *zap.Logger) *NotificationService {
	if size <= 0 {
		size = defaultNotificationBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{size: size, clock: time.Now, logger: logger}
}

// Publish appends a notification, evicting the oldest once the buffer is full. It never blocks on
// readers.
func (s *NotificationService) Publish(level models.NotificationLevel, title, message, code string) models.Notification {
	s.mu.Lock()
	s.seq++
	n := models.Notification{
		ID:        uuid.NewString(),
		Seq:       s.seq,
		Level:     level,
		Title:     title,
		Message:   message,
		Code:      code,
		CreatedAt: s.clock().UTC(),
	}
	s.buf = append(s.buf, n)
	if len(s.buf) > s.size {
		s.buf = append([]models.Notification(nil), s.buf[len(s.buf)-s.size:]...)
	}
	s.mu.Unlock()

	fields := []zap.Field{zap.String("title", title), zap.String("message", message), zap.String("code", code)}
	switch level {
	case models.NotificationError:
		s.logger.Error("notification", fields...)
	case models.NotificationWarning:
		s.logger.Warn("notification", fields...)
	default:
		s.logger.Info("notification", fields...)
	}
	return n
}

// Since returns notifications with a sequence number greater than after, oldest first.
func (s *NotificationService) Since(after uint64) []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Notification, 0, len(s.buf))
	for _, n := range s.buf {
		if n.Seq > after {
			out = append(out, n)
		}
	}
	return out
}
