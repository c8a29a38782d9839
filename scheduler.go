package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SyncScheduler runs tasks in the calling goroutine against local
// handlers. It keeps the fire-and-forget contract: a task that fails
// while running is logged, not surfaced, because Schedule already
// acknowledged the enqueue. Meant for development and tests; production
// deployments use a queue-backed scheduler.
type SyncScheduler struct {
	mailer Mailer
	logger Logger
}

// Verify interface compliance
var _ TaskScheduler = (*SyncScheduler)(nil)

func NewSyncScheduler(mailer Mailer, logger Logger) *SyncScheduler {
	if logger == nil {
		logger = defLogger{}
	}
	return &SyncScheduler{
		mailer: mailer,
		logger: logger,
	}
}

func (s *SyncScheduler) Schedule(ctx context.Context, task Task) (string, error) {
	taskID := uuid.NewString()

	switch task.Type {
	case MailTaskType:
		if s.mailer == nil {
			return "", errors.New("no mailer configured", errors.CategoryOperation)
		}
		msg, err := DecodeMailTask(task)
		if err != nil {
			return "", err
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logger.Error("mail delivery failed", "task", taskID, "subject", msg.Subject, "error", err)
		}
	default:
		return "", errors.New("unknown task type", errors.CategoryBadInput).
			WithMetadata(map[string]any{"type": task.Type})
	}

	return taskID, nil
}
