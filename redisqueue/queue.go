// Package redisqueue schedules auth background tasks on Redis and runs
// a worker loop that delivers queued mail.
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	auth "github.com/goliatone/go-accounts"
)

const defaultQueue = "auth"

// TaskInfo is the stored form of a scheduled task.
type TaskInfo struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Scheduler implements auth.TaskScheduler backed by Redis. Each task is
// stored under its own key and its id pushed onto the ready list.
type Scheduler struct {
	rdb   *redis.Client
	queue string
}

// Verify interface compliance
var _ auth.TaskScheduler = (*Scheduler)(nil)

func NewScheduler(rdb *redis.Client, queue string) *Scheduler {
	if queue == "" {
		queue = defaultQueue
	}
	return &Scheduler{rdb: rdb, queue: queue}
}

func queueKey(name string) string { return fmt.Sprintf("auth:queue:%s", name) }
func taskKey(id string) string    { return fmt.Sprintf("auth:task:%s", id) }

// Schedule enqueues the task and returns its id. Only the enqueue is
// acknowledged; execution happens in a Worker.
func (s *Scheduler) Schedule(ctx context.Context, task auth.Task) (string, error) {
	id := uuid.New().String()

	info := TaskInfo{
		ID:        id,
		Type:      task.Type,
		Payload:   task.Payload,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(info)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "unable to encode task")
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, taskKey(id), data, 0)
	pipe.LPush(ctx, queueKey(s.queue), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", errors.Wrap(err, errors.CategoryOperation, "unable to enqueue task").
			WithMetadata(map[string]any{"queue": s.queue})
	}

	return id, nil
}

// Worker drains the queue and delivers mail tasks. Failures are logged
// and the task dropped; the enqueue contract is fire-and-forget.
type Worker struct {
	rdb    *redis.Client
	queue  string
	mailer auth.Mailer
	logger auth.Logger
}

func NewWorker(rdb *redis.Client, queue string, mailer auth.Mailer, logger auth.Logger) *Worker {
	if queue == "" {
		queue = defaultQueue
	}
	return &Worker{
		rdb:    rdb,
		queue:  queue,
		mailer: mailer,
		logger: logger,
	}
}

// Run blocks processing tasks until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res, err := w.rdb.BRPop(ctx, 5*time.Second, queueKey(w.queue)).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("queue pop failed", "queue", w.queue, "error", err)
			continue
		}

		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		w.process(ctx, res[1])
	}
}

func (w *Worker) process(ctx context.Context, id string) {
	data, err := w.rdb.Get(ctx, taskKey(id)).Bytes()
	if err != nil {
		w.logger.Error("task fetch failed", "task", id, "error", err)
		return
	}

	var info TaskInfo
	if err := json.Unmarshal(data, &info); err != nil {
		w.logger.Error("task decode failed", "task", id, "error", err)
		return
	}

	switch info.Type {
	case auth.MailTaskType:
		msg, err := auth.DecodeMailTask(auth.Task{Type: info.Type, Payload: info.Payload})
		if err != nil {
			w.logger.Error("mail task decode failed", "task", id, "error", err)
			return
		}
		if err := w.mailer.Send(ctx, msg); err != nil {
			w.logger.Error("mail delivery failed", "task", id, "subject", msg.Subject, "error", err)
			return
		}
	default:
		w.logger.Warn("unknown task type", "task", id, "type", info.Type)
		return
	}

	if err := w.rdb.Del(ctx, taskKey(id)).Err(); err != nil {
		w.logger.Error("task cleanup failed", "task", id, "error", err)
	}
}
