package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	redisc "github.com/trustnet/core/internal/pkg/redis"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task is a unit of background work stored in Redis.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    TaskStatus      `json:"status"`
	Error     string          `json:"error,omitempty"`
	DedupKey  string          `json:"dedup_key,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const (
	keyPrefix   = "tn:task:"
	keyQueue    = "tn:tasks:queue"
	keyDedupSet = "tn:tasks:dedup:"
	taskTTL     = 7 * 24 * time.Hour
	dedupTTL    = time.Hour
)

// ErrEmpty is returned by Dequeue when no task arrives within the wait.
var ErrEmpty = errors.New("task queue empty")

// commands is the slice of the redis API the queue touches.
type commands interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redislib.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redislib.StatusCmd
	Get(ctx context.Context, key string) *redislib.StringCmd
	Del(ctx context.Context, keys ...string) *redislib.IntCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redislib.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redislib.StringSliceCmd
}

// Service manages the Redis-backed task queue.
type Service struct {
	r commands
}

func NewService(rc *redisc.Client) *Service {
	return &Service{r: rc.Raw()}
}

func (s *Service) taskKey(id string) string { return keyPrefix + id }

// Enqueue creates a new task and pushes it for a worker to pick up.
// When dedupKey is non-empty, a duplicate enqueued within the dedup
// window is dropped and the call reports (nil, nil).
func (s *Service) Enqueue(ctx context.Context, taskType string, payload interface{}, dedupKey string) (*Task, error) {
	if dedupKey != "" {
		set, err := s.r.SetNX(ctx, dedupRedisKey(taskType, dedupKey), "1", dedupTTL).Result()
		if err != nil {
			return nil, err
		}
		if !set {
			return nil, nil
		}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		s.releaseDedup(ctx, taskType, dedupKey)
		return nil, err
	}

	task := &Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Payload:   payloadBytes,
		Status:    TaskPending,
		DedupKey:  dedupKey,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.save(ctx, task); err != nil {
		s.releaseDedup(ctx, taskType, dedupKey)
		return nil, err
	}
	if err := s.r.LPush(ctx, keyQueue, task.ID).Err(); err != nil {
		s.releaseDedup(ctx, taskType, dedupKey)
		return nil, err
	}
	return task, nil
}

func dedupRedisKey(taskType, dedupKey string) string {
	return keyDedupSet + taskType + ":" + dedupKey
}

// releaseDedup gives the claim back after a failed enqueue, so the
// caller's retry is not suppressed for the rest of the dedup window.
func (s *Service) releaseDedup(ctx context.Context, taskType, dedupKey string) {
	if dedupKey == "" {
		return
	}
	s.r.Del(ctx, dedupRedisKey(taskType, dedupKey))
}

// Dequeue blocks up to wait for the next pending task and marks it
// running. Returns ErrEmpty on timeout.
func (s *Service) Dequeue(ctx context.Context, wait time.Duration) (*Task, error) {
	vals, err := s.r.BRPop(ctx, wait, keyQueue).Result()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	id := vals[1]

	task, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Status = TaskRunning
	task.UpdatedAt = time.Now()
	if err := s.save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Finish records the outcome of a dequeued task.
func (s *Service) Finish(ctx context.Context, task *Task, runErr error) error {
	if runErr != nil {
		task.Status = TaskFailed
		task.Error = runErr.Error()
	} else {
		task.Status = TaskCompleted
	}
	task.UpdatedAt = time.Now()
	return s.save(ctx, task)
}

// GetByID loads a task by id.
func (s *Service) GetByID(ctx context.Context, id string) (*Task, error) {
	raw, err := s.r.Get(ctx, s.taskKey(id)).Result()
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Service) save(ctx context.Context, task *Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.r.Set(ctx, s.taskKey(task.ID), raw, taskTTL).Err()
}
