package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/siteflow/siteflow/internal/config"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/pkg/logger"
)

const (
	TaskTypeDailyLogTransition = "dailylog:transition"
)

// TransitionEvent describes one applied daily-log transition
type TransitionEvent struct {
	OrgID      string           `json:"org_id"`
	ProjectID  string           `json:"project_id"`
	DailyLogID string           `json:"daily_log_id"`
	Action     LogAction        `json:"action"`
	FromStatus models.LogStatus `json:"from_status"`
	ToStatus   models.LogStatus `json:"to_status"`
	ActorID    string           `json:"actor_id"`
	ActorRole  models.Role      `json:"actor_role"`
	Comment    string           `json:"comment,omitempty"`
	QCRating   *int             `json:"qc_rating,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// EventProcessor handles a dequeued transition event.
type EventProcessor func(context.Context, *TransitionEvent) error

// EventQueue carries workflow events from the request path to the processor
type EventQueue interface {
	// Enqueue adds an event to the queue
	Enqueue(ev *TransitionEvent) error
	// IsAsync returns true if queue processes events asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewEventQueue picks the asynq queue when Redis is enabled and reachable,
// otherwise an in-process synchronous queue.
func NewEventQueue(cfg *config.RedisConfig) EventQueue {
	if !cfg.Enabled {
		logger.Infof("[EventQueue] Sync queue initialized (Redis disabled)")
		return NewSyncQueue()
	}
	queue, err := NewAsyncQueue(cfg)
	if err != nil {
		logger.Warnf("[EventQueue] Redis unavailable, falling back to sync mode: %v", err)
		return NewSyncQueue()
	}
	logger.Infof("[EventQueue] Async queue initialized with Redis at %s", cfg.Addr)
	return queue
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements EventQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)
	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// NewTransitionTask encodes an event as an asynq task.
func NewTransitionTask(ev *TransitionEvent) (*asynq.Task, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDailyLogTransition, payload), nil
}

func (q *AsyncQueue) Enqueue(ev *TransitionEvent) error {
	t, err := NewTransitionTask(ev)
	if err != nil {
		return err
	}

	info, err := q.client.Enqueue(t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Debug().Str("task_id", info.ID).Str("daily_log_id", ev.DailyLogID).Msg("[AsyncQueue] event enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements EventQueue by running the processor inline
type SyncQueue struct {
	processor EventProcessor
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the function that handles events
func (q *SyncQueue) SetProcessor(processor EventProcessor) {
	q.processor = processor
}

// Enqueue processes the event immediately. Processing failures are logged and
// never fail the transition that produced the event.
func (q *SyncQueue) Enqueue(ev *TransitionEvent) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, event for log %s dropped", ev.DailyLogID)
		return nil
	}
	if err := q.processor(context.Background(), ev); err != nil {
		logger.Error().Err(err).Str("daily_log_id", ev.DailyLogID).Msg("[SyncQueue] event processing failed")
	}
	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

func (q *SyncQueue) Close() error {
	return nil
}
