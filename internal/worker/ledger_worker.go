package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wardrobe/internal/logging"
	"wardrobe/internal/metrics"
	"wardrobe/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskUpsertBooking = "upsert_booking"
	TaskUpsertReturn  = "upsert_return"
)

// ledgerPayload is persisted in SyncTask.Payload as JSON.
type ledgerPayload struct {
	Booking *models.Booking `json:"booking,omitempty"`
	Return  *models.Return  `json:"return,omitempty"`
}

// LedgerClient mirrors bookings and returns into the external ledger.
type LedgerClient interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpsertReturn(ctx context.Context, ret *models.Return) error
}

// TaskStore is the durable side of the queue.
type TaskStore interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// LedgerWorker consumes sync_queue tasks and applies them to the ledger.
type LedgerWorker struct {
	store         TaskStore
	ledger        LedgerClient
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

func NewLedgerWorker(store TaskStore, ledger LedgerClient, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *LedgerWorker {
	return &LedgerWorker{
		store:         store,
		ledger:        ledger,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan models.SyncTask, models.WorkerQueueSize),
		redisQueueKey: "ledger:queue",
		deadLetterKey: "ledger:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logging.Component(logger, "ledger_worker"),
	}
}

// EnqueueBooking schedules a snapshot of booking for the ledger.
func (w *LedgerWorker) EnqueueBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil || booking.ID == 0 {
		return errors.New("booking id is required")
	}
	return w.enqueue(ctx, TaskUpsertBooking, booking.ID, ledgerPayload{Booking: booking})
}

// EnqueueReturn schedules a snapshot of ret for the ledger.
func (w *LedgerWorker) EnqueueReturn(ctx context.Context, ret *models.Return) error {
	if ret == nil || ret.ID == 0 {
		return errors.New("return id is required")
	}
	return w.enqueue(ctx, TaskUpsertReturn, ret.ID, ledgerPayload{Return: ret})
}

// enqueue persists the task, then hands it to redis or the in-memory queue.
// A task that reaches neither is still picked up by polling.
func (w *LedgerWorker) enqueue(ctx context.Context, taskType string, entityID int64, payload ledgerPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType: taskType,
		EntityID: entityID,
		Payload:  string(data),
		Status:   models.SyncStatusPending,
	}
	if err := w.store.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, &task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, falling back to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("memory queue full, task left to polling")
	}
	return nil
}

// Start runs the consume loop until ctx is done.
func (w *LedgerWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("ledger worker started")
	defer w.logger.Info().Msg("ledger worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		processed, err := w.pollOnce(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending tasks")
		}
		if processed == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
		}
	}
}

// pollOnce processes one batch of due tasks from the store.
func (w *LedgerWorker) pollOnce(ctx context.Context) (int, error) {
	tasks, err := w.store.GetPendingSyncTasks(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks), nil
}

func (w *LedgerWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *LedgerWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error().Err(err).Msg("redis BRPOP")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *LedgerWorker) processTask(ctx context.Context, task *models.SyncTask) {
	payload, err := decodePayload(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.apply(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark completed")
	}
	metrics.IncLedgerTask(models.SyncStatusCompleted)
}

func (w *LedgerWorker) apply(ctx context.Context, taskType string, payload ledgerPayload) error {
	if w.ledger == nil {
		return errors.New("ledger client is not configured")
	}
	switch taskType {
	case TaskUpsertBooking:
		if payload.Booking == nil {
			return errors.New("booking payload missing")
		}
		return w.ledger.UpsertBooking(ctx, payload.Booking)
	case TaskUpsertReturn:
		if payload.Return == nil {
			return errors.New("return payload missing")
		}
		return w.ledger.UpsertReturn(ctx, payload.Return)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *LedgerWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	next := time.Now().UTC().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, cause.Error(), &next); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
	metrics.IncLedgerTask(models.SyncStatusRetry)
	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Int("attempt", attempt).Time("next_retry_at", next).Msg("ledger task will be retried")
}

func (w *LedgerWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	metrics.IncLedgerTask(models.SyncStatusFailed)
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("task_type", task.TaskType).Msg("ledger task failed")
	if w.redis == nil {
		return
	}
	if err := w.pushRedis(ctx, w.deadLetterKey, task); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("dead letter push")
	}
}

func (w *LedgerWorker) pushRedis(ctx context.Context, key string, task *models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func decodePayload(raw string) (ledgerPayload, error) {
	var payload ledgerPayload
	err := json.Unmarshal([]byte(raw), &payload)
	return payload, err
}
