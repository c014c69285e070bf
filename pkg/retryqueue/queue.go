package retryqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/metrics"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
)

// backoffTiers are the delays applied before each redrive attempt, indexed by
// the attempt number recorded before the status update increments it
var backoffTiers = []time.Duration{
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
}

// backoffDelay returns the delay for the given attempt number
func backoffDelay(attempt int) time.Duration {
	if attempt < len(backoffTiers) {
		return backoffTiers[attempt]
	}
	return backoffTiers[len(backoffTiers)-1]
}

// TaskStatus is the user-facing view of one retry task
type TaskStatus struct {
	URL         string             `json:"url"`
	Attempt     int                `json:"attempt"`
	MaxAttempts int                `json:"max_attempts"`
	Status      models.RetryStatus `json:"status"`
	NextRetryAt *time.Time         `json:"next_retry_at,omitempty"`
}

// Queue schedules retry tasks. A background scanner flags due tasks as
// Retrying and publishes them on a channel; it never redrives imports itself
// because delivery of the result needs the original front-end transport. The
// channel consumer reports the real outcome back through UpdateStatus.
type Queue struct {
	store        Store
	logger       logger.Logger
	maxAttempts  int
	scanInterval time.Duration
	retrying     chan models.RetryTask

	// mu serializes read-modify-write cycles between the scanner and
	// external status updates
	mu  sync.Mutex
	now func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a retry queue on top of the given store
func New(store Store, log logger.Logger, maxAttempts int, scanInterval time.Duration) *Queue {
	return &Queue{
		store:        store,
		logger:       log,
		maxAttempts:  maxAttempts,
		scanInterval: scanInterval,
		retrying:     make(chan models.RetryTask, 100), // Buffer for flagged tasks
		now:          time.Now,
		done:         make(chan struct{}),
	}
}

// Retrying returns the channel on which the scanner publishes flagged tasks
func (q *Queue) Retrying() <-chan models.RetryTask {
	return q.retrying
}

// AddTask inserts or overwrites the task keyed by taskID. The first redrive
// is scheduled one backoff tier from now.
func (q *Queue) AddTask(ctx context.Context, taskID, userID, url string) (*models.RetryTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	task := &models.RetryTask{
		TaskID:      taskID,
		UserID:      userID,
		URL:         url,
		Attempt:     0,
		MaxAttempts: q.maxAttempts,
		NextRetryAt: now.Add(backoffTiers[0]),
		Status:      models.RetryStatusPending,
		CreatedAt:   now,
	}

	// Re-adding an existing id overwrites the task but keeps its queue position
	existing, err := q.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		task.CreatedAt = existing.CreatedAt
	}

	if err := q.store.Put(ctx, task); err != nil {
		return nil, err
	}
	metrics.RetryTasksAdded.Inc()
	q.updateQueueSize(ctx)

	q.logger.InfoWith(logger.Retry, "Added task %s for user %s, URL: %s", taskID, userID, url)
	return task, nil
}

// GetTask returns the task with the given id, or nil if it does not exist
func (q *Queue) GetTask(ctx context.Context, taskID string) (*models.RetryTask, error) {
	return q.store.Get(ctx, taskID)
}

// GetUserTasks returns all tasks for a user in insertion order
func (q *Queue) GetUserTasks(ctx context.Context, userID string) ([]*models.RetryTask, error) {
	return q.store.ByUser(ctx, userID)
}

// RemoveTask removes a task from the queue
func (q *Queue) RemoveTask(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.Remove(ctx, taskID); err != nil {
		return err
	}
	q.updateQueueSize(ctx)
	q.logger.InfoWith(logger.Retry, "Removed task %s", taskID)
	return nil
}

// UpdateStatus records the outcome of one redrive attempt. It increments the
// attempt counter; a Pending update re-arms the task with the backoff tier
// belonging to the attempt number before the increment. Terminal tasks are
// never re-scheduled.
func (q *Queue) UpdateStatus(ctx context.Context, taskID string, status models.RetryStatus, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, err := q.store.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("unknown task: %s", taskID)
	}
	if task.Terminal() {
		return fmt.Errorf("task %s is terminal and cannot be updated", taskID)
	}

	delay := backoffDelay(task.Attempt)
	task.Attempt++
	if errMsg != "" {
		task.LastError = errMsg
	}

	switch status {
	case models.RetryStatusSuccess:
		task.Status = models.RetryStatusSuccess
		q.logger.InfoWith(logger.Retry, "Task %s completed successfully after %d attempts", taskID, task.Attempt)
	case models.RetryStatusFailed:
		task.Status = models.RetryStatusFailed
		if task.Attempt >= task.MaxAttempts {
			metrics.RetryTasksExhausted.Inc()
			q.logger.ErrorWith(logger.Retry, "Task %s failed after %d attempts", taskID, task.MaxAttempts)
		}
	case models.RetryStatusPending:
		if task.Attempt >= task.MaxAttempts {
			// No attempts left to re-arm for
			task.Status = models.RetryStatusFailed
			metrics.RetryTasksExhausted.Inc()
			q.logger.ErrorWith(logger.Retry, "Task %s failed after %d attempts", taskID, task.MaxAttempts)
		} else {
			task.Status = models.RetryStatusPending
			task.NextRetryAt = q.now().Add(delay)
			q.logger.InfoWith(logger.Retry, "Task %s will retry in %v", taskID, delay)
		}
	default:
		return fmt.Errorf("invalid status update for task %s: %s", taskID, status)
	}

	if err := q.store.Put(ctx, task); err != nil {
		return err
	}
	q.updateQueueSize(ctx)
	return nil
}

// UserStatuses returns the display view of a user's tasks
func (q *Queue) UserStatuses(ctx context.Context, userID string) ([]TaskStatus, error) {
	tasks, err := q.store.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := make([]TaskStatus, 0, len(tasks))
	for _, task := range tasks {
		status := TaskStatus{
			URL:         truncate(task.URL, 60),
			Attempt:     task.Attempt,
			MaxAttempts: task.MaxAttempts,
			Status:      task.Status,
		}
		if task.Status == models.RetryStatusPending {
			at := task.NextRetryAt
			status.NextRetryAt = &at
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Snapshot returns the number of tasks per status
func (q *Queue) Snapshot(ctx context.Context) (map[models.RetryStatus]int, error) {
	tasks, err := q.store.List(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[models.RetryStatus]int)
	for _, task := range tasks {
		counts[task.Status]++
	}
	return counts, nil
}

// Start launches the background scanner
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		q.cancel = cancel
		go q.loop(runCtx)
		q.logger.InfoWith(logger.Retry, "Retry queue scanner started")
	})
}

// Stop cancels the scanner and returns once its current tick has completed
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		if q.cancel == nil {
			return
		}
		q.cancel()
		<-q.done
		q.logger.InfoWith(logger.Retry, "Retry queue scanner stopped")
	})
}

func (q *Queue) loop(ctx context.Context) {
	defer close(q.done)

	ticker := time.NewTicker(q.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.scan(ctx)
		}
	}
}

// scan flags due pending tasks as Retrying and publishes them. It must never
// kill the scanner loop, whatever goes wrong with an individual task.
func (q *Queue) scan(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.ErrorWith(logger.Retry, "Recovered from panic in scan: %v", r)
		}
	}()

	q.mu.Lock()
	defer q.mu.Unlock()

	tasks, err := q.store.List(ctx)
	if err != nil {
		q.logger.ErrorWith(logger.Retry, "Error scanning tasks: %v", err)
		return
	}

	now := q.now()
	for _, task := range tasks {
		if !task.Due(now) {
			continue
		}

		flagged := *task
		flagged.Status = models.RetryStatusRetrying

		// Only mark the task once a consumer slot is available; otherwise it
		// stays pending and is picked up on a later tick
		select {
		case q.retrying <- flagged:
			task.Status = models.RetryStatusRetrying
			if err := q.store.Put(ctx, task); err != nil {
				q.logger.ErrorWith(logger.Retry, "Failed to flag task %s: %v", task.TaskID, err)
				continue
			}
			metrics.RetryTasksFlagged.Inc()
			q.logger.InfoWith(logger.Retry, "Task %s ready for retry (attempt %d/%d)",
				task.TaskID, task.Attempt+1, task.MaxAttempts)
		default:
			q.logger.DebugWith(logger.Retry, "Redrive channel full, leaving task %s pending", task.TaskID)
		}
	}

	q.updateQueueSize(ctx)
}

// updateQueueSize refreshes the queue size gauge. Callers must hold q.mu.
func (q *Queue) updateQueueSize(ctx context.Context) {
	tasks, err := q.store.List(ctx)
	if err != nil {
		return
	}

	active := 0
	for _, task := range tasks {
		if !task.Terminal() {
			active++
		}
	}
	metrics.RetryQueueSize.Set(float64(active))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
