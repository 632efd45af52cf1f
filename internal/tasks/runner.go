package tasks

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"digital_legacy_echo/internal/models"
)

const (
	historySuccess         = "success"
	historyFailure         = "failure"
	historyHandlerNotFound = "handler_not_found"
)

// Runner executes due scheduled tasks and records every attempt in the task history.
type Runner struct {
	db         *gorm.DB
	registry   *Registry
	logger     echo.Logger
	retryDelay time.Duration
	now        func() time.Time
}

func NewRunner(db *gorm.DB, registry *Registry, logger echo.Logger) *Runner {
	return &Runner{
		db:         db,
		registry:   registry,
		logger:     logger,
		retryDelay: 5 * time.Minute,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run processes due tasks immediately and then on every tick until ctx is done.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunDue(ctx); err != nil {
			r.logger.Errorf("Error processing scheduled tasks: %v", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// RunDue executes every active task whose due time has passed and returns how many ran.
func (r *Runner) RunDue(ctx context.Context) (int, error) {
	var pending []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, r.now()).
		Order("due asc").
		Find(&pending).Error
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	r.logger.Infof("Found %d pending tasks", len(pending))
	ran := 0
	for _, task := range pending {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		r.execute(ctx, task)
		ran++
	}
	return ran, nil
}

func (r *Runner) execute(ctx context.Context, task models.ScheduledTask) {
	startTime := r.now()
	attempt := task.Attempts + 1

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		r.logger.Warnf("Task handler not found for %s (ID %d), marking as failure", task.TaskName, task.ID)
		r.record(ctx, task, startTime, 0, historyHandlerNotFound, attempt, map[string]interface{}{"error": "handler not found"})
		r.update(ctx, task, map[string]interface{}{
			"status":     models.ScheduledTaskStatusFailure,
			"last_run":   startTime,
			"attempts":   attempt,
			"last_error": "handler not found",
		})
		return
	}

	result, err := handler(ctx, r.db, task)
	runtime := r.now().Sub(startTime)

	if err != nil {
		r.logger.Errorf("Task %s (ID %d) failed on attempt %d: %v", task.TaskName, task.ID, attempt, err)
		r.record(ctx, task, startTime, runtime, historyFailure, attempt, map[string]interface{}{"error": err.Error()})
		r.update(ctx, task, r.failureUpdates(task, attempt, startTime, err))
		return
	}

	r.logger.Infof("Task %s (ID %d) completed", task.TaskName, task.ID)
	r.record(ctx, task, startTime, runtime, historySuccess, attempt, result)

	updates := map[string]interface{}{
		"last_run":   startTime,
		"attempts":   0,
		"last_error": "",
		"status":     models.ScheduledTaskStatusDone,
	}
	if next, ok := r.nextRun(task); ok {
		updates["status"] = models.ScheduledTaskStatusActive
		updates["due"] = next
	}
	r.update(ctx, task, updates)
}

// failureUpdates retries with exponential backoff until MaxAttempt is used up.
// Exhausted recurring tasks skip to their next occurrence instead of failing.
func (r *Runner) failureUpdates(task models.ScheduledTask, attempt int, startTime time.Time, err error) map[string]interface{} {
	updates := map[string]interface{}{
		"last_run":   startTime,
		"attempts":   attempt,
		"last_error": err.Error(),
	}

	if attempt < task.MaxAttempt {
		updates["due"] = startTime.Add(r.retryDelay * time.Duration(1<<(attempt-1)))
		return updates
	}

	if next, ok := r.nextRun(task); ok {
		updates["due"] = next
		updates["attempts"] = 0
		return updates
	}
	updates["status"] = models.ScheduledTaskStatusFailure
	return updates
}

// nextRun reports the next occurrence of a recurring task, if it is later than the current one.
func (r *Runner) nextRun(task models.ScheduledTask) (time.Time, bool) {
	if task.TaskType != models.ScheduledTaskTypeRecurring {
		return time.Time{}, false
	}
	next := task.NextDue(r.now())
	if !next.After(task.Due) {
		return time.Time{}, false
	}
	return next, true
}

func (r *Runner) record(ctx context.Context, task models.ScheduledTask, runAt time.Time, runtime time.Duration, status string, attempt int, result map[string]interface{}) {
	history := models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           runAt,
		RuntimeMillis:   runtime.Milliseconds(),
		Status:          status,
		AttemptNumber:   attempt,
		Arguments:       task.Arguments,
		Result:          result,
	}
	if err := r.db.WithContext(ctx).Create(&history).Error; err != nil {
		r.logger.Errorf("Failed to record history for task %d: %v", task.ID, err)
	}
}

func (r *Runner) update(ctx context.Context, task models.ScheduledTask, updates map[string]interface{}) {
	if err := r.db.WithContext(ctx).Model(&models.ScheduledTask{ID: task.ID}).Updates(updates).Error; err != nil {
		r.logger.Errorf("Failed to update task %d: %v", task.ID, err)
	}
}
