package tasks

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"digital_legacy_echo/internal/models"
)

const defaultRetentionDays = 90

// PruneWebhookEventsArgs sets how long webhook events are kept
type PruneWebhookEventsArgs struct {
	RetentionDays int `json:"retention_days"`
}

// PruneWebhookEventsTaskDef deletes old webhook event rows
type PruneWebhookEventsTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *PruneWebhookEventsTaskDef) TaskID() string {
	return "prune_webhook_events"
}

// HandleExecution removes events older than the retention window
func (t *PruneWebhookEventsTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	var args PruneWebhookEventsArgs
	if err := decodeArgs(task, &args); err != nil {
		return nil, err
	}
	if args.RetentionDays <= 0 {
		args.RetentionDays = defaultRetentionDays
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -args.RetentionDays)
	res := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.WebhookEvent{})
	if res.Error != nil {
		return nil, res.Error
	}

	return map[string]interface{}{
		"status":  "success",
		"deleted": res.RowsAffected,
		"cutoff":  cutoff.Format(time.RFC3339),
	}, nil
}

// EnsureScheduled creates the daily prune task unless an active one exists.
func (t *PruneWebhookEventsTaskDef) EnsureScheduled(ctx context.Context, db *gorm.DB, retentionDays int) error {
	var existing models.ScheduledTask
	err := db.WithContext(ctx).
		Where("task_name = ? AND status = ?", t.TaskID(), models.ScheduledTaskStatusActive).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	rule := "FREQ=DAILY;INTERVAL=1"
	task, err := BuildScheduledTask(t.TaskID(), PruneWebhookEventsArgs{RetentionDays: retentionDays},
		time.Now().UTC(), &rule, models.ScheduledTaskTypeRecurring, 1)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Create(task).Error
}

// PruneWebhookEventsTask is the singleton instance of PruneWebhookEventsTaskDef
var PruneWebhookEventsTask = &PruneWebhookEventsTaskDef{}
