package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"digital_legacy_echo/internal/models"
)

// BuildScheduledTask returns an active task row for taskName carrying args as its JSON arguments.
func BuildScheduledTask(taskName string, args interface{}, due time.Time, recurringInterval *string, taskType models.ScheduledTaskType, maxAttempt int) (*models.ScheduledTask, error) {
	encoded, err := encodeArgs(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", taskName, err)
	}
	return &models.ScheduledTask{
		TaskName:          taskName,
		Arguments:         encoded,
		Due:               due,
		RecurringInterval: recurringInterval,
		Status:            models.ScheduledTaskStatusActive,
		TaskType:          taskType,
		MaxAttempt:        maxAttempt,
	}, nil
}

func encodeArgs(args interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	return out, nil
}

// decodeArgs fills dst, a pointer to an args struct, from the stored task arguments.
func decodeArgs(task models.ScheduledTask, dst interface{}) error {
	raw, err := json.Marshal(task.Arguments)
	if err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}
