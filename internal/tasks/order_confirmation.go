package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"digital_legacy_echo/internal/models"
)

// Mailer is satisfied by *services.EmailService.
type Mailer interface {
	Configured() bool
	SendOrderConfirmation(order models.Order) error
}

// OrderConfirmationArgs identifies the order to confirm
type OrderConfirmationArgs struct {
	OrderID uint `json:"order_id"`
}

// OrderConfirmationTaskDef queues and sends the confirmation mail for completed orders
type OrderConfirmationTaskDef struct {
	mailer     Mailer
	logger     echo.Logger
	maxAttempt int
}

func NewOrderConfirmationTask(mailer Mailer, logger echo.Logger) *OrderConfirmationTaskDef {
	return &OrderConfirmationTaskDef{mailer: mailer, logger: logger, maxAttempt: 3}
}

// TaskID returns the unique identifier for this task
func (t *OrderConfirmationTaskDef) TaskID() string {
	return "send_order_confirmation"
}

// CreateTask builds a ScheduledTask record for this task
func (t *OrderConfirmationTaskDef) CreateTask(args OrderConfirmationArgs, due time.Time) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), args, due, nil, models.ScheduledTaskTypeOneTime, t.maxAttempt)
}

// OrderCompleted queues the mail in the completing transaction, so a rolled
// back completion never sends one.
func (t *OrderConfirmationTaskDef) OrderCompleted(tx *gorm.DB, order *models.Order) error {
	if order.CustomerEmail == "" {
		return nil
	}
	task, err := t.CreateTask(OrderConfirmationArgs{OrderID: order.ID}, time.Now().UTC())
	if err != nil {
		return err
	}
	return tx.Create(task).Error
}

// HandleExecution sends the mail for the order named in the task arguments.
func (t *OrderConfirmationTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	var args OrderConfirmationArgs
	if err := decodeArgs(task, &args); err != nil {
		return nil, err
	}
	if args.OrderID == 0 {
		return nil, fmt.Errorf("order_id not provided")
	}

	var order models.Order
	err := db.WithContext(ctx).First(&order, args.OrderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]interface{}{"status": "skipped", "message": "order no longer exists"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	if order.CustomerEmail == "" {
		return map[string]interface{}{"status": "skipped", "message": "order has no customer email"}, nil
	}
	if t.mailer == nil || !t.mailer.Configured() {
		t.logger.Warnf("Email not configured, confirmation for order %s not sent", order.OrderNumber)
		return map[string]interface{}{"status": "skipped", "message": "email not configured"}, nil
	}

	if err := t.mailer.SendOrderConfirmation(order); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status":       "success",
		"order_number": order.OrderNumber,
		"email":        order.CustomerEmail,
	}, nil
}
