package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentGateway string

const (
	PaymentGatewaySepay  PaymentGateway = "sepay"
	PaymentGatewayManual PaymentGateway = "manual"
)

// WebhookOutcome records what an inbound payment notification did
type WebhookOutcome string

const (
	WebhookOutcomeReceived         WebhookOutcome = "received"
	WebhookOutcomeCompleted        WebhookOutcome = "completed"
	WebhookOutcomeAlreadyConfirmed WebhookOutcome = "already_confirmed"
	WebhookOutcomeDuplicate        WebhookOutcome = "duplicate"
	WebhookOutcomeIgnored          WebhookOutcome = "ignored"
	WebhookOutcomeRejected         WebhookOutcome = "rejected"
)

// WebhookEvent stores every inbound gateway call with its raw payload
type WebhookEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Gateway    PaymentGateway `gorm:"type:varchar(50);not null" json:"gateway"`
	ExternalID string         `gorm:"type:varchar(100);index" json:"external_id"`
	Payload    datatypes.JSON `json:"payload"`
	OrderID    *uint          `gorm:"index" json:"order_id"`
	Outcome    WebhookOutcome `gorm:"type:varchar(32);index" json:"outcome"`
	Message    string         `gorm:"type:text" json:"message"`
}
