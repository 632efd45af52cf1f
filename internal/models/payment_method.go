package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentMethod is a selectable way to pay, keyed by a stable code such as "bank_transfer"
type PaymentMethod struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Code    string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Name    string         `gorm:"type:varchar(255);not null" json:"name"`
	Details datatypes.JSON `json:"details"`
	Active  bool           `gorm:"not null" json:"active"`
}
