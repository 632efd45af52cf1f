package models

import (
	"time"

	"gorm.io/gorm"
)

// Plan groups product variants into a sellable tier such as "Basic" or "Family"
type Plan struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string `gorm:"type:varchar(255);uniqueIndex" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	SortOrder   int    `json:"sort_order"`
}
