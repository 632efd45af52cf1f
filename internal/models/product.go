package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is a catalog entry sold through one or more variants
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name             string                      `gorm:"type:varchar(255);not null;index" json:"name"`
	Slug             string                      `gorm:"type:varchar(255);uniqueIndex" json:"slug"`
	Description      string                      `gorm:"type:text" json:"description"`
	ShortDescription string                      `gorm:"type:text" json:"short_description"`
	Category         string                      `gorm:"type:varchar(100)" json:"category"`
	Status           ProductStatus               `gorm:"type:varchar(20);index;not null" json:"status"`
	Images           datatypes.JSONSlice[string] `json:"images"`
	ImageURL         string                      `gorm:"type:text" json:"image_url"`
	IsFeatured       bool                        `json:"is_featured"`
	SortOrder        int                         `json:"sort_order"`
	Metadata         datatypes.JSON              `json:"metadata"`

	// Relationships
	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
}

// SyncImageURL keeps image_url pointing at the first image.
func (p *Product) SyncImageURL() {
	if len(p.Images) > 0 {
		p.ImageURL = p.Images[0]
		return
	}
	p.ImageURL = ""
}

// ProductVariant is a priced, purchasable option of a product
type ProductVariant struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProductID      uint                `gorm:"index;not null" json:"product_id"`
	PlanID         *uint               `gorm:"index" json:"plan_id"`
	SKU            string              `gorm:"type:varchar(100)" json:"sku"`
	Name           string              `gorm:"type:varchar(255)" json:"name"`
	Label          string              `gorm:"type:varchar(100)" json:"label"`
	Price          decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"price"`
	CompareAtPrice decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"compare_at_price"`
	BillingPeriod  string              `gorm:"type:varchar(20)" json:"billing_period"`
	IsPopular      bool                `json:"is_popular"`
	IsAvailable    bool                `gorm:"not null" json:"is_available"`
	SortOrder      int                 `json:"sort_order"`
	Metadata       datatypes.JSON      `json:"metadata"`

	// Relationships
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Plan    *Plan    `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// DisplayPlanName is the plan name snapshotted onto orders.
func (v ProductVariant) DisplayPlanName() string {
	if v.Name != "" {
		return v.Name
	}
	if v.Plan != nil && v.Plan.Name != "" {
		return v.Plan.Name
	}
	return "Unknown Plan"
}
