package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"digital_legacy_echo/internal/models"
)

// SeedVariant creates a product with one available variant.
func SeedVariant(t *testing.T, db *gorm.DB, name string, price int64, period string) *models.ProductVariant {
	t.Helper()

	plan := models.Plan{Name: name + " plan", Slug: "plan-" + name}
	require.NoError(t, db.Create(&plan).Error)

	product := models.Product{Name: name, Slug: name, Status: models.ProductStatusActive}
	require.NoError(t, db.Create(&product).Error)

	variant := models.ProductVariant{
		ProductID:     product.ID,
		PlanID:        &plan.ID,
		Name:          name + " " + period,
		Price:         decimal.NewFromInt(price),
		BillingPeriod: period,
		IsAvailable:   true,
	}
	require.NoError(t, db.Create(&variant).Error)
	return &variant
}

// SeedOrder inserts order as-is, filling the pricing snapshot from subtotal when unset.
func SeedOrder(t *testing.T, db *gorm.DB, order models.Order) *models.Order {
	t.Helper()

	if order.Currency == "" {
		order.Currency = "VND"
	}
	if !order.Total.Valid {
		order.RecalculateTotal()
	}
	require.NoError(t, db.Create(&order).Error)
	return &order
}
