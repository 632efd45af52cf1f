package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital_legacy_echo/internal/models"
	"digital_legacy_echo/internal/testutil"
)

func newCatalog(t *testing.T) (*testEnv, *CatalogService) {
	env := newTestEnv(t)
	return env, NewCatalogService(env.db, testutil.Logger(), nil, time.Minute)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "digital-vault-pro", Slugify("  Digital Vault -- PRO! "))
}

func TestProductCreateAndVariantSync(t *testing.T) {
	_, catalog := newCatalog(t)
	ctx := context.Background()
	unavailable := false

	product, err := catalog.CreateProduct(ctx, ProductInput{
		Name:   "Digital Vault",
		Images: []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"},
		Variants: []VariantInput{
			{Name: "Monthly", Price: decimal.NewFromInt(99000), BillingPeriod: "monthly"},
			{Name: "Yearly", Price: decimal.NewFromInt(990000), BillingPeriod: "yearly", SortOrder: 1},
			{Name: "Hidden", Price: decimal.NewFromInt(1), IsAvailable: &unavailable, SortOrder: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "digital-vault", product.Slug)
	assert.Equal(t, "https://cdn.example.com/a.png", product.ImageURL)
	assert.Equal(t, models.ProductStatusActive, product.Status)
	require.Len(t, product.Variants, 3)
	assert.True(t, product.Variants[0].IsAvailable)
	assert.False(t, product.Variants[2].IsAvailable)

	public, err := catalog.PublicProducts(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Len(t, public[0].Variants, 2)

	monthly := product.Variants[0]
	yearly := product.Variants[1]
	updated, err := catalog.UpdateProduct(ctx, product.ID, ProductInput{
		Name: "Digital Vault",
		Variants: []VariantInput{
			{ID: &monthly.ID, Name: "Monthly", Price: decimal.NewFromInt(109000), BillingPeriod: "monthly"},
			{ID: &yearly.ID, Delete: true},
			{Name: "Lifetime", Price: decimal.NewFromInt(5000000), SortOrder: 5},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Variants, 3)
	assert.True(t, updated.Variants[0].Price.Equal(decimal.NewFromInt(109000)))
	assert.Empty(t, updated.ImageURL)

	names := []string{}
	for _, v := range updated.Variants {
		names = append(names, v.Name)
	}
	assert.NotContains(t, names, "Yearly")
	assert.Contains(t, names, "Lifetime")
}

func TestProductValidationAndDelete(t *testing.T) {
	_, catalog := newCatalog(t)
	ctx := context.Background()

	_, err := catalog.CreateProduct(ctx, ProductInput{Name: " "})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = catalog.CreateProduct(ctx, ProductInput{Name: "x", Status: "archived"})
	assert.Equal(t, KindValidation, KindOf(err))

	product, err := catalog.CreateProduct(ctx, ProductInput{Name: "Legacy Letters", Status: "inactive"})
	require.NoError(t, err)

	public, err := catalog.PublicProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, public)

	found, err := catalog.AdminProducts(ctx, "letters")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, catalog.DeleteProduct(ctx, product.ID))
	assert.Equal(t, KindNotFound, KindOf(catalog.DeleteProduct(ctx, product.ID)))
}

func TestPaymentMethodUpsertAndPatch(t *testing.T) {
	_, catalog := newCatalog(t)
	ctx := context.Background()

	_, err := catalog.UpsertPaymentMethod(ctx, PaymentMethodInput{Code: "cash"})
	assert.Equal(t, KindValidation, KindOf(err))

	created, err := catalog.UpsertPaymentMethod(ctx, PaymentMethodInput{Code: "bank_transfer", Name: "Bank transfer"})
	require.NoError(t, err)
	assert.True(t, created.Active)

	inactive := false
	again, err := catalog.UpsertPaymentMethod(ctx, PaymentMethodInput{
		Code:    "bank_transfer",
		Name:    "Wire transfer",
		Details: json.RawMessage(`{"bank":"VCB"}`),
		Active:  &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Wire transfer", again.Name)
	assert.False(t, again.Active)

	active, err := catalog.ActivePaymentMethods(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	on := true
	byCode, err := catalog.PatchPaymentMethod(ctx, "bank_transfer", PaymentMethodPatch{Active: &on})
	require.NoError(t, err)
	assert.True(t, byCode.Active)

	name := "Bank"
	byID, err := catalog.PatchPaymentMethod(ctx, "1", PaymentMethodPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Bank", byID.Name)

	_, err = catalog.PatchPaymentMethod(ctx, "paypal", PaymentMethodPatch{Name: &name})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestPublicPaymentOptionsHideSecrets(t *testing.T) {
	_, catalog := newCatalog(t)
	ctx := context.Background()

	_, err := catalog.CreatePaymentAccount(ctx, models.PaymentAccount{Category: "wallet"})
	assert.Equal(t, KindValidation, KindOf(err))

	qr, err := catalog.CreatePaymentAccount(ctx, models.PaymentAccount{
		Category:          models.AccountCategoryQRBank,
		BankCode:          "VCB",
		AccountNumber:     "123",
		Active:            true,
		SepayClientSecret: "secret",
	})
	require.NoError(t, err)
	_, err = catalog.CreatePaymentAccount(ctx, models.PaymentAccount{Category: models.AccountCategoryMomo, MomoNumber: "090", Active: false})
	require.NoError(t, err)

	options, err := catalog.PublicPaymentOptions(ctx)
	require.NoError(t, err)
	require.Len(t, options[models.AccountCategoryQRBank], 1)
	assert.Empty(t, options[models.AccountCategoryQRBank][0].SepayClientSecret)
	assert.Empty(t, options[models.AccountCategoryMomo])

	patched, err := catalog.PatchPaymentAccount(ctx, qr.ID, map[string]interface{}{
		"display_name": "Main account",
		"id":           999,
	})
	require.NoError(t, err)
	assert.Equal(t, qr.ID, patched.ID)
	assert.Equal(t, "Main account", patched.DisplayName)

	all, err := catalog.PaymentAccounts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
