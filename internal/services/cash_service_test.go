package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital_legacy_echo/internal/models"
	"digital_legacy_echo/internal/testutil"
)

func TestCashCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.cash.Create(ctx, CashInput{Type: "sideways", Category: "Salary"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = env.cash.Create(ctx, CashInput{Type: "out", Category: "  "})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestCashCreateDefaults(t *testing.T) {
	env := newTestEnv(t)

	before := time.Now().UTC().Add(-time.Second)
	txn, err := env.cash.Create(context.Background(), CashInput{
		Type:     "out",
		Category: "Rent",
		Amount:   decimal.NewFromInt(5000000),
	})
	require.NoError(t, err)

	assert.Equal(t, "VND", txn.Currency)
	assert.True(t, txn.TxnDate.After(before))
	assert.Regexp(t, `^PV\d{10,}$`, txn.VoucherNumber)
}

func TestCashListFiltersAndPaging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, env.db, models.Order{Subtotal: decimal.NewFromInt(1)})

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		date := base.AddDate(0, 0, i)
		_, err := env.cash.Create(ctx, CashInput{
			Type:     "in",
			Category: "Other income",
			Amount:   decimal.NewFromInt(int64(1000 * (i + 1))),
			Date:     &date,
			Notes:    fmt.Sprintf("entry %d", i),
		})
		require.NoError(t, err)
	}
	_, err := env.cash.Create(ctx, CashInput{Type: "out", Category: "Salary", Amount: decimal.NewFromInt(1), Date: &base})
	require.NoError(t, err)
	_, err = env.cash.Create(ctx, CashInput{Type: "in", Category: models.CategorySalesRevenue, Amount: decimal.NewFromInt(1), Date: &base, OrderID: &order.ID})
	require.NoError(t, err)

	outs, err := env.cash.List(ctx, CashFilter{Type: "out"})
	require.NoError(t, err)
	assert.Len(t, outs, 1)

	page, err := env.cash.List(ctx, CashFilter{Type: "in", Category: "Other income", Limit: 2, Page: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "entry 4", page[0].Notes, "newest first")

	page3, err := env.cash.List(ctx, CashFilter{Category: "Other income", Limit: 2, Page: 3})
	require.NoError(t, err)
	assert.Len(t, page3, 1)

	from := base.AddDate(0, 0, 3)
	ranged, err := env.cash.List(ctx, CashFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	// single-character searches are ignored
	all, err := env.cash.List(ctx, CashFilter{Q: "e"})
	require.NoError(t, err)
	assert.Len(t, all, 7)

	byOrder, err := env.cash.List(ctx, CashFilter{Q: order.OrderNumber[:6]})
	require.NoError(t, err)
	require.Len(t, byOrder, 1)
	require.NotNil(t, byOrder[0].Order)
	assert.Equal(t, order.ID, byOrder[0].Order.ID)
}

func TestCashFilterNormalize(t *testing.T) {
	f := CashFilter{Limit: 1000, Page: -3}.normalize()
	assert.Equal(t, 200, f.Limit)
	assert.Equal(t, 1, f.Page)

	f = CashFilter{}.normalize()
	assert.Equal(t, 50, f.Limit)
}

func TestCashUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	txn, err := env.cash.Create(ctx, CashInput{Type: "in", Category: "Other income", Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	bad := "both"
	_, err = env.cash.Update(ctx, txn.ID, CashPatch{Type: &bad})
	assert.Equal(t, KindValidation, KindOf(err))

	amount := decimal.NewFromInt(25)
	notes := "corrected"
	updated, err := env.cash.Update(ctx, txn.ID, CashPatch{Amount: &amount, Notes: &notes})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(amount))
	assert.Equal(t, "corrected", updated.Notes)

	require.NoError(t, env.cash.Delete(ctx, txn.ID))
	assert.Equal(t, KindNotFound, KindOf(env.cash.Delete(ctx, txn.ID)))
}
