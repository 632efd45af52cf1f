package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital_legacy_echo/internal/models"
	"digital_legacy_echo/internal/testutil"
)

func newWebhookService(env *testEnv, replay ReplayStore) *WebhookService {
	return NewWebhookService(env.db, testutil.Logger(), env.orders, replay, NoopLocker{}, WebhookConfig{
		AmountTolerance: decimal.NewFromInt(1000),
		ReplayTTL:       time.Hour,
	})
}

func ingest(t *testing.T, svc *WebhookService, body string) (*WebhookResult, error) {
	t.Helper()
	var p SepayPayload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return svc.IngestSepay(context.Background(), []byte(body), p)
}

func TestExtractOrderReference(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		numbers []string
		ids     []uint
	}{
		{name: "order number", text: "thanh toan ORD2025100001", numbers: []string{"ORD2025100001"}},
		{name: "dashed number", text: "ORD-202510-0001 chuyen tien", numbers: []string{"ORD2025100001"}},
		{name: "lowercase number", text: "ord2025100001", numbers: []string{"ORD2025100001"}},
		{name: "legacy id", text: "DH1234 chuyen khoan", ids: []uint{1234}},
		{name: "nothing", text: "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := ExtractOrderReference(tt.text)
			assert.Equal(t, tt.numbers, ref.Numbers)
			assert.Equal(t, tt.ids, ref.IDs)
		})
	}
}

func TestSepayPayloadFallbacks(t *testing.T) {
	var p SepayPayload
	require.NoError(t, json.Unmarshal([]byte(`{"transaction_content":"DH7","amount_in":"50000"}`), &p))
	assert.Equal(t, "DH7", p.Text())
	amount := p.PaidAmount()
	require.True(t, amount.Valid)
	assert.True(t, amount.Decimal.Equal(decimal.NewFromInt(50000)))

	require.NoError(t, json.Unmarshal([]byte(`{"addInfo":"DH8","transferAmount":70000,"amount_in":1}`), &p))
	assert.Contains(t, p.Text(), "DH8")
	assert.True(t, p.PaidAmount().Decimal.Equal(decimal.NewFromInt(70000)))
}

func TestWebhookCompletesLegacyReference(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedOrder(t, env.db, models.Order{
		ID:       1234,
		Subtotal: decimal.NewFromInt(299000),
		Status:   models.OrderStatusPendingPayment,
	})
	svc := newWebhookService(env, newMemoryReplay())

	result, err := ingest(t, svc, `{"id":1,"content":"DH1234 chuyen khoan","transferAmount":299000,"transferType":"in"}`)
	require.NoError(t, err)
	assert.Equal(t, models.WebhookOutcomeCompleted, result.Outcome)
	assert.Equal(t, uint(1234), result.OrderID)

	order := env.reloadOrder(t, 1234)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.NotNil(t, order.CompletedDate)

	payments := env.paymentsFor(t, 1234)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromInt(299000)))
	assert.Equal(t, models.PaymentOriginAuto, payments[0].Origin)

	var event models.WebhookEvent
	require.NoError(t, env.db.Last(&event).Error)
	assert.Equal(t, models.WebhookOutcomeCompleted, event.Outcome)
	assert.Equal(t, "1", event.ExternalID)
	require.NotNil(t, event.OrderID)
	assert.Equal(t, uint(1234), *event.OrderID)
}

func TestWebhookCompletesEveryOpenStatus(t *testing.T) {
	env := newTestEnv(t)
	svc := newWebhookService(env, newMemoryReplay())

	for i, status := range []models.OrderStatus{models.OrderStatusNew, models.OrderStatusDraft, models.OrderStatusPendingPayment, models.OrderStatusConfirmed} {
		t.Run(string(status), func(t *testing.T) {
			order := testutil.SeedOrder(t, env.db, models.Order{Subtotal: decimal.NewFromInt(299000), Status: status})

			body := fmt.Sprintf(`{"id":%d,"content":"thanh toan DH%d","transferAmount":299000}`, 900+i, order.ID)
			result, err := ingest(t, svc, body)
			require.NoError(t, err)
			assert.Equal(t, models.WebhookOutcomeCompleted, result.Outcome)
			assert.Equal(t, models.OrderStatusCompleted, env.reloadOrder(t, order.ID).Status)
			assert.Len(t, env.paymentsFor(t, order.ID), 1)
		})
	}
}

func TestWebhookMatchesOrderNumber(t *testing.T) {
	env := newTestEnv(t)
	order := testutil.SeedOrder(t, env.db, models.Order{Subtotal: decimal.NewFromInt(500000)})
	svc := newWebhookService(env, newMemoryReplay())

	n := order.OrderNumber
	content := "MBVCB12345678 " + n[:3] + "-" + n[3:9] + "-" + n[9:]
	body, err := json.Marshal(map[string]interface{}{"id": 2, "content": content, "transferAmount": 499500})
	require.NoError(t, err)

	result, err := ingest(t, svc, string(body))
	require.NoError(t, err)
	assert.Equal(t, models.WebhookOutcomeCompleted, result.Outcome)
	assert.Equal(t, order.ID, result.OrderID)
}

func TestWebhookAlreadyCompletedIsNoop(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedOrder(t, env.db, models.Order{ID: 77, Subtotal: decimal.NewFromInt(100000)})
	svc := newWebhookService(env, newMemoryReplay())

	_, err := ingest(t, svc, `{"id":10,"content":"DH77","transferAmount":100000}`)
	require.NoError(t, err)

	result, err := ingest(t, svc, `{"id":11,"content":"DH77","transferAmount":100000}`)
	require.NoError(t, err)
	assert.Equal(t, models.WebhookOutcomeAlreadyConfirmed, result.Outcome)
	assert.Len(t, env.paymentsFor(t, 77), 1)
	assert.Len(t, env.listener.orders, 1)
}

func TestWebhookReplayIsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedOrder(t, env.db, models.Order{ID: 5, Subtotal: decimal.NewFromInt(100000)})
	svc := newWebhookService(env, newMemoryReplay())

	body := `{"id":99,"content":"DH5","transferAmount":100000}`
	_, err := ingest(t, svc, body)
	require.NoError(t, err)

	result, err := ingest(t, svc, body)
	require.NoError(t, err)
	assert.Equal(t, models.WebhookOutcomeDuplicate, result.Outcome)

	var count int64
	require.NoError(t, env.db.Model(&models.WebhookEvent{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestWebhookAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedOrder(t, env.db, models.Order{ID: 9, Subtotal: decimal.NewFromInt(299000)})
	replay := newMemoryReplay()
	svc := newWebhookService(env, replay)

	_, err := ingest(t, svc, `{"id":3,"content":"DH9","transferAmount":200000}`)
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, models.OrderStatusNew, env.reloadOrder(t, 9).Status)
	assert.Empty(t, env.paymentsFor(t, 9))
	assert.Empty(t, replay.keys, "failed notifications can be retried")

	var event models.WebhookEvent
	require.NoError(t, env.db.Last(&event).Error)
	assert.Equal(t, models.WebhookOutcomeRejected, event.Outcome)
}

func TestWebhookRejections(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedOrder(t, env.db, models.Order{ID: 12, Subtotal: decimal.NewFromInt(1000), Status: models.OrderStatusCancelled})
	svc := newWebhookService(env, newMemoryReplay())

	_, err := ingest(t, svc, `{"content":"no reference here","transferAmount":1000}`)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = ingest(t, svc, `{"content":"DH404","transferAmount":1000}`)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = ingest(t, svc, `{"content":"DH12","transferAmount":1000}`)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)

	_, err = ingest(t, svc, `{"content":"DH12"}`)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestWebhookIgnoresOutgoingTransfers(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedOrder(t, env.db, models.Order{ID: 3, Subtotal: decimal.NewFromInt(1000)})
	svc := newWebhookService(env, newMemoryReplay())

	result, err := ingest(t, svc, `{"content":"DH3","transferAmount":1000,"transferType":"out"}`)
	require.NoError(t, err)
	assert.Equal(t, models.WebhookOutcomeIgnored, result.Outcome)
	assert.Equal(t, models.OrderStatusNew, env.reloadOrder(t, 3).Status)
}
