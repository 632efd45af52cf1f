package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusUsualMoves(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		usual    bool
	}{
		{OrderStatusNew, OrderStatusCompleted, true},
		{OrderStatusNew, OrderStatusNew, true},
		{OrderStatusDraft, OrderStatusPendingPayment, true},
		{OrderStatusDraft, OrderStatusCompleted, true},
		{OrderStatusPendingPayment, OrderStatusCompleted, true},
		{OrderStatusConfirmed, OrderStatusNew, false},
		{OrderStatusCompleted, OrderStatusCancelled, true},
		{OrderStatusCompleted, OrderStatusNew, false},
		{OrderStatusCancelled, OrderStatusNew, false},
		{OrderStatusCancelled, OrderStatusCancelled, true},
		{OrderStatusNew, OrderStatus("shipped"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.usual, tt.from.IsUsualMove(tt.to))
		})
	}
}

func TestEveryOrderStatusUsuallyCancels(t *testing.T) {
	for _, s := range OrderStatuses {
		assert.True(t, s.IsUsualMove(OrderStatusCancelled), "%s -> cancelled", s)
	}
}

func TestEveryOpenOrderStatusUsuallyCompletes(t *testing.T) {
	for _, s := range OrderStatuses {
		if s.IsFinal() {
			continue
		}
		assert.True(t, s.IsUsualMove(OrderStatusCompleted), "%s -> completed", s)
	}
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range OrderStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, OrderStatus("shipped").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestPaymentStatusUsualMoves(t *testing.T) {
	assert.True(t, PaymentStatusNew.IsUsualMove(PaymentStatusPaid))
	assert.True(t, PaymentStatusPaid.IsUsualMove(PaymentStatusRefunded))
	assert.True(t, PaymentStatusPaid.IsUsualMove(PaymentStatusPaid))
	assert.False(t, PaymentStatusRefunded.IsUsualMove(PaymentStatusPaid))
	assert.False(t, PaymentStatusNew.IsUsualMove(PaymentStatus("void")))
}

func TestPayableAmount(t *testing.T) {
	o := Order{Subtotal: decimal.NewFromInt(200), Discount: decimal.NewFromInt(30), Tax: decimal.NewFromInt(10)}
	assert.True(t, o.PayableAmount().Equal(decimal.NewFromInt(200)), "falls back to subtotal")

	o.RecalculateTotal()
	assert.True(t, o.PayableAmount().Equal(decimal.NewFromInt(180)))
}

func TestRenewsAt(t *testing.T) {
	completed := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

	monthly := Order{Status: OrderStatusCompleted, CompletedDate: &completed, BillingCycle: BillingCycleMonthly}
	next := monthly.RenewsAt()
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2025, 2, 15, 9, 0, 0, 0, time.UTC), *next)

	yearly := Order{Status: OrderStatusCompleted, CompletedDate: &completed, BillingCycle: BillingCycleYearly}
	next = yearly.RenewsAt()
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC), *next)

	assert.Nil(t, Order{Status: OrderStatusNew}.RenewsAt())
}

func TestDocumentNumber(t *testing.T) {
	at := time.Date(2025, 10, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "ORD2025100001", DocumentNumber(OrderNumberPrefix, at, 1))
	assert.Equal(t, "PAY20251012345", DocumentNumber(PaymentNumberPrefix, at, 12345))
}

func TestNormalizeOrderNumber(t *testing.T) {
	assert.Equal(t, "ORD2025100001", NormalizeOrderNumber(" ord-202510-0001 "))
}

func TestBillingCycleFromPeriod(t *testing.T) {
	assert.Equal(t, BillingCycleYearly, BillingCycleFromPeriod("Yearly"))
	assert.Equal(t, BillingCycleMonthly, BillingCycleFromPeriod("monthly"))
	assert.Equal(t, BillingCycleMonthly, BillingCycleFromPeriod(""))
}

func TestProductVariantDisplayPlanName(t *testing.T) {
	assert.Equal(t, "Pro", ProductVariant{Name: "Pro"}.DisplayPlanName())
	assert.Equal(t, "Family", ProductVariant{Plan: &Plan{Name: "Family"}}.DisplayPlanName())
	assert.Equal(t, "Unknown Plan", ProductVariant{}.DisplayPlanName())
}

func TestPaymentAccountPublic(t *testing.T) {
	a := PaymentAccount{SepayClientID: "id", SepayClientSecret: "s", SepayMerchantID: "m", SepayAPIURL: "u", BankCode: "VCB"}
	assert.True(t, a.HasSepay())

	p := a.Public()
	assert.False(t, p.HasSepay())
	assert.Empty(t, p.SepayClientSecret)
	assert.Equal(t, "VCB", p.BankCode)
}

func TestScheduledTaskNextDue(t *testing.T) {
	due := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	now := due.Add(36 * time.Hour)

	once := ScheduledTask{Due: due, TaskType: ScheduledTaskTypeOneTime}
	assert.Equal(t, due, once.NextDue(now))

	rule := "FREQ=DAILY"
	daily := ScheduledTask{Due: due, TaskType: ScheduledTaskTypeRecurring, RecurringInterval: &rule}
	assert.Equal(t, due.AddDate(0, 0, 2), daily.NextDue(now))
}
