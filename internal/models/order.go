package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/teambition/rrule-go"
	"gorm.io/gorm"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusNew            OrderStatus = "new"
	OrderStatusDraft          OrderStatus = "draft"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// OrderStatuses lists every accepted order status.
var OrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusDraft,
	OrderStatusPendingPayment,
	OrderStatusConfirmed,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// usualOrderMoves is the regular order flow. Admins may still move an order
// between any two statuses; moves outside this map are only logged.
var usualOrderMoves = map[OrderStatus][]OrderStatus{
	OrderStatusNew:            {OrderStatusDraft, OrderStatusPendingPayment, OrderStatusConfirmed, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusDraft:          {OrderStatusNew, OrderStatusPendingPayment, OrderStatusConfirmed, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusPendingPayment: {OrderStatusNew, OrderStatusConfirmed, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPendingPayment, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:      {OrderStatusCancelled},
	OrderStatusCancelled:      {},
}

// Valid reports whether s is one of the six order statuses
func (s OrderStatus) Valid() bool {
	_, ok := usualOrderMoves[s]
	return ok
}

// IsUsualMove reports whether moving from s to to follows the regular flow.
// Re-applying the current status counts as usual.
func (s OrderStatus) IsUsualMove(to OrderStatus) bool {
	if !to.Valid() {
		return false
	}
	if s == to {
		return true
	}
	for _, next := range usualOrderMoves[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsFinal reports whether the order no longer accepts payment confirmations.
func (s OrderStatus) IsFinal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// BillingCycle is the renewal period snapshotted from the product variant
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// BillingCycleFromPeriod maps a variant billing period onto an order billing cycle.
func BillingCycleFromPeriod(period string) BillingCycle {
	if strings.EqualFold(strings.TrimSpace(period), string(BillingCycleYearly)) {
		return BillingCycleYearly
	}
	return BillingCycleMonthly
}

// Order is a customer's purchase with a pricing snapshot taken at creation time
type Order struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderNumber string `gorm:"type:varchar(64);uniqueIndex" json:"order_number"`
	UserID      *uint  `gorm:"index" json:"user_id"`

	CustomerName    string `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerEmail   string `gorm:"type:varchar(255);index" json:"customer_email"`
	CustomerPhone   string `gorm:"type:varchar(50)" json:"customer_phone"`
	CustomerAddress string `gorm:"type:text" json:"customer_address"`
	CustomerNotes   string `gorm:"type:text" json:"customer_notes"`
	AdminNotes      string `gorm:"type:text" json:"admin_notes"`
	CouponCode      string `gorm:"type:varchar(64)" json:"coupon_code"`

	PlanName     string       `gorm:"type:varchar(255)" json:"plan_name"`
	BillingCycle BillingCycle `gorm:"type:varchar(20)" json:"billing_cycle"`

	Subtotal decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"subtotal"`
	Tax      decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"tax"`
	Discount decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"discount"`
	Total    decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"total"`
	Currency string              `gorm:"type:varchar(10);not null" json:"currency"`

	Status        OrderStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	OrderDate     time.Time   `gorm:"index" json:"order_date"`
	CompletedDate *time.Time  `json:"completed_date"`
	CancelledDate *time.Time  `json:"cancelled_date"`

	ProductVariantID *uint `gorm:"index" json:"product_variant_id"`
	PlanID           *uint `gorm:"index" json:"plan_id"`

	// Relationships
	ProductVariant *ProductVariant `gorm:"foreignKey:ProductVariantID" json:"product_variant,omitempty"`
}

// RecalculateTotal sets total = subtotal - discount + tax
func (o *Order) RecalculateTotal() {
	o.Total = decimal.NewNullDecimal(o.Subtotal.Sub(o.Discount).Add(o.Tax))
}

// PayableAmount is the amount a payment for this order should carry.
// Orders without a stored total fall back to their subtotal.
func (o Order) PayableAmount() decimal.Decimal {
	if o.Total.Valid {
		return o.Total.Decimal
	}
	return o.Subtotal
}

// RenewsAt returns the next renewal after completion, or nil for orders that are not completed.
func (o Order) RenewsAt() *time.Time {
	if o.Status != OrderStatusCompleted || o.CompletedDate == nil {
		return nil
	}

	freq := rrule.MONTHLY
	if o.BillingCycle == BillingCycleYearly {
		freq = rrule.YEARLY
	}
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    freq,
		Dtstart: *o.CompletedDate,
		Count:   2,
	})
	if err != nil {
		return nil
	}
	next := rule.After(*o.CompletedDate, false)
	if next.IsZero() {
		return nil
	}
	return &next
}

// BeforeCreate fills defaults and a temporary unique order number
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.Status == "" {
		o.Status = OrderStatusNew
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = time.Now().UTC()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = pendingNumber()
	}
	return nil
}

// AfterCreate replaces the temporary number with the permanent one derived from the id
func (o *Order) AfterCreate(tx *gorm.DB) error {
	if o.ID == 0 || !isPendingNumber(o.OrderNumber) {
		return nil
	}
	o.OrderNumber = DocumentNumber(OrderNumberPrefix, o.OrderDate, o.ID)
	return tx.Model(o).UpdateColumn("order_number", o.OrderNumber).Error
}

const (
	OrderNumberPrefix         = "ORD"
	PaymentNumberPrefix       = "PAY"
	ReceiptVoucherPrefix      = "RV"
	DisbursementVoucherPrefix = "PV"

	pendingNumberPrefix = "TMP-"
)

// DocumentNumber builds display codes such as ORD2025100001: prefix, yyyymm, zero-padded id.
func DocumentNumber(prefix string, at time.Time, id uint) string {
	return fmt.Sprintf("%s%s%04d", prefix, at.UTC().Format("200601"), id)
}

// NormalizeOrderNumber strips dashes and spaces and upper-cases a customer-typed order number.
func NormalizeOrderNumber(number string) string {
	number = strings.ReplaceAll(number, "-", "")
	number = strings.ReplaceAll(number, " ", "")
	return strings.ToUpper(strings.TrimSpace(number))
}

func pendingNumber() string {
	return pendingNumberPrefix + uuid.NewString()
}

func isPendingNumber(number string) bool {
	return strings.HasPrefix(number, pendingNumberPrefix)
}
