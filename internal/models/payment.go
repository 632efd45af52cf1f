package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus is the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusNew      PaymentStatus = "new"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// usualPaymentMoves is the regular payment flow; other moves are allowed and logged.
var usualPaymentMoves = map[PaymentStatus][]PaymentStatus{
	PaymentStatusNew:      {PaymentStatusPaid, PaymentStatusRefunded},
	PaymentStatusPaid:     {PaymentStatusRefunded, PaymentStatusNew},
	PaymentStatusRefunded: {},
}

func (s PaymentStatus) Valid() bool {
	_, ok := usualPaymentMoves[s]
	return ok
}

// IsUsualMove reports whether moving a payment from s to to follows the regular flow.
func (s PaymentStatus) IsUsualMove(to PaymentStatus) bool {
	if !to.Valid() {
		return false
	}
	if s == to {
		return true
	}
	for _, next := range usualPaymentMoves[s] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentOrigin tells apart payments created by order completion from ones entered by staff.
// At most one auto payment may exist per order.
type PaymentOrigin string

const (
	PaymentOriginAuto   PaymentOrigin = "auto"
	PaymentOriginManual PaymentOrigin = "manual"
)

// Payment is a receivable tied to an order
type Payment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PaymentNumber string          `gorm:"type:varchar(64);uniqueIndex" json:"payment_number"`
	OrderID       uint            `gorm:"index" json:"order_id"`
	UserID        *uint           `gorm:"index" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(10);not null" json:"currency"`
	PaymentMethod string          `gorm:"type:varchar(64)" json:"payment_method"`
	Status        PaymentStatus   `gorm:"type:varchar(20);index;not null" json:"status"`
	Origin        PaymentOrigin   `gorm:"type:varchar(10);not null" json:"origin"`
	TransactionID string          `gorm:"type:varchar(255)" json:"transaction_id"`
	ProofURL      string          `gorm:"type:text" json:"proof_url"`
	Notes         string          `gorm:"type:text" json:"notes"`
	AdminNotes    string          `gorm:"type:text" json:"admin_notes"`
	PaymentDate   time.Time       `gorm:"index" json:"payment_date"`
	PaidAt        *time.Time      `json:"paid_at"`
	RefundedAt    *time.Time      `json:"refunded_at"`

	// Relationships
	Order *Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.Status == "" {
		p.Status = PaymentStatusNew
	}
	if p.Origin == "" {
		p.Origin = PaymentOriginManual
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now().UTC()
	}
	if p.PaymentNumber == "" {
		p.PaymentNumber = pendingNumber()
	}
	return nil
}

// AfterCreate assigns the PAY number once the id is known. A skipped
// conflicting insert leaves ID at zero and is ignored here.
func (p *Payment) AfterCreate(tx *gorm.DB) error {
	if p.ID == 0 || !isPendingNumber(p.PaymentNumber) {
		return nil
	}
	p.PaymentNumber = DocumentNumber(PaymentNumberPrefix, p.PaymentDate, p.ID)
	return tx.Model(p).UpdateColumn("payment_number", p.PaymentNumber).Error
}
