package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashTxnType is the direction of a cash ledger entry
type CashTxnType string

const (
	CashTxnIn  CashTxnType = "in"
	CashTxnOut CashTxnType = "out"
)

func (t CashTxnType) Valid() bool {
	return t == CashTxnIn || t == CashTxnOut
}

// CategorySalesRevenue is the category used for receipts created from a paid bill.
const CategorySalesRevenue = "Sales revenue"

// CashCategories are the suggested categories per direction. Entries may use any non-empty category.
var CashCategories = map[CashTxnType][]string{
	CashTxnIn: {
		CategorySalesRevenue,
		"Customer deposit",
		"Interest income",
		"Other income",
	},
	CashTxnOut: {
		"Supplier payment",
		"Salary",
		"Rent",
		"Utilities",
		"Tax",
		"Refund",
		"Marketing",
		"Other expense",
	},
}

// CashTransaction is a ledger entry for money received or paid out
type CashTransaction struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	VoucherNumber string          `gorm:"type:varchar(64);uniqueIndex" json:"voucher_number"`
	TxnType       CashTxnType     `gorm:"type:varchar(3);index;not null" json:"txn_type"`
	Category      string          `gorm:"type:varchar(100);index;not null" json:"category"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(10);not null" json:"currency"`
	TxnDate       time.Time       `gorm:"index" json:"txn_date"`
	Notes         string          `gorm:"type:text" json:"notes"`
	OrderID       *uint           `gorm:"index" json:"order_id"`

	// Relationships
	Order *Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

func (c *CashTransaction) BeforeCreate(tx *gorm.DB) error {
	if c.TxnDate.IsZero() {
		c.TxnDate = time.Now().UTC()
	}
	if c.VoucherNumber == "" {
		c.VoucherNumber = pendingNumber()
	}
	return nil
}

// AfterCreate assigns RV numbers to receipts and PV numbers to disbursements.
func (c *CashTransaction) AfterCreate(tx *gorm.DB) error {
	if c.ID == 0 || !isPendingNumber(c.VoucherNumber) {
		return nil
	}
	prefix := ReceiptVoucherPrefix
	if c.TxnType == CashTxnOut {
		prefix = DisbursementVoucherPrefix
	}
	c.VoucherNumber = DocumentNumber(prefix, c.TxnDate, c.ID)
	return tx.Model(c).UpdateColumn("voucher_number", c.VoucherNumber).Error
}
