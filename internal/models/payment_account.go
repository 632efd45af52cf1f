package models

import "time"

// AccountCategory groups payment accounts on the checkout page
type AccountCategory string

const (
	AccountCategoryBank   AccountCategory = "bank"
	AccountCategoryPaypal AccountCategory = "paypal"
	AccountCategoryMomo   AccountCategory = "momo"
	AccountCategoryCrypto AccountCategory = "crypto"
	AccountCategoryQRBank AccountCategory = "qr_bank"
)

var AccountCategories = []AccountCategory{
	AccountCategoryBank,
	AccountCategoryPaypal,
	AccountCategoryMomo,
	AccountCategoryCrypto,
	AccountCategoryQRBank,
}

func (c AccountCategory) Valid() bool {
	for _, v := range AccountCategories {
		if v == c {
			return true
		}
	}
	return false
}

// PaymentAccount is a destination customers pay into. Only the fields relevant
// to its category are set.
type PaymentAccount struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Category    AccountCategory `gorm:"type:varchar(20);index;not null" json:"category"`
	DisplayName string          `gorm:"type:varchar(255)" json:"display_name"`
	Currency    string          `gorm:"type:varchar(10)" json:"currency"`
	Active      bool            `gorm:"not null" json:"active"`
	SortOrder   int             `json:"sort_order"`

	// bank and qr_bank
	BankCode      string `gorm:"type:varchar(32)" json:"bank_code"`
	BankName      string `gorm:"type:varchar(255)" json:"bank_name"`
	AccountNumber string `gorm:"type:varchar(64)" json:"account_number"`
	AccountHolder string `gorm:"type:varchar(255)" json:"account_holder"`
	BankBranch    string `gorm:"type:varchar(255)" json:"bank_branch"`

	// paypal
	PaypalEmail string `gorm:"type:varchar(255)" json:"paypal_email"`

	// momo
	MomoNumber string `gorm:"type:varchar(32)" json:"momo_number"`

	// crypto
	Token   string `gorm:"type:varchar(32)" json:"token"`
	Network string `gorm:"type:varchar(64)" json:"network"`
	Address string `gorm:"type:varchar(255)" json:"address"`
	MemoTag string `gorm:"type:varchar(255)" json:"memo_tag"`

	// qr_bank
	QRImageURL          string `gorm:"type:text" json:"qr_image_url"`
	QRTemplate          string `gorm:"type:varchar(32)" json:"qr_template"`
	DescriptionTemplate string `gorm:"type:varchar(255)" json:"description_template"`
	IncludeAmount       bool   `json:"include_amount"`
	SepayClientID       string `gorm:"type:varchar(255)" json:"sepay_client_id"`
	SepayClientSecret   string `gorm:"type:varchar(255)" json:"sepay_client_secret"`
	SepayMerchantID     string `gorm:"type:varchar(255)" json:"sepay_merchant_id"`
	SepayAPIURL         string `gorm:"type:text" json:"sepay_api_url"`
	SepayBankID         string `gorm:"type:varchar(64)" json:"sepay_bank_id"`
}

// HasSepay reports whether dynamic QR generation through SePay is configured.
func (a PaymentAccount) HasSepay() bool {
	return a.SepayClientID != "" && a.SepayClientSecret != "" && a.SepayMerchantID != "" && a.SepayAPIURL != ""
}

// Public returns a copy safe to show to customers.
func (a PaymentAccount) Public() PaymentAccount {
	a.SepayClientID = ""
	a.SepayClientSecret = ""
	a.SepayMerchantID = ""
	a.SepayAPIURL = ""
	a.SepayBankID = ""
	return a
}
