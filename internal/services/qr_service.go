package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"digital_legacy_echo/internal/models"
)

const (
	defaultQRTemplate          = "compact2"
	defaultDescriptionTemplate = "DH {order_number}"
	vietQRBaseURL              = "https://img.vietqr.io/image"
)

// DynamicQRProvider generates a per-order QR code through a payment gateway
type DynamicQRProvider interface {
	CreateQR(ctx context.Context, account models.PaymentAccount, orderNumber string, amount decimal.Decimal, description string) (string, error)
}

type QRRequest struct {
	AccountID   uint
	OrderNumber string
	Amount      *decimal.Decimal
}

type QRResult struct {
	URL         string `json:"url"`
	Sepay       bool   `json:"sepay"`
	Description string `json:"description"`
}

type QRService struct {
	db       *gorm.DB
	logger   echo.Logger
	provider DynamicQRProvider
}

func NewQRService(db *gorm.DB, logger echo.Logger, provider DynamicQRProvider) *QRService {
	return &QRService{db: db, logger: logger, provider: provider}
}

// Build returns a QR image URL for paying into a bank account. SePay is tried
// first when the account carries credentials, VietQR is the fallback.
func (s *QRService) Build(ctx context.Context, req QRRequest) (*QRResult, error) {
	if req.AccountID == 0 {
		return nil, Validation("Missing accountId")
	}

	var account models.PaymentAccount
	err := s.db.WithContext(ctx).First(&account, req.AccountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("Account not found")
	}
	if err != nil {
		return nil, err
	}

	orderNumber := models.NormalizeOrderNumber(req.OrderNumber)
	description := TransferDescription(account.DescriptionTemplate, orderNumber)

	if account.HasSepay() && s.provider != nil {
		amount := decimal.Zero
		if req.Amount != nil {
			amount = *req.Amount
		}
		qrURL, err := s.provider.CreateQR(ctx, account, orderNumber, amount, description)
		if err == nil {
			return &QRResult{URL: qrURL, Sepay: true, Description: description}, nil
		}
		s.logger.Warnf("SePay QR failed for account %d, falling back to VietQR: %v", account.ID, err)
	}

	if account.BankCode == "" || account.AccountNumber == "" {
		if account.QRImageURL != "" {
			return &QRResult{URL: account.QRImageURL, Description: description}, nil
		}
		return nil, Validation("Account has no bank details for QR")
	}

	var amount *decimal.Decimal
	if account.IncludeAmount {
		amount = req.Amount
	}
	return &QRResult{
		URL:         BuildVietQRURL(account.BankCode, account.AccountNumber, account.QRTemplate, amount, description),
		Description: description,
	}, nil
}

// TransferDescription fills {order_number} in the account's template, "DH {order_number}" by default.
func TransferDescription(template, orderNumber string) string {
	if strings.TrimSpace(template) == "" {
		template = defaultDescriptionTemplate
	}
	return strings.TrimSpace(strings.ReplaceAll(template, "{order_number}", orderNumber))
}

// BuildVietQRURL composes an img.vietqr.io link. The amount is rounded to whole units
// and left out when nil or not positive.
func BuildVietQRURL(bankCode, accountNumber, template string, amount *decimal.Decimal, addInfo string) string {
	if template == "" {
		template = defaultQRTemplate
	}
	base := fmt.Sprintf("%s/%s-%s-%s.png", vietQRBaseURL,
		url.PathEscape(bankCode), url.PathEscape(accountNumber), url.PathEscape(template))

	params := url.Values{}
	if amount != nil && amount.IsPositive() {
		params.Set("amount", amount.Round(0).String())
	}
	if addInfo != "" {
		params.Set("addInfo", addInfo)
	}
	if len(params) == 0 {
		return base
	}
	return base + "?" + params.Encode()
}
