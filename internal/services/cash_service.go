package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"digital_legacy_echo/internal/models"
)

const (
	defaultCashPageSize = 50
	maxCashPageSize     = 200
)

type CashService struct {
	db       *gorm.DB
	logger   echo.Logger
	currency string
	now      func() time.Time
}

func NewCashService(db *gorm.DB, logger echo.Logger, currency string) *CashService {
	if currency == "" {
		currency = "VND"
	}
	return &CashService{
		db:       db,
		logger:   logger,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CashFilter struct {
	Type     string
	Category string
	From     *time.Time
	To       *time.Time
	Q        string
	Page     int
	Limit    int
}

// normalize clamps paging: limit defaults to 50 and is capped at 200, page starts at 1.
func (f CashFilter) normalize() CashFilter {
	if f.Limit <= 0 {
		f.Limit = defaultCashPageSize
	}
	if f.Limit > maxCashPageSize {
		f.Limit = maxCashPageSize
	}
	if f.Page < 1 {
		f.Page = 1
	}
	return f
}

// List returns ledger entries, newest first. Searches shorter than two characters are ignored.
func (s *CashService) List(ctx context.Context, f CashFilter) ([]models.CashTransaction, error) {
	f = f.normalize()

	query := s.db.WithContext(ctx).Model(&models.CashTransaction{}).
		Joins("LEFT JOIN orders ON orders.id = cash_transactions.order_id").
		Preload("Order")

	if f.Type != "" {
		if !models.CashTxnType(f.Type).Valid() {
			return nil, Validation("Invalid type")
		}
		query = query.Where("cash_transactions.txn_type = ?", f.Type)
	}
	if f.Category != "" {
		query = query.Where("cash_transactions.category = ?", f.Category)
	}
	if f.From != nil {
		query = query.Where("cash_transactions.txn_date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("cash_transactions.txn_date <= ?", *f.To)
	}
	if q := strings.ToLower(strings.TrimSpace(f.Q)); len([]rune(q)) >= 2 {
		like := "%" + q + "%"
		query = query.Where(
			"LOWER(cash_transactions.category) LIKE ? OR LOWER(cash_transactions.notes) LIKE ? OR LOWER(cash_transactions.voucher_number) LIKE ? OR LOWER(orders.order_number) LIKE ?",
			like, like, like, like,
		)
	}

	var txns []models.CashTransaction
	err := query.
		Order("cash_transactions.txn_date desc").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

type CashInput struct {
	Type     string
	Category string
	Amount   decimal.Decimal
	Currency string
	Date     *time.Time
	Notes    string
	OrderID  *uint
}

func (s *CashService) Create(ctx context.Context, in CashInput) (*models.CashTransaction, error) {
	txnType := models.CashTxnType(strings.TrimSpace(in.Type))
	if !txnType.Valid() {
		return nil, Validation("Invalid type")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, Validation("Missing category")
	}
	if in.Amount.IsNegative() {
		return nil, Validation("Amount must not be negative")
	}

	txn := models.CashTransaction{
		TxnType:  txnType,
		Category: category,
		Amount:   in.Amount,
		Currency: in.Currency,
		Notes:    in.Notes,
		OrderID:  in.OrderID,
		TxnDate:  s.now(),
	}
	if txn.Currency == "" {
		txn.Currency = s.currency
	}
	if in.Date != nil && !in.Date.IsZero() {
		txn.TxnDate = in.Date.UTC()
	}

	if err := s.db.WithContext(ctx).Create(&txn).Error; err != nil {
		return nil, err
	}
	s.logger.Infof("Cash voucher %s recorded (%s %s)", txn.VoucherNumber, txn.TxnType, txn.Amount)
	return &txn, nil
}

type CashPatch struct {
	Type     *string
	Category *string
	Amount   *decimal.Decimal
	Currency *string
	Date     *time.Time
	Notes    *string
	OrderID  *uint
}

func (s *CashService) Update(ctx context.Context, id uint, p CashPatch) (*models.CashTransaction, error) {
	updates := map[string]interface{}{}
	if p.Type != nil {
		if !models.CashTxnType(*p.Type).Valid() {
			return nil, Validation("Invalid type")
		}
		updates["txn_type"] = *p.Type
	}
	if p.Category != nil {
		category := strings.TrimSpace(*p.Category)
		if category == "" {
			return nil, Validation("Missing category")
		}
		updates["category"] = category
	}
	if p.Amount != nil {
		if p.Amount.IsNegative() {
			return nil, Validation("Amount must not be negative")
		}
		updates["amount"] = *p.Amount
	}
	if p.Currency != nil && *p.Currency != "" {
		updates["currency"] = *p.Currency
	}
	if p.Date != nil {
		updates["txn_date"] = p.Date.UTC()
	}
	if p.Notes != nil {
		updates["notes"] = *p.Notes
	}
	if p.OrderID != nil {
		updates["order_id"] = *p.OrderID
	}

	txn, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return txn, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.CashTransaction{ID: id}).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *CashService) Get(ctx context.Context, id uint) (*models.CashTransaction, error) {
	var txn models.CashTransaction
	err := s.db.WithContext(ctx).Preload("Order").First(&txn, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("Cash transaction not found")
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *CashService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.CashTransaction{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NotFound("Cash transaction not found")
	}
	return nil
}

// Categories returns the suggested categories for each direction.
func (s *CashService) Categories() map[models.CashTxnType][]string {
	return models.CashCategories
}
