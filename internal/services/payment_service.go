package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"digital_legacy_echo/internal/models"
)

type PaymentService struct {
	db     *gorm.DB
	logger echo.Logger
	orders *OrderService
	cash   *CashService
	now    func() time.Time
}

func NewPaymentService(db *gorm.DB, logger echo.Logger, orders *OrderService, cash *CashService) *PaymentService {
	return &PaymentService{
		db:     db,
		logger: logger,
		orders: orders,
		cash:   cash,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type PaymentFilter struct {
	Status           string
	Method           string
	From             *time.Time
	To               *time.Time
	ProductVariantID *uint
	Q                string
}

// List returns payments joined to their orders, newest payment date first.
func (s *PaymentService) List(ctx context.Context, f PaymentFilter) ([]models.Payment, error) {
	query := s.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = payments.order_id").
		Preload("Order.ProductVariant.Product")

	if f.Status != "" {
		if !models.PaymentStatus(f.Status).Valid() {
			return nil, ErrInvalidStatus
		}
		query = query.Where("payments.status = ?", f.Status)
	}
	if f.Method != "" {
		query = query.Where("payments.payment_method = ?", f.Method)
	}
	if f.From != nil {
		query = query.Where("payments.payment_date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("payments.payment_date <= ?", *f.To)
	}
	if f.ProductVariantID != nil {
		query = query.Where("orders.product_variant_id = ?", *f.ProductVariantID)
	}
	if q := strings.ToLower(strings.TrimSpace(f.Q)); q != "" {
		like := "%" + q + "%"
		query = query.Where(
			"LOWER(payments.payment_number) LIKE ? OR LOWER(orders.order_number) LIKE ? OR LOWER(orders.customer_name) LIKE ? OR LOWER(orders.customer_email) LIKE ?",
			like, like, like, like,
		)
	}

	var payments []models.Payment
	if err := query.Order("payments.payment_date desc").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *PaymentService) Get(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).Preload("Order.ProductVariant.Product").First(&payment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

type SetPaymentStatusInput struct {
	PaymentID     uint
	Status        string
	PaymentMethod string
	TransactionID *string
	Notes         *string
	ProofURL      *string
}

// SetStatus updates a payment's status. Marking paid requires a method;
// refunding cancels the order the payment belongs to.
func (s *PaymentService) SetStatus(ctx context.Context, in SetPaymentStatusInput) (*models.Payment, error) {
	to := models.PaymentStatus(in.Status)
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if to == models.PaymentStatusPaid && method == "" {
		return nil, ErrMissingMethod
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, in.PaymentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return err
		}
		if !payment.Status.IsUsualMove(to) {
			s.logger.Warnf("Payment %d moved from %s to %s outside the regular flow", payment.ID, payment.Status, to)
		}

		now := s.now()
		updates := map[string]interface{}{"status": to}
		switch to {
		case models.PaymentStatusPaid:
			updates["payment_method"] = method
			updates["paid_at"] = now
		case models.PaymentStatusRefunded:
			updates["refunded_at"] = now
		}
		if in.TransactionID != nil {
			updates["transaction_id"] = strings.TrimSpace(*in.TransactionID)
		}
		if in.Notes != nil {
			updates["notes"] = *in.Notes
		}
		if in.ProofURL != nil {
			updates["proof_url"] = strings.TrimSpace(*in.ProofURL)
		}
		if err := tx.Model(&payment).Updates(updates).Error; err != nil {
			return err
		}

		if to == models.PaymentStatusRefunded {
			return s.cancelOrderForRefund(tx, payment.OrderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Payment %d set to %s", in.PaymentID, to)
	return s.Get(ctx, in.PaymentID)
}

func (s *PaymentService) cancelOrderForRefund(tx *gorm.DB, orderID uint) error {
	order, err := lockOrder(tx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		s.logger.Warnf("Refunded payment references missing order %d", orderID)
		return nil
	}
	if err != nil {
		return err
	}
	return s.orders.transition(tx, order, models.OrderStatusCancelled)
}

type EditPaymentInput struct {
	Amount        *decimal.Decimal
	PaymentMethod *string
	TransactionID *string
	Notes         *string
	AdminNotes    *string
}

// Edit updates a payment's descriptive fields. Status changes go through SetStatus.
func (s *PaymentService) Edit(ctx context.Context, id uint, in EditPaymentInput) (*models.Payment, error) {
	updates := map[string]interface{}{}
	if in.Amount != nil {
		if in.Amount.IsNegative() {
			return nil, Validation("Amount must not be negative")
		}
		updates["amount"] = *in.Amount
	}
	if in.PaymentMethod != nil {
		updates["payment_method"] = strings.TrimSpace(*in.PaymentMethod)
	}
	if in.TransactionID != nil {
		updates["transaction_id"] = strings.TrimSpace(*in.TransactionID)
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}
	if in.AdminNotes != nil {
		updates["admin_notes"] = *in.AdminNotes
	}

	payment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return payment, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Payment{ID: id}).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// CreateCashVoucher books a paid payment into the cash ledger as sales revenue.
func (s *PaymentService) CreateCashVoucher(ctx context.Context, id uint) (*models.CashTransaction, error) {
	payment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPaid {
		return nil, Conflict("Only paid payments can be booked into the cash ledger")
	}

	orderID := payment.OrderID
	date := s.now()
	if payment.PaidAt != nil {
		date = *payment.PaidAt
	}
	return s.cash.Create(ctx, CashInput{
		Type:     string(models.CashTxnIn),
		Category: models.CategorySalesRevenue,
		Amount:   payment.Amount,
		Currency: payment.Currency,
		Date:     &date,
		Notes:    "Created from bill " + payment.PaymentNumber,
		OrderID:  &orderID,
	})
}
