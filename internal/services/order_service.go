package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"digital_legacy_echo/internal/models"
)

// OrderCompletionListener is notified inside the transaction that completes an order.
// Returning an error rolls the completion back.
type OrderCompletionListener interface {
	OrderCompleted(tx *gorm.DB, order *models.Order) error
}

// CustomerResolver finds or creates the profile an admin-created order belongs to
type CustomerResolver interface {
	ResolveCustomer(ctx context.Context, email, name string) (*models.User, error)
}

type OrderService struct {
	db        *gorm.DB
	logger    echo.Logger
	customers CustomerResolver
	listeners []OrderCompletionListener
	currency  string
	now       func() time.Time
}

func NewOrderService(db *gorm.DB, logger echo.Logger, customers CustomerResolver, currency string) *OrderService {
	if currency == "" {
		currency = "VND"
	}
	return &OrderService{
		db:        db,
		logger:    logger,
		customers: customers,
		currency:  currency,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// OnCompleted registers a listener for orders that newly reach completed.
func (s *OrderService) OnCompleted(l OrderCompletionListener) {
	s.listeners = append(s.listeners, l)
}

type OrderFilter struct {
	Status string
	Q      string
}

func (s *OrderService) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	query := s.db.WithContext(ctx).Preload("ProductVariant.Product")
	if f.Status != "" {
		if !models.OrderStatus(f.Status).Valid() {
			return nil, ErrInvalidStatus
		}
		query = query.Where("status = ?", f.Status)
	}
	if q := strings.ToLower(strings.TrimSpace(f.Q)); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_email) LIKE ?", like, like, like)
	}

	var orders []models.Order
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("ProductVariant.Product").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByNumber looks an order up by its display number; dashes and case are ignored.
func (s *OrderService) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	number = models.NormalizeOrderNumber(number)
	if number == "" {
		return nil, Validation("Order number is required")
	}

	var order models.Order
	err := s.db.WithContext(ctx).Preload("ProductVariant.Product").Where("order_number = ?", number).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type CreateOrderInput struct {
	Email            string
	CustomerName     string
	CustomerPhone    string
	ProductVariantID uint
	Amount           *decimal.Decimal
	Currency         string
	CustomerNotes    string
	AdminNotes       string
}

// Create records an admin-entered order, snapshotting the variant's plan and price.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, Validation("Customer email is required")
	}
	if in.ProductVariantID == 0 {
		return nil, Validation("Product variant is required")
	}
	if in.Amount != nil && in.Amount.IsNegative() {
		return nil, Validation("Amount must not be negative")
	}

	variant, err := s.loadVariant(s.db.WithContext(ctx), in.ProductVariantID)
	if err != nil {
		return nil, err
	}

	var userID *uint
	if s.customers != nil {
		customer, err := s.customers.ResolveCustomer(ctx, email, in.CustomerName)
		if err != nil {
			return nil, fmt.Errorf("resolve customer %s: %w", email, err)
		}
		userID = &customer.ID
	}

	subtotal := variant.Price
	if in.Amount != nil {
		subtotal = *in.Amount
	}
	currency := in.Currency
	if currency == "" {
		currency = s.currency
	}

	order := models.Order{
		UserID:        userID,
		CustomerName:  in.CustomerName,
		CustomerEmail: email,
		CustomerPhone: in.CustomerPhone,
		CustomerNotes: in.CustomerNotes,
		AdminNotes:    in.AdminNotes,
		Subtotal:      subtotal,
		Tax:           decimal.Zero,
		Discount:      decimal.Zero,
		Currency:      currency,
		Status:        models.OrderStatusNew,
		OrderDate:     s.now(),
	}
	applyVariant(&order, variant)
	order.RecalculateTotal()

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&order).Error; err != nil {
		return nil, err
	}

	s.logger.Infof("Order %s created for %s", order.OrderNumber, email)
	order.ProductVariant = variant
	return &order, nil
}

// EditOrderInput carries a partial order update; nil fields are left unchanged.
type EditOrderInput struct {
	CustomerName     *string
	CustomerEmail    *string
	CustomerPhone    *string
	CustomerAddress  *string
	CustomerNotes    *string
	AdminNotes       *string
	CouponCode       *string
	Currency         *string
	Subtotal         *decimal.Decimal
	Tax              *decimal.Decimal
	Discount         *decimal.Decimal
	ProductVariantID *uint
	Status           *string
}

// Edit applies a partial update. The total is always recomputed and a status
// change stamps dates and runs the payment bridge like SetStatus.
func (s *OrderService) Edit(ctx context.Context, id uint, in EditOrderInput) (*models.Order, error) {
	if in.Status != nil && !models.OrderStatus(*in.Status).Valid() {
		return nil, ErrInvalidStatus
	}
	for _, v := range []*decimal.Decimal{in.Subtotal, in.Tax, in.Discount} {
		if v != nil && v.IsNegative() {
			return nil, Validation("Prices must not be negative")
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, id)
		if err != nil {
			return err
		}

		setString(&order.CustomerName, in.CustomerName)
		setString(&order.CustomerPhone, in.CustomerPhone)
		setString(&order.CustomerAddress, in.CustomerAddress)
		setString(&order.CustomerNotes, in.CustomerNotes)
		setString(&order.AdminNotes, in.AdminNotes)
		setString(&order.CouponCode, in.CouponCode)
		setString(&order.Currency, in.Currency)
		if in.CustomerEmail != nil {
			order.CustomerEmail = strings.ToLower(strings.TrimSpace(*in.CustomerEmail))
		}
		if in.Subtotal != nil {
			order.Subtotal = *in.Subtotal
		}
		if in.Tax != nil {
			order.Tax = *in.Tax
		}
		if in.Discount != nil {
			order.Discount = *in.Discount
		}
		if in.ProductVariantID != nil {
			variant, err := s.loadVariant(tx, *in.ProductVariantID)
			if err != nil {
				return err
			}
			applyVariant(order, variant)
		}
		order.RecalculateTotal()

		if err := tx.Omit(clause.Associations).Save(order).Error; err != nil {
			return err
		}

		if in.Status != nil && models.OrderStatus(*in.Status) != order.Status {
			return s.transition(tx, order, models.OrderStatus(*in.Status))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// SetStatus moves an order to status. Completing an order also creates its
// auto payment when the order has no payment yet.
func (s *OrderService) SetStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	to := models.OrderStatus(status)
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, id)
		if err != nil {
			return err
		}
		return s.transition(tx, order, to)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *OrderService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Order{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	s.logger.Infof("Order %d deleted", id)
	return nil
}

// transition writes the new status and its timestamp. Any valid status is
// accepted from any other. It must run inside tx.
func (s *OrderService) transition(tx *gorm.DB, order *models.Order, to models.OrderStatus) error {
	from := order.Status
	if !from.IsUsualMove(to) {
		s.logger.Warnf("Order %s moved from %s to %s outside the regular flow", order.OrderNumber, from, to)
	}

	now := s.now()
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.OrderStatusCompleted:
		updates["completed_date"] = now
		order.CompletedDate = &now
	case models.OrderStatusCancelled:
		updates["cancelled_date"] = now
		order.CancelledDate = &now
	}
	if err := tx.Model(order).Updates(updates).Error; err != nil {
		return err
	}
	order.Status = to

	if to != models.OrderStatusCompleted {
		return nil
	}

	created, err := s.ensureAutoPayment(tx, order)
	if err != nil {
		return fmt.Errorf("create payment for order %s: %w", order.OrderNumber, err)
	}
	if created {
		s.logger.Infof("Auto payment created for order %s", order.OrderNumber)
	}

	if from == models.OrderStatusCompleted {
		return nil
	}
	for _, l := range s.listeners {
		if err := l.OrderCompleted(tx, order); err != nil {
			return err
		}
	}
	return nil
}

// ensureAutoPayment inserts the auto payment for a completed order unless any
// payment already exists. A concurrent insert loses on the partial unique index.
func (s *OrderService) ensureAutoPayment(tx *gorm.DB, order *models.Order) (bool, error) {
	var count int64
	if err := tx.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	payment := models.Payment{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Amount:      order.PayableAmount(),
		Currency:    order.Currency,
		Status:      models.PaymentStatusNew,
		Origin:      models.PaymentOriginAuto,
		PaymentDate: s.now(),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&payment)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *OrderService) loadVariant(db *gorm.DB, id uint) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := db.Preload("Plan").Preload("Product").First(&variant, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("Product variant not found")
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// lockOrder loads an order for update. SQLite ignores the locking clause.
func lockOrder(tx *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func applyVariant(order *models.Order, variant *models.ProductVariant) {
	order.ProductVariantID = &variant.ID
	order.PlanID = variant.PlanID
	order.PlanName = variant.DisplayPlanName()
	order.BillingCycle = models.BillingCycleFromPeriod(variant.BillingPeriod)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
