package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"digital_legacy_echo/internal/models"
)

// SepayPayload is the body SePay posts for every bank transfer it observes.
// Older integrations send amount_in/transaction_content, newer ones transferAmount/content.
type SepayPayload struct {
	ID                 int64               `json:"id"`
	Gateway            string              `json:"gateway"`
	TransactionDate    string              `json:"transactionDate"`
	AccountNumber      string              `json:"accountNumber"`
	Code               string              `json:"code"`
	Content            string              `json:"content"`
	TransactionContent string              `json:"transaction_content"`
	Description        string              `json:"description"`
	AddInfo            string              `json:"addInfo"`
	TransferType       string              `json:"transferType"`
	TransferAmount     decimal.NullDecimal `json:"transferAmount"`
	AmountIn           decimal.NullDecimal `json:"amount_in"`
	Amount             decimal.NullDecimal `json:"amount"`
	ReferenceCode      string              `json:"referenceCode"`
}

// Text joins every free-text field that may carry the order reference.
func (p SepayPayload) Text() string {
	parts := make([]string, 0, 5)
	for _, s := range []string{p.Content, p.TransactionContent, p.Code, p.AddInfo, p.Description} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// PaidAmount returns the first amount field present.
func (p SepayPayload) PaidAmount() decimal.NullDecimal {
	for _, a := range []decimal.NullDecimal{p.TransferAmount, p.AmountIn, p.Amount} {
		if a.Valid {
			return a
		}
	}
	return decimal.NullDecimal{}
}

var (
	orderNumberPattern = regexp.MustCompile(`[A-Z]{3}\d{6,}`)
	legacyOrderPattern = regexp.MustCompile(`DH(\d+)`)
)

// OrderReference holds the candidate order numbers and ids found in transfer text
type OrderReference struct {
	Numbers []string
	IDs     []uint
}

func (r OrderReference) Empty() bool {
	return len(r.Numbers) == 0 && len(r.IDs) == 0
}

// ExtractOrderReference finds order numbers such as ORD2025100001 (dashes ignored)
// and legacy references such as DH1234 in bank transfer text.
func ExtractOrderReference(text string) OrderReference {
	upper := strings.ToUpper(text)
	compact := strings.ReplaceAll(upper, "-", "")

	var ref OrderReference
	ref.Numbers = orderNumberPattern.FindAllString(compact, -1)
	for _, m := range legacyOrderPattern.FindAllStringSubmatch(upper, -1) {
		id, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ref.IDs = append(ref.IDs, uint(id))
	}
	return ref
}

// ReplayStore remembers gateway transaction ids already handled
type ReplayStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

type WebhookConfig struct {
	AmountTolerance decimal.Decimal
	ReplayTTL       time.Duration
}

type WebhookService struct {
	db     *gorm.DB
	logger echo.Logger
	orders *OrderService
	replay ReplayStore
	locker Locker
	cfg    WebhookConfig
}

func NewWebhookService(db *gorm.DB, logger echo.Logger, orders *OrderService, replay ReplayStore, locker Locker, cfg WebhookConfig) *WebhookService {
	if locker == nil {
		locker = NoopLocker{}
	}
	if cfg.ReplayTTL <= 0 {
		cfg.ReplayTTL = 24 * time.Hour
	}
	return &WebhookService{
		db:     db,
		logger: logger,
		orders: orders,
		replay: replay,
		locker: locker,
		cfg:    cfg,
	}
}

type WebhookResult struct {
	Outcome     models.WebhookOutcome `json:"outcome"`
	Message     string                `json:"message"`
	OrderID     uint                  `json:"order_id,omitempty"`
	OrderNumber string                `json:"order_number,omitempty"`
}

// IngestSepay records the raw notification, then completes the referenced order
// when the transferred amount matches within the configured tolerance.
func (s *WebhookService) IngestSepay(ctx context.Context, raw []byte, p SepayPayload) (*WebhookResult, error) {
	event := models.WebhookEvent{
		Gateway: models.PaymentGatewaySepay,
		Payload: datatypes.JSON(raw),
		Outcome: models.WebhookOutcomeReceived,
	}
	if p.ID != 0 {
		event.ExternalID = strconv.FormatInt(p.ID, 10)
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, fmt.Errorf("record webhook event: %w", err)
	}

	result, err := s.ingest(ctx, p)
	s.finishEvent(ctx, event.ID, result, err)
	return result, err
}

func (s *WebhookService) ingest(ctx context.Context, p SepayPayload) (*WebhookResult, error) {
	if strings.EqualFold(p.TransferType, "out") {
		return &WebhookResult{Outcome: models.WebhookOutcomeIgnored, Message: "outgoing transfer ignored"}, nil
	}

	amount := p.PaidAmount()
	if !amount.Valid {
		return nil, Validation("Missing amount")
	}
	ref := ExtractOrderReference(p.Text())
	if ref.Empty() {
		return nil, Validation("Order number not found in content")
	}

	replayKey := ""
	if p.ID != 0 {
		replayKey = fmt.Sprintf("sepay:txn:%d", p.ID)
		fresh, err := s.replay.SetNX(ctx, replayKey, 1, s.cfg.ReplayTTL)
		if err != nil {
			s.logger.Warnf("Replay guard unavailable for %s: %v", replayKey, err)
			replayKey = ""
		} else if !fresh {
			return &WebhookResult{Outcome: models.WebhookOutcomeDuplicate, Message: "duplicate notification"}, nil
		}
	}

	result, err := s.confirm(ctx, ref, amount.Decimal)
	if err != nil && replayKey != "" {
		// let SePay retry once the cause is fixed
		_ = s.replay.Delete(ctx, replayKey)
	}
	return result, err
}

func (s *WebhookService) confirm(ctx context.Context, ref OrderReference, amount decimal.Decimal) (*WebhookResult, error) {
	orderID, err := s.findOrderID(ctx, ref)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("order:%d", orderID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *WebhookResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		result = &WebhookResult{OrderID: order.ID, OrderNumber: order.OrderNumber}

		switch order.Status {
		case models.OrderStatusCompleted:
			result.Outcome = models.WebhookOutcomeAlreadyConfirmed
			result.Message = "already confirmed"
			return nil
		case models.OrderStatusCancelled:
			return ErrAlreadyFinalized
		}

		expected := order.PayableAmount()
		if expected.Sub(amount).Abs().GreaterThan(s.cfg.AmountTolerance) {
			msg := fmt.Sprintf("Amount mismatch: expected %s, received %s", expected.String(), amount.String())
			return Wrap(KindValidation, msg, ErrAmountMismatch)
		}

		if err := s.orders.transition(tx, order, models.OrderStatusCompleted); err != nil {
			return err
		}
		result.Outcome = models.WebhookOutcomeCompleted
		result.Message = "Order confirmed"
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Outcome == models.WebhookOutcomeCompleted {
		s.logger.Infof("Order %s confirmed by SePay transfer of %s", result.OrderNumber, amount.String())
	}
	return result, nil
}

// findOrderID tries order numbers first, then legacy numeric ids.
func (s *WebhookService) findOrderID(ctx context.Context, ref OrderReference) (uint, error) {
	db := s.db.WithContext(ctx)
	for _, number := range ref.Numbers {
		var order models.Order
		err := db.Select("id").Where("order_number = ?", number).First(&order).Error
		if err == nil {
			return order.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
	}
	for _, id := range ref.IDs {
		var order models.Order
		err := db.Select("id").First(&order, id).Error
		if err == nil {
			return order.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
	}
	return 0, ErrOrderNotFound
}

func (s *WebhookService) finishEvent(ctx context.Context, eventID uint, result *WebhookResult, err error) {
	updates := map[string]interface{}{}
	switch {
	case err != nil:
		updates["outcome"] = models.WebhookOutcomeRejected
		updates["message"] = err.Error()
	case result != nil:
		updates["outcome"] = result.Outcome
		updates["message"] = result.Message
		if result.OrderID != 0 {
			updates["order_id"] = result.OrderID
		}
	}
	if len(updates) == 0 {
		return
	}
	if uerr := s.db.WithContext(ctx).Model(&models.WebhookEvent{ID: eventID}).Updates(updates).Error; uerr != nil {
		s.logger.Errorf("Failed to update webhook event %d: %v", eventID, uerr)
	}
}
