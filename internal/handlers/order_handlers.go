package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"digital_legacy_echo/internal/models"
	"digital_legacy_echo/internal/services"
)

type OrderHandler struct {
	orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type orderResponse struct {
	models.Order
	RenewsAt *time.Time `json:"renews_at,omitempty"`
}

func newOrderResponse(order models.Order) orderResponse {
	return orderResponse{Order: order, RenewsAt: order.RenewsAt()}
}

type createOrderRequest struct {
	Email            string           `json:"email" validate:"required,email"`
	CustomerName     string           `json:"customer_name"`
	CustomerPhone    string           `json:"customer_phone"`
	ProductVariantID uint             `json:"product_variant_id" validate:"required"`
	Amount           *decimal.Decimal `json:"amount"`
	Currency         string           `json:"currency"`
	CustomerNotes    string           `json:"customer_notes"`
	AdminNotes       string           `json:"admin_notes"`
}

type editOrderRequest struct {
	ID               uint             `json:"id" validate:"required"`
	CustomerName     *string          `json:"customer_name"`
	CustomerEmail    *string          `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone    *string          `json:"customer_phone"`
	CustomerAddress  *string          `json:"customer_address"`
	CustomerNotes    *string          `json:"customer_notes"`
	AdminNotes       *string          `json:"admin_notes"`
	CouponCode       *string          `json:"coupon_code"`
	Currency         *string          `json:"currency"`
	Subtotal         *decimal.Decimal `json:"subtotal"`
	Tax              *decimal.Decimal `json:"tax"`
	Discount         *decimal.Decimal `json:"discount"`
	ProductVariantID *uint            `json:"product_variant_id"`
	Status           *string          `json:"status"`
}

type orderStatusRequest struct {
	OrderID uint   `json:"orderId" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

// ListOrders returns orders, optionally filtered by ?status= and searched by ?q=.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	orders, err := h.orders.List(c.Request().Context(), services.OrderFilter{
		Status: c.QueryParam("status"),
		Q:      c.QueryParam("q"),
	})
	if err != nil {
		return serviceError(err)
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req createOrderRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	order, err := h.orders.Create(c.Request().Context(), services.CreateOrderInput{
		Email:            req.Email,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		ProductVariantID: req.ProductVariantID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		CustomerNotes:    req.CustomerNotes,
		AdminNotes:       req.AdminNotes,
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, newOrderResponse(*order))
}

func (h *OrderHandler) UpdateOrder(c echo.Context) error {
	var req editOrderRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	order, err := h.orders.Edit(c.Request().Context(), req.ID, services.EditOrderInput{
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		CustomerAddress:  req.CustomerAddress,
		CustomerNotes:    req.CustomerNotes,
		AdminNotes:       req.AdminNotes,
		CouponCode:       req.CouponCode,
		Currency:         req.Currency,
		Subtotal:         req.Subtotal,
		Tax:              req.Tax,
		Discount:         req.Discount,
		ProductVariantID: req.ProductVariantID,
		Status:           req.Status,
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, newOrderResponse(*order))
}

// UpdateOrderStatus moves an order to a new status. Completing an order
// records its automatic payment.
func (h *OrderHandler) UpdateOrderStatus(c echo.Context) error {
	var req orderStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	order, err := h.orders.SetStatus(c.Request().Context(), req.OrderID, req.Status)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, newOrderResponse(*order))
}

func (h *OrderHandler) DeleteOrder(c echo.Context) error {
	id, err := parseID(c.QueryParam("id"), "id")
	if err != nil {
		return err
	}
	if err := h.orders.Delete(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type publicOrder struct {
	OrderNumber  string              `json:"order_number"`
	Status       models.OrderStatus  `json:"status"`
	PlanName     string              `json:"plan_name"`
	BillingCycle models.BillingCycle `json:"billing_cycle,omitempty"`
	Amount       decimal.Decimal     `json:"amount"`
	Currency     string              `json:"currency"`
	OrderDate    time.Time           `json:"order_date"`
	RenewsAt     *time.Time          `json:"renews_at,omitempty"`
}

// LookupOrder lets a customer check an order by its number without exposing
// contact details.
func (h *OrderHandler) LookupOrder(c echo.Context) error {
	number := c.QueryParam("orderNumber")
	if number == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing orderNumber")
	}

	order, err := h.orders.GetByNumber(c.Request().Context(), number)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, publicOrder{
		OrderNumber:  order.OrderNumber,
		Status:       order.Status,
		PlanName:     order.PlanName,
		BillingCycle: order.BillingCycle,
		Amount:       order.PayableAmount(),
		Currency:     order.Currency,
		OrderDate:    order.OrderDate,
		RenewsAt:     order.RenewsAt(),
	})
}
