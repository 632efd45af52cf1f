package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"digital_legacy_echo/internal/services"
)

type CashHandler struct {
	cash *services.CashService
}

func NewCashHandler(cash *services.CashService) *CashHandler {
	return &CashHandler{cash: cash}
}

type cashRequest struct {
	Type     string          `json:"type" validate:"required,oneof=in out"`
	Category string          `json:"category" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Date     string          `json:"date"`
	Notes    string          `json:"notes"`
	OrderID  *uint           `json:"order_id"`
}

type cashPatchRequest struct {
	ID       uint             `json:"id" validate:"required"`
	Type     *string          `json:"type"`
	Category *string          `json:"category"`
	Amount   *decimal.Decimal `json:"amount"`
	Currency *string          `json:"currency"`
	Date     *string          `json:"date"`
	Notes    *string          `json:"notes"`
	OrderID  *uint            `json:"order_id"`
}

// ListCashTransactions supports ?type=&category=&from=&to=&q=&page=&limit=
func (h *CashHandler) ListCashTransactions(c echo.Context) error {
	from, err := dateQuery(c, "from", false)
	if err != nil {
		return err
	}
	to, err := dateQuery(c, "to", true)
	if err != nil {
		return err
	}

	filter := services.CashFilter{
		Type:     c.QueryParam("type"),
		Category: c.QueryParam("category"),
		From:     from,
		To:       to,
		Q:        c.QueryParam("q"),
		Page:     intQuery(c, "page", 1),
		Limit:    intQuery(c, "limit", 0),
	}
	txns, err := h.cash.List(c.Request().Context(), filter)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": txns,
		"page":  filter.Page,
	})
}

func (h *CashHandler) CreateCashTransaction(c echo.Context) error {
	var req cashRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return err
	}

	txn, err := h.cash.Create(c.Request().Context(), services.CashInput{
		Type:     req.Type,
		Category: req.Category,
		Amount:   req.Amount,
		Currency: req.Currency,
		Date:     date,
		Notes:    req.Notes,
		OrderID:  req.OrderID,
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, txn)
}

func (h *CashHandler) UpdateCashTransaction(c echo.Context) error {
	var req cashPatchRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	patch := services.CashPatch{
		Type:     req.Type,
		Category: req.Category,
		Amount:   req.Amount,
		Currency: req.Currency,
		Notes:    req.Notes,
		OrderID:  req.OrderID,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return err
		}
		patch.Date = date
	}

	txn, err := h.cash.Update(c.Request().Context(), req.ID, patch)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, txn)
}

func (h *CashHandler) DeleteCashTransaction(c echo.Context) error {
	id, err := parseID(c.QueryParam("id"), "id")
	if err != nil {
		return err
	}
	if err := h.cash.Delete(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *CashHandler) Categories(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cash.Categories())
}
