package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"digital_legacy_echo/internal/services"
)

type QRHandler struct {
	qr *services.QRService
}

func NewQRHandler(qr *services.QRService) *QRHandler {
	return &QRHandler{qr: qr}
}

// BuildQR answers GET /api/payments/qr?accountId=&orderNumber=&amount=
func (h *QRHandler) BuildQR(c echo.Context) error {
	req := services.QRRequest{OrderNumber: strings.TrimSpace(c.QueryParam("orderNumber"))}

	if raw := c.QueryParam("accountId"); raw != "" {
		id, err := parseID(raw, "accountId")
		if err != nil {
			return err
		}
		req.AccountID = id
	}
	if raw := strings.TrimSpace(c.QueryParam("amount")); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid amount")
		}
		req.Amount = &amount
	}

	result, err := h.qr.Build(c.Request().Context(), req)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, result)
}
