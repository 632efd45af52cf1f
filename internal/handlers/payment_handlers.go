package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"digital_legacy_echo/internal/services"
)

type PaymentHandler struct {
	payments *services.PaymentService
	storage  ObjectStorage
}

func NewPaymentHandler(payments *services.PaymentService, storage ObjectStorage) *PaymentHandler {
	return &PaymentHandler{payments: payments, storage: storage}
}

type editPaymentRequest struct {
	ID            uint             `json:"id" validate:"required"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod *string          `json:"payment_method"`
	TransactionID *string          `json:"transaction_id"`
	Notes         *string          `json:"notes"`
	AdminNotes    *string          `json:"admin_notes"`
}

type paymentStatusRequest struct {
	PaymentID     uint    `json:"paymentId" validate:"required"`
	Status        string  `json:"status" validate:"required"`
	PaymentMethod string  `json:"payment_method"`
	TransactionID *string `json:"transaction_id"`
	Notes         *string `json:"notes"`
	ProofURL      *string `json:"proof_url"`
}

// ListPayments supports ?status=&method=&from=&to=&product_variant_id=&q=
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	from, err := dateQuery(c, "from", false)
	if err != nil {
		return err
	}
	to, err := dateQuery(c, "to", true)
	if err != nil {
		return err
	}
	variantID, err := optionalUintQuery(c, "product_variant_id")
	if err != nil {
		return err
	}

	payments, err := h.payments.List(c.Request().Context(), services.PaymentFilter{
		Status:           c.QueryParam("status"),
		Method:           c.QueryParam("method"),
		From:             from,
		To:               to,
		ProductVariantID: variantID,
		Q:                c.QueryParam("q"),
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, payments)
}

func (h *PaymentHandler) UpdatePayment(c echo.Context) error {
	var req editPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	payment, err := h.payments.Edit(c.Request().Context(), req.ID, services.EditPaymentInput{
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
		AdminNotes:    req.AdminNotes,
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// UpdatePaymentStatus marks a bill paid or refunded. Refunds cancel the order.
func (h *PaymentHandler) UpdatePaymentStatus(c echo.Context) error {
	var req paymentStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	payment, err := h.payments.SetStatus(c.Request().Context(), services.SetPaymentStatusInput{
		PaymentID:     req.PaymentID,
		Status:        req.Status,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
		ProofURL:      req.ProofURL,
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// UploadProof stores a receipt image or PDF under payment-proofs/<payment id>/.
func (h *PaymentHandler) UploadProof(c echo.Context) error {
	if h.storage == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Storage not configured")
	}

	paymentID, err := parseID(c.FormValue("payment_id"), "payment_id")
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing file")
	}

	dir := fmt.Sprintf("payment-proofs/%d", paymentID)
	url, objectPath, err := storeUpload(c.Request().Context(), h.storage, file, dir, isImageOrPDF)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"url":  url,
		"path": objectPath,
	})
}

// CreateCashVoucher records a paid bill in the cash ledger.
func (h *PaymentHandler) CreateCashVoucher(c echo.Context) error {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		return err
	}

	txn, err := h.payments.CreateCashVoucher(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, txn)
}
