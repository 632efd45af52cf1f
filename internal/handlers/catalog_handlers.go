package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"digital_legacy_echo/internal/models"
	"digital_legacy_echo/internal/services"
)

// CatalogHandler serves products, plans and payment configuration
type CatalogHandler struct {
	catalog *services.CatalogService
	storage ObjectStorage
}

func NewCatalogHandler(catalog *services.CatalogService, storage ObjectStorage) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, storage: storage}
}

type variantRequest struct {
	ID             *uint               `json:"id"`
	PlanID         *uint               `json:"plan_id"`
	SKU            string              `json:"sku"`
	Name           string              `json:"name"`
	Label          string              `json:"label"`
	Price          decimal.Decimal     `json:"price"`
	CompareAtPrice decimal.NullDecimal `json:"compare_at_price"`
	BillingPeriod  string              `json:"billing_period"`
	IsPopular      bool                `json:"is_popular"`
	IsAvailable    *bool               `json:"is_available"`
	SortOrder      int                 `json:"sort_order"`
	Metadata       json.RawMessage     `json:"metadata"`
	Delete         bool                `json:"_delete"`
}

type productRequest struct {
	ID               uint             `json:"id"`
	Name             string           `json:"name" validate:"required"`
	Slug             string           `json:"slug"`
	Description      string           `json:"description"`
	ShortDescription string           `json:"short_description"`
	Category         string           `json:"category"`
	Status           string           `json:"status" validate:"omitempty,oneof=active inactive"`
	Images           []string         `json:"images"`
	IsFeatured       bool             `json:"is_featured"`
	SortOrder        int              `json:"sort_order"`
	Metadata         json.RawMessage  `json:"metadata"`
	Variants         []variantRequest `json:"variants"`
}

func (r productRequest) input() services.ProductInput {
	in := services.ProductInput{
		Name:             r.Name,
		Slug:             r.Slug,
		Description:      r.Description,
		ShortDescription: r.ShortDescription,
		Category:         r.Category,
		Status:           r.Status,
		Images:           r.Images,
		IsFeatured:       r.IsFeatured,
		SortOrder:        r.SortOrder,
		Metadata:         r.Metadata,
	}
	for _, v := range r.Variants {
		in.Variants = append(in.Variants, services.VariantInput{
			ID:             v.ID,
			PlanID:         v.PlanID,
			SKU:            v.SKU,
			Name:           v.Name,
			Label:          v.Label,
			Price:          v.Price,
			CompareAtPrice: v.CompareAtPrice,
			BillingPeriod:  v.BillingPeriod,
			IsPopular:      v.IsPopular,
			IsAvailable:    v.IsAvailable,
			SortOrder:      v.SortOrder,
			Metadata:       v.Metadata,
			Delete:         v.Delete,
		})
	}
	return in
}

// ---- public ----

func (h *CatalogHandler) PublicProducts(c echo.Context) error {
	products, err := h.catalog.PublicProducts(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *CatalogHandler) PublicPaymentMethods(c echo.Context) error {
	methods, err := h.catalog.ActivePaymentMethods(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, methods)
}

// PublicPaymentOptions lists active accounts grouped by category, without gateway credentials.
func (h *CatalogHandler) PublicPaymentOptions(c echo.Context) error {
	options, err := h.catalog.PublicPaymentOptions(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, options)
}

// ---- products ----

func (h *CatalogHandler) ListProducts(c echo.Context) error {
	products, err := h.catalog.AdminProducts(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	product, err := h.catalog.CreateProduct(c.Request().Context(), req.input())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	var req productRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.ID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing id")
	}
	product, err := h.catalog.UpdateProduct(c.Request().Context(), req.ID, req.input())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	id, err := parseID(c.QueryParam("id"), "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteProduct(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// UploadProductImages stores the "files" (or single "file") form images under
// product-images/<productId>/ and returns their URLs. productId defaults to "misc".
func (h *CatalogHandler) UploadProductImages(c echo.Context) error {
	if h.storage == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Storage not configured")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid multipart form")
	}
	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing files")
	}

	folder := "misc"
	if ids := form.Value["productId"]; len(ids) > 0 && strings.TrimSpace(ids[0]) != "" {
		folder = unsafeFolderChars.ReplaceAllString(strings.TrimSpace(ids[0]), "_")
	}

	urls := make([]string, 0, len(files))
	for _, file := range files {
		url, _, err := storeUpload(c.Request().Context(), h.storage, file, "product-images/"+folder, isImage)
		if err != nil {
			return err
		}
		urls = append(urls, url)
	}
	return c.JSON(http.StatusCreated, map[string][]string{"urls": urls})
}

func (h *CatalogHandler) ListPlans(c echo.Context) error {
	plans, err := h.catalog.Plans(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, plans)
}

// ---- payment methods ----

type paymentMethodRequest struct {
	Code    string          `json:"code" validate:"required"`
	Name    string          `json:"name" validate:"required"`
	Details json.RawMessage `json:"details"`
	Active  *bool           `json:"active"`
}

type paymentMethodPatchRequest struct {
	ID      uint            `json:"id"`
	Code    string          `json:"code"`
	Name    *string         `json:"name"`
	Details json.RawMessage `json:"details"`
	Active  *bool           `json:"active"`
}

func (h *CatalogHandler) ListPaymentMethods(c echo.Context) error {
	methods, err := h.catalog.PaymentMethods(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, methods)
}

func (h *CatalogHandler) UpsertPaymentMethod(c echo.Context) error {
	var req paymentMethodRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	method, err := h.catalog.UpsertPaymentMethod(c.Request().Context(), services.PaymentMethodInput{
		Code:    req.Code,
		Name:    req.Name,
		Details: req.Details,
		Active:  req.Active,
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, method)
}

// PatchPaymentMethod addresses the method by id, or by code when id is absent.
func (h *CatalogHandler) PatchPaymentMethod(c echo.Context) error {
	var req paymentMethodPatchRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	key := req.Code
	if req.ID != 0 {
		key = strconv.FormatUint(uint64(req.ID), 10)
	}
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing id or code")
	}

	method, err := h.catalog.PatchPaymentMethod(c.Request().Context(), key, services.PaymentMethodPatch{
		Name:    req.Name,
		Details: req.Details,
		Active:  req.Active,
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, method)
}

// ---- payment accounts ----

func (h *CatalogHandler) ListPaymentAccounts(c echo.Context) error {
	accounts, err := h.catalog.PaymentAccounts(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, accounts)
}

func (h *CatalogHandler) CreatePaymentAccount(c echo.Context) error {
	var account models.PaymentAccount
	if err := c.Bind(&account); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	created, err := h.catalog.CreatePaymentAccount(c.Request().Context(), account)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// PatchPaymentAccount takes {"id": ..., <column>: <value>, ...}. Unknown columns are ignored.
func (h *CatalogHandler) PatchPaymentAccount(c echo.Context) error {
	fields := map[string]interface{}{}
	if err := json.NewDecoder(c.Request().Body).Decode(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	rawID, ok := fields["id"].(float64)
	if !ok || rawID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing id")
	}

	account, err := h.catalog.PatchPaymentAccount(c.Request().Context(), uint(rawID), fields)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, account)
}
