package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"digital_legacy_echo/internal/middleware"
	"digital_legacy_echo/internal/services"
	"digital_legacy_echo/internal/testutil"
)

const testWebhookKey = "sepay-secret"

type testServer struct {
	e       *echo.Echo
	db      *gorm.DB
	storage *memoryStorage
}

type memoryStorage struct {
	objects map[string]string
}

func (m *memoryStorage) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.objects[objectPath] = string(data)
	return "https://storage.test/" + objectPath, nil
}

// newTestServer wires every handler against an in-memory database. Routes are
// mounted without the role guard, which has its own tests.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.NewDB(t, services.AutoMigrate)
	logger := testutil.Logger()
	var cache *services.RedisCache

	users := services.NewUserService(db, logger, nil)
	orders := services.NewOrderService(db, logger, users, "VND")
	cash := services.NewCashService(db, logger, "VND")
	payments := services.NewPaymentService(db, logger, orders, cash)
	catalog := services.NewCatalogService(db, logger, cache, time.Minute)
	webhooks := services.NewWebhookService(db, logger, orders, cache, services.NoopLocker{}, services.WebhookConfig{
		AmountTolerance: decimal.NewFromInt(1000),
		ReplayTTL:       time.Hour,
	})
	storage := &memoryStorage{objects: map[string]string{}}

	e := echo.New()
	e.Logger = logger
	e.HTTPErrorHandler = middleware.JSONErrorHandler
	e.Validator = middleware.NewRequestValidator()

	orderHandler := NewOrderHandler(orders)
	paymentHandler := NewPaymentHandler(payments, storage)
	cashHandler := NewCashHandler(cash)
	catalogHandler := NewCatalogHandler(catalog, storage)
	webhookHandler := NewWebhookHandler(webhooks, testWebhookKey)
	qrHandler := NewQRHandler(services.NewQRService(db, logger, nil))
	userHandler := NewUserHandler(users)
	statsHandler := NewStatsHandler(services.NewStatsService(db))

	e.GET("/health", Health(db))
	e.GET("/api/products", catalogHandler.PublicProducts)
	e.GET("/api/payment-options", catalogHandler.PublicPaymentOptions)
	e.GET("/api/orders/lookup", orderHandler.LookupOrder)
	e.GET("/api/payments/qr", qrHandler.BuildQR)
	e.POST("/api/webhooks/sepay", webhookHandler.HandleSepay)

	admin := e.Group("/api/admin")
	admin.GET("/orders", orderHandler.ListOrders)
	admin.POST("/orders", orderHandler.CreateOrder)
	admin.PUT("/orders", orderHandler.UpdateOrder)
	admin.PATCH("/orders", orderHandler.UpdateOrderStatus)
	admin.DELETE("/orders", orderHandler.DeleteOrder)
	admin.GET("/payments", paymentHandler.ListPayments)
	admin.PUT("/payments", paymentHandler.UpdatePayment)
	admin.PATCH("/payments", paymentHandler.UpdatePaymentStatus)
	admin.POST("/payments/upload", paymentHandler.UploadProof)
	admin.POST("/payments/:id/cash-voucher", paymentHandler.CreateCashVoucher)
	admin.GET("/cash-transactions", cashHandler.ListCashTransactions)
	admin.POST("/cash-transactions", cashHandler.CreateCashTransaction)
	admin.PATCH("/cash-transactions", cashHandler.UpdateCashTransaction)
	admin.DELETE("/cash-transactions", cashHandler.DeleteCashTransaction)
	admin.GET("/cash-transactions/categories", cashHandler.Categories)
	admin.POST("/products", catalogHandler.CreateProduct)
	admin.POST("/products/upload", catalogHandler.UploadProductImages)
	admin.PATCH("/payment-methods", catalogHandler.PatchPaymentMethod)
	admin.POST("/payment-methods", catalogHandler.UpsertPaymentMethod)
	admin.POST("/payment-accounts", catalogHandler.CreatePaymentAccount)
	admin.PATCH("/payment-accounts", catalogHandler.PatchPaymentAccount)
	admin.GET("/users", userHandler.ListUsers)
	admin.POST("/users", userHandler.StoreUser)
	admin.GET("/kpi", statsHandler.KPI)

	return &testServer{e: e, db: db, storage: storage}
}

func (s *testServer) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["error"]
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	require.Equal(t, code, rec.Code, rec.Body.String())
}
