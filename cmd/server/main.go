package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gommonlog "github.com/labstack/gommon/log"
	"gorm.io/gorm/logger"

	"digital_legacy_echo/internal/config"
	"digital_legacy_echo/internal/handlers"
	authMiddleware "digital_legacy_echo/internal/middleware"
	"digital_legacy_echo/internal/models"
	"digital_legacy_echo/internal/services"
	"digital_legacy_echo/internal/tasks"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Create Echo instance
	e := echo.New()
	e.Logger.SetLevel(gommonlog.INFO)
	e.HTTPErrorHandler = authMiddleware.JSONErrorHandler
	e.Validator = authMiddleware.NewRequestValidator()

	// Initialize Database
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}
	db, err := services.InitDB(cfg.DatabaseURL, logLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis backs the catalog cache, webhook replay guard and order locks.
	// Without it those degrade to no-ops.
	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, continuing without cache: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// Initialize Firebase
	var (
		sessionIssuer handlers.SessionIssuer
		sessions      authMiddleware.IdentityVerifier
		identity      services.IdentityProvider
		objectStorage handlers.ObjectStorage
	)
	fb, err := services.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseStorageBucket)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Login and user creation will not work until valid credentials are provided")
	} else {
		sessionIssuer = fb.Auth
		sessions = authMiddleware.NewFirebaseSessionVerifier(fb.Auth)
		identity = services.NewFirebaseIdentity(fb.Auth)
		if fb.Storage != nil {
			objectStorage = services.NewFirebaseStorage(fb.Storage)
		}
	}

	// Services
	users := services.NewUserService(db, e.Logger, identity)
	orders := services.NewOrderService(db, e.Logger, users, cfg.DefaultCurrency)
	orders.OnCompleted(tasks.NewOrderConfirmationTask(services.NewEmailService(cfg), e.Logger))
	cash := services.NewCashService(db, e.Logger, cfg.DefaultCurrency)
	payments := services.NewPaymentService(db, e.Logger, orders, cash)
	catalog := services.NewCatalogService(db, e.Logger, cache, cfg.CatalogCacheTTL)
	qr := services.NewQRService(db, e.Logger, services.NewSepayClient())
	webhooks := services.NewWebhookService(db, e.Logger, orders, cache, services.NewLocker(cache), services.WebhookConfig{
		AmountTolerance: cfg.WebhookAmountTolerance,
		ReplayTTL:       cfg.WebhookReplayTTL,
	})
	if cfg.SepayWebhookAPIKey == "" {
		e.Logger.Warn("SEPAY_WEBHOOK_API_KEY not set, SePay webhooks are accepted without authentication")
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(sessionIssuer, cfg.IsProduction())
	orderHandler := handlers.NewOrderHandler(orders)
	paymentHandler := handlers.NewPaymentHandler(payments, objectStorage)
	cashHandler := handlers.NewCashHandler(cash)
	catalogHandler := handlers.NewCatalogHandler(catalog, objectStorage)
	qrHandler := handlers.NewQRHandler(qr)
	webhookHandler := handlers.NewWebhookHandler(webhooks, cfg.SepayWebhookAPIKey)
	userHandler := handlers.NewUserHandler(users)
	statsHandler := handlers.NewStatsHandler(services.NewStatsService(db))

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("12M"))

	// Public routes
	e.GET("/health", handlers.Health(db))
	e.POST("/auth/login", authHandler.HandleLogin)
	e.POST("/auth/logout", authHandler.HandleLogout)

	api := e.Group("/api")
	api.GET("/products", catalogHandler.PublicProducts)
	api.GET("/payment-methods", catalogHandler.PublicPaymentMethods)
	api.GET("/payment-options", catalogHandler.PublicPaymentOptions)
	api.GET("/orders/lookup", orderHandler.LookupOrder)
	api.GET("/payments/qr", qrHandler.BuildQR)
	api.POST("/webhooks/sepay", webhookHandler.HandleSepay)
	api.POST("/webhooks/sepay-payment", webhookHandler.HandleSepay)

	// Admin routes
	verifier := authMiddleware.ChainVerifier{sessions, authMiddleware.NewJWTVerifier(cfg.JWTSecret)}
	admin := api.Group("/admin")
	admin.Use(authMiddleware.RequireRole(verifier, users, models.RoleAdmin, models.RoleSuperAdmin))

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

	admin.GET("/products", catalogHandler.ListProducts)
	admin.POST("/products", catalogHandler.CreateProduct)
	admin.PUT("/products", catalogHandler.UpdateProduct)
	admin.DELETE("/products", catalogHandler.DeleteProduct)
	admin.POST("/products/upload", catalogHandler.UploadProductImages)
	admin.GET("/plans", catalogHandler.ListPlans)

	admin.GET("/payment-methods", catalogHandler.ListPaymentMethods)
	admin.POST("/payment-methods", catalogHandler.UpsertPaymentMethod)
	admin.PATCH("/payment-methods", catalogHandler.PatchPaymentMethod)
	admin.GET("/payment-accounts", catalogHandler.ListPaymentAccounts)
	admin.POST("/payment-accounts", catalogHandler.CreatePaymentAccount)
	admin.PATCH("/payment-accounts", catalogHandler.PatchPaymentAccount)

	admin.GET("/users", userHandler.ListUsers)
	admin.POST("/users", userHandler.StoreUser)

	admin.GET("/stats", statsHandler.Stats)
	admin.GET("/kpi", statsHandler.KPI)
	admin.GET("/series/revenue", statsHandler.RevenueSeries)
	admin.GET("/series/orders", statsHandler.OrderSeries)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
