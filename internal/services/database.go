package services

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"digital_legacy_echo/internal/models"
)

// InitDB initializes the database connection with connection pooling
func InitDB(dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// orders, payments and cash entries reference each other loosely;
		// deleting an order must not be blocked by its payments.
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")
	return db, nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Order{},
		&models.Payment{},
		&models.CashTransaction{},
		&models.PaymentMethod{},
		&models.PaymentAccount{},
		&models.WebhookEvent{},
		&models.ScheduledTask{},
		&models.ScheduledTaskHistory{},
	)
	if err != nil {
		return err
	}

	// One auto-created payment per order, enforced by the database.
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_auto_order ON payments (order_id) WHERE origin = 'auto'`).Error
}
