package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"digital_legacy_echo/internal/models"
)

const (
	cacheKeyPublicProducts = "catalog:products:public"
	cacheKeyPaymentMethods = "catalog:payment-methods:active"
	cacheKeyPaymentOptions = "catalog:payment-options"
)

// CatalogService manages products, plans and the payment configuration shown at checkout.
// Public reads are cached in Redis and invalidated on every admin write.
type CatalogService struct {
	db     *gorm.DB
	logger echo.Logger
	cache  *RedisCache
	ttl    time.Duration
}

func NewCatalogService(db *gorm.DB, logger echo.Logger, cache *RedisCache, ttl time.Duration) *CatalogService {
	return &CatalogService{db: db, logger: logger, cache: cache, ttl: ttl}
}

func (s *CatalogService) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warnf("Failed to invalidate %v: %v", keys, err)
	}
}

// ---- products ----

type VariantInput struct {
	ID             *uint
	PlanID         *uint
	SKU            string
	Name           string
	Label          string
	Price          decimal.Decimal
	CompareAtPrice decimal.NullDecimal
	BillingPeriod  string
	IsPopular      bool
	IsAvailable    *bool
	SortOrder      int
	Metadata       json.RawMessage
	Delete         bool
}

type ProductInput struct {
	Name             string
	Slug             string
	Description      string
	ShortDescription string
	Category         string
	Status           string
	Images           []string
	IsFeatured       bool
	SortOrder        int
	Metadata         json.RawMessage
	Variants         []VariantInput
}

// PublicProducts lists active products with their available variants.
func (s *CatalogService) PublicProducts(ctx context.Context) ([]models.Product, error) {
	return GetOrSet(s.cache, ctx, cacheKeyPublicProducts, s.ttl, func() ([]models.Product, error) {
		var products []models.Product
		err := s.db.WithContext(ctx).
			Preload("Variants", func(db *gorm.DB) *gorm.DB {
				return db.Where("is_available = ?", true).Order("sort_order asc, id asc")
			}).
			Where("status = ?", models.ProductStatusActive).
			Order("sort_order asc, id asc").
			Find(&products).Error
		return products, err
	})
}

// AdminProducts lists every product, optionally filtered by name.
func (s *CatalogService) AdminProducts(ctx context.Context, q string) ([]models.Product, error) {
	query := s.db.WithContext(ctx).Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order asc, id asc")
	}).Preload("Variants.Plan")
	if q = strings.ToLower(strings.TrimSpace(q)); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+q+"%")
	}

	var products []models.Product
	if err := query.Order("sort_order asc, id asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order asc, id asc")
	}).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("Product not found")
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	product := models.Product{}
	if err := applyProductInput(&product, in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&product).Error; err != nil {
			return err
		}
		return syncVariants(tx, product.ID, in.Variants)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cacheKeyPublicProducts)
	s.logger.Infof("Product %q created", product.Name)
	return s.GetProduct(ctx, product.ID)
}

// UpdateProduct replaces product fields and upserts variants; variants flagged
// for deletion are removed.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		err := tx.First(&product, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("Product not found")
		}
		if err != nil {
			return err
		}
		if err := applyProductInput(&product, in); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&product).Error; err != nil {
			return err
		}
		return syncVariants(tx, product.ID, in.Variants)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cacheKeyPublicProducts)
	return s.GetProduct(ctx, id)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NotFound("Product not found")
	}
	s.invalidate(ctx, cacheKeyPublicProducts)
	return nil
}

func applyProductInput(p *models.Product, in ProductInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Validation("Product name is required")
	}
	status := models.ProductStatus(in.Status)
	if status == "" {
		status = models.ProductStatusActive
	}
	if status != models.ProductStatusActive && status != models.ProductStatusInactive {
		return Validation("Invalid product status")
	}

	p.Name = name
	p.Slug = strings.TrimSpace(in.Slug)
	if p.Slug == "" {
		p.Slug = Slugify(name)
	}
	p.Description = in.Description
	p.ShortDescription = in.ShortDescription
	p.Category = in.Category
	if p.Category == "" {
		p.Category = "subscription"
	}
	p.Status = status
	p.Images = datatypes.JSONSlice[string](in.Images)
	p.IsFeatured = in.IsFeatured
	p.SortOrder = in.SortOrder
	if len(in.Metadata) > 0 {
		p.Metadata = datatypes.JSON(in.Metadata)
	}
	p.SyncImageURL()
	return nil
}

func syncVariants(tx *gorm.DB, productID uint, variants []VariantInput) error {
	for _, in := range variants {
		if in.Delete {
			if in.ID != nil {
				if err := tx.Where("product_id = ?", productID).Delete(&models.ProductVariant{}, *in.ID).Error; err != nil {
					return err
				}
			}
			continue
		}
		if in.Price.IsNegative() {
			return Validation("Variant price must not be negative")
		}

		variant := models.ProductVariant{ProductID: productID, IsAvailable: true}
		if in.ID != nil {
			err := tx.Where("product_id = ?", productID).First(&variant, *in.ID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("Product variant not found")
			}
			if err != nil {
				return err
			}
		}

		variant.PlanID = in.PlanID
		variant.SKU = in.SKU
		variant.Name = in.Name
		variant.Label = in.Label
		variant.Price = in.Price
		variant.CompareAtPrice = in.CompareAtPrice
		variant.BillingPeriod = in.BillingPeriod
		variant.IsPopular = in.IsPopular
		variant.SortOrder = in.SortOrder
		if in.IsAvailable != nil {
			variant.IsAvailable = *in.IsAvailable
		}
		if len(in.Metadata) > 0 {
			variant.Metadata = datatypes.JSON(in.Metadata)
		}

		if err := tx.Omit(clause.Associations).Save(&variant).Error; err != nil {
			return err
		}
	}
	return nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func (s *CatalogService) Plans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	if err := s.db.WithContext(ctx).Order("sort_order asc, id asc").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// ---- payment methods ----

type PaymentMethodInput struct {
	Code    string
	Name    string
	Details json.RawMessage
	Active  *bool
}

func (s *CatalogService) PaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	if err := s.db.WithContext(ctx).Order("name asc").Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

func (s *CatalogService) ActivePaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	return GetOrSet(s.cache, ctx, cacheKeyPaymentMethods, s.ttl, func() ([]models.PaymentMethod, error) {
		var methods []models.PaymentMethod
		err := s.db.WithContext(ctx).Where("active = ?", true).Order("name asc").Find(&methods).Error
		return methods, err
	})
}

// UpsertPaymentMethod creates the method or overwrites the one with the same code.
func (s *CatalogService) UpsertPaymentMethod(ctx context.Context, in PaymentMethodInput) (*models.PaymentMethod, error) {
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, Validation("Code and name are required")
	}

	method := models.PaymentMethod{Code: code, Name: name, Active: true}
	if in.Active != nil {
		method.Active = *in.Active
	}
	if len(in.Details) > 0 {
		method.Details = datatypes.JSON(in.Details)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "details", "active", "updated_at"}),
	}).Create(&method).Error
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cacheKeyPaymentMethods)
	return s.paymentMethodByKey(ctx, code)
}

type PaymentMethodPatch struct {
	Name    *string
	Details json.RawMessage
	Active  *bool
}

// PatchPaymentMethod updates the method identified by numeric id or by code.
func (s *CatalogService) PatchPaymentMethod(ctx context.Context, key string, p PaymentMethodPatch) (*models.PaymentMethod, error) {
	method, err := s.paymentMethodByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return nil, Validation("Name must not be empty")
		}
		updates["name"] = strings.TrimSpace(*p.Name)
	}
	if len(p.Details) > 0 {
		updates["details"] = datatypes.JSON(p.Details)
	}
	if p.Active != nil {
		updates["active"] = *p.Active
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.PaymentMethod{ID: method.ID}).Updates(updates).Error; err != nil {
			return nil, err
		}
		s.invalidate(ctx, cacheKeyPaymentMethods)
	}
	return s.paymentMethodByKey(ctx, method.Code)
}

func (s *CatalogService) paymentMethodByKey(ctx context.Context, key string) (*models.PaymentMethod, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, Validation("Missing id or code")
	}

	query := s.db.WithContext(ctx)
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("code = ?", key)
	}

	var method models.PaymentMethod
	err := query.First(&method).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("Payment method not found")
	}
	if err != nil {
		return nil, err
	}
	return &method, nil
}

// ---- payment accounts ----

// PaymentOptions groups the active accounts customers can pay into by category
type PaymentOptions map[models.AccountCategory][]models.PaymentAccount

func (s *CatalogService) PaymentAccounts(ctx context.Context, category string) ([]models.PaymentAccount, error) {
	query := s.db.WithContext(ctx)
	if category != "" {
		if !models.AccountCategory(category).Valid() {
			return nil, Validation("Invalid category")
		}
		query = query.Where("category = ?", category)
	}

	var accounts []models.PaymentAccount
	if err := query.Order("category asc, sort_order asc, id asc").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// PublicPaymentOptions returns active accounts with gateway credentials removed.
func (s *CatalogService) PublicPaymentOptions(ctx context.Context) (PaymentOptions, error) {
	return GetOrSet(s.cache, ctx, cacheKeyPaymentOptions, s.ttl, func() (PaymentOptions, error) {
		var accounts []models.PaymentAccount
		err := s.db.WithContext(ctx).Where("active = ?", true).Order("sort_order asc, id asc").Find(&accounts).Error
		if err != nil {
			return nil, err
		}

		options := PaymentOptions{}
		for _, c := range models.AccountCategories {
			options[c] = []models.PaymentAccount{}
		}
		for _, a := range accounts {
			options[a.Category] = append(options[a.Category], a.Public())
		}
		return options, nil
	})
}

func (s *CatalogService) CreatePaymentAccount(ctx context.Context, account models.PaymentAccount) (*models.PaymentAccount, error) {
	if !account.Category.Valid() {
		return nil, Validation("Invalid category")
	}
	account.ID = 0
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	s.invalidate(ctx, cacheKeyPaymentOptions)
	return &account, nil
}

// paymentAccountColumns are the columns an admin may patch
var paymentAccountColumns = map[string]bool{
	"display_name": true, "currency": true, "active": true, "sort_order": true,
	"bank_code": true, "bank_name": true, "account_number": true, "account_holder": true, "bank_branch": true,
	"paypal_email": true, "momo_number": true,
	"token": true, "network": true, "address": true, "memo_tag": true,
	"qr_image_url": true, "qr_template": true, "description_template": true, "include_amount": true,
	"sepay_client_id": true, "sepay_client_secret": true, "sepay_merchant_id": true, "sepay_api_url": true, "sepay_bank_id": true,
}

// PatchPaymentAccount applies the known columns in fields and ignores the rest.
func (s *CatalogService) PatchPaymentAccount(ctx context.Context, id uint, fields map[string]interface{}) (*models.PaymentAccount, error) {
	updates := map[string]interface{}{}
	for k, v := range fields {
		if paymentAccountColumns[k] {
			updates[k] = v
		}
	}

	account, err := s.GetPaymentAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return account, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.PaymentAccount{ID: id}).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.invalidate(ctx, cacheKeyPaymentOptions)
	return s.GetPaymentAccount(ctx, id)
}

func (s *CatalogService) GetPaymentAccount(ctx context.Context, id uint) (*models.PaymentAccount, error) {
	var account models.PaymentAccount
	err := s.db.WithContext(ctx).First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("Payment account not found")
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
