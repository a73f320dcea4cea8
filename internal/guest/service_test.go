package guest

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/internal/catalog"
	"github.com/kashvicreations/kashvi-backend/internal/orders"
	"github.com/kashvicreations/kashvi-backend/internal/pricing"
	"github.com/kashvicreations/kashvi-backend/pkg/auth"
	"github.com/kashvicreations/kashvi-backend/pkg/config"
	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
	"github.com/kashvicreations/kashvi-backend/pkg/types"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

var guestTestDDL = []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'user',
  saved_address TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  sku TEXT NOT NULL UNIQUE,
  sale_price NUMERIC NOT NULL,
  dynamic_pricing INTEGER NOT NULL DEFAULT 0,
  weight_grams NUMERIC NOT NULL DEFAULT 0,
  labor_pct NUMERIC NOT NULL DEFAULT 0,
  gst_pct NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sale_price NUMERIC,
  weight_grams NUMERIC,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  payment_mode TEXT NOT NULL DEFAULT 'ONLINE',
  payment_status TEXT NOT NULL DEFAULT 'PENDING',
  order_status TEXT NOT NULL DEFAULT 'PLACED',
  shipping_address TEXT,
  coupon_id TEXT,
  total_amount NUMERIC NOT NULL DEFAULT 0,
  razorpay_order_id TEXT,
  stripe_payment_id TEXT,
  ccavenue_tracking_id TEXT,
  transaction_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS guest_orders (
  id TEXT PRIMARY KEY,
  guest_info TEXT,
  payment_status TEXT NOT NULL DEFAULT 'PENDING',
  coupon_id TEXT,
  subtotal NUMERIC NOT NULL DEFAULT 0,
  gst_amount NUMERIC NOT NULL DEFAULT 0,
  discount NUMERIC NOT NULL DEFAULT 0,
  final_amount NUMERIC NOT NULL DEFAULT 0,
  conversion_token TEXT NOT NULL UNIQUE,
  token_expires_at DATETIME NOT NULL,
  converted_to_user TEXT,
  converted_order_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS guest_order_items (
  id TEXT PRIMARY KEY,
  guest_order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  qty INTEGER NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS silver_prices (
  id TEXT PRIMARY KEY,
  price_per_gram NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'INR',
  source TEXT NOT NULL,
  last_updated DATETIME NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`}

func newTestEnv(t *testing.T) (*gorm.DB, Service) {
	t.Helper()
	dsn := "file:guest_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, stmt := range guestTestDDL {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	tx := gormTxRunner{db: db}

	pricingSvc, err := pricing.NewService(pricing.NewRepository(db), tx, nil, config.SilverRateConfig{DefaultPerGram: "80"}, logg)
	if err != nil {
		t.Fatalf("pricing service: %v", err)
	}

	svc, err := NewService(
		NewRepository(db),
		tx,
		catalog.NewProductRepository(db),
		catalog.NewUserRepository(db),
		catalog.NewCartRepository(db),
		orders.NewRepository(db),
		pricingSvc,
		config.GuestConfig{ConversionTokenTTL: 168 * time.Hour},
		config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32},
		config.JWTConfig{Secret: "guest-test-secret", Issuer: "kashvi", ExpirationMinutes: 30},
		logg,
	)
	if err != nil {
		t.Fatalf("guest service: %v", err)
	}
	return db, svc
}

func seedProduct(t *testing.T, db *gorm.DB, price string) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:        uuid.New(),
		Name:      "Silver Payal",
		SKU:       "SKU-" + uuid.NewString()[:8],
		SalePrice: decimal.RequireFromString(price),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedDynamicProduct(t *testing.T, db *gorm.DB) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:             uuid.New(),
		Name:           "Silver Chain",
		SKU:            "SKU-" + uuid.NewString()[:8],
		SalePrice:      decimal.Zero,
		DynamicPricing: true,
		WeightGrams:    decimal.RequireFromString("10"),
		LaborPct:       decimal.RequireFromString("20"),
		GSTPct:         decimal.RequireFromString("18"),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func guestInfo() types.GuestInfo {
	return types.GuestInfo{
		Name:  "Meera Iyer",
		Email: "meera@example.com",
		Phone: "9876500000",
		Address: types.Address{
			Phone:  "9876500000",
			Street: "4 Temple Street",
			City:   "Chennai",
			State:  "TN",
			Zip:    "600004",
		},
	}
}

func place(t *testing.T, db *gorm.DB, svc Service, productID uuid.UUID, qty int) *PlaceResult {
	t.Helper()
	result, err := svc.Place(context.Background(), PlaceInput{
		GuestInfo: guestInfo(),
		Items:     []LineInput{{ProductID: productID, Qty: qty}},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	return result
}

func TestPlace_PricesOnceAndMintsToken(t *testing.T) {
	db, svc := newTestEnv(t)
	product := seedDynamicProduct(t, db)

	result := place(t, db, svc, product.ID, 1)

	if len(result.ConversionToken) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(result.ConversionToken))
	}
	if !result.TokenExpiresAt.After(time.Now().Add(6 * 24 * time.Hour)) {
		t.Fatalf("token expires too soon: %s", result.TokenExpiresAt)
	}

	// 10g at the default 80/gram: 800 + 160 labor = 960, GST 172.80, final 1132.80.
	order := result.Order
	if !order.Subtotal.Equal(decimal.RequireFromString("960.00")) {
		t.Fatalf("subtotal = %s, want 960.00", order.Subtotal)
	}
	if !order.GSTAmount.Equal(decimal.RequireFromString("172.80")) {
		t.Fatalf("gst = %s, want 172.80", order.GSTAmount)
	}
	if !order.FinalAmount.Equal(decimal.RequireFromString("1132.80")) {
		t.Fatalf("final = %s, want 1132.80", order.FinalAmount)
	}

	// Snapshot survives a silver-rate change untouched.
	if err := db.Create(&models.SilverPrice{
		ID:           uuid.New(),
		PricePerGram: decimal.RequireFromString("200"),
		Source:       "manual",
		LastUpdated:  time.Now().UTC(),
		IsActive:     true,
	}).Error; err != nil {
		t.Fatalf("seed rate: %v", err)
	}
	var stored models.GuestOrder
	if err := db.Preload("Items").Where("id = ?", order.ID).First(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !stored.Items[0].UnitPrice.Equal(decimal.RequireFromString("1132.80")) {
		t.Fatalf("unit price = %s, want 1132.80", stored.Items[0].UnitPrice)
	}
}

func TestPlace_RejectsIncompleteGuestInfo(t *testing.T) {
	db, svc := newTestEnv(t)
	product := seedProduct(t, db, "100.00")

	info := guestInfo()
	info.Address.Zip = ""
	_, err := svc.Place(context.Background(), PlaceInput{
		GuestInfo: info,
		Items:     []LineInput{{ProductID: product.ID, Qty: 1}},
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkPaid_IsIdempotent(t *testing.T) {
	db, svc := newTestEnv(t)
	product := seedProduct(t, db, "150.00")
	result := place(t, db, svc, product.ID, 2)

	for i := 0; i < 2; i++ {
		if err := svc.MarkPaid(context.Background(), result.Order.ID); err != nil {
			t.Fatalf("mark paid attempt %d: %v", i+1, err)
		}
	}

	var stored models.GuestOrder
	if err := db.Where("id = ?", result.Order.ID).First(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.PaymentStatus != enums.PaymentStatusComplete {
		t.Fatalf("payment status = %s, want COMPLETE", stored.PaymentStatus)
	}
}

func TestConvert_CreatesAccountAndRehomesOrder(t *testing.T) {
	db, svc := newTestEnv(t)
	product := seedProduct(t, db, "450.00")
	result := place(t, db, svc, product.ID, 2)

	converted, err := svc.Convert(context.Background(), ConvertInput{
		Token:    result.ConversionToken,
		Email:    "Meera@Example.com",
		Password: "s3cret-password",
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	var user models.User
	if err := db.Where("id = ?", converted.UserID).First(&user).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Email != "meera@example.com" {
		t.Fatalf("email = %q, want lowercased", user.Email)
	}

	// Empty cart exists for the new account.
	var cart models.Cart
	if err := db.Where("user_id = ?", user.ID).First(&cart).Error; err != nil {
		t.Fatalf("load cart: %v", err)
	}

	// The standard order preserves the snapshot.
	var order models.Order
	if err := db.Preload("Items").Where("id = ?", converted.Order.ID).First(&order).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("900.00")) {
		t.Fatalf("total = %s, want 900.00", order.TotalAmount)
	}
	if !order.Items[0].UnitPrice.Equal(decimal.RequireFromString("450.00")) {
		t.Fatalf("unit price = %s, want 450.00", order.Items[0].UnitPrice)
	}

	// The guest order records the claim.
	var stored models.GuestOrder
	if err := db.Where("id = ?", result.Order.ID).First(&stored).Error; err != nil {
		t.Fatalf("reload guest order: %v", err)
	}
	if stored.ConvertedToUser == nil || *stored.ConvertedToUser != user.ID {
		t.Fatalf("converted_to_user not set")
	}

	// The issued token authenticates as the new user.
	claims, err := auth.ParseAccessToken(config.JWTConfig{Secret: "guest-test-secret", Issuer: "kashvi", ExpirationMinutes: 30}, converted.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("token user = %s, want %s", claims.UserID, user.ID)
	}
}

func TestConvert_TokenIsStrictlySingleUse(t *testing.T) {
	db, svc := newTestEnv(t)
	product := seedProduct(t, db, "100.00")
	result := place(t, db, svc, product.ID, 1)

	if _, err := svc.Convert(context.Background(), ConvertInput{
		Token:    result.ConversionToken,
		Email:    "first@example.com",
		Password: "s3cret-password",
	}); err != nil {
		t.Fatalf("first convert: %v", err)
	}

	_, err := svc.Convert(context.Background(), ConvertInput{
		Token:    result.ConversionToken,
		Email:    "second@example.com",
		Password: "s3cret-password",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on reuse, got %v", err)
	}

	// The failed attempt must not leave a second account behind.
	var users int64
	if err := db.Model(&models.User{}).Where("email = ?", "second@example.com").Count(&users).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if users != 0 {
		t.Fatalf("rolled-back conversion left a user behind")
	}
}

func TestConvert_ExpiredTokenIsRejected(t *testing.T) {
	db, svc := newTestEnv(t)
	product := seedProduct(t, db, "100.00")
	result := place(t, db, svc, product.ID, 1)

	if err := db.Model(&models.GuestOrder{}).
		Where("id = ?", result.Order.ID).
		Update("token_expires_at", time.Now().UTC().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("expire token: %v", err)
	}

	_, err := svc.Convert(context.Background(), ConvertInput{
		Token:    result.ConversionToken,
		Email:    "late@example.com",
		Password: "s3cret-password",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on expiry, got %v", err)
	}
}

func TestConvert_UnknownTokenIsNotFound(t *testing.T) {
	_, svc := newTestEnv(t)

	_, err := svc.Convert(context.Background(), ConvertInput{
		Token:    "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
		Email:    "nobody@example.com",
		Password: "s3cret-password",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
