package controllers

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mpspetcare/petcare-backend/api/middleware"
	"github.com/mpspetcare/petcare-backend/pkg/db/models"
	"github.com/mpspetcare/petcare-backend/pkg/enums"
	"github.com/mpspetcare/petcare-backend/pkg/logger"
	"github.com/mpspetcare/petcare-backend/pkg/types"
)

func setupControllerDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:controllers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'user',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  image_url TEXT,
  price_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
  product_id TEXT PRIMARY KEY,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  shipping_address TEXT,
  payment_method TEXT NOT NULL DEFAULT 'cod',
  total_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  is_paid INTEGER NOT NULL DEFAULT 0,
  paid_at DATETIME,
  delivered_at DATETIME,
  payment_result TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  image_url TEXT,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_status_events (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  status TEXT NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  UNIQUE(order_id, position)
);`,
	}
	for _, schema := range schemas {
		if err := db.Exec(schema).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

type ctrlTxRunner struct {
	db *gorm.DB
}

func (r ctrlTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

func authed(r *http.Request, userID uuid.UUID, role string) *http.Request {
	ctx := middleware.WithUserID(r.Context(), userID.String())
	ctx = middleware.WithRole(ctx, role)
	return r.WithContext(ctx)
}

func seedProduct(t *testing.T, db *gorm.DB, name string, priceCents, stock int) models.Product {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		Name:       name,
		Category:   "food",
		PriceCents: priceCents,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := db.Create(&models.InventoryItem{ProductID: product.ID, StockQty: stock}).Error; err != nil {
		t.Fatalf("create inventory: %v", err)
	}
	return product
}

func seedUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	phone := "0771234567"
	user := models.User{
		ID:    uuid.New(),
		Name:  name,
		Email: "buyer_" + uuid.NewString()[:8] + "@example.com",
		Phone: &phone,
		Role:  enums.MemberRoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func testAddress() types.ShippingAddress {
	return types.ShippingAddress{
		FullName:   "Nimal Perera",
		Street:     "12 Lake Rd",
		City:       "Colombo",
		PostalCode: "00300",
		Phone:      "0719876543",
	}
}
