package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	ordersvc "github.com/mpspetcare/petcare-backend/internal/orders"
	"github.com/mpspetcare/petcare-backend/internal/products"
	"github.com/mpspetcare/petcare-backend/pkg/db/models"
)

func newOrdersRouter(t *testing.T, db *gorm.DB) (chi.Router, *ordersvc.Service) {
	t.Helper()
	logg := newTestLogger()
	svc, err := ordersvc.NewService(
		ordersvc.NewRepository(db),
		products.NewRepository(db),
		ctrlTxRunner{db: db},
		logg,
		35000,
	)
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}

	r := chi.NewRouter()
	r.Post("/orders", CreateOrder(svc, logg))
	r.Get("/orders/mine", ListMyOrders(svc, logg))
	r.Get("/orders/{orderId}", GetOrder(svc, logg))
	r.Put("/orders/{orderId}/cancel", CancelOrder(svc, logg))
	r.Put("/orders/{orderId}/status", UpdateOrderStatus(svc, logg))
	return r, svc
}

func createOrderBody(t *testing.T, productID uuid.UUID, qty int) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"lines":            []map[string]any{{"product_id": productID, "qty": qty}},
		"shipping_address": testAddress(),
		"payment_method":   "card",
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestCreateOrderEndpoint(t *testing.T) {
	db := setupControllerDB(t)
	router, _ := newOrdersRouter(t, db)
	buyer := seedUser(t, db, "Nimal Perera")
	product := seedProduct(t, db, "Puppy Chow", 120000, 5)

	req := httptest.NewRequest(http.MethodPost, "/orders", createOrderBody(t, product.ID, 2))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(req, buyer.ID, "user"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data models.Order `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalCents != 2*120000+35000 {
		t.Fatalf("total = %d", envelope.Data.TotalCents)
	}
	if envelope.Data.UserID != buyer.ID {
		t.Fatalf("order owned by %s, want %s", envelope.Data.UserID, buyer.ID)
	}

	var item models.InventoryItem
	if err := db.First(&item, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if item.StockQty != 3 {
		t.Fatalf("stock = %d, want 3", item.StockQty)
	}
}

func TestCreateOrderRequiresIdentity(t *testing.T) {
	db := setupControllerDB(t)
	router, _ := newOrdersRouter(t, db)
	product := seedProduct(t, db, "Puppy Chow", 120000, 5)

	req := httptest.NewRequest(http.MethodPost, "/orders", createOrderBody(t, product.ID, 1))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateOrderRejectsUnknownField(t *testing.T) {
	db := setupControllerDB(t)
	router, _ := newOrdersRouter(t, db)
	buyer := seedUser(t, db, "Nimal Perera")

	req := httptest.NewRequest(http.MethodPost, "/orders",
		bytes.NewBufferString(`{"lines":[],"surprise":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(req, buyer.ID, "user"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetOrderAuthorization(t *testing.T) {
	db := setupControllerDB(t)
	router, svc := newOrdersRouter(t, db)
	buyer := seedUser(t, db, "Nimal Perera")
	stranger := seedUser(t, db, "Kamal Silva")
	product := seedProduct(t, db, "Cat Tower", 450000, 3)

	order, err := svc.Create(context.Background(), buyer.ID, ordersvc.CreateOrderInput{
		Lines:           []ordersvc.CreateOrderLine{{ProductID: product.ID, Qty: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	get := func(userID uuid.UUID, role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/orders/"+order.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authed(req, userID, role))
		return rec
	}

	if rec := get(buyer.ID, "user"); rec.Code != http.StatusOK {
		t.Fatalf("owner status = %d", rec.Code)
	}
	if rec := get(stranger.ID, "user"); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger status = %d, want 403", rec.Code)
	}
	if rec := get(stranger.ID, "admin"); rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d", rec.Code)
	}
}

func TestCancelOrderEndpointRestoresStock(t *testing.T) {
	db := setupControllerDB(t)
	router, svc := newOrdersRouter(t, db)
	buyer := seedUser(t, db, "Nimal Perera")
	product := seedProduct(t, db, "Bird Cage", 300000, 4)

	order, err := svc.Create(context.Background(), buyer.ID, ordersvc.CreateOrderInput{
		Lines:           []ordersvc.CreateOrderLine{{ProductID: product.ID, Qty: 2}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/orders/"+order.ID.String()+"/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(req, buyer.ID, "user"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var item models.InventoryItem
	if err := db.First(&item, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if item.StockQty != 4 {
		t.Fatalf("stock = %d, want 4", item.StockQty)
	}
}

func TestUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	db := setupControllerDB(t)
	router, svc := newOrdersRouter(t, db)
	buyer := seedUser(t, db, "Nimal Perera")
	admin := seedUser(t, db, "Admin")
	product := seedProduct(t, db, "Fish Food", 80000, 10)

	order, err := svc.Create(context.Background(), buyer.ID, ordersvc.CreateOrderInput{
		Lines:           []ordersvc.CreateOrderLine{{ProductID: product.ID, Qty: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/orders/"+order.ID.String()+"/status",
		bytes.NewBufferString(`{"status":"teleported"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(req, admin.ID, "admin"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListMyOrdersEndpoint(t *testing.T) {
	db := setupControllerDB(t)
	router, svc := newOrdersRouter(t, db)
	buyer := seedUser(t, db, "Nimal Perera")
	product := seedProduct(t, db, "Dog Leash", 95000, 10)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), buyer.ID, ordersvc.CreateOrderInput{
			Lines:           []ordersvc.CreateOrderLine{{ProductID: product.ID, Qty: 1}},
			ShippingAddress: testAddress(),
			PaymentMethod:   "cod",
		}); err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/orders/mine?limit=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(req, buyer.ID, "user"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data ordersvc.OrderList `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 2 {
		t.Fatalf("orders = %d, want 2", len(envelope.Data.Orders))
	}
	if envelope.Data.NextCursor == "" {
		t.Fatal("expected a next cursor")
	}
}
