package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpspetcare/petcare-backend/internal/products"
	"github.com/mpspetcare/petcare-backend/pkg/enums"
	pkgerrors "github.com/mpspetcare/petcare-backend/pkg/errors"
	"github.com/mpspetcare/petcare-backend/pkg/logger"
	"github.com/mpspetcare/petcare-backend/pkg/pagination"
	"github.com/mpspetcare/petcare-backend/pkg/types"
)

const testShippingCents = 35000

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	log := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), products.NewRepository(db), testTxRunner{db: db}, log, testShippingCents)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func testAddress() types.ShippingAddress {
	return types.ShippingAddress{
		FullName:   "Nimal Perera",
		Street:     "12 Lake Rd",
		City:       "Colombo",
		PostalCode: "00300",
		Phone:      "0771234567",
	}
}

func TestCreateSnapshotsAndReserves(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	food := mustCreateProduct(t, db, "Puppy Chow", 125000, 5)
	toy := mustCreateProduct(t, db, "Rope Toy", 40000, 3)

	order, err := svc.Create(ctx, userID, CreateOrderInput{
		Lines: []CreateOrderLine{
			{ProductID: food.ID, Qty: 2},
			{ProductID: toy.ID, Qty: 1},
		},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	wantTotal := 2*125000 + 40000 + testShippingCents
	if order.TotalCents != wantTotal {
		t.Fatalf("total = %d, want %d", order.TotalCents, wantTotal)
	}
	if got := stockOf(t, db, food.ID); got != 3 {
		t.Fatalf("food stock = %d, want 3", got)
	}
	if got := stockOf(t, db, toy.ID); got != 2 {
		t.Fatalf("toy stock = %d, want 2", got)
	}

	loaded, err := svc.Get(ctx, order.ID, Actor{UserID: userID, Role: enums.MemberRoleUser})
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if loaded.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s, want pending", loaded.Status)
	}
	if len(loaded.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(loaded.Lines))
	}
	for _, line := range loaded.Lines {
		if line.ProductID == food.ID && line.UnitPriceCents != 125000 {
			t.Fatalf("food snapshot price = %d", line.UnitPriceCents)
		}
	}
	if len(loaded.StatusHistory) != 1 || loaded.StatusHistory[0].Status != enums.OrderStatusPending {
		t.Fatalf("unexpected history: %+v", loaded.StatusHistory)
	}
}

func TestCreateInsufficientStockLeavesNothingBehind(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	food := mustCreateProduct(t, db, "Puppy Chow", 125000, 5)
	toy := mustCreateProduct(t, db, "Rope Toy", 40000, 1)

	_, err := svc.Create(ctx, uuid.New(), CreateOrderInput{
		Lines: []CreateOrderLine{
			{ProductID: food.ID, Qty: 2},
			{ProductID: toy.ID, Qty: 4},
		},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := stockOf(t, db, food.ID); got != 5 {
		t.Fatalf("food stock = %d, want 5", got)
	}
	var orderCount int64
	db.Table("orders").Count(&orderCount)
	if orderCount != 0 {
		t.Fatalf("orders persisted after rollback: %d", orderCount)
	}
}

func TestCreateValidation(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), CreateOrderInput{
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("empty cart: unexpected error %v", err)
	}

	product := mustCreateProduct(t, db, "Puppy Chow", 125000, 5)
	_, err = svc.Create(ctx, uuid.New(), CreateOrderInput{
		Lines:           []CreateOrderLine{{ProductID: product.ID, Qty: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cheque",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("bad method: unexpected error %v", err)
	}

	_, err = svc.Create(ctx, uuid.New(), CreateOrderInput{
		Lines:           []CreateOrderLine{{ProductID: uuid.New(), Qty: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("missing product: unexpected error %v", err)
	}
}

func TestCancelRestoresStockExactlyOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	product := mustCreateProduct(t, db, "Puppy Chow", 125000, 5)

	order, err := svc.Create(ctx, userID, CreateOrderInput{
		Lines:           []CreateOrderLine{{ProductID: product.ID, Qty: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if got := stockOf(t, db, product.ID); got != 4 {
		t.Fatalf("stock after create = %d, want 4", got)
	}

	owner := Actor{UserID: userID, Role: enums.MemberRoleUser}
	cancelled, err := svc.Cancel(ctx, order.ID, owner)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	if got := stockOf(t, db, product.ID); got != 5 {
		t.Fatalf("stock after cancel = %d, want 5", got)
	}
	if len(cancelled.StatusHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(cancelled.StatusHistory))
	}

	_, err = svc.Cancel(ctx, order.ID, owner)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("second cancel: unexpected error %v", err)
	}
	if got := stockOf(t, db, product.ID); got != 5 {
		t.Fatalf("stock double-released: %d", got)
	}
}

func TestCancelForbiddenForStranger(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	product := mustCreateProduct(t, db, "Puppy Chow", 125000, 5)

	order, err := svc.Create(ctx, uuid.New(), CreateOrderInput{
		Lines:           []CreateOrderLine{{ProductID: product.ID, Qty: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	_, err = svc.Cancel(ctx, order.ID, Actor{UserID: uuid.New(), Role: enums.MemberRoleUser})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stockOf(t, db, product.ID); got != 4 {
		t.Fatalf("stranger cancel touched stock: %d", got)
	}

	_, err = svc.Cancel(ctx, order.ID, Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin})
	if err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	product := mustCreateProduct(t, db, "Puppy Chow", 125000, 5)

	order, err := svc.Create(ctx, userID, CreateOrderInput{
		Lines:           []CreateOrderLine{{ProductID: product.ID, Qty: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing, "packed")
	if err != nil {
		t.Fatalf("to processing: %v", err)
	}
	if updated.Status != enums.OrderStatusProcessing {
		t.Fatalf("status = %s, want processing", updated.Status)
	}

	// Cancellation window closed once processing began.
	_, err = svc.Cancel(ctx, order.ID, Actor{UserID: userID, Role: enums.MemberRoleUser})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("cancel after processing: unexpected error %v", err)
	}

	updated, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatusDelivered, "")
	if err != nil {
		t.Fatalf("to delivered: %v", err)
	}
	if updated.DeliveredAt == nil {
		t.Fatal("delivered_at not stamped")
	}

	_, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatusShipped, "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("leaving terminal state: unexpected error %v", err)
	}

	_, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled, "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("cancel via status update: unexpected error %v", err)
	}
}

func TestStatusHistoryStaysOrdered(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	product := mustCreateProduct(t, db, "Puppy Chow", 125000, 9)

	order, err := svc.Create(ctx, userID, CreateOrderInput{
		Lines:           []CreateOrderLine{{ProductID: product.ID, Qty: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	for _, status := range []enums.OrderStatus{enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered} {
		if _, err := svc.UpdateStatus(ctx, order.ID, status, ""); err != nil {
			t.Fatalf("to %s: %v", status, err)
		}
	}

	loaded, err := svc.Get(ctx, order.ID, Actor{UserID: userID, Role: enums.MemberRoleUser})
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	want := []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	}
	if len(loaded.StatusHistory) != len(want) {
		t.Fatalf("history length = %d, want %d", len(loaded.StatusHistory), len(want))
	}
	var prev time.Time
	for i, event := range loaded.StatusHistory {
		if event.Status != want[i] {
			t.Fatalf("history[%d] = %s, want %s", i, event.Status, want[i])
		}
		if event.Position != i {
			t.Fatalf("history[%d] position = %d", i, event.Position)
		}
		if event.CreatedAt.Before(prev) {
			t.Fatalf("history timestamps out of order at %d", i)
		}
		prev = event.CreatedAt
	}
	if loaded.Status != loaded.StatusHistory[len(loaded.StatusHistory)-1].Status {
		t.Fatal("top-level status disagrees with last history entry")
	}
}

func TestListMinePaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	other := uuid.New()
	product := mustCreateProduct(t, db, "Puppy Chow", 125000, 100)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, userID, CreateOrderInput{
			Lines:           []CreateOrderLine{{ProductID: product.ID, Qty: 1}},
			ShippingAddress: testAddress(),
			PaymentMethod:   "cod",
		}); err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
	}
	if _, err := svc.Create(ctx, other, CreateOrderInput{
		Lines:           []CreateOrderLine{{ProductID: product.ID, Qty: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	}); err != nil {
		t.Fatalf("create other order: %v", err)
	}

	page, err := svc.ListMine(ctx, userID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(page.Orders) != 2 {
		t.Fatalf("page size = %d, want 2", len(page.Orders))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor")
	}

	rest, err := svc.ListMine(ctx, userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list mine page 2: %v", err)
	}
	if len(rest.Orders) != 1 {
		t.Fatalf("page 2 size = %d, want 1", len(rest.Orders))
	}
	if rest.NextCursor != "" {
		t.Fatalf("unexpected cursor on final page: %s", rest.NextCursor)
	}

	all, err := svc.ListAll(ctx, pagination.Params{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all.Orders) != 4 {
		t.Fatalf("all orders = %d, want 4", len(all.Orders))
	}
}
