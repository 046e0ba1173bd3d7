package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpspetcare/petcare-backend/pkg/db/models"
	"github.com/mpspetcare/petcare-backend/pkg/enums"
	pkgerrors "github.com/mpspetcare/petcare-backend/pkg/errors"
	"github.com/mpspetcare/petcare-backend/pkg/pagination"
)

// Repository defines persistence operations for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	CreateLines(ctx context.Context, lines []models.OrderLine) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AppendStatusEvent(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, note string) error
	AdvanceStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	RecordPaymentResult(ctx context.Context, orderID uuid.UUID, result models.PaymentResult, markPaid bool, paidAt *time.Time) error
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params) (*OrderList, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Lines", "StatusHistory", "User").Create(order).Error
}

func (r *repository) CreateLines(ctx context.Context, lines []models.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return &order, nil
}

// AppendStatusEvent writes the next history entry. Position is derived inside
// the caller's transaction; the unique (order_id, position) index rejects any
// interleaved append that slipped past the status gate.
func (r *repository) AppendStatusEvent(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, note string) error {
	var next int
	err := r.db.WithContext(ctx).
		Model(&models.OrderStatusEvent{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(MAX(position) + 1, 0)").
		Scan(&next).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "next history position")
	}
	event := models.OrderStatusEvent{
		ID:       uuid.New(),
		OrderID:  orderID,
		Position: next,
		Status:   status,
		Note:     note,
	}
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append status event")
	}
	return nil
}

// AdvanceStatus flips the order's status only if it still holds the expected
// one. The conditional write is the once-only gate every side effect (stock
// release, paid stamping) hides behind.
func (r *repository) AdvanceStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "advance order status")
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
	}
	return nil
}

// RecordPaymentResult persists a reconciled gateway outcome. It goes through
// a struct update because the json serializer on payment_result only runs for
// struct-based writes; a map update hands the driver the raw struct.
func (r *repository) RecordPaymentResult(ctx context.Context, orderID uuid.UUID, result models.PaymentResult, markPaid bool, paidAt *time.Time) error {
	order := models.Order{PaymentResult: &result}
	columns := []string{"payment_result"}
	if markPaid {
		order.IsPaid = true
		order.PaidAt = paidAt
		columns = append(columns, "is_paid", "paid_at")
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Select(columns).
		Updates(order).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment result")
	}
	return nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	return r.list(ctx, query, params)
}

func (r *repository) ListAll(ctx context.Context, params pagination.Params) (*OrderList, error) {
	return r.list(ctx, r.db.WithContext(ctx), params)
}

func (r *repository) list(ctx context.Context, query *gorm.DB, params pagination.Params) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.Parse(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	err = query.
		Preload("Lines").
		Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	for _, row := range rows {
		list.Orders = append(list.Orders, summarize(row))
	}
	return list, nil
}
