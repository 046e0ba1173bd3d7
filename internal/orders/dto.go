package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/mpspetcare/petcare-backend/pkg/db/models"
	"github.com/mpspetcare/petcare-backend/pkg/enums"
	"github.com/mpspetcare/petcare-backend/pkg/types"
)

// CreateOrderLine is one requested cart line.
type CreateOrderLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,gte=1"`
}

// CreateOrderInput carries everything checkout needs.
type CreateOrderInput struct {
	Lines           []CreateOrderLine     `json:"lines" validate:"required,min=1,dive"`
	ShippingAddress types.ShippingAddress `json:"shipping_address" validate:"required"`
	PaymentMethod   string                `json:"payment_method" validate:"required"`
}

// Actor is the authenticated caller acting on an order.
type Actor struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// Admin reports whether the actor may operate on any order.
func (a Actor) Admin() bool {
	return a.Role == enums.MemberRoleAdmin
}

// StatusEventView is one history entry in API responses.
type StatusEventView struct {
	Status    enums.OrderStatus `json:"status"`
	Note      string            `json:"note,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderSummary is the per-row shape in paginated order lists.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalCents    int                 `json:"total_cents"`
	IsPaid        bool                `json:"is_paid"`
	TotalItems    int                 `json:"total_items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList wraps a page of orders plus the next cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func summarize(order models.Order) OrderSummary {
	items := 0
	for _, line := range order.Lines {
		items += line.Qty
	}
	return OrderSummary{
		ID:            order.ID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		TotalCents:    order.TotalCents,
		IsPaid:        order.IsPaid,
		TotalItems:    items,
		CreatedAt:     order.CreatedAt,
	}
}
