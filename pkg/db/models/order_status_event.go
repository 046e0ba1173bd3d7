package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mpspetcare/petcare-backend/pkg/enums"
)

// OrderStatusEvent is one entry of an order's append-only history. Position is
// assigned sequentially per order; rows are never updated or deleted.
type OrderStatusEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_order_status_position,priority:1"`
	Position  int               `gorm:"column:position;not null;uniqueIndex:idx_order_status_position,priority:2"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Note      string            `gorm:"column:note;not null;default:''"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
