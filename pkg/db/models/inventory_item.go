package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem holds the contended per-product stock counter. Only the
// inventory package mutates it, and only through conditional updates.
type InventoryItem struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	StockQty  int       `gorm:"column:stock_qty;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
