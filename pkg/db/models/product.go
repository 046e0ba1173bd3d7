package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog record orders snapshot from. Catalog CRUD is owned by
// a separate surface; the order subsystem only reads these rows.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	Category   string    `gorm:"column:category;not null"`
	ImageURL   *string   `gorm:"column:image_url"`
	PriceCents int       `gorm:"column:price_cents;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
