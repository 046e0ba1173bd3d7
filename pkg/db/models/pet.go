package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mpspetcare/petcare-backend/pkg/enums"
)

// Pet is the adoptable animal record. Status moves available → pending →
// adopted via the adoption workflow's conditional updates.
type Pet struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	Species   string          `gorm:"column:species;not null"`
	Breed     *string         `gorm:"column:breed"`
	Status    enums.PetStatus `gorm:"column:status;type:text;not null;default:'available'"`
	OwnerID   *uuid.UUID      `gorm:"column:owner_id;type:uuid"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
