package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mpspetcare/petcare-backend/pkg/enums"
)

// AdoptionRequest is one buyer's claim on a pet. Many requests can be pending
// for the same pet; at most one is ever approved.
type AdoptionRequest struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PetID      uuid.UUID            `gorm:"column:pet_id;type:uuid;not null;index"`
	Pet        *Pet                 `gorm:"foreignKey:PetID"`
	UserID     uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Message    string               `gorm:"column:message;not null;default:''"`
	Status     enums.AdoptionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	AdminNote  *string              `gorm:"column:admin_note"`
	ReviewedAt *time.Time           `gorm:"column:reviewed_at"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
