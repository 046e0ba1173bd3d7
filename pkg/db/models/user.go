package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mpspetcare/petcare-backend/pkg/enums"
)

// User is the minimal account record the order subsystem reads. Registration
// and login live behind a separate identity service.
type User struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string           `gorm:"column:name;not null"`
	Email     string           `gorm:"column:email;not null;uniqueIndex"`
	Phone     *string          `gorm:"column:phone"`
	Role      enums.MemberRole `gorm:"column:role;type:text;not null;default:'user'"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
