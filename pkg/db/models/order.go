package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mpspetcare/petcare-backend/pkg/enums"
	"github.com/mpspetcare/petcare-backend/pkg/types"
)

// PaymentResult is the reconciled outcome of a gateway notification. It is
// embedded on the order as a json column; a nil pointer means no notification
// has been applied yet.
type PaymentResult struct {
	Status        enums.PaymentStatus `json:"status"`
	StatusCode    string              `json:"status_code"`
	TransactionID string              `json:"transaction_id,omitempty"`
	ReconciledAt  time.Time           `json:"reconciled_at"`
}

// Order is the persisted purchase aggregate. Prices are snapshotted at
// creation; Status always mirrors the last entry of StatusHistory.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	User            *User                 `gorm:"foreignKey:UserID"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null;default:'cod'"`
	TotalCents      int                   `gorm:"column:total_cents;not null"`
	ShippingCents   int                   `gorm:"column:shipping_cents;not null;default:0"`
	Status          enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	IsPaid          bool                  `gorm:"column:is_paid;not null;default:false"`
	PaidAt          *time.Time            `gorm:"column:paid_at"`
	DeliveredAt     *time.Time            `gorm:"column:delivered_at"`
	PaymentResult   *PaymentResult        `gorm:"column:payment_result;type:jsonb;serializer:json"`
	Lines           []OrderLine           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory   []OrderStatusEvent    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
