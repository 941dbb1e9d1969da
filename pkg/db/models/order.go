package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stockroom-labs/stockroom-backend/pkg/enums"
)

// Order is the immutable result of settling a cart. Status advances through
// a fixed sequence; nothing else changes after creation.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	TotalCents int               `gorm:"column:total_cents;not null"`
	Status     enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
