package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart holds a user's open reservations. Created lazily on first interaction,
// never deleted, only emptied at settlement or cancellation.
type Cart struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
