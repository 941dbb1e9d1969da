package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is an immutable catalog entry. Rows are written by the external
// catalog import and are read-only to the commerce core.
type Item struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	PriceCents   int       `gorm:"column:price_cents;not null"`
	Description  string    `gorm:"column:description;not null;default:''"`
	ImageURL     string    `gorm:"column:image_url;not null;default:''"`
	Alt          string    `gorm:"column:alt;not null;default:''"`
	Category     string    `gorm:"column:category;not null;default:''"`
	Discontinued bool      `gorm:"column:discontinued;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
