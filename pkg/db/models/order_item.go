package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem snapshots one settled line. Name, price and image are frozen at
// settlement time rather than read from the live catalog, so later catalog
// edits never rewrite order history. FulfilledQty can fall short of Quantity
// when the backing reservation was partially lost.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ItemID         uuid.UUID `gorm:"column:item_id;type:uuid;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	FulfilledQty   int       `gorm:"column:fulfilled_qty;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	Name           string    `gorm:"column:name;not null"`
	Description    string    `gorm:"column:description;not null;default:''"`
	ImageURL       string    `gorm:"column:image_url;not null;default:''"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
