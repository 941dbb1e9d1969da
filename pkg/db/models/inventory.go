package models

import (
	"time"

	"github.com/google/uuid"
)

// Inventory tracks on-hand and reserved counts per item.
//
// Convention: reserving stock moves units from OnHand into Reserved in the
// same transaction, so OnHand is always the true sellable remainder. A sale
// consumes Reserved only. Both columns stay >= 0 at every committed state.
type Inventory struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ItemID        uuid.UUID `gorm:"column:item_id;type:uuid;not null;uniqueIndex"`
	OnHand        int       `gorm:"column:on_hand;not null;default:0"`
	Reserved      int       `gorm:"column:reserved;not null;default:0"`
	Threshold     int       `gorm:"column:threshold;not null;default:10"`
	RestockAmount int       `gorm:"column:restock_amount;not null;default:50"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
