package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stockroom-labs/stockroom-backend/pkg/enums"
)

// InventoryTransaction is an append-only ledger row recording every inventory
// mutation. Rows are never updated or deleted; the live counters can in
// principle be reconstructed from this log.
type InventoryTransaction struct {
	ID          uuid.UUID                      `gorm:"column:id;type:uuid;primaryKey"`
	InventoryID uuid.UUID                      `gorm:"column:inventory_id;type:uuid;not null;index"`
	Change      int                            `gorm:"column:change;not null"`
	Type        enums.InventoryTransactionType `gorm:"column:type;not null"`
	Reference   string                         `gorm:"column:reference;not null"`
	CreatedAt   time.Time                      `gorm:"column:created_at;autoCreateTime"`
}
