package models

import (
	"time"

	"github.com/google/uuid"
)

// LoadRunSummary is written once by each simulated session when its loop
// completes (or aborts), and polled by external consumers for progress.
type LoadRunSummary struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RunID           uuid.UUID `gorm:"column:run_id;type:uuid;not null;index"`
	Session         int       `gorm:"column:session;not null"`
	Identity        string    `gorm:"column:identity;not null"`
	OrdersCompleted int       `gorm:"column:orders_completed;not null"`
	StartedAt       time.Time `gorm:"column:started_at;not null"`
	EndedAt         time.Time `gorm:"column:ended_at;not null"`
}
