package models

import (
	"time"

	"github.com/google/uuid"
)

// LoadRun records the parameters and outcome of one load-simulation run.
// Failed counts logical operations whose executor retries were exhausted,
// incremented exactly once per terminal failure.
type LoadRun struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	InitiatedBy     string     `gorm:"column:initiated_by;not null"`
	NumSessions     int        `gorm:"column:num_sessions;not null"`
	NumOrders       int        `gorm:"column:num_orders;not null"`
	RestockInterval int        `gorm:"column:restock_interval;not null"`
	Failed          int        `gorm:"column:failed;not null;default:0"`
	StartedAt       time.Time  `gorm:"column:started_at;autoCreateTime"`
	EndedAt         *time.Time `gorm:"column:ended_at"`
}
