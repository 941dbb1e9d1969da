package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal identity the core needs. Authentication happens
// elsewhere; the core trusts the supplied id and the harness upserts
// synthetic users by email.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
