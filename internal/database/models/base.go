package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with UUID primary key and timestamps
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Now is the clock used for persisted timestamps. Values are UTC and truncated
// to microseconds, the resolution Postgres keeps, so a timestamp read back
// compares equal to the one written (cursor values depend on this).
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
