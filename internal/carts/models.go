package carts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart groups the seat holds of one checkout attempt. A hold only counts as live
// while its cart exists and has not expired.
type Cart struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;index"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Cart) IsLive(now time.Time) bool {
	return c.ExpiresAt.After(now)
}
