package tickets

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ticket is issued when a seat is sold. Its price is a snapshot of the seat price at
// sale time. A seat referenced by any ticket is never deleted or repriced.
type Ticket struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID  uuid.UUID `json:"session_id" gorm:"type:uuid;not null;index"`
	SeatID     uuid.UUID `json:"seat_id" gorm:"type:uuid;not null;uniqueIndex"`
	CartID     uuid.UUID `json:"cart_id" gorm:"type:uuid;not null;index"`
	SeatCode   string    `json:"seat_code" gorm:"not null;size:16"`
	PriceCents int64     `json:"price_cents" gorm:"not null"`
	IssuedAt   time.Time `json:"issued_at" gorm:"not null"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
