package seats

import (
	"time"

	"cineseat/internal/layouts"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusHeld      Status = "HELD"
	StatusSold      Status = "SOLD"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusHeld, StatusSold:
		return true
	}
	return false
}

// Seat is one sellable position of one session. Every state change goes through a
// conditional update and bumps Version.
//
// (session_id, seat_code) is unique. (session_id, row, number) is indexed but not unique
// so drifted duplicates stay representable until reconciliation collapses them.
type Seat struct {
	ID           uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID    uuid.UUID        `json:"session_id" gorm:"type:uuid;not null;uniqueIndex:idx_seats_session_code,priority:1;index:idx_seats_session_coord,priority:1"`
	Row          string           `json:"row" gorm:"column:row_label;not null;size:3;index:idx_seats_session_coord,priority:2"`
	Number       int              `json:"number" gorm:"not null;index:idx_seats_session_coord,priority:3"`
	SeatCode     string           `json:"seat_code" gorm:"not null;size:16;uniqueIndex:idx_seats_session_code,priority:2"`
	Type         layouts.SeatType `json:"type" gorm:"type:varchar(16);not null"`
	Status       Status           `json:"status" gorm:"type:varchar(16);not null;index"`
	HeldUntil    *time.Time       `json:"held_until,omitempty"`
	HeldBy       *uuid.UUID       `json:"held_by,omitempty" gorm:"type:uuid"`
	HeldByCartID *uuid.UUID       `json:"held_by_cart_id,omitempty" gorm:"type:uuid;index"`
	SoldAt       *time.Time       `json:"sold_at,omitempty"`
	SoldCartID   *uuid.UUID       `json:"sold_cart_id,omitempty" gorm:"type:uuid;index"`
	PriceCents   int64            `json:"price_cents" gorm:"not null"`
	Version      int64            `json:"version" gorm:"not null"`
	CreatedAt    time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

func (s *Seat) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = StatusAvailable
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}

func (s *Seat) Coordinate() layouts.Coordinate {
	return layouts.Coordinate{Row: s.Row, Number: s.Number}
}

// HasLiveHold reports whether the seat is HELD with an unexpired hold by a cart in liveCarts.
// A nil liveCarts skips the cart check.
func (s *Seat) HasLiveHold(now time.Time, liveCarts map[uuid.UUID]bool) bool {
	if s.Status != StatusHeld || s.HeldUntil == nil || s.HeldByCartID == nil {
		return false
	}
	if !s.HeldUntil.After(now) {
		return false
	}
	if liveCarts != nil && !liveCarts[*s.HeldByCartID] {
		return false
	}
	return true
}

// EffectiveStatus is the status a reader should see: holds that lapsed or lost their
// cart read as AVAILABLE without anyone writing the row.
func (s *Seat) EffectiveStatus(now time.Time, liveCarts map[uuid.UUID]bool) Status {
	if s.Status == StatusHeld && !s.HasLiveHold(now, liveCarts) {
		return StatusAvailable
	}
	return s.Status
}
