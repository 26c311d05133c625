package pricing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PriceRule overrides the session price for seats matching its scope and time window.
type PriceRule struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name     string    `json:"name" gorm:"size:120"`
	Priority int       `json:"priority" gorm:"not null;index"`
	IsActive bool      `json:"is_active" gorm:"not null;index"`

	// The most specific non-null scope constrains matching.
	CinemaID     *uuid.UUID `json:"cinema_id,omitempty" gorm:"type:uuid;index"`
	AuditoriumID *uuid.UUID `json:"auditorium_id,omitempty" gorm:"type:uuid;index"`
	SessionID    *uuid.UUID `json:"session_id,omitempty" gorm:"type:uuid;index"`

	DaysOfWeek  datatypes.JSONSlice[int] `json:"days_of_week,omitempty"`
	StartMinute *int                     `json:"start_minute,omitempty"`
	EndMinute   *int                     `json:"end_minute,omitempty"`

	PriceCents int64     `json:"price_cents" gorm:"not null;check:price_cents >= 0"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (r *PriceRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// SessionContext is everything the resolver needs to know about the session a seat belongs to.
type SessionContext struct {
	CinemaID       uuid.UUID `json:"cinema_id"`
	AuditoriumID   uuid.UUID `json:"auditorium_id"`
	SessionID      uuid.UUID `json:"session_id"`
	BasePriceCents int64     `json:"base_price_cents"`
	VIPPriceCents  int64     `json:"vip_price_cents"`
}

// Resolution is the outcome of resolving one seat price. RuleID is nil when the
// session fallback price was used.
type Resolution struct {
	PriceCents int64      `json:"price_cents"`
	RuleID     *uuid.UUID `json:"rule_id,omitempty"`
}

const minutesPerDay = 24 * 60
