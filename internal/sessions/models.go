package sessions

import (
	"time"

	"cineseat/internal/layouts"
	"cineseat/internal/pricing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Cinema struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:255"`
	Timezone  string    `json:"timezone" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Auditorium owns the seat map every session held in it is reconciled against.
// A nil Layout means the auditorium has not been mapped yet.
type Auditorium struct {
	ID        uuid.UUID                           `json:"id" gorm:"type:uuid;primaryKey"`
	CinemaID  uuid.UUID                           `json:"cinema_id" gorm:"type:uuid;not null;index"`
	Cinema    *Cinema                             `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Name      string                              `json:"name" gorm:"not null;size:255"`
	Layout    *datatypes.JSONType[layouts.Layout] `json:"layout,omitempty"`
	CreatedAt time.Time                           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time                           `json:"updated_at" gorm:"autoUpdateTime"`
}

// Session is one showing of a movie in an auditorium.
type Session struct {
	ID             uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey;index:idx_sessions_created_id,priority:2"`
	AuditoriumID   uuid.UUID   `json:"auditorium_id" gorm:"type:uuid;not null;index"`
	Auditorium     *Auditorium `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	MovieTitle     string      `json:"movie_title" gorm:"not null;size:255"`
	StartsAt       time.Time   `json:"starts_at" gorm:"not null;index"`
	EndsAt         time.Time   `json:"ends_at" gorm:"not null"`
	BasePriceCents int64       `json:"base_price_cents" gorm:"not null;check:base_price_cents >= 0"`
	VIPPriceCents  int64       `json:"vip_price_cents" gorm:"not null;check:vip_price_cents >= 0"`
	CreatedAt      time.Time   `json:"created_at" gorm:"autoCreateTime;index:idx_sessions_created_id,priority:1"`
	UpdatedAt      time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

func (c *Cinema) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (a *Auditorium) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SeatMapSource is what reconciliation needs to know about one session.
type SeatMapSource struct {
	Session Session
	// Layout is nil when the auditorium carries no seat map.
	Layout  *layouts.Layout
	Pricing pricing.SessionContext
}

func (a *Auditorium) SeatLayout() *layouts.Layout {
	if a == nil || a.Layout == nil {
		return nil
	}
	l := a.Layout.Data()
	return &l
}

// PricingContext builds the resolver input for this session.
func (s *Session) PricingContext(cinemaID uuid.UUID) pricing.SessionContext {
	return pricing.SessionContext{
		CinemaID:       cinemaID,
		AuditoriumID:   s.AuditoriumID,
		SessionID:      s.ID,
		BasePriceCents: s.BasePriceCents,
		VIPPriceCents:  s.VIPPriceCents,
	}
}
