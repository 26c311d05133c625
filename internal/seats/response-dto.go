package seats

import (
	"time"

	"cineseat/internal/layouts"

	"github.com/google/uuid"
)

// SeatView is a seat as readers see it. Lapsed holds show as AVAILABLE with no hold fields.
type SeatView struct {
	ID         uuid.UUID        `json:"id"`
	Row        string           `json:"row"`
	Number     int              `json:"number"`
	SeatCode   string           `json:"seat_code"`
	Type       layouts.SeatType `json:"type"`
	Status     Status           `json:"status"`
	HeldUntil  *time.Time       `json:"held_until,omitempty"`
	HeldByCart *uuid.UUID       `json:"held_by_cart_id,omitempty"`
	PriceCents int64            `json:"price_cents"`
	Version    int64            `json:"version"`
}

type SeatMapResponse struct {
	SessionID uuid.UUID      `json:"session_id"`
	Seats     []SeatView     `json:"seats"`
	Counts    map[Status]int `json:"counts"`
	AsOf      time.Time      `json:"as_of"`
}

type AvailabilityResponse struct {
	SessionID uuid.UUID         `json:"session_id"`
	Type      *layouts.SeatType `json:"type,omitempty"`
	Available int               `json:"available"`
	Seats     []SeatView        `json:"seats"`
}

type ReleaseResponse struct {
	Released bool      `json:"released"`
	Seat     *SeatView `json:"seat,omitempty"`
}

func NewSeatView(seat *Seat, now time.Time, liveCarts map[uuid.UUID]bool) SeatView {
	view := SeatView{
		ID:         seat.ID,
		Row:        seat.Row,
		Number:     seat.Number,
		SeatCode:   seat.SeatCode,
		Type:       seat.Type,
		Status:     seat.EffectiveStatus(now, liveCarts),
		PriceCents: seat.PriceCents,
		Version:    seat.Version,
	}
	if view.Status == StatusHeld {
		view.HeldUntil = seat.HeldUntil
		view.HeldByCart = seat.HeldByCartID
	}
	return view
}
