package checkout

import (
	"time"

	"cineseat/internal/carts"
	"cineseat/internal/layouts"
	"cineseat/internal/seats"
	"cineseat/internal/tickets"

	"github.com/google/uuid"
)

// CartView is a cart with the seats it still holds live.
type CartView struct {
	carts.Cart
	Seats      []seats.Seat `json:"seats"`
	TotalCents int64        `json:"total_cents"`
}

// QuoteLine prices one held seat. RuleID is nil when the session price applied.
type QuoteLine struct {
	SeatID     uuid.UUID        `json:"seat_id"`
	SessionID  uuid.UUID        `json:"session_id"`
	SeatCode   string           `json:"seat_code"`
	Type       layouts.SeatType `json:"type"`
	PriceCents int64            `json:"price_cents"`
	RuleID     *uuid.UUID       `json:"rule_id,omitempty"`
	HeldUntil  *time.Time       `json:"held_until,omitempty"`
}

type Quote struct {
	CartID     uuid.UUID   `json:"cart_id"`
	ExpiresAt  time.Time   `json:"expires_at"`
	Lines      []QuoteLine `json:"lines"`
	TotalCents int64       `json:"total_cents"`
}

type Confirmation struct {
	CartID     uuid.UUID        `json:"cart_id"`
	PaymentRef string           `json:"payment_ref,omitempty"`
	Tickets    []tickets.Ticket `json:"tickets"`
	TotalCents int64            `json:"total_cents"`
}
