package seats

import (
	"context"
	"time"
)

const (
	EventSeatHeld     = "seat.held"
	EventSeatReleased = "seat.released"
	EventSeatSold     = "seat.sold"
)

// SeatEvent is published after a transition has committed. Consumers must treat it as a
// hint and re-read the ledger; delivery is at most once.
type SeatEvent struct {
	Type       string     `json:"type"`
	SessionID  string     `json:"session_id"`
	SeatCode   string     `json:"seat_code"`
	CartID     string     `json:"cart_id,omitempty"`
	Status     Status     `json:"status"`
	Version    int64      `json:"version"`
	HeldUntil  *time.Time `json:"held_until,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

type EventPublisher interface {
	PublishSeatEvent(ctx context.Context, event SeatEvent) error
}

type noopPublisher struct{}

// NoopPublisher drops every event. Used when no broker is configured.
func NoopPublisher() EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) PublishSeatEvent(context.Context, SeatEvent) error {
	return nil
}

func eventFor(eventType string, seat *Seat, cartID string, at time.Time) SeatEvent {
	return SeatEvent{
		Type:       eventType,
		SessionID:  seat.SessionID.String(),
		SeatCode:   seat.SeatCode,
		CartID:     cartID,
		Status:     seat.Status,
		Version:    seat.Version,
		HeldUntil:  seat.HeldUntil,
		OccurredAt: at,
	}
}
