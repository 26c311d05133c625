package analytics

import (
	"time"

	"github.com/google/uuid"
)

// TypeOccupancy counts the seats of one seat type by effective status.
type TypeOccupancy struct {
	Type      string `json:"type"`
	Available int64  `json:"available"`
	Held      int64  `json:"held"`
	Sold      int64  `json:"sold"`
}

// SessionOccupancy is the sales picture of one session. Lapsed holds count as available.
type SessionOccupancy struct {
	SessionID        uuid.UUID       `json:"session_id"`
	TotalSeats       int64           `json:"total_seats"`
	Available        int64           `json:"available"`
	Held             int64           `json:"held"`
	Sold             int64           `json:"sold"`
	OccupancyPercent float64         `json:"occupancy_percent"`
	TicketsIssued    int64           `json:"tickets_issued"`
	RevenueCents     int64           `json:"revenue_cents"`
	ByType           []TypeOccupancy `json:"by_type"`
	AsOf             time.Time       `json:"as_of"`
}

type TopSession struct {
	SessionID    uuid.UUID `json:"session_id"`
	MovieTitle   string    `json:"movie_title"`
	StartsAt     time.Time `json:"starts_at"`
	Sold         int64     `json:"sold"`
	RevenueCents int64     `json:"revenue_cents"`
}

type Overview struct {
	Sessions      int64        `json:"sessions"`
	TotalSeats    int64        `json:"total_seats"`
	SoldSeats     int64        `json:"sold_seats"`
	TicketsIssued int64        `json:"tickets_issued"`
	RevenueCents  int64        `json:"revenue_cents"`
	TopSessions   []TopSession `json:"top_sessions"`
	AsOf          time.Time    `json:"as_of"`
}

type effectiveCount struct {
	Type      string
	Effective string
	Seats     int64
}

type ticketTotals struct {
	Tickets      int64
	RevenueCents int64
}
