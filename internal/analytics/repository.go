package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// effectiveStatus folds lapsed holds into AVAILABLE the same way seat readers do.
// Arguments: now, now.
const effectiveStatus = `CASE WHEN status = 'HELD' AND (
	held_until IS NULL OR held_until <= ? OR
	held_by_cart_id IS NULL OR
	held_by_cart_id NOT IN (SELECT id FROM carts WHERE expires_at > ?))
THEN 'AVAILABLE' ELSE status END`

type Repository interface {
	SessionOccupancy(ctx context.Context, sessionID uuid.UUID, now time.Time) (*SessionOccupancy, error)
	Overview(ctx context.Context, now time.Time, top int) (*Overview, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SessionOccupancy(ctx context.Context, sessionID uuid.UUID, now time.Time) (*SessionOccupancy, error) {
	var counts []effectiveCount
	err := r.db.WithContext(ctx).Table("seats").
		Select("type, "+effectiveStatus+" AS effective, COUNT(*) AS seats", now, now).
		Where("session_id = ?", sessionID).
		Group("type").Group("effective").
		Order("type ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count session seats: %w", err)
	}

	var totals ticketTotals
	err = r.db.WithContext(ctx).Table("tickets").
		Select("COUNT(*) AS tickets, COALESCE(SUM(price_cents), 0) AS revenue_cents").
		Where("session_id = ?", sessionID).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to total session tickets: %w", err)
	}

	occupancy := &SessionOccupancy{
		SessionID:     sessionID,
		TicketsIssued: totals.Tickets,
		RevenueCents:  totals.RevenueCents,
		AsOf:          now,
	}
	for _, c := range counts {
		if n := len(occupancy.ByType); n == 0 || occupancy.ByType[n-1].Type != c.Type {
			occupancy.ByType = append(occupancy.ByType, TypeOccupancy{Type: c.Type})
		}
		t := &occupancy.ByType[len(occupancy.ByType)-1]
		switch c.Effective {
		case "AVAILABLE":
			t.Available += c.Seats
			occupancy.Available += c.Seats
		case "HELD":
			t.Held += c.Seats
			occupancy.Held += c.Seats
		case "SOLD":
			t.Sold += c.Seats
			occupancy.Sold += c.Seats
		}
		occupancy.TotalSeats += c.Seats
	}
	if occupancy.TotalSeats > 0 {
		occupancy.OccupancyPercent = float64(occupancy.Sold) * 100 / float64(occupancy.TotalSeats)
	}
	return occupancy, nil
}

func (r *repository) Overview(ctx context.Context, now time.Time, top int) (*Overview, error) {
	overview := &Overview{AsOf: now}
	db := r.db.WithContext(ctx)

	if err := db.Table("sessions").Count(&overview.Sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	if err := db.Table("seats").Count(&overview.TotalSeats).Error; err != nil {
		return nil, fmt.Errorf("failed to count seats: %w", err)
	}
	if err := db.Table("seats").Where("status = ?", "SOLD").Count(&overview.SoldSeats).Error; err != nil {
		return nil, fmt.Errorf("failed to count sold seats: %w", err)
	}

	var totals ticketTotals
	err := db.Table("tickets").
		Select("COUNT(*) AS tickets, COALESCE(SUM(price_cents), 0) AS revenue_cents").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to total tickets: %w", err)
	}
	overview.TicketsIssued = totals.Tickets
	overview.RevenueCents = totals.RevenueCents

	err = db.Table("tickets").
		Select("tickets.session_id, sessions.movie_title, sessions.starts_at, COUNT(*) AS sold, SUM(tickets.price_cents) AS revenue_cents").
		Joins("JOIN sessions ON sessions.id = tickets.session_id").
		Group("tickets.session_id").Group("sessions.movie_title").Group("sessions.starts_at").
		Order("sold DESC").Order("tickets.session_id ASC").
		Limit(top).
		Scan(&overview.TopSessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank sessions: %w", err)
	}
	return overview, nil
}
