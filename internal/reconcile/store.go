package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cineseat/internal/seats"
	"cineseat/internal/sessions"
	"cineseat/internal/tickets"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence the engine works against. Every write is a single guarded
// statement; a false result means the guard no longer matched.
type Store interface {
	Source(ctx context.Context, sessionID uuid.UUID) (*sessions.SeatMapSource, error)
	ListSessions(ctx context.Context, after *sessions.Cursor, limit int) ([]sessions.Session, error)

	ListSeats(ctx context.Context, sessionID uuid.UUID) ([]seats.Seat, error)
	TicketedSeatIDs(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]bool, error)
	LiveCartIDs(ctx context.Context, ids []uuid.UUID, now time.Time) (map[uuid.UUID]bool, error)

	ApplyFix(ctx context.Context, fix Fix, now time.Time) (bool, error)
	DeleteSeat(ctx context.Context, d Delete) (bool, error)
	UpdateSeat(ctx context.Context, u Update, now time.Time) (bool, error)
	InsertSeat(ctx context.Context, seat *seats.Seat) (bool, error)

	// InTx runs fn against a store bound to one SERIALIZABLE transaction.
	InTx(ctx context.Context, fn func(Store) error) error
}

type gormStore struct {
	db       *gorm.DB
	sessions sessions.Repository
	seats    seats.Repository
	tickets  tickets.Repository
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:       db,
		sessions: sessions.NewRepository(db),
		seats:    seats.NewRepository(db),
		tickets:  tickets.NewRepository(db),
	}
}

func (s *gormStore) InTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{
			db:       tx,
			sessions: s.sessions.WithTx(tx),
			seats:    s.seats.WithTx(tx),
			tickets:  s.tickets.WithTx(tx),
		})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func (s *gormStore) Source(ctx context.Context, sessionID uuid.UUID) (*sessions.SeatMapSource, error) {
	return s.sessions.SeatMapSource(ctx, sessionID)
}

func (s *gormStore) ListSessions(ctx context.Context, after *sessions.Cursor, limit int) ([]sessions.Session, error) {
	return s.sessions.ListSessions(ctx, after, limit)
}

func (s *gormStore) ListSeats(ctx context.Context, sessionID uuid.UUID) ([]seats.Seat, error) {
	return s.seats.ListBySession(ctx, sessionID)
}

func (s *gormStore) TicketedSeatIDs(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]bool, error) {
	ids, err := s.tickets.TicketedSeatIDs(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (s *gormStore) LiveCartIDs(ctx context.Context, ids []uuid.UUID, now time.Time) (map[uuid.UUID]bool, error) {
	return s.seats.LiveCartIDs(ctx, ids, now)
}

func (s *gormStore) ApplyFix(ctx context.Context, fix Fix, now time.Time) (bool, error) {
	seat := fix.Seat
	result := s.db.WithContext(ctx).Model(&seats.Seat{}).
		Where("id = ? AND version = ?", seat.ID, fix.PriorVersion).
		Updates(map[string]interface{}{
			"status":          seat.Status,
			"held_until":      nullable(seat.HeldUntil),
			"held_by":         nullable(seat.HeldBy),
			"held_by_cart_id": nullable(seat.HeldByCartID),
			"sold_at":         nullable(seat.SoldAt),
			"sold_cart_id":    nullable(seat.SoldCartID),
			"version":         gorm.Expr("version + 1"),
			"updated_at":      now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to canonicalize seat %s: %w", seat.SeatCode, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *gormStore) DeleteSeat(ctx context.Context, d Delete) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("id = ? AND version = ?", d.SeatID, d.Version).
		Where("status = ? AND sold_cart_id IS NULL AND held_by_cart_id IS NULL", seats.StatusAvailable).
		Where("NOT EXISTS (SELECT 1 FROM tickets WHERE tickets.seat_id = seats.id)").
		Delete(&seats.Seat{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete seat %s: %w", d.SeatCode, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *gormStore) UpdateSeat(ctx context.Context, u Update, now time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&seats.Seat{}).
		Where("id = ? AND version = ? AND status = ?", u.SeatID, u.Version, seats.StatusAvailable).
		Where("NOT EXISTS (SELECT 1 FROM tickets WHERE tickets.seat_id = seats.id)").
		Updates(map[string]interface{}{
			"seat_code":   u.SeatCode,
			"type":        u.Type,
			"price_cents": u.PriceCents,
			"version":     gorm.Expr("version + 1"),
			"updated_at":  now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update seat %s: %w", u.FromCode, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *gormStore) InsertSeat(ctx context.Context, seat *seats.Seat) (bool, error) {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(seat)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert seat %s: %w", seat.SeatCode, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
