package seats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cineseat/internal/layouts"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// takeable matches a seat a cart may hold right now: free, already its own, or held by a
// hold that lapsed or whose cart is gone or expired. Arguments: cart id, now, now.
const takeable = `(status = 'AVAILABLE' OR (status = 'HELD' AND (
	held_by_cart_id = ? OR
	held_until IS NULL OR held_until <= ? OR
	held_by_cart_id IS NULL OR
	held_by_cart_id NOT IN (SELECT id FROM carts WHERE expires_at > ?))))`

const notTicketed = `NOT EXISTS (SELECT 1 FROM tickets WHERE tickets.seat_id = seats.id)`

// ownerLive matches a hold whose cart still exists and has not expired. Argument: now.
const ownerLive = `held_by_cart_id IN (SELECT id FROM carts WHERE expires_at > ?)`

type HoldParams struct {
	SessionID       uuid.UUID
	SeatCode        string
	CartID          uuid.UUID
	HeldBy          *uuid.UUID
	Until           time.Time
	Now             time.Time
	ExpectedVersion *int64
}

type ReleaseParams struct {
	SessionID uuid.UUID
	SeatCode  string
	CartID    uuid.UUID
	// Override releases a hold regardless of which cart owns it.
	Override        bool
	Now             time.Time
	ExpectedVersion *int64
}

type SellParams struct {
	SessionID       uuid.UUID
	SeatCode        string
	CartID          uuid.UUID
	Now             time.Time
	ExpectedVersion *int64
}

type ExtendParams struct {
	CartID uuid.UUID
	Until  time.Time
	Now    time.Time
}

// Repository is the seat ledger. Hold, Release and Sell are single conditional updates;
// on a miss the row is read back only to pick the error.
type Repository interface {
	Hold(ctx context.Context, p HoldParams) (*Seat, error)
	Release(ctx context.Context, p ReleaseParams) (bool, *Seat, error)
	Sell(ctx context.Context, p SellParams) (*Seat, error)
	// ExtendHolds moves the cart's live holds forward to p.Until and returns the rewritten
	// rows. Lapsed holds stay lapsed.
	ExtendHolds(ctx context.Context, p ExtendParams) ([]Seat, error)
	// SweepExpired clears up to limit lapsed holds and returns how many rows changed.
	SweepExpired(ctx context.Context, now time.Time, limit int) (int64, error)

	GetSeat(ctx context.Context, sessionID uuid.UUID, seatCode string) (*Seat, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]Seat, error)
	ListHeldByCart(ctx context.Context, cartID uuid.UUID) ([]Seat, error)
	ListAvailable(ctx context.Context, sessionID uuid.UUID, seatType *layouts.SeatType, now time.Time, limit int) ([]Seat, error)
	LiveCartIDs(ctx context.Context, ids []uuid.UUID, now time.Time) (map[uuid.UUID]bool, error)

	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) seat(ctx context.Context, sessionID uuid.UUID, seatCode string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&Seat{}).Where("session_id = ? AND seat_code = ?", sessionID, seatCode)
}

func withVersion(db *gorm.DB, expected *int64) *gorm.DB {
	if expected != nil {
		return db.Where("version = ?", *expected)
	}
	return db
}

func (r *repository) Hold(ctx context.Context, p HoldParams) (*Seat, error) {
	q := r.seat(ctx, p.SessionID, p.SeatCode).
		Where(takeable, p.CartID, p.Now, p.Now).
		Where(notTicketed)
	q = withVersion(q, p.ExpectedVersion)

	result := q.Updates(map[string]interface{}{
		"status":          StatusHeld,
		"held_until":      p.Until,
		"held_by":         p.HeldBy,
		"held_by_cart_id": p.CartID,
		"sold_at":         nil,
		"sold_cart_id":    nil,
		"version":         gorm.Expr("version + 1"),
		"updated_at":      p.Now,
	})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to hold seat: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return r.GetSeat(ctx, p.SessionID, p.SeatCode)
	}

	current, err := r.GetSeat(ctx, p.SessionID, p.SeatCode)
	if err != nil {
		return nil, err
	}
	if p.ExpectedVersion != nil && current.Version != *p.ExpectedVersion {
		return nil, ErrVersionMismatch
	}
	return nil, ErrSeatUnavailable
}

func (r *repository) Release(ctx context.Context, p ReleaseParams) (bool, *Seat, error) {
	q := r.seat(ctx, p.SessionID, p.SeatCode).Where("status = ?", StatusHeld)
	if !p.Override {
		q = q.Where("held_by_cart_id = ?", p.CartID)
	}
	q = withVersion(q, p.ExpectedVersion)

	result := q.Updates(map[string]interface{}{
		"status":          StatusAvailable,
		"held_until":      nil,
		"held_by":         nil,
		"held_by_cart_id": nil,
		"version":         gorm.Expr("version + 1"),
		"updated_at":      p.Now,
	})
	if result.Error != nil {
		return false, nil, fmt.Errorf("failed to release seat: %w", result.Error)
	}

	current, err := r.GetSeat(ctx, p.SessionID, p.SeatCode)
	if err != nil {
		return false, nil, err
	}
	if result.RowsAffected == 1 {
		return true, current, nil
	}

	switch {
	case current.Status == StatusSold:
		return false, current, ErrSeatAlreadySold
	case p.ExpectedVersion != nil && current.Version != *p.ExpectedVersion:
		return false, current, ErrVersionMismatch
	}
	// Already free, lapsed, or someone else's hold: nothing of ours to release.
	return false, current, nil
}

func (r *repository) Sell(ctx context.Context, p SellParams) (*Seat, error) {
	q := r.seat(ctx, p.SessionID, p.SeatCode).
		Where("status = ? AND held_by_cart_id = ? AND held_until > ?", StatusHeld, p.CartID, p.Now).
		Where(ownerLive, p.Now)
	q = withVersion(q, p.ExpectedVersion)

	result := q.Updates(map[string]interface{}{
		"status":          StatusSold,
		"sold_at":         p.Now,
		"sold_cart_id":    p.CartID,
		"held_until":      nil,
		"held_by":         nil,
		"held_by_cart_id": nil,
		"version":         gorm.Expr("version + 1"),
		"updated_at":      p.Now,
	})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to sell seat: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return r.GetSeat(ctx, p.SessionID, p.SeatCode)
	}

	current, err := r.GetSeat(ctx, p.SessionID, p.SeatCode)
	if err != nil {
		return nil, err
	}
	switch {
	case current.Status == StatusSold:
		return nil, ErrSeatAlreadySold
	case p.ExpectedVersion != nil && current.Version != *p.ExpectedVersion:
		return nil, ErrVersionMismatch
	}
	return nil, ErrHoldNotOwned
}

func (r *repository) ExtendHolds(ctx context.Context, p ExtendParams) ([]Seat, error) {
	var rows []Seat
	err := r.db.WithContext(ctx).
		Where("status = ? AND held_by_cart_id = ? AND held_until > ? AND held_until < ?", StatusHeld, p.CartID, p.Now, p.Until).
		Where(ownerLive, p.Now).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cart holds: %w", err)
	}

	extended := make([]Seat, 0, len(rows))
	for _, row := range rows {
		result := r.db.WithContext(ctx).Model(&Seat{}).
			Where("id = ? AND version = ?", row.ID, row.Version).
			Where("status = ? AND held_by_cart_id = ? AND held_until > ?", StatusHeld, p.CartID, p.Now).
			Updates(map[string]interface{}{
				"held_until": p.Until,
				"version":    gorm.Expr("version + 1"),
				"updated_at": p.Now,
			})
		if result.Error != nil {
			return nil, fmt.Errorf("failed to extend hold on %s: %w", row.SeatCode, result.Error)
		}
		// A miss means the hold changed hands or lapsed since it was read.
		if result.RowsAffected == 1 {
			until := p.Until
			row.HeldUntil = &until
			row.Version++
			extended = append(extended, row)
		}
	}
	return extended, nil
}

func (r *repository) SweepExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	db := r.db.WithContext(ctx)
	expired := db.Model(&Seat{}).Select("id").
		Where("status = ? AND held_until <= ?", StatusHeld, now).
		Limit(limit)

	result := db.Model(&Seat{}).
		Where("id IN (?)", expired).
		Where("status = ? AND held_until <= ?", StatusHeld, now).
		Updates(map[string]interface{}{
			"status":          StatusAvailable,
			"held_until":      nil,
			"held_by":         nil,
			"held_by_cart_id": nil,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to sweep expired holds: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *repository) GetSeat(ctx context.Context, sessionID uuid.UUID, seatCode string) (*Seat, error) {
	var seat Seat
	err := r.db.WithContext(ctx).Where("session_id = ? AND seat_code = ?", sessionID, seatCode).First(&seat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSeatNotFound
		}
		return nil, fmt.Errorf("failed to get seat: %w", err)
	}
	return &seat, nil
}

func (r *repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("row_label ASC").Order("number ASC").Order("created_at ASC").Order("id ASC").
		Find(&seats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", err)
	}
	return seats, nil
}

func (r *repository) ListHeldByCart(ctx context.Context, cartID uuid.UUID) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Where("status = ? AND held_by_cart_id = ?", StatusHeld, cartID).
		Order("session_id ASC").Order("seat_code ASC").
		Find(&seats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cart seats: %w", err)
	}
	return seats, nil
}

func (r *repository) ListAvailable(ctx context.Context, sessionID uuid.UUID, seatType *layouts.SeatType, now time.Time, limit int) ([]Seat, error) {
	db := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Where(`(status = 'AVAILABLE' OR (status = 'HELD' AND (
			held_until IS NULL OR held_until <= ? OR
			held_by_cart_id IS NULL OR
			held_by_cart_id NOT IN (SELECT id FROM carts WHERE expires_at > ?))))`, now, now)
	if seatType != nil {
		db = db.Where("type = ?", *seatType)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}

	var seats []Seat
	if err := db.Order("row_label ASC").Order("number ASC").Find(&seats).Error; err != nil {
		return nil, fmt.Errorf("failed to list available seats: %w", err)
	}
	return seats, nil
}

func (r *repository) LiveCartIDs(ctx context.Context, ids []uuid.UUID, now time.Time) (map[uuid.UUID]bool, error) {
	live := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return live, nil
	}
	var found []uuid.UUID
	err := r.db.WithContext(ctx).Table("carts").
		Where("id IN ? AND expires_at > ?", ids, now).
		Pluck("id", &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list live carts: %w", err)
	}
	for _, id := range found {
		live[id] = true
	}
	return live, nil
}
