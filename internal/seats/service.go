package seats

import (
	"context"
	"fmt"
	"time"

	"cineseat/internal/layouts"
	"cineseat/internal/shared/config"
	"cineseat/pkg/logger"

	"github.com/google/uuid"
)

type HoldCommand struct {
	SessionID uuid.UUID
	SeatCode  string
	CartID    uuid.UUID
	HeldBy    *uuid.UUID
	// TTL zero means the configured default.
	TTL             time.Duration
	ExpectedVersion *int64
}

type Service interface {
	Hold(ctx context.Context, cmd HoldCommand) (*Seat, error)
	// Release frees a hold owned by cartID. It reports false, with no error, when there was
	// nothing of the cart's to release.
	Release(ctx context.Context, sessionID uuid.UUID, seatCode string, cartID uuid.UUID) (bool, error)
	// AdminRelease frees whatever hold the seat carries, regardless of cart.
	AdminRelease(ctx context.Context, sessionID uuid.UUID, seatCode string, expectedVersion *int64) (*ReleaseResponse, error)
	Sell(ctx context.Context, sessionID uuid.UUID, seatCode string, cartID uuid.UUID) (*Seat, error)
	// ExtendHolds keeps the cart's live holds until the given instant, capped at the
	// longest hold allowed from now.
	ExtendHolds(ctx context.Context, cartID uuid.UUID, until time.Time) ([]Seat, error)
	SweepExpired(ctx context.Context) (int64, error)

	GetSeat(ctx context.Context, sessionID uuid.UUID, seatCode string) (*SeatView, error)
	SeatMap(ctx context.Context, sessionID uuid.UUID) (*SeatMapResponse, error)
	Availability(ctx context.Context, sessionID uuid.UUID, query AvailabilityQuery) (*AvailabilityResponse, error)
	HeldByCart(ctx context.Context, cartID uuid.UUID) ([]Seat, error)

	// Publish emits an event for a transition committed outside this service.
	Publish(ctx context.Context, eventType string, seat *Seat, cartID uuid.UUID)
}

type service struct {
	repo       Repository
	publisher  EventPublisher
	defaultTTL time.Duration
	maxTTL     time.Duration
	sweepBatch int
	log        *logger.Logger
	now        func() time.Time
}

func NewService(repo Repository, publisher EventPublisher, cfg *config.Config) Service {
	if publisher == nil {
		publisher = NoopPublisher()
	}
	return &service{
		repo:       repo,
		publisher:  publisher,
		defaultTTL: cfg.Hold.DefaultTTL,
		maxTTL:     cfg.Hold.MaxTTL,
		sweepBatch: cfg.Hold.SweepBatch,
		log:        logger.GetDefault().WithComponent("seats"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) resolveTTL(ttl time.Duration) (time.Duration, error) {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if ttl <= 0 || ttl > s.maxTTL {
		return 0, fmt.Errorf("%w: %s not in (0, %s]", ErrInvalidTTL, ttl, s.maxTTL)
	}
	return ttl, nil
}

func (s *service) Hold(ctx context.Context, cmd HoldCommand) (*Seat, error) {
	ttl, err := s.resolveTTL(cmd.TTL)
	if err != nil {
		return nil, err
	}
	if cmd.SeatCode == "" || cmd.CartID == uuid.Nil {
		return nil, fmt.Errorf("%w: seat code and cart are required", ErrInvalidRequest)
	}

	now := s.now()
	seat, err := s.repo.Hold(ctx, HoldParams{
		SessionID:       cmd.SessionID,
		SeatCode:        cmd.SeatCode,
		CartID:          cmd.CartID,
		HeldBy:          cmd.HeldBy,
		Until:           now.Add(ttl),
		Now:             now,
		ExpectedVersion: cmd.ExpectedVersion,
	})
	if err != nil {
		s.log.LogSeatConflict(ctx, "hold", cmd.SessionID.String(), cmd.SeatCode, cmd.CartID.String(), err)
		return nil, err
	}

	s.log.LogSeatTransition(ctx, "hold", seat.SessionID.String(), seat.SeatCode, cmd.CartID.String(), seat.Version)
	s.Publish(ctx, EventSeatHeld, seat, cmd.CartID)
	return seat, nil
}

func (s *service) Release(ctx context.Context, sessionID uuid.UUID, seatCode string, cartID uuid.UUID) (bool, error) {
	released, seat, err := s.repo.Release(ctx, ReleaseParams{
		SessionID: sessionID,
		SeatCode:  seatCode,
		CartID:    cartID,
		Now:       s.now(),
	})
	if err != nil {
		s.log.LogSeatConflict(ctx, "release", sessionID.String(), seatCode, cartID.String(), err)
		return false, err
	}
	if released {
		s.log.LogSeatTransition(ctx, "release", sessionID.String(), seatCode, cartID.String(), seat.Version)
		s.Publish(ctx, EventSeatReleased, seat, cartID)
	}
	return released, nil
}

func (s *service) AdminRelease(ctx context.Context, sessionID uuid.UUID, seatCode string, expectedVersion *int64) (*ReleaseResponse, error) {
	now := s.now()
	released, seat, err := s.repo.Release(ctx, ReleaseParams{
		SessionID:       sessionID,
		SeatCode:        seatCode,
		Override:        true,
		Now:             now,
		ExpectedVersion: expectedVersion,
	})
	if err != nil {
		s.log.LogSeatConflict(ctx, "admin_release", sessionID.String(), seatCode, "", err)
		return nil, err
	}
	if released {
		s.log.LogSeatTransition(ctx, "admin_release", sessionID.String(), seatCode, "", seat.Version)
		s.Publish(ctx, EventSeatReleased, seat, uuid.Nil)
	}
	view := NewSeatView(seat, now, nil)
	return &ReleaseResponse{Released: released, Seat: &view}, nil
}

func (s *service) Sell(ctx context.Context, sessionID uuid.UUID, seatCode string, cartID uuid.UUID) (*Seat, error) {
	seat, err := s.repo.Sell(ctx, SellParams{
		SessionID: sessionID,
		SeatCode:  seatCode,
		CartID:    cartID,
		Now:       s.now(),
	})
	if err != nil {
		s.log.LogSeatConflict(ctx, "sell", sessionID.String(), seatCode, cartID.String(), err)
		return nil, err
	}
	s.log.LogSeatTransition(ctx, "sell", sessionID.String(), seatCode, cartID.String(), seat.Version)
	s.Publish(ctx, EventSeatSold, seat, cartID)
	return seat, nil
}

func (s *service) ExtendHolds(ctx context.Context, cartID uuid.UUID, until time.Time) ([]Seat, error) {
	now := s.now()
	if limit := now.Add(s.maxTTL); until.After(limit) {
		until = limit
	}
	extended, err := s.repo.ExtendHolds(ctx, ExtendParams{CartID: cartID, Until: until, Now: now})
	if err != nil {
		return nil, err
	}
	for i := range extended {
		s.log.LogSeatTransition(ctx, "extend", extended[i].SessionID.String(), extended[i].SeatCode, cartID.String(), extended[i].Version)
		s.Publish(ctx, EventSeatHeld, &extended[i], cartID)
	}
	return extended, nil
}

func (s *service) SweepExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	released, err := s.repo.SweepExpired(ctx, s.now(), s.sweepBatch)
	if err != nil {
		return 0, err
	}
	s.log.LogHoldsSwept(ctx, released, time.Since(start))
	return released, nil
}

func (s *service) GetSeat(ctx context.Context, sessionID uuid.UUID, seatCode string) (*SeatView, error) {
	seat, err := s.repo.GetSeat(ctx, sessionID, seatCode)
	if err != nil {
		return nil, err
	}
	now := s.now()
	live, err := s.liveCarts(ctx, []Seat{*seat}, now)
	if err != nil {
		return nil, err
	}
	view := NewSeatView(seat, now, live)
	return &view, nil
}

func (s *service) SeatMap(ctx context.Context, sessionID uuid.UUID) (*SeatMapResponse, error) {
	rows, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	live, err := s.liveCarts(ctx, rows, now)
	if err != nil {
		return nil, err
	}

	resp := &SeatMapResponse{
		SessionID: sessionID,
		Seats:     make([]SeatView, 0, len(rows)),
		Counts:    map[Status]int{StatusAvailable: 0, StatusHeld: 0, StatusSold: 0},
		AsOf:      now,
	}
	for i := range rows {
		view := NewSeatView(&rows[i], now, live)
		resp.Seats = append(resp.Seats, view)
		resp.Counts[view.Status]++
	}
	return resp, nil
}

func (s *service) Availability(ctx context.Context, sessionID uuid.UUID, query AvailabilityQuery) (*AvailabilityResponse, error) {
	resp := &AvailabilityResponse{SessionID: sessionID}
	if query.Type != "" {
		t := layouts.SeatType(query.Type)
		if !t.IsValid() || t == layouts.SeatTypeGap {
			return nil, fmt.Errorf("%w: unknown seat type %q", ErrInvalidRequest, query.Type)
		}
		resp.Type = &t
	}

	now := s.now()
	rows, err := s.repo.ListAvailable(ctx, sessionID, resp.Type, now, query.Limit)
	if err != nil {
		return nil, err
	}
	resp.Seats = make([]SeatView, 0, len(rows))
	for i := range rows {
		// Rows came back takeable, so an empty cart set is enough to show them free.
		resp.Seats = append(resp.Seats, NewSeatView(&rows[i], now, map[uuid.UUID]bool{}))
	}
	resp.Available = len(resp.Seats)
	return resp, nil
}

func (s *service) HeldByCart(ctx context.Context, cartID uuid.UUID) ([]Seat, error) {
	return s.repo.ListHeldByCart(ctx, cartID)
}

func (s *service) Publish(ctx context.Context, eventType string, seat *Seat, cartID uuid.UUID) {
	cart := ""
	if cartID != uuid.Nil {
		cart = cartID.String()
	}
	if err := s.publisher.PublishSeatEvent(ctx, eventFor(eventType, seat, cart, s.now())); err != nil {
		s.log.ErrorWithContext(ctx, "failed to publish seat event", err, map[string]interface{}{
			"event":      eventType,
			"session_id": seat.SessionID.String(),
			"seat_code":  seat.SeatCode,
		})
	}
}

func (s *service) liveCarts(ctx context.Context, rows []Seat, now time.Time) (map[uuid.UUID]bool, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for i := range rows {
		if id := rows[i].HeldByCartID; rows[i].Status == StatusHeld && id != nil && !seen[*id] {
			seen[*id] = true
			ids = append(ids, *id)
		}
	}
	return s.repo.LiveCartIDs(ctx, ids, now)
}
