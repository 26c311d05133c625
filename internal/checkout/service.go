package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cineseat/internal/carts"
	"cineseat/internal/layouts"
	"cineseat/internal/messaging"
	"cineseat/internal/pricing"
	"cineseat/internal/seats"
	"cineseat/internal/sessions"
	"cineseat/internal/tickets"
	"cineseat/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNothingToConfirm = errors.New("cart has no seats to confirm")
	ErrAmountMismatch   = errors.New("paid amount does not match cart total")
	ErrInvalidRequest   = errors.New("invalid checkout request")
	ErrCartChanged      = errors.New("cart seats changed while confirming")
)

// SessionSource loads the pricing context of a session.
type SessionSource interface {
	SeatMapSource(ctx context.Context, sessionID uuid.UUID) (*sessions.SeatMapSource, error)
}

// PriceResolver prices one seat type of a session at an instant.
type PriceResolver interface {
	Resolve(ctx context.Context, sc pricing.SessionContext, seatType layouts.SeatType, at time.Time) (pricing.Resolution, error)
}

// SeatError names the seat that stopped a multi-seat operation.
type SeatError struct {
	SessionID uuid.UUID
	SeatCode  string
	Err       error
}

func (e *SeatError) Error() string {
	return fmt.Sprintf("seat %s in session %s: %v", e.SeatCode, e.SessionID, e.Err)
}

func (e *SeatError) Unwrap() error { return e.Err }

type Service interface {
	CreateCart(ctx context.Context, req CreateCartRequest) (*CartView, error)
	GetCart(ctx context.Context, cartID uuid.UUID) (*CartView, error)
	ExtendCart(ctx context.Context, cartID uuid.UUID, req ExtendCartRequest) (*CartView, error)

	// HoldSeats holds every requested seat for the cart or none of them.
	HoldSeats(ctx context.Context, cartID uuid.UUID, req HoldSeatsRequest) (*CartView, error)
	ReleaseSeat(ctx context.Context, cartID, sessionID uuid.UUID, seatCode string) (bool, error)
	// CancelCart releases every seat the cart holds and ends the cart. Safe to repeat.
	CancelCart(ctx context.Context, cartID uuid.UUID) (int, error)
	Quote(ctx context.Context, cartID uuid.UUID) (*Quote, error)
	// ConfirmCart sells every held seat and issues tickets in one transaction.
	ConfirmCart(ctx context.Context, cartID uuid.UUID, req ConfirmRequest) (*Confirmation, error)

	HandlePaymentEvent(ctx context.Context, event messaging.PaymentEvent) error
}

type service struct {
	db         *gorm.DB
	carts      carts.Service
	cartRepo   carts.Repository
	seats      seats.Service
	seatRepo   seats.Repository
	ticketRepo tickets.Repository
	sessions   SessionSource
	prices     PriceResolver
	log        *logger.Logger
	now        func() time.Time
}

// NewService wires checkout. Quotes and sales are priced by prices at each session's start.
func NewService(db *gorm.DB, cartService carts.Service, cartRepo carts.Repository, seatService seats.Service, seatRepo seats.Repository, ticketRepo tickets.Repository, sessionSource SessionSource, prices PriceResolver) Service {
	return &service{
		db:         db,
		carts:      cartService,
		cartRepo:   cartRepo,
		seats:      seatService,
		seatRepo:   seatRepo,
		ticketRepo: ticketRepo,
		sessions:   sessionSource,
		prices:     prices,
		log:        logger.GetDefault().WithComponent("checkout"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) CreateCart(ctx context.Context, req CreateCartRequest) (*CartView, error) {
	cart, err := s.carts.CreateCart(ctx, req.UserID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		return nil, err
	}
	return &CartView{Cart: *cart, Seats: []seats.Seat{}}, nil
}

func (s *service) GetCart(ctx context.Context, cartID uuid.UUID) (*CartView, error) {
	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// ExtendCart moves the cart expiry and carries its live holds along, up to the longest
// hold allowed.
func (s *service) ExtendCart(ctx context.Context, cartID uuid.UUID, req ExtendCartRequest) (*CartView, error) {
	cart, err := s.carts.ExtendCart(ctx, cartID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		return nil, err
	}
	if _, err := s.seats.ExtendHolds(ctx, cartID, cart.ExpiresAt); err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *service) view(ctx context.Context, cart *carts.Cart) (*CartView, error) {
	held, err := s.seats.HeldByCart(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	live := map[uuid.UUID]bool{cart.ID: cart.IsLive(now)}

	v := &CartView{Cart: *cart, Seats: make([]seats.Seat, 0, len(held))}
	for _, seat := range held {
		if seat.HasLiveHold(now, live) {
			v.Seats = append(v.Seats, seat)
		}
	}
	lines, err := s.price(ctx, v.Seats)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		v.TotalCents += line.PriceCents
	}
	return v, nil
}

// price quotes every seat from the rules in force at its session's start.
func (s *service) price(ctx context.Context, held []seats.Seat) ([]QuoteLine, error) {
	sources := make(map[uuid.UUID]*sessions.SeatMapSource)
	lines := make([]QuoteLine, 0, len(held))
	for _, seat := range held {
		source, ok := sources[seat.SessionID]
		if !ok {
			var err error
			if source, err = s.sessions.SeatMapSource(ctx, seat.SessionID); err != nil {
				return nil, err
			}
			sources[seat.SessionID] = source
		}

		res, err := s.prices.Resolve(ctx, source.Pricing, seat.Type, source.Session.StartsAt)
		if err != nil {
			return nil, err
		}
		lines = append(lines, QuoteLine{
			SeatID:     seat.ID,
			SessionID:  seat.SessionID,
			SeatCode:   seat.SeatCode,
			Type:       seat.Type,
			PriceCents: res.PriceCents,
			RuleID:     res.RuleID,
			HeldUntil:  seat.HeldUntil,
		})
	}
	return lines, nil
}

func (s *service) HoldSeats(ctx context.Context, cartID uuid.UUID, req HoldSeatsRequest) (*CartView, error) {
	codes := dedupe(req.Seats)
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", ErrInvalidRequest)
	}

	cart, err := s.carts.RequireLive(ctx, cartID)
	if err != nil {
		return nil, err
	}

	// Seats the cart already held are refreshed but never released by compensation.
	owned := make(map[string]bool)
	held, err := s.seats.HeldByCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	for _, seat := range held {
		if seat.SessionID == req.SessionID {
			owned[seat.SeatCode] = true
		}
	}

	var acquired []string
	for _, code := range codes {
		_, err := s.seats.Hold(ctx, seats.HoldCommand{
			SessionID: req.SessionID,
			SeatCode:  code,
			CartID:    cartID,
			HeldBy:    cart.UserID,
			TTL:       time.Duration(req.TTLSeconds) * time.Second,
		})
		if err != nil {
			s.compensate(ctx, cartID, req.SessionID, acquired)
			return nil, &SeatError{SessionID: req.SessionID, SeatCode: code, Err: err}
		}
		if !owned[code] {
			acquired = append(acquired, code)
		}
	}

	return s.view(ctx, cart)
}

func (s *service) compensate(ctx context.Context, cartID, sessionID uuid.UUID, codes []string) {
	for _, code := range codes {
		if _, err := s.seats.Release(ctx, sessionID, code, cartID); err != nil {
			// The hold lapses on its own; the sweeper or the next reader frees it.
			s.log.ErrorWithContext(ctx, "failed to compensate partial hold", err, map[string]interface{}{
				"cart_id":    cartID.String(),
				"session_id": sessionID.String(),
				"seat_code":  code,
			})
		}
	}
}

func (s *service) ReleaseSeat(ctx context.Context, cartID, sessionID uuid.UUID, seatCode string) (bool, error) {
	if _, err := s.carts.GetCart(ctx, cartID); err != nil {
		return false, err
	}
	return s.seats.Release(ctx, sessionID, seatCode, cartID)
}

func (s *service) CancelCart(ctx context.Context, cartID uuid.UUID) (int, error) {
	if _, err := s.carts.GetCart(ctx, cartID); err != nil {
		return 0, err
	}
	held, err := s.seats.HeldByCart(ctx, cartID)
	if err != nil {
		return 0, err
	}

	released := 0
	var errs []error
	for _, seat := range held {
		ok, err := s.seats.Release(ctx, seat.SessionID, seat.SeatCode, cartID)
		if err != nil {
			errs = append(errs, &SeatError{SessionID: seat.SessionID, SeatCode: seat.SeatCode, Err: err})
			continue
		}
		if ok {
			released++
		}
	}
	if err := s.carts.ExpireCart(ctx, cartID); err != nil {
		errs = append(errs, err)
	}

	s.log.LogCartCancelled(ctx, cartID.String(), released)
	return released, errors.Join(errs...)
}

func (s *service) Quote(ctx context.Context, cartID uuid.UUID) (*Quote, error) {
	cart, err := s.carts.RequireLive(ctx, cartID)
	if err != nil {
		return nil, err
	}
	held, err := s.seats.HeldByCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	live := map[uuid.UUID]bool{cartID: true}
	var holding []seats.Seat
	for _, seat := range held {
		if seat.HasLiveHold(now, live) {
			holding = append(holding, seat)
		}
	}

	lines, err := s.price(ctx, holding)
	if err != nil {
		return nil, err
	}
	q := &Quote{CartID: cartID, ExpiresAt: cart.ExpiresAt, Lines: lines}
	for _, line := range lines {
		q.TotalCents += line.PriceCents
	}
	return q, nil
}

func (s *service) ConfirmCart(ctx context.Context, cartID uuid.UUID, req ConfirmRequest) (*Confirmation, error) {
	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	// Seats sell at the price quoted now. Rules are read before the transaction opens.
	quoted := make(map[uuid.UUID]QuoteLine)
	if cart.IsLive(now) {
		held, err := s.seats.HeldByCart(ctx, cartID)
		if err != nil {
			return nil, err
		}
		lines, err := s.price(ctx, held)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			quoted[line.SeatID] = line
		}
	}

	var sold []seats.Seat
	var issued []tickets.Ticket

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seatRepo := s.seatRepo.WithTx(tx)
		ticketRepo := s.ticketRepo.WithTx(tx)

		held, err := seatRepo.ListHeldByCart(ctx, cartID)
		if err != nil {
			return err
		}
		if len(held) == 0 {
			issued, err = ticketRepo.ListByCart(ctx, cartID)
			if err != nil {
				return err
			}
			if len(issued) == 0 {
				return ErrNothingToConfirm
			}
			// Already confirmed: replaying a payment event lands here.
			return nil
		}

		if !cart.IsLive(now) {
			return carts.ErrCartExpired
		}

		var total int64
		for _, seat := range held {
			line, ok := quoted[seat.ID]
			if !ok {
				return &SeatError{SessionID: seat.SessionID, SeatCode: seat.SeatCode, Err: ErrCartChanged}
			}
			total += line.PriceCents
		}
		if req.AmountCents > 0 && req.AmountCents != total {
			return fmt.Errorf("%w: paid %d, cart total %d", ErrAmountMismatch, req.AmountCents, total)
		}

		for _, seat := range held {
			done, err := seatRepo.Sell(ctx, seats.SellParams{
				SessionID:       seat.SessionID,
				SeatCode:        seat.SeatCode,
				CartID:          cartID,
				Now:             now,
				ExpectedVersion: &seat.Version,
			})
			if err != nil {
				return &SeatError{SessionID: seat.SessionID, SeatCode: seat.SeatCode, Err: err}
			}
			sold = append(sold, *done)
			issued = append(issued, tickets.Ticket{
				SessionID:  done.SessionID,
				SeatID:     done.ID,
				CartID:     cartID,
				SeatCode:   done.SeatCode,
				PriceCents: quoted[seat.ID].PriceCents,
				IssuedAt:   now,
			})
		}
		if err := ticketRepo.CreateBatch(ctx, issued); err != nil {
			return err
		}
		return s.cartRepo.WithTx(tx).Expire(ctx, cartID, now)
	})
	if err != nil {
		return nil, err
	}

	for i := range sold {
		s.seats.Publish(ctx, seats.EventSeatSold, &sold[i], cartID)
	}

	conf := &Confirmation{CartID: cartID, PaymentRef: req.PaymentRef, Tickets: issued}
	for _, t := range issued {
		conf.TotalCents += t.PriceCents
	}
	if len(sold) > 0 {
		s.log.LogCartConfirmed(ctx, cartID.String(), len(sold), conf.TotalCents)
	}
	return conf, nil
}

// HandlePaymentEvent returns an error only for failures worth redelivering. Business
// outcomes such as a lost hold release the rest of the cart and are acknowledged.
func (s *service) HandlePaymentEvent(ctx context.Context, event messaging.PaymentEvent) error {
	switch event.Type {
	case messaging.PaymentSucceeded:
		_, err := s.ConfirmCart(ctx, event.CartID, ConfirmRequest{PaymentRef: event.PaymentID, AmountCents: event.AmountCents})
		if err == nil || errors.Is(err, carts.ErrCartNotFound) || errors.Is(err, ErrNothingToConfirm) {
			return nil
		}
		if isBusinessFailure(err) {
			s.log.ErrorWithContext(ctx, "payment succeeded but cart could not be confirmed", err, map[string]interface{}{
				"cart_id":    event.CartID.String(),
				"payment_id": event.PaymentID,
			})
			_, cancelErr := s.CancelCart(ctx, event.CartID)
			return cancelErr
		}
		return err

	case messaging.PaymentFailed, messaging.PaymentCanceled:
		_, err := s.CancelCart(ctx, event.CartID)
		if errors.Is(err, carts.ErrCartNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func isBusinessFailure(err error) bool {
	return errors.Is(err, seats.ErrHoldNotOwned) ||
		errors.Is(err, seats.ErrSeatAlreadySold) ||
		errors.Is(err, seats.ErrVersionMismatch) ||
		errors.Is(err, seats.ErrSeatNotFound) ||
		errors.Is(err, carts.ErrCartExpired) ||
		errors.Is(err, ErrCartChanged) ||
		errors.Is(err, ErrAmountMismatch)
}

func dedupe(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	// Sorted so carts contending for overlapping seats take them in the same order.
	sort.Strings(out)
	return out
}
