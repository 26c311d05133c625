package seats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cineseat/internal/carts"
	"cineseat/internal/layouts"
	"cineseat/internal/shared/testutil"
	"cineseat/internal/tickets"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var t0 = time.Date(2026, 10, 17, 18, 0, 0, 0, time.UTC)

type ledgerFixture struct {
	db      *gorm.DB
	repo    Repository
	session uuid.UUID
}

func newLedger(t *testing.T) *ledgerFixture {
	db := testutil.NewSQLiteDB(t, &Seat{}, &carts.Cart{}, &tickets.Ticket{})
	return &ledgerFixture{db: db, repo: NewRepository(db), session: uuid.New()}
}

func (f *ledgerFixture) seat(t *testing.T, row string, number int, seatType layouts.SeatType) *Seat {
	t.Helper()
	seat := &Seat{
		SessionID:  f.session,
		Row:        row,
		Number:     number,
		SeatCode:   layouts.SeatCode(row, number),
		Type:       seatType,
		PriceCents: 1200,
	}
	require.NoError(t, f.db.Create(seat).Error)
	return seat
}

func (f *ledgerFixture) cart(t *testing.T, expiresAt time.Time) uuid.UUID {
	t.Helper()
	cart := &carts.Cart{ExpiresAt: expiresAt}
	require.NoError(t, f.db.Create(cart).Error)
	return cart.ID
}

func (f *ledgerFixture) hold(cartID uuid.UUID, code string, now time.Time, ttl time.Duration) (*Seat, error) {
	return f.repo.Hold(context.Background(), HoldParams{
		SessionID: f.session,
		SeatCode:  code,
		CartID:    cartID,
		Until:     now.Add(ttl),
		Now:       now,
	})
}

func (f *ledgerFixture) sell(cartID uuid.UUID, code string, now time.Time) (*Seat, error) {
	return f.repo.Sell(context.Background(), SellParams{SessionID: f.session, SeatCode: code, CartID: cartID, Now: now})
}

func TestHold_AvailableSeatBecomesHeld(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "A", 1, layouts.SeatTypeStandard)
	c1 := f.cart(t, t0.Add(time.Hour))

	seat, err := f.hold(c1, "A1", t0, 10*time.Minute)

	require.NoError(t, err)
	assert.Equal(t, StatusHeld, seat.Status)
	assert.Equal(t, int64(2), seat.Version)
	require.NotNil(t, seat.HeldByCartID)
	assert.Equal(t, c1, *seat.HeldByCartID)
	require.NotNil(t, seat.HeldUntil)
	assert.True(t, seat.HeldUntil.Equal(t0.Add(10*time.Minute)))
	assert.Nil(t, seat.HeldBy)
}

func TestHold_SameCartRefreshesExpiry(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "A", 1, layouts.SeatTypeStandard)
	c1 := f.cart(t, t0.Add(time.Hour))

	_, err := f.hold(c1, "A1", t0, 5*time.Minute)
	require.NoError(t, err)
	seat, err := f.hold(c1, "A1", t0.Add(time.Minute), 10*time.Minute)

	require.NoError(t, err)
	assert.True(t, seat.HeldUntil.Equal(t0.Add(11*time.Minute)))
	assert.Equal(t, int64(3), seat.Version)
}

func TestHold_LiveHoldOfAnotherCartIsUnavailable(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "A", 1, layouts.SeatTypeStandard)
	c1 := f.cart(t, t0.Add(time.Hour))
	c2 := f.cart(t, t0.Add(time.Hour))

	_, err := f.hold(c1, "A1", t0, 10*time.Minute)
	require.NoError(t, err)
	_, err = f.hold(c2, "A1", t0.Add(time.Minute), 10*time.Minute)

	assert.True(t, errors.Is(err, ErrSeatUnavailable))
}

func TestHold_UnknownSeat(t *testing.T) {
	f := newLedger(t)
	c1 := f.cart(t, t0.Add(time.Hour))

	_, err := f.hold(c1, "Z99", t0, time.Minute)

	assert.True(t, errors.Is(err, ErrSeatNotFound))
}

func TestHold_SoldSeatIsUnavailable(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "A", 1, layouts.SeatTypeStandard)
	c1 := f.cart(t, t0.Add(time.Hour))
	c2 := f.cart(t, t0.Add(time.Hour))

	_, err := f.hold(c1, "A1", t0, 10*time.Minute)
	require.NoError(t, err)
	_, err = f.sell(c1, "A1", t0.Add(time.Minute))
	require.NoError(t, err)

	_, err = f.hold(c2, "A1", t0.Add(2*time.Minute), 10*time.Minute)
	assert.True(t, errors.Is(err, ErrSeatUnavailable))
}

func TestExpiredHoldTakeover(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "M", 10, layouts.SeatTypeVIP)
	c1 := f.cart(t, t0.Add(time.Hour))
	c2 := f.cart(t, t0.Add(time.Hour))

	_, err := f.hold(c1, "M10", t0, 10*time.Minute)
	require.NoError(t, err)

	later := t0.Add(11 * time.Minute)
	seat, err := f.hold(c2, "M10", later, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, c2, *seat.HeldByCartID)

	_, err = f.sell(c1, "M10", later)
	assert.True(t, errors.Is(err, ErrHoldNotOwned))

	sold, err := f.sell(c2, "M10", later.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, StatusSold, sold.Status)
	assert.Equal(t, c2, *sold.SoldCartID)
	assert.Nil(t, sold.HeldByCartID)
	assert.Nil(t, sold.HeldUntil)
}

func TestHold_ExpiredCartLosesItsHold(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "B", 2, layouts.SeatTypeStandard)
	shortLived := f.cart(t, t0.Add(2*time.Minute))
	c2 := f.cart(t, t0.Add(time.Hour))

	_, err := f.hold(shortLived, "B2", t0, 10*time.Minute)
	require.NoError(t, err)

	seat, err := f.hold(c2, "B2", t0.Add(3*time.Minute), 10*time.Minute)

	require.NoError(t, err)
	assert.Equal(t, c2, *seat.HeldByCartID)
}

func TestHold_TicketedSeatIsNeverHeld(t *testing.T) {
	f := newLedger(t)
	seat := f.seat(t, "C", 3, layouts.SeatTypeStandard)
	c1 := f.cart(t, t0.Add(time.Hour))
	require.NoError(t, f.db.Create(&tickets.Ticket{
		SessionID: f.session, SeatID: seat.ID, CartID: uuid.New(), SeatCode: "C3", PriceCents: 1200, IssuedAt: t0,
	}).Error)

	_, err := f.hold(c1, "C3", t0, 10*time.Minute)

	assert.True(t, errors.Is(err, ErrSeatUnavailable))
}

func TestHold_ExpectedVersionGuard(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "A", 1, layouts.SeatTypeStandard)
	c1 := f.cart(t, t0.Add(time.Hour))
	stale := int64(7)

	_, err := f.repo.Hold(context.Background(), HoldParams{
		SessionID: f.session, SeatCode: "A1", CartID: c1,
		Until: t0.Add(time.Minute), Now: t0, ExpectedVersion: &stale,
	})
	assert.True(t, errors.Is(err, ErrVersionMismatch))

	current := int64(1)
	seat, err := f.repo.Hold(context.Background(), HoldParams{
		SessionID: f.session, SeatCode: "A1", CartID: c1,
		Until: t0.Add(time.Minute), Now: t0, ExpectedVersion: &current,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), seat.Version)
}

func TestSell_ConcurrentSellsHaveOneWinner(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "D", 4, layouts.SeatTypeStandard)
	c1 := f.cart(t, t0.Add(time.Hour))
	_, err := f.hold(c1, "D4", t0, 10*time.Minute)
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.sell(c1, "D4", t0.Add(time.Minute))
		}(i)
	}
	wg.Wait()

	var won, sold int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSeatAlreadySold):
			sold++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, sold)
}

func TestHold_ConcurrentCartsHaveOneWinner(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "E", 5, layouts.SeatTypeStandard)

	const contenders = 6
	cartIDs := make([]uuid.UUID, contenders)
	for i := range cartIDs {
		cartIDs[i] = f.cart(t, t0.Add(time.Hour))
	}

	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.hold(cartIDs[i], "E5", t0, 10*time.Minute)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.True(t, errors.Is(err, ErrSeatUnavailable), "got %v", err)
	}
	assert.Equal(t, 1, won)
}

func TestRelease(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "F", 1, layouts.SeatTypeStandard)
	f.seat(t, "F", 2, layouts.SeatTypeStandard)
	c1 := f.cart(t, t0.Add(time.Hour))
	c2 := f.cart(t, t0.Add(time.Hour))
	ctx := context.Background()
	release := func(cartID uuid.UUID, code string) (bool, *Seat, error) {
		return f.repo.Release(ctx, ReleaseParams{SessionID: f.session, SeatCode: code, CartID: cartID, Now: t0.Add(time.Minute)})
	}

	_, err := f.hold(c1, "F1", t0, 10*time.Minute)
	require.NoError(t, err)

	t.Run("another cart cannot release", func(t *testing.T) {
		released, seat, err := release(c2, "F1")
		require.NoError(t, err)
		assert.False(t, released)
		assert.Equal(t, StatusHeld, seat.Status)
	})

	t.Run("owner releases", func(t *testing.T) {
		released, seat, err := release(c1, "F1")
		require.NoError(t, err)
		assert.True(t, released)
		assert.Equal(t, StatusAvailable, seat.Status)
		assert.Nil(t, seat.HeldByCartID)
		assert.Nil(t, seat.HeldUntil)
	})

	t.Run("second release is a no-op", func(t *testing.T) {
		released, _, err := release(c1, "F1")
		require.NoError(t, err)
		assert.False(t, released)
	})

	t.Run("sold seat cannot be released", func(t *testing.T) {
		_, err := f.hold(c1, "F2", t0, 10*time.Minute)
		require.NoError(t, err)
		_, err = f.sell(c1, "F2", t0)
		require.NoError(t, err)

		_, _, err = release(c1, "F2")
		assert.True(t, errors.Is(err, ErrSeatAlreadySold))
	})

	t.Run("override ignores the owner", func(t *testing.T) {
		_, err := f.hold(c2, "F1", t0, 10*time.Minute)
		require.NoError(t, err)

		released, seat, err := f.repo.Release(ctx, ReleaseParams{SessionID: f.session, SeatCode: "F1", Override: true, Now: t0})
		require.NoError(t, err)
		assert.True(t, released)
		assert.Equal(t, StatusAvailable, seat.Status)
	})
}

func TestSell_RequiresLiveOwnHold(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "G", 1, layouts.SeatTypeStandard)
	c1 := f.cart(t, t0.Add(time.Hour))

	_, err := f.sell(c1, "G1", t0)
	assert.True(t, errors.Is(err, ErrHoldNotOwned))

	_, err = f.hold(c1, "G1", t0, time.Minute)
	require.NoError(t, err)
	_, err = f.sell(c1, "G1", t0.Add(2*time.Minute))
	assert.True(t, errors.Is(err, ErrHoldNotOwned))
}

func TestSell_RefusesHoldOfExpiredCart(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "G", 2, layouts.SeatTypeStandard)
	c1 := f.cart(t, t0.Add(time.Hour))

	_, err := f.hold(c1, "G2", t0, 30*time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&carts.Cart{}).Where("id = ?", c1).
		Update("expires_at", t0.Add(-time.Minute)).Error)

	_, err = f.sell(c1, "G2", t0.Add(time.Minute))
	assert.True(t, errors.Is(err, ErrHoldNotOwned))

	g2, err := f.repo.GetSeat(context.Background(), f.session, "G2")
	require.NoError(t, err)
	assert.Equal(t, StatusHeld, g2.Status)
	assert.Nil(t, g2.SoldAt)
}

func TestExtendHolds(t *testing.T) {
	f := newLedger(t)
	for n := 1; n <= 3; n++ {
		f.seat(t, "J", n, layouts.SeatTypeStandard)
	}
	mine := f.cart(t, t0.Add(time.Hour))
	other := f.cart(t, t0.Add(time.Hour))

	_, err := f.hold(mine, "J1", t0, time.Minute)
	require.NoError(t, err)
	_, err = f.hold(mine, "J2", t0.Add(-10*time.Minute), time.Minute)
	require.NoError(t, err)
	_, err = f.hold(other, "J3", t0, time.Minute)
	require.NoError(t, err)

	until := t0.Add(20 * time.Minute)
	extended, err := f.repo.ExtendHolds(context.Background(), ExtendParams{CartID: mine, Until: until, Now: t0})
	require.NoError(t, err)
	require.Len(t, extended, 1)
	assert.Equal(t, "J1", extended[0].SeatCode)

	j1, err := f.repo.GetSeat(context.Background(), f.session, "J1")
	require.NoError(t, err)
	assert.True(t, until.Equal(*j1.HeldUntil))
	assert.Equal(t, int64(3), j1.Version)

	j2, err := f.repo.GetSeat(context.Background(), f.session, "J2")
	require.NoError(t, err)
	assert.True(t, j2.HeldUntil.Before(t0), "a lapsed hold is not revived")

	j3, err := f.repo.GetSeat(context.Background(), f.session, "J3")
	require.NoError(t, err)
	assert.True(t, t0.Add(time.Minute).Equal(*j3.HeldUntil))
}

func TestSweepExpired(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "H", 1, layouts.SeatTypeStandard)
	f.seat(t, "H", 2, layouts.SeatTypeStandard)
	c1 := f.cart(t, t0.Add(time.Hour))

	_, err := f.hold(c1, "H1", t0, time.Minute)
	require.NoError(t, err)
	_, err = f.hold(c1, "H2", t0, time.Hour)
	require.NoError(t, err)

	released, err := f.repo.SweepExpired(context.Background(), t0.Add(5*time.Minute), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	h1, err := f.repo.GetSeat(context.Background(), f.session, "H1")
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, h1.Status)
	assert.Nil(t, h1.HeldByCartID)

	h2, err := f.repo.GetSeat(context.Background(), f.session, "H2")
	require.NoError(t, err)
	assert.Equal(t, StatusHeld, h2.Status)
}

func TestListAvailable_TreatsLapsedHoldsAsFree(t *testing.T) {
	f := newLedger(t)
	f.seat(t, "J", 1, layouts.SeatTypeVIP)
	f.seat(t, "J", 2, layouts.SeatTypeVIP)
	f.seat(t, "J", 3, layouts.SeatTypeStandard)
	c1 := f.cart(t, t0.Add(time.Hour))

	_, err := f.hold(c1, "J1", t0, time.Minute)
	require.NoError(t, err)
	_, err = f.hold(c1, "J2", t0, time.Hour)
	require.NoError(t, err)

	vip := layouts.SeatTypeVIP
	seats, err := f.repo.ListAvailable(context.Background(), f.session, &vip, t0.Add(5*time.Minute), 0)

	require.NoError(t, err)
	require.Len(t, seats, 1)
	assert.Equal(t, "J1", seats[0].SeatCode)
}
