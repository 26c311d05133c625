package reconcile

import (
	"testing"
	"time"

	"cineseat/internal/layouts"
	"cineseat/internal/seats"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 18, 0, 0, 0, time.UTC)

func row(code string, number int, status seats.Status) seats.Seat {
	return seats.Seat{
		ID:         uuid.New(),
		SessionID:  uuid.Nil,
		Row:        code[:1],
		Number:     number,
		SeatCode:   code,
		Type:       layouts.SeatTypeStandard,
		Status:     status,
		PriceCents: 1200,
		Version:    1,
		CreatedAt:  now.Add(-time.Hour),
	}
}

func held(s seats.Seat, cartID uuid.UUID, until time.Time) seats.Seat {
	s.Status = seats.StatusHeld
	s.HeldByCartID = &cartID
	s.HeldUntil = &until
	return s
}

func expectedRow(r string, count int) []layouts.ExpectedSeat {
	out := make([]layouts.ExpectedSeat, 0, count)
	for n := 1; n <= count; n++ {
		out = append(out, layouts.ExpectedSeat{
			Row: r, Number: n, SeatCode: layouts.SeatCode(r, n),
			Type: layouts.SeatTypeStandard, PriceCents: 1200,
		})
	}
	return out
}

func TestCanonicalize(t *testing.T) {
	live := uuid.New()
	gone := uuid.New()
	ticketedID := uuid.New()

	liveHold := held(row("A1", 1, ""), live, now.Add(time.Minute))
	expiredHold := held(row("A2", 2, ""), live, now.Add(-time.Minute))
	lostCart := held(row("A3", 3, ""), gone, now.Add(time.Minute))

	residue := row("A4", 4, seats.StatusAvailable)
	residue.HeldByCartID = &gone
	residue.SoldCartID = &gone

	ticketedAvailable := row("A5", 5, seats.StatusAvailable)
	ticketedAvailable.ID = ticketedID
	ticketedAvailable.SoldCartID = &gone

	soldNoTime := row("A6", 6, seats.StatusSold)
	soldNoTime.HeldByCartID = &live

	unknown := row("A7", 7, "RESERVED")

	facts := Facts{
		Ticketed:  map[uuid.UUID]bool{ticketedID: true},
		LiveCarts: map[uuid.UUID]bool{live: true},
		Now:       now,
	}
	canon := Canonicalize([]seats.Seat{liveHold, expiredHold, lostCart, residue, ticketedAvailable, soldNoTime, unknown}, facts)

	require.Len(t, canon.Rows, 7)
	assert.Equal(t, seats.StatusHeld, canon.Rows[0].Status)
	assert.Equal(t, seats.StatusAvailable, canon.Rows[1].Status)
	assert.Nil(t, canon.Rows[1].HeldByCartID)
	assert.Equal(t, seats.StatusAvailable, canon.Rows[2].Status)
	assert.Nil(t, canon.Rows[3].HeldByCartID)
	assert.Nil(t, canon.Rows[3].SoldCartID)
	assert.NotNil(t, canon.Rows[4].SoldCartID, "ticketed residue is left for an operator")
	require.NotNil(t, canon.Rows[5].SoldAt)
	assert.True(t, canon.Rows[5].SoldAt.Equal(now))
	assert.Nil(t, canon.Rows[5].HeldByCartID)

	var cleared, scrubbed, backfilled int
	for _, fix := range canon.Fixes {
		if fix.HoldCleared {
			cleared++
		}
		if fix.ResidueScrubbed {
			scrubbed++
		}
		if fix.SoldAtBackfilled {
			backfilled++
		}
		assert.Equal(t, int64(1), fix.PriorVersion)
	}
	assert.Equal(t, 2, cleared)
	assert.Equal(t, 2, scrubbed)
	assert.Equal(t, 1, backfilled)

	kinds := map[string]int{}
	for _, a := range canon.Anomalies {
		kinds[a.Kind]++
	}
	assert.Equal(t, map[string]int{AnomalyTicketedNotSold: 1, AnomalyUnknownStatus: 1}, kinds)

	again := Canonicalize(canon.Rows, facts)
	assert.Empty(t, again.Fixes)
	assert.Equal(t, canon.Rows, again.Rows)
}

func TestDiff_InsertsMissingAndKeepsMatching(t *testing.T) {
	session := uuid.New()
	rows := []seats.Seat{row("A1", 1, seats.StatusAvailable), row("A3", 3, seats.StatusAvailable)}

	plan := Diff(session, rows, expectedRow("A", 4), Facts{Now: now})

	require.Len(t, plan.Inserts, 2)
	assert.Equal(t, "A2", plan.Inserts[0].SeatCode)
	assert.Equal(t, "A4", plan.Inserts[1].SeatCode)
	assert.Equal(t, session, plan.Inserts[0].SessionID)
	assert.Equal(t, seats.StatusAvailable, plan.Inserts[0].Status)
	assert.Empty(t, plan.Updates)
	assert.Empty(t, plan.Deletes)
}

func TestDiff_DuplicateKeeperRanking(t *testing.T) {
	cartID := uuid.New()
	facts := Facts{Now: now, LiveCarts: map[uuid.UUID]bool{cartID: true}, Ticketed: map[uuid.UUID]bool{}}

	oldest := row("A1", 1, seats.StatusAvailable)
	oldest.CreatedAt = now.Add(-48 * time.Hour)
	holding := held(row("XA1", 1, ""), cartID, now.Add(time.Minute))
	holding.Row = "A"

	plan := Diff(uuid.New(), []seats.Seat{oldest, holding}, expectedRow("A", 1), facts)

	assert.Equal(t, 1, plan.Duplicates)
	require.Len(t, plan.Deletes, 1)
	assert.Equal(t, oldest.ID, plan.Deletes[0].SeatID, "the actively held row wins over the older one")
	assert.Equal(t, 1, plan.SkippedLocked, "held keeper has the wrong code")

	sold := row("YA1", 1, seats.StatusSold)
	sold.Row = "A"
	plan = Diff(uuid.New(), []seats.Seat{oldest, holding, sold}, expectedRow("A", 1), facts)

	assert.Equal(t, 2, plan.Duplicates)
	assert.ElementsMatch(t, []uuid.UUID{holding.ID}, plan.Protected)
	require.Len(t, plan.Deletes, 1)
	assert.Equal(t, oldest.ID, plan.Deletes[0].SeatID)
}

func TestDiff_TieBreakIsOldestThenLowestID(t *testing.T) {
	a := row("A1", 1, seats.StatusAvailable)
	b := row("ZA1", 1, seats.StatusAvailable)
	b.Row = "A"
	b.CreatedAt = a.CreatedAt

	plan := Diff(uuid.New(), []seats.Seat{a, b}, expectedRow("A", 1), Facts{Now: now})

	loser := a
	if a.ID.String() < b.ID.String() {
		loser = b
	}
	require.Len(t, plan.Deletes, 1)
	assert.Equal(t, loser.ID, plan.Deletes[0].SeatID)
}

func TestDiff_ProtectsExtras(t *testing.T) {
	cartID := uuid.New()
	ticketed := row("Z1", 1, seats.StatusAvailable)
	sold := row("Z2", 2, seats.StatusSold)
	soldResidue := row("Z3", 3, seats.StatusAvailable)
	soldResidue.SoldCartID = &cartID
	holding := held(row("Z4", 4, ""), cartID, now.Add(time.Minute))
	lapsed := held(row("Z5", 5, ""), cartID, now.Add(-time.Minute))
	plain := row("Z6", 6, seats.StatusAvailable)

	facts := Facts{
		Now:       now,
		Ticketed:  map[uuid.UUID]bool{ticketed.ID: true},
		LiveCarts: map[uuid.UUID]bool{cartID: true},
	}
	plan := Diff(uuid.New(), []seats.Seat{ticketed, sold, soldResidue, holding, lapsed, plain}, nil, facts)

	assert.ElementsMatch(t, []uuid.UUID{ticketed.ID, sold.ID, soldResidue.ID, holding.ID}, plan.Protected)
	var deleted []uuid.UUID
	for _, d := range plan.Deletes {
		deleted = append(deleted, d.SeatID)
	}
	assert.ElementsMatch(t, []uuid.UUID{lapsed.ID, plain.ID}, deleted)
	assert.Len(t, plan.Anomalies, 4)
}

func TestDiff_UpdatesAvailableKeeperOnly(t *testing.T) {
	ticketedID := uuid.New()
	cheap := row("A1", 1, seats.StatusAvailable)
	cheap.PriceCents = 900
	sold := row("A2", 2, seats.StatusSold)
	sold.PriceCents = 900
	ticketed := row("A3", 3, seats.StatusAvailable)
	ticketed.ID = ticketedID
	ticketed.Type = layouts.SeatTypeVIP

	facts := Facts{Now: now, Ticketed: map[uuid.UUID]bool{ticketedID: true}}
	plan := Diff(uuid.New(), []seats.Seat{cheap, sold, ticketed}, expectedRow("A", 3), facts)

	require.Len(t, plan.Updates, 1)
	assert.Equal(t, cheap.ID, plan.Updates[0].SeatID)
	assert.Equal(t, int64(1200), plan.Updates[0].PriceCents)
	assert.Equal(t, cheap.Version, plan.Updates[0].Version)
	assert.Equal(t, 2, plan.SkippedLocked)
}

func TestDiff_IdentityConflicts(t *testing.T) {
	// A protected stray row still owns code A2, so the missing A2 cannot be inserted.
	stray := row("A2", 9, seats.StatusSold)
	// The keeper of A1 carries code A3, which the row at A3 also owns.
	misnamed := row("A3", 1, seats.StatusAvailable)
	misnamed.Row = "A"
	owner := row("A3", 3, seats.StatusAvailable)
	owner.SeatCode = "A1"

	plan := Diff(uuid.New(), []seats.Seat{stray, misnamed, owner}, expectedRow("A", 3), Facts{Now: now})

	assert.Equal(t, []uuid.UUID{stray.ID}, plan.Protected)
	assert.Empty(t, plan.Inserts)
	assert.Empty(t, plan.Updates)
	assert.Equal(t, 3, plan.IdentityConflicts)

	conflicts := map[string]uuid.UUID{}
	for _, a := range plan.Anomalies {
		if a.Kind == AnomalyIdentityConflict {
			conflicts[a.SeatCode] = a.SeatID
		}
	}
	assert.Equal(t, map[string]uuid.UUID{"A1": misnamed.ID, "A2": uuid.Nil, "A3": owner.ID}, conflicts)
}

func TestDiff_RenameFreesCodeForInsert(t *testing.T) {
	// The row at A1 carries code A2 and nothing sits at A2.
	misnamed := row("A2", 1, seats.StatusAvailable)

	plan := Diff(uuid.New(), []seats.Seat{misnamed}, expectedRow("A", 2), Facts{Now: now})

	require.Len(t, plan.Updates, 1)
	assert.Equal(t, "A2", plan.Updates[0].FromCode)
	assert.Equal(t, "A1", plan.Updates[0].SeatCode)
	require.Len(t, plan.Inserts, 1)
	assert.Equal(t, "A2", plan.Inserts[0].SeatCode)
	assert.Zero(t, plan.IdentityConflicts)
	assert.Empty(t, plan.Anomalies)
}

func TestDiff_RenameChainSettlesInOrder(t *testing.T) {
	// A1 carries A3 and A2 carries A1: A2 has to give up A1 before A1 can take it.
	first := row("A3", 1, seats.StatusAvailable)
	second := row("A1", 2, seats.StatusAvailable)

	plan := Diff(uuid.New(), []seats.Seat{first, second}, expectedRow("A", 3), Facts{Now: now})

	require.Len(t, plan.Updates, 2)
	assert.Equal(t, second.ID, plan.Updates[0].SeatID)
	assert.Equal(t, "A2", plan.Updates[0].SeatCode)
	assert.Equal(t, first.ID, plan.Updates[1].SeatID)
	assert.Equal(t, "A1", plan.Updates[1].SeatCode)
	require.Len(t, plan.Inserts, 1)
	assert.Equal(t, "A3", plan.Inserts[0].SeatCode)
	assert.Zero(t, plan.IdentityConflicts)
}
