package reconcile

import (
	"sort"
	"time"

	"cineseat/internal/layouts"
	"cineseat/internal/seats"

	"github.com/google/uuid"
)

const (
	AnomalyTicketedNotSold  = "TICKETED_NOT_SOLD"
	AnomalyUnknownStatus    = "UNKNOWN_STATUS"
	AnomalyProtectedExtra   = "PROTECTED_EXTRA"
	AnomalyIdentityConflict = "IDENTITY_CONFLICT"
)

type Anomaly struct {
	SeatID   uuid.UUID `json:"seat_id"`
	SeatCode string    `json:"seat_code"`
	Kind     string    `json:"kind"`
	Detail   string    `json:"detail,omitempty"`
}

// Facts is what canonicalization and diffing need besides the rows themselves.
type Facts struct {
	Ticketed  map[uuid.UUID]bool
	LiveCarts map[uuid.UUID]bool
	Now       time.Time
}

func (f Facts) activeHold(s *seats.Seat) bool {
	return s.HasLiveHold(f.Now, f.LiveCarts)
}

// Fix is one canonicalization rewrite, applied guarded by the prior version.
type Fix struct {
	Seat             seats.Seat
	PriorVersion     int64
	HoldCleared      bool
	ResidueScrubbed  bool
	SoldAtBackfilled bool
}

type Canonical struct {
	Rows      []seats.Seat
	Fixes     []Fix
	Anomalies []Anomaly
}

// Canonicalize returns the rows as they should be stored, without touching layout
// structure. Running it on its own output yields no fixes.
func Canonicalize(rows []seats.Seat, facts Facts) Canonical {
	out := Canonical{Rows: make([]seats.Seat, 0, len(rows))}
	for _, row := range rows {
		fixed, fix, anomaly := canonicalizeRow(row, facts)
		out.Rows = append(out.Rows, fixed)
		if fix != nil {
			out.Fixes = append(out.Fixes, *fix)
		}
		if anomaly != nil {
			out.Anomalies = append(out.Anomalies, *anomaly)
		}
	}
	return out
}

func canonicalizeRow(s seats.Seat, facts Facts) (seats.Seat, *Fix, *Anomaly) {
	fix := Fix{PriorVersion: s.Version}
	ticketed := facts.Ticketed[s.ID]
	var anomaly *Anomaly

	switch s.Status {
	case seats.StatusHeld:
		if !facts.activeHold(&s) {
			s.Status = seats.StatusAvailable
			clearHold(&s)
			fix.HoldCleared = true
		}
	case seats.StatusAvailable, seats.StatusSold:
	default:
		return s, nil, &Anomaly{SeatID: s.ID, SeatCode: s.SeatCode, Kind: AnomalyUnknownStatus, Detail: string(s.Status)}
	}

	switch s.Status {
	case seats.StatusAvailable:
		if hasHoldResidue(&s) {
			clearHold(&s)
			fix.ResidueScrubbed = true
		}
		if ticketed {
			anomaly = &Anomaly{SeatID: s.ID, SeatCode: s.SeatCode, Kind: AnomalyTicketedNotSold, Detail: "ticketed seat is AVAILABLE"}
		} else if hasSaleResidue(&s) {
			clearSale(&s)
			fix.ResidueScrubbed = true
		}
	case seats.StatusHeld:
		if ticketed {
			anomaly = &Anomaly{SeatID: s.ID, SeatCode: s.SeatCode, Kind: AnomalyTicketedNotSold, Detail: "ticketed seat is HELD"}
		} else if hasSaleResidue(&s) {
			clearSale(&s)
			fix.ResidueScrubbed = true
		}
	case seats.StatusSold:
		if s.SoldAt == nil {
			now := facts.Now
			s.SoldAt = &now
			fix.SoldAtBackfilled = true
		}
		if hasHoldResidue(&s) {
			clearHold(&s)
			fix.ResidueScrubbed = true
		}
	}

	if !fix.HoldCleared && !fix.ResidueScrubbed && !fix.SoldAtBackfilled {
		return s, nil, anomaly
	}
	fix.Seat = s
	return s, &fix, anomaly
}

func hasHoldResidue(s *seats.Seat) bool {
	return s.HeldUntil != nil || s.HeldBy != nil || s.HeldByCartID != nil
}

func hasSaleResidue(s *seats.Seat) bool {
	return s.SoldAt != nil || s.SoldCartID != nil
}

func clearHold(s *seats.Seat) {
	s.HeldUntil = nil
	s.HeldBy = nil
	s.HeldByCartID = nil
}

func clearSale(s *seats.Seat) {
	s.SoldAt = nil
	s.SoldCartID = nil
}

// Update rewrites the metadata of an AVAILABLE keeper row.
type Update struct {
	SeatID     uuid.UUID
	Version    int64
	FromCode   string
	SeatCode   string
	Type       layouts.SeatType
	PriceCents int64
}

type Delete struct {
	SeatID   uuid.UUID
	Version  int64
	SeatCode string
}

type Plan struct {
	Inserts           []seats.Seat
	Updates           []Update
	Deletes           []Delete
	Protected         []uuid.UUID
	Duplicates        int
	IdentityConflicts int
	SkippedLocked     int
	Anomalies         []Anomaly
}

// Diff compares canonical rows against the expected seats of the layout.
func Diff(sessionID uuid.UUID, rows []seats.Seat, expected []layouts.ExpectedSeat, facts Facts) Plan {
	var plan Plan

	byCoord := make(map[layouts.Coordinate][]*seats.Seat)
	for i := range rows {
		c := rows[i].Coordinate()
		byCoord[c] = append(byCoord[c], &rows[i])
	}
	want := make(map[layouts.Coordinate]layouts.ExpectedSeat, len(expected))
	for _, e := range expected {
		want[e.Coordinate()] = e
	}

	keepers := make(map[layouts.Coordinate]*seats.Seat)
	var extras []*seats.Seat
	for _, c := range sortedCoords(byCoord) {
		group := byCoord[c]
		if _, ok := want[c]; !ok {
			extras = append(extras, group...)
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return keeperBefore(group[i], group[j], facts) })
		keepers[c] = group[0]
		if len(group) > 1 {
			plan.Duplicates += len(group) - 1
			extras = append(extras, group[1:]...)
		}
	}

	// Every row that will still exist after deletes owns its current code.
	owner := make(map[string]uuid.UUID, len(rows))
	for _, k := range keepers {
		owner[k.SeatCode] = k.ID
	}
	for _, x := range extras {
		if isProtected(x, facts) {
			plan.Protected = append(plan.Protected, x.ID)
			owner[x.SeatCode] = x.ID
			plan.Anomalies = append(plan.Anomalies, Anomaly{SeatID: x.ID, SeatCode: x.SeatCode, Kind: AnomalyProtectedExtra, Detail: string(x.Status)})
			continue
		}
		plan.Deletes = append(plan.Deletes, Delete{SeatID: x.ID, Version: x.Version, SeatCode: x.SeatCode})
	}

	// Metadata rewrites come first. A rename waits while another surviving row holds its
	// target code and is retried each time a rename frees one, so chains settle in one pass.
	var renames []Update
	for _, e := range expected {
		keeper, ok := keepers[e.Coordinate()]
		if !ok {
			continue
		}
		if keeper.SeatCode == e.SeatCode && keeper.Type == e.Type && keeper.PriceCents == e.PriceCents {
			continue
		}
		if keeper.Status != seats.StatusAvailable || facts.Ticketed[keeper.ID] {
			plan.SkippedLocked++
			continue
		}
		u := Update{
			SeatID:     keeper.ID,
			Version:    keeper.Version,
			FromCode:   keeper.SeatCode,
			SeatCode:   e.SeatCode,
			Type:       e.Type,
			PriceCents: e.PriceCents,
		}
		if u.FromCode != u.SeatCode {
			renames = append(renames, u)
			continue
		}
		plan.Updates = append(plan.Updates, u)
	}

	for progress := true; progress && len(renames) > 0; {
		progress = false
		waiting := renames[:0]
		for _, u := range renames {
			if _, taken := owner[u.SeatCode]; taken {
				waiting = append(waiting, u)
				continue
			}
			if owner[u.FromCode] == u.SeatID {
				delete(owner, u.FromCode)
			}
			owner[u.SeatCode] = u.SeatID
			plan.Updates = append(plan.Updates, u)
			progress = true
		}
		renames = waiting
	}
	for _, u := range renames {
		plan.IdentityConflicts++
		plan.Anomalies = append(plan.Anomalies, identityConflict(u.SeatID, u.SeatCode, owner[u.SeatCode]))
	}

	for _, e := range expected {
		if _, ok := keepers[e.Coordinate()]; ok {
			continue
		}
		if id, taken := owner[e.SeatCode]; taken {
			plan.IdentityConflicts++
			plan.Anomalies = append(plan.Anomalies, identityConflict(uuid.Nil, e.SeatCode, id))
			continue
		}
		plan.Inserts = append(plan.Inserts, seats.Seat{
			SessionID:  sessionID,
			Row:        e.Row,
			Number:     e.Number,
			SeatCode:   e.SeatCode,
			Type:       e.Type,
			Status:     seats.StatusAvailable,
			PriceCents: e.PriceCents,
			Version:    1,
		})
		owner[e.SeatCode] = uuid.Nil
	}
	return plan
}

// identityConflict records that seatID (uuid.Nil for a seat still to be inserted) could
// not take code because the row ownerID keeps it.
func identityConflict(seatID uuid.UUID, code string, ownerID uuid.UUID) Anomaly {
	return Anomaly{SeatID: seatID, SeatCode: code, Kind: AnomalyIdentityConflict, Detail: "code kept by seat " + ownerID.String()}
}

// keeperBefore ranks duplicates: SOLD, then ticketed, then actively held, then the
// oldest row, then the lowest id.
func keeperBefore(a, b *seats.Seat, facts Facts) bool {
	if as, bs := a.Status == seats.StatusSold, b.Status == seats.StatusSold; as != bs {
		return as
	}
	if at, bt := facts.Ticketed[a.ID], facts.Ticketed[b.ID]; at != bt {
		return at
	}
	if ah, bh := facts.activeHold(a), facts.activeHold(b); ah != bh {
		return ah
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func isProtected(s *seats.Seat, facts Facts) bool {
	return facts.Ticketed[s.ID] ||
		s.Status == seats.StatusSold ||
		s.SoldCartID != nil ||
		facts.activeHold(s)
}

func sortedCoords(m map[layouts.Coordinate][]*seats.Seat) []layouts.Coordinate {
	coords := make([]layouts.Coordinate, 0, len(m))
	for c := range m {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Row != coords[j].Row {
			return coords[i].Row < coords[j].Row
		}
		return coords[i].Number < coords[j].Number
	})
	return coords
}
