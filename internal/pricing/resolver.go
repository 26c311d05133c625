package pricing

import (
	"slices"
	"time"

	"cineseat/internal/layouts"
)

// Resolve picks the effective price for a seat of seatType in the given session at instant at.
// Day of week and minute of day are taken in loc (UTC when nil). The rules slice is not modified.
func Resolve(rules []PriceRule, sc SessionContext, seatType layouts.SeatType, at time.Time, loc *time.Location) Resolution {
	if loc == nil {
		loc = time.UTC
	}
	local := at.In(loc)
	weekday := int(local.Weekday())
	minute := local.Hour()*60 + local.Minute()

	var candidates []PriceRule
	for _, r := range rules {
		if r.IsActive && r.scopeMatches(sc) && r.dayMatches(weekday) && r.windowMatches(minute) {
			candidates = append(candidates, r)
		}
	}

	if len(candidates) == 0 {
		return Resolution{PriceCents: fallbackPrice(sc, seatType)}
	}

	best := slices.MinFunc(candidates, compareRules)
	id := best.ID
	return Resolution{PriceCents: best.PriceCents, RuleID: &id}
}

// compareRules orders by priority desc, then updated_at desc, then id asc.
func compareRules(a, b PriceRule) int {
	if a.Priority != b.Priority {
		if a.Priority > b.Priority {
			return -1
		}
		return 1
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		if a.UpdatedAt.After(b.UpdatedAt) {
			return -1
		}
		return 1
	}
	switch as, bs := a.ID.String(), b.ID.String(); {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func (r PriceRule) scopeMatches(sc SessionContext) bool {
	switch {
	case r.SessionID != nil:
		return *r.SessionID == sc.SessionID
	case r.AuditoriumID != nil:
		return *r.AuditoriumID == sc.AuditoriumID
	case r.CinemaID != nil:
		return *r.CinemaID == sc.CinemaID
	}
	return true
}

func (r PriceRule) dayMatches(weekday int) bool {
	if len(r.DaysOfWeek) == 0 {
		return true
	}
	return slices.Contains([]int(r.DaysOfWeek), weekday)
}

func (r PriceRule) windowMatches(minute int) bool {
	if r.StartMinute == nil && r.EndMinute == nil {
		return true
	}
	if !r.HasValidWindow() {
		return false
	}
	return minute >= *r.StartMinute && minute <= *r.EndMinute
}

// HasValidWindow reports whether the minute window is either absent or fully and
// consistently set. Rules failing this never match.
func (r PriceRule) HasValidWindow() bool {
	if r.StartMinute == nil && r.EndMinute == nil {
		return true
	}
	if r.StartMinute == nil || r.EndMinute == nil {
		return false
	}
	start, end := *r.StartMinute, *r.EndMinute
	return start >= 0 && end < minutesPerDay && start <= end
}

func fallbackPrice(sc SessionContext, seatType layouts.SeatType) int64 {
	if seatType.UsesVIPPrice() {
		return sc.VIPPriceCents
	}
	return sc.BasePriceCents
}
