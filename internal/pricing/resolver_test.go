package pricing

import (
	"testing"
	"time"

	"cineseat/internal/layouts"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cinemaC     = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	auditoriumA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	otherAud    = uuid.MustParse("00000000-0000-0000-0000-0000000000ff")
	sessionS    = uuid.MustParse("00000000-0000-0000-0000-000000000005")

	// Saturday 17 October 2026, 20:30 UTC
	saturdayEvening = time.Date(2026, 10, 17, 20, 30, 0, 0, time.UTC)
)

func ctxA() SessionContext {
	return SessionContext{
		CinemaID:       cinemaC,
		AuditoriumID:   auditoriumA,
		SessionID:      sessionS,
		BasePriceCents: 1200,
		VIPPriceCents:  1800,
	}
}

func ptr[T any](v T) *T { return &v }

func TestResolve_AuditoriumSaturdayRuleBeatsCinemaRule(t *testing.T) {
	rules := []PriceRule{
		{ID: uuid.New(), Priority: 5, IsActive: true, CinemaID: ptr(cinemaC), PriceCents: 2500},
		{ID: uuid.New(), Priority: 10, IsActive: true, AuditoriumID: ptr(auditoriumA), DaysOfWeek: []int{6}, PriceCents: 3000},
	}

	res := Resolve(rules, ctxA(), layouts.SeatTypeStandard, saturdayEvening, time.UTC)

	assert.Equal(t, int64(3000), res.PriceCents)
	require.NotNil(t, res.RuleID)
	assert.Equal(t, rules[1].ID, *res.RuleID)
}

func TestResolve_FallsBackToSessionPriceByType(t *testing.T) {
	rules := []PriceRule{
		{ID: uuid.New(), Priority: 1, IsActive: false, PriceCents: 1},
		{ID: uuid.New(), Priority: 1, IsActive: true, AuditoriumID: ptr(otherAud), PriceCents: 2},
		{ID: uuid.New(), Priority: 1, IsActive: true, DaysOfWeek: []int{0, 1}, PriceCents: 3},
	}

	std := Resolve(rules, ctxA(), layouts.SeatTypeStandard, saturdayEvening, nil)
	vip := Resolve(rules, ctxA(), layouts.SeatTypeVIP, saturdayEvening, nil)
	premium := Resolve(rules, ctxA(), layouts.SeatTypePremium, saturdayEvening, nil)
	wheelchair := Resolve(rules, ctxA(), layouts.SeatTypeWheelchair, saturdayEvening, nil)

	assert.Equal(t, int64(1200), std.PriceCents)
	assert.Nil(t, std.RuleID)
	assert.Equal(t, int64(1800), vip.PriceCents)
	assert.Equal(t, int64(1800), premium.PriceCents)
	assert.Equal(t, int64(1200), wheelchair.PriceCents)
}

func TestResolve_MostSpecificScopeConstrains(t *testing.T) {
	// Session scope set to another session: the matching cinema id must not rescue it.
	otherSession := uuid.New()
	rules := []PriceRule{
		{ID: uuid.New(), Priority: 99, IsActive: true, CinemaID: ptr(cinemaC), SessionID: ptr(otherSession), PriceCents: 100},
		{ID: uuid.New(), Priority: 1, IsActive: true, PriceCents: 1500},
	}

	res := Resolve(rules, ctxA(), layouts.SeatTypeStandard, saturdayEvening, nil)

	assert.Equal(t, int64(1500), res.PriceCents)
}

func TestResolve_MinuteWindow(t *testing.T) {
	evening := PriceRule{ID: uuid.New(), Priority: 10, IsActive: true, StartMinute: ptr(18 * 60), EndMinute: ptr(21 * 60), PriceCents: 2000}
	halfOpenStart := PriceRule{ID: uuid.New(), Priority: 50, IsActive: true, StartMinute: ptr(0), PriceCents: 1}
	halfOpenEnd := PriceRule{ID: uuid.New(), Priority: 50, IsActive: true, EndMinute: ptr(1439), PriceCents: 2}
	inverted := PriceRule{ID: uuid.New(), Priority: 50, IsActive: true, StartMinute: ptr(600), EndMinute: ptr(500), PriceCents: 3}
	rules := []PriceRule{evening, halfOpenStart, halfOpenEnd, inverted}

	inside := Resolve(rules, ctxA(), layouts.SeatTypeStandard, saturdayEvening, nil)
	boundary := Resolve(rules, ctxA(), layouts.SeatTypeStandard, time.Date(2026, 10, 17, 21, 0, 0, 0, time.UTC), nil)
	outside := Resolve(rules, ctxA(), layouts.SeatTypeStandard, time.Date(2026, 10, 17, 21, 1, 0, 0, time.UTC), nil)

	assert.Equal(t, int64(2000), inside.PriceCents)
	assert.Equal(t, int64(2000), boundary.PriceCents)
	assert.Equal(t, int64(1200), outside.PriceCents)
}

func TestResolve_TieBreaksOnUpdatedAtThenID(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	byUpdate := []PriceRule{
		{ID: low, Priority: 3, IsActive: true, PriceCents: 1000, UpdatedAt: older},
		{ID: high, Priority: 3, IsActive: true, PriceCents: 1100, UpdatedAt: newer},
	}
	assert.Equal(t, int64(1100), Resolve(byUpdate, ctxA(), layouts.SeatTypeStandard, saturdayEvening, nil).PriceCents)

	byID := []PriceRule{
		{ID: high, Priority: 3, IsActive: true, PriceCents: 1100, UpdatedAt: older},
		{ID: low, Priority: 3, IsActive: true, PriceCents: 1000, UpdatedAt: older},
	}
	assert.Equal(t, int64(1000), Resolve(byID, ctxA(), layouts.SeatTypeStandard, saturdayEvening, nil).PriceCents)
}

func TestResolve_IsDeterministicAndDoesNotReorderInput(t *testing.T) {
	rules := []PriceRule{
		{ID: uuid.New(), Priority: 1, IsActive: true, PriceCents: 900},
		{ID: uuid.New(), Priority: 7, IsActive: true, CinemaID: ptr(cinemaC), PriceCents: 1900},
		{ID: uuid.New(), Priority: 7, IsActive: true, SessionID: ptr(sessionS), DaysOfWeek: []int{6}, PriceCents: 2100},
	}
	snapshot := append([]PriceRule(nil), rules...)

	first := Resolve(rules, ctxA(), layouts.SeatTypeStandard, saturdayEvening, nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Resolve(rules, ctxA(), layouts.SeatTypeStandard, saturdayEvening, nil))
	}
	assert.Equal(t, snapshot, rules)
}

func TestResolve_UsesLocationForDayAndMinute(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	// 20:30 UTC Saturday is 01:30 Sunday at UTC+5
	sunday := PriceRule{ID: uuid.New(), Priority: 1, IsActive: true, DaysOfWeek: []int{0}, PriceCents: 700}

	assert.Equal(t, int64(700), Resolve([]PriceRule{sunday}, ctxA(), layouts.SeatTypeStandard, saturdayEvening, loc).PriceCents)
	assert.Equal(t, int64(1200), Resolve([]PriceRule{sunday}, ctxA(), layouts.SeatTypeStandard, saturdayEvening, time.UTC).PriceCents)
}
