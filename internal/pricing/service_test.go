package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"cineseat/internal/layouts"
	"cineseat/internal/shared/config"
	"cineseat/internal/shared/constants"
	"cineseat/internal/shared/testutil"
	"cineseat/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockCache) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *mockCache) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newTestService(t *testing.T, c cache.Service) (Service, Repository) {
	db := testutil.NewSQLiteDB(t, &PriceRule{})
	repo := NewRepository(db)
	cfg := &config.Config{Pricing: config.PricingConfig{Timezone: "UTC", CacheTTL: time.Minute}}
	return NewService(repo, c, cfg), repo
}

func TestService_CreateAndResolve(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, CreateRuleRequest{Name: "cinema", Priority: 5, CinemaID: ptr(cinemaC), PriceCents: 2500})
	require.NoError(t, err)
	_, err = svc.CreateRule(ctx, CreateRuleRequest{Name: "saturday", Priority: 10, AuditoriumID: ptr(auditoriumA), DaysOfWeek: []int{6}, PriceCents: 3000})
	require.NoError(t, err)

	res, err := svc.Resolve(ctx, ctxA(), layouts.SeatTypeStandard, saturdayEvening)

	require.NoError(t, err)
	assert.Equal(t, int64(3000), res.PriceCents)
}

func TestService_RejectsHalfWindow(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.CreateRule(context.Background(), CreateRuleRequest{StartMinute: ptr(10), PriceCents: 100})

	assert.True(t, errors.Is(err, ErrInvalidRule))
}

func TestService_InactiveRuleIsIgnored(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, CreateRuleRequest{Priority: 10, IsActive: ptr(false), PriceCents: 5})
	require.NoError(t, err)

	res, err := svc.Resolve(ctx, ctxA(), layouts.SeatTypeVIP, saturdayEvening)

	require.NoError(t, err)
	assert.Equal(t, int64(1800), res.PriceCents)
}

func TestService_UpdateClearsScopeAndDeleteRemoves(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	rule, err := svc.CreateRule(ctx, CreateRuleRequest{Priority: 1, AuditoriumID: ptr(otherAud), PriceCents: 999})
	require.NoError(t, err)

	res, err := svc.Resolve(ctx, ctxA(), layouts.SeatTypeStandard, saturdayEvening)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), res.PriceCents)

	_, err = svc.UpdateRule(ctx, rule.ID.String(), UpdateRuleRequest{Priority: 1, PriceCents: 999})
	require.NoError(t, err)

	res, err = svc.Resolve(ctx, ctxA(), layouts.SeatTypeStandard, saturdayEvening)
	require.NoError(t, err)
	assert.Equal(t, int64(999), res.PriceCents)

	require.NoError(t, svc.DeleteRule(ctx, rule.ID.String()))
	_, err = svc.GetRule(ctx, rule.ID.String())
	assert.True(t, errors.Is(err, ErrRuleNotFound))
}

func TestService_CacheMissLoadsAndWritesBack(t *testing.T) {
	c := new(mockCache)
	c.On("Delete", mock.Anything, []string{constants.CACHE_KEY_ACTIVE_PRICE_RULES}).Return(nil)
	c.On("Get", mock.Anything, constants.CACHE_KEY_ACTIVE_PRICE_RULES, mock.Anything).Return(cache.ErrCacheMiss)
	c.On("Set", mock.Anything, constants.CACHE_KEY_ACTIVE_PRICE_RULES, mock.Anything, time.Minute).Return(nil)

	svc, _ := newTestService(t, c)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, CreateRuleRequest{Priority: 1, PriceCents: 1400})
	require.NoError(t, err)

	rules, err := svc.ActiveRules(ctx)

	require.NoError(t, err)
	assert.Len(t, rules, 1)
	c.AssertCalled(t, "Delete", mock.Anything, []string{constants.CACHE_KEY_ACTIVE_PRICE_RULES})
	c.AssertCalled(t, "Set", mock.Anything, constants.CACHE_KEY_ACTIVE_PRICE_RULES, mock.Anything, time.Minute)
}

func TestService_CacheHitSkipsDatabase(t *testing.T) {
	c := new(mockCache)
	c.On("Get", mock.Anything, constants.CACHE_KEY_ACTIVE_PRICE_RULES, mock.Anything).
		Run(func(args mock.Arguments) {
			dest := args.Get(2).(*[]PriceRule)
			*dest = []PriceRule{{Priority: 1, IsActive: true, PriceCents: 4242}}
		}).
		Return(nil)

	svc, _ := newTestService(t, c)

	res, err := svc.Resolve(context.Background(), ctxA(), layouts.SeatTypeStandard, saturdayEvening)

	require.NoError(t, err)
	assert.Equal(t, int64(4242), res.PriceCents)
	c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
