package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cineseat/internal/layouts"
	"cineseat/internal/shared/config"
	"cineseat/internal/shared/constants"
	"cineseat/pkg/cache"
	"cineseat/pkg/logger"

	"github.com/google/uuid"
)

var ErrInvalidRule = errors.New("invalid price rule")

type Service interface {
	// Rule administration
	CreateRule(ctx context.Context, req CreateRuleRequest) (*PriceRule, error)
	GetRule(ctx context.Context, id string) (*PriceRule, error)
	UpdateRule(ctx context.Context, id string, req UpdateRuleRequest) (*PriceRule, error)
	DeleteRule(ctx context.Context, id string) error
	ListRules(ctx context.Context, query RuleListQuery) (*RuleListResponse, error)

	// Resolution
	ActiveRules(ctx context.Context) ([]PriceRule, error)
	Resolve(ctx context.Context, sc SessionContext, seatType layouts.SeatType, at time.Time) (Resolution, error)
}

type service struct {
	repo     Repository
	cache    cache.Service
	location *time.Location
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewService wires the rule repository with an optional Redis snapshot cache.
// cacheService may be nil.
func NewService(repo Repository, cacheService cache.Service, cfg *config.Config) Service {
	return &service{
		repo:     repo,
		cache:    cacheService,
		location: cfg.Pricing.Location(),
		cacheTTL: cfg.Pricing.CacheTTL,
		log:      logger.GetDefault().WithComponent("pricing"),
	}
}

func (s *service) CreateRule(ctx context.Context, req CreateRuleRequest) (*PriceRule, error) {
	rule := &PriceRule{}
	if err := applyRequest(rule, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return rule, nil
}

func (s *service) GetRule(ctx context.Context, id string) (*PriceRule, error) {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q", ErrInvalidRule, id)
	}
	return s.repo.GetByID(ctx, ruleID)
}

func (s *service) UpdateRule(ctx context.Context, id string, req UpdateRuleRequest) (*PriceRule, error) {
	rule, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyRequest(rule, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return rule, nil
}

func (s *service) DeleteRule(ctx context.Context, id string) error {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: bad id %q", ErrInvalidRule, id)
	}
	if err := s.repo.Delete(ctx, ruleID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) ListRules(ctx context.Context, query RuleListQuery) (*RuleListResponse, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = 50
	}
	rules, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return &RuleListResponse{Rules: rules, Total: total, Page: query.Page, Limit: query.Limit}, nil
}

// ActiveRules returns the snapshot of active rules, from Redis when it is warm.
func (s *service) ActiveRules(ctx context.Context) ([]PriceRule, error) {
	rules, _, err := cache.GetOrLoad(ctx, s.cache, constants.CACHE_KEY_ACTIVE_PRICE_RULES, s.cacheTTL, s.repo.ListActive)
	if err != nil {
		return nil, fmt.Errorf("failed to load active price rules: %w", err)
	}
	return rules, nil
}

func (s *service) Resolve(ctx context.Context, sc SessionContext, seatType layouts.SeatType, at time.Time) (Resolution, error) {
	rules, err := s.ActiveRules(ctx)
	if err != nil {
		return Resolution{}, err
	}
	return Resolve(rules, sc, seatType, at, s.location), nil
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, constants.CACHE_KEY_ACTIVE_PRICE_RULES); err != nil {
		s.log.WithError(err).WarnContext(ctx, "failed to invalidate price rule cache")
	}
}

func applyRequest(rule *PriceRule, req CreateRuleRequest) error {
	if (req.StartMinute == nil) != (req.EndMinute == nil) {
		return fmt.Errorf("%w: start_minute and end_minute must be set together", ErrInvalidRule)
	}
	if req.StartMinute != nil && *req.StartMinute > *req.EndMinute {
		return fmt.Errorf("%w: start_minute must not be after end_minute", ErrInvalidRule)
	}
	for _, d := range req.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: day of week %d out of range", ErrInvalidRule, d)
		}
	}
	if req.PriceCents < 0 {
		return fmt.Errorf("%w: negative price", ErrInvalidRule)
	}

	rule.Name = req.Name
	rule.Priority = req.Priority
	rule.IsActive = req.IsActive == nil || *req.IsActive
	rule.CinemaID = req.CinemaID
	rule.AuditoriumID = req.AuditoriumID
	rule.SessionID = req.SessionID
	rule.DaysOfWeek = req.DaysOfWeek
	rule.StartMinute = req.StartMinute
	rule.EndMinute = req.EndMinute
	rule.PriceCents = req.PriceCents
	return nil
}
