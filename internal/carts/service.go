package carts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cineseat/internal/shared/config"

	"github.com/google/uuid"
)

var ErrInvalidCartTTL = errors.New("invalid cart ttl")

type Service interface {
	CreateCart(ctx context.Context, userID *uuid.UUID, ttl time.Duration) (*Cart, error)
	GetCart(ctx context.Context, id uuid.UUID) (*Cart, error)
	// RequireLive returns the cart when it exists and has not expired.
	RequireLive(ctx context.Context, id uuid.UUID) (*Cart, error)
	ExtendCart(ctx context.Context, id uuid.UUID, ttl time.Duration) (*Cart, error)
	ExpireCart(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo       Repository
	defaultTTL time.Duration
	maxTTL     time.Duration
	now        func() time.Time
}

func NewService(repo Repository, cfg *config.Config) Service {
	return &service{
		repo:       repo,
		defaultTTL: cfg.Hold.CartTTL,
		maxTTL:     cfg.Hold.MaxCartTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) resolveTTL(ttl time.Duration) (time.Duration, error) {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if ttl <= 0 || ttl > s.maxTTL {
		return 0, fmt.Errorf("%w: %s not in (0, %s]", ErrInvalidCartTTL, ttl, s.maxTTL)
	}
	return ttl, nil
}

func (s *service) CreateCart(ctx context.Context, userID *uuid.UUID, ttl time.Duration) (*Cart, error) {
	ttl, err := s.resolveTTL(ttl)
	if err != nil {
		return nil, err
	}
	cart := &Cart{UserID: userID, ExpiresAt: s.now().Add(ttl)}
	if err := s.repo.Create(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) GetCart(ctx context.Context, id uuid.UUID) (*Cart, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) RequireLive(ctx context.Context, id uuid.UUID) (*Cart, error) {
	cart, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cart.IsLive(s.now()) {
		return nil, ErrCartExpired
	}
	return cart, nil
}

// ExtendCart pushes the expiry to now+ttl. Expiry never moves backwards and an expired
// cart cannot be revived.
func (s *service) ExtendCart(ctx context.Context, id uuid.UUID, ttl time.Duration) (*Cart, error) {
	ttl, err := s.resolveTTL(ttl)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if _, err := s.repo.ExtendTo(ctx, id, now.Add(ttl), now); err != nil {
		return nil, err
	}

	cart, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cart.IsLive(now) {
		return nil, ErrCartExpired
	}
	return cart, nil
}

func (s *service) ExpireCart(ctx context.Context, id uuid.UUID) error {
	return s.repo.Expire(ctx, id, s.now())
}
