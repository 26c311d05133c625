package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cineseat/internal/sessions"
	"cineseat/internal/shared/constants"
	"cineseat/pkg/cache"

	"github.com/google/uuid"
)

var ErrInvalidSessionID = errors.New("invalid session id")

const topSessions = 10

type Service interface {
	SessionOccupancy(ctx context.Context, sessionID string) (*SessionOccupancy, error)
	// Overview is cached for a minute; sales figures may trail by that much.
	Overview(ctx context.Context) (*Overview, error)
}

type service struct {
	repo         Repository
	sessions     sessions.Repository
	cacheService cache.Service
	now          func() time.Time
}

// NewService wires the analytics repository. cacheService may be nil.
func NewService(repo Repository, sessionRepo sessions.Repository, cacheService cache.Service) Service {
	return &service{
		repo:         repo,
		sessions:     sessionRepo,
		cacheService: cacheService,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) SessionOccupancy(ctx context.Context, sessionID string) (*SessionOccupancy, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}
	if _, err := s.sessions.GetSession(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.SessionOccupancy(ctx, id, s.now())
}

func (s *service) Overview(ctx context.Context) (*Overview, error) {
	overview, _, err := cache.GetOrLoad(ctx, s.cacheService, constants.CACHE_KEY_ANALYTICS_OVERVIEW, constants.TTL_ANALYTICS_OVERVIEW,
		func(ctx context.Context) (*Overview, error) {
			return s.repo.Overview(ctx, s.now(), topSessions)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get analytics overview: %w", err)
	}
	return overview, nil
}
