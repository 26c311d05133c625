package sessions

import (
	"context"
	"errors"
	"fmt"

	"cineseat/internal/layouts"
	"cineseat/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var ErrInvalidSession = errors.New("invalid session")

// SeatMaterializer brings a session's seat rows in line with its auditorium layout.
type SeatMaterializer interface {
	MaterializeSession(ctx context.Context, sessionID uuid.UUID) error
}

type Service interface {
	CreateCinema(ctx context.Context, req CreateCinemaRequest) (*Cinema, error)
	CreateAuditorium(ctx context.Context, req CreateAuditoriumRequest) (*Auditorium, error)
	UpdateLayout(ctx context.Context, auditoriumID string, layout layouts.Layout) (*LayoutUpdateResponse, error)

	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, query SessionListQuery) (*SessionListResponse, error)

	// SetMaterializer enables eager seat expansion on session creation and layout change.
	SetMaterializer(m SeatMaterializer)
}

type service struct {
	repo         Repository
	materializer SeatMaterializer
	log          *logger.Logger
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		log:  logger.GetDefault().WithComponent("sessions"),
	}
}

func (s *service) SetMaterializer(m SeatMaterializer) {
	s.materializer = m
}

func (s *service) CreateCinema(ctx context.Context, req CreateCinemaRequest) (*Cinema, error) {
	cinema := &Cinema{Name: req.Name, Timezone: req.Timezone}
	if err := s.repo.CreateCinema(ctx, cinema); err != nil {
		return nil, err
	}
	return cinema, nil
}

func (s *service) CreateAuditorium(ctx context.Context, req CreateAuditoriumRequest) (*Auditorium, error) {
	auditorium := &Auditorium{CinemaID: req.CinemaID, Name: req.Name}
	if req.Layout != nil {
		if err := layouts.Validate(*req.Layout); err != nil {
			return nil, err
		}
		value := datatypes.NewJSONType(*req.Layout)
		auditorium.Layout = &value
	}
	if err := s.repo.CreateAuditorium(ctx, auditorium); err != nil {
		return nil, err
	}
	return auditorium, nil
}

// UpdateLayout validates and stores a new seat map, then reconciles every session of the
// auditorium. Reconciliation failures are reported, not returned, since the layout is saved.
func (s *service) UpdateLayout(ctx context.Context, auditoriumID string, layout layouts.Layout) (*LayoutUpdateResponse, error) {
	id, err := uuid.Parse(auditoriumID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad auditorium id %q", ErrInvalidSession, auditoriumID)
	}
	if err := layouts.Validate(layout); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAuditoriumLayout(ctx, id, layout); err != nil {
		return nil, err
	}

	auditorium, err := s.repo.GetAuditorium(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &LayoutUpdateResponse{Auditorium: auditorium}
	if s.materializer == nil {
		return resp, nil
	}

	sessionIDs, err := s.repo.ListSessionIDsByAuditorium(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, sessionID := range sessionIDs {
		if err := s.materializer.MaterializeSession(ctx, sessionID); err != nil {
			s.log.ErrorWithContext(ctx, "failed to reconcile session after layout change", err, map[string]interface{}{
				"session_id":    sessionID.String(),
				"auditorium_id": id.String(),
			})
			resp.Failed = append(resp.Failed, sessionID.String())
			continue
		}
		resp.Reconciled++
	}
	return resp, nil
}

func (s *service) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	if !req.EndsAt.After(req.StartsAt) {
		return nil, fmt.Errorf("%w: ends_at must be after starts_at", ErrInvalidSession)
	}
	session := &Session{
		AuditoriumID:   req.AuditoriumID,
		MovieTitle:     req.MovieTitle,
		StartsAt:       req.StartsAt.UTC(),
		EndsAt:         req.EndsAt.UTC(),
		BasePriceCents: req.BasePriceCents,
		VIPPriceCents:  req.VIPPriceCents,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	if s.materializer != nil {
		if err := s.materializer.MaterializeSession(ctx, session.ID); err != nil {
			// The session exists; a later reconciliation pass will expand its seats.
			s.log.ErrorWithContext(ctx, "failed to expand seats for new session", err, map[string]interface{}{
				"session_id": session.ID.String(),
			})
		}
	}
	return session, nil
}

func (s *service) GetSession(ctx context.Context, id string) (*Session, error) {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: bad session id %q", ErrInvalidSession, id)
	}
	return s.repo.GetSession(ctx, sessionID)
}

func (s *service) DeleteSession(ctx context.Context, id string) error {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: bad session id %q", ErrInvalidSession, id)
	}
	return s.repo.DeleteSession(ctx, sessionID)
}

func (s *service) ListSessions(ctx context.Context, query SessionListQuery) (*SessionListResponse, error) {
	if query.Limit < 1 {
		query.Limit = 50
	}

	var after *Cursor
	if query.AfterCreatedAt != nil && query.AfterID != "" {
		id, err := uuid.Parse(query.AfterID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad cursor id %q", ErrInvalidSession, query.AfterID)
		}
		after = &Cursor{CreatedAt: query.AfterCreatedAt.UTC(), ID: id}
	}

	sessions, err := s.repo.ListSessions(ctx, after, query.Limit)
	if err != nil {
		return nil, err
	}

	resp := &SessionListResponse{Sessions: sessions}
	if len(sessions) == query.Limit {
		last := sessions[len(sessions)-1]
		resp.Next = &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return resp, nil
}
