package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cineseat/internal/layouts"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrCinemaNotFound     = errors.New("cinema not found")
	ErrAuditoriumNotFound = errors.New("auditorium not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionHasTickets  = errors.New("session has issued tickets")
)

// Cursor is a keyset position in creation order.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uuid.UUID `json:"id"`
}

type Repository interface {
	CreateCinema(ctx context.Context, cinema *Cinema) error
	CreateAuditorium(ctx context.Context, auditorium *Auditorium) error
	GetAuditorium(ctx context.Context, id uuid.UUID) (*Auditorium, error)
	UpdateAuditoriumLayout(ctx context.Context, id uuid.UUID, layout layouts.Layout) error

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	ListSessions(ctx context.Context, after *Cursor, limit int) ([]Session, error)
	ListSessionIDsByAuditorium(ctx context.Context, auditoriumID uuid.UUID) ([]uuid.UUID, error)

	// SeatMapSource loads a session with its auditorium layout and pricing context.
	SeatMapSource(ctx context.Context, sessionID uuid.UUID) (*SeatMapSource, error)

	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) CreateCinema(ctx context.Context, cinema *Cinema) error {
	if err := r.db.WithContext(ctx).Create(cinema).Error; err != nil {
		return fmt.Errorf("failed to create cinema: %w", err)
	}
	return nil
}

func (r *repository) CreateAuditorium(ctx context.Context, auditorium *Auditorium) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Cinema{}).Where("id = ?", auditorium.CinemaID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check cinema: %w", err)
	}
	if count == 0 {
		return ErrCinemaNotFound
	}
	if err := r.db.WithContext(ctx).Create(auditorium).Error; err != nil {
		return fmt.Errorf("failed to create auditorium: %w", err)
	}
	return nil
}

func (r *repository) GetAuditorium(ctx context.Context, id uuid.UUID) (*Auditorium, error) {
	var auditorium Auditorium
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&auditorium).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuditoriumNotFound
		}
		return nil, fmt.Errorf("failed to get auditorium: %w", err)
	}
	return &auditorium, nil
}

func (r *repository) UpdateAuditoriumLayout(ctx context.Context, id uuid.UUID, layout layouts.Layout) error {
	value := datatypes.NewJSONType(layout)
	result := r.db.WithContext(ctx).Model(&Auditorium{}).Where("id = ?", id).Update("layout", value)
	if result.Error != nil {
		return fmt.Errorf("failed to update auditorium layout: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAuditoriumNotFound
	}
	return nil
}

func (r *repository) CreateSession(ctx context.Context, session *Session) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Auditorium{}).Where("id = ?", session.AuditoriumID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check auditorium: %w", err)
	}
	if count == 0 {
		return ErrAuditoriumNotFound
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *repository) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	var session Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session and its seats atomically. Sessions with issued
// tickets are refused so ticket rows never lose their seat.
func (r *repository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tickets int64
		if err := tx.Table("tickets").Where("session_id = ?", id).Count(&tickets).Error; err != nil {
			return fmt.Errorf("failed to count tickets: %w", err)
		}
		if tickets > 0 {
			return ErrSessionHasTickets
		}

		if err := tx.Exec("DELETE FROM seats WHERE session_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete session seats: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&Session{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete session: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrSessionNotFound
		}
		return nil
	})
}

func (r *repository) ListSessions(ctx context.Context, after *Cursor, limit int) ([]Session, error) {
	db := r.db.WithContext(ctx).Model(&Session{})
	if after != nil {
		db = db.Where("created_at > ? OR (created_at = ? AND id > ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}

	var sessions []Session
	err := db.Order("created_at ASC").Order("id ASC").Limit(limit).Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (r *repository) ListSessionIDsByAuditorium(ctx context.Context, auditoriumID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&Session{}).
		Where("auditorium_id = ?", auditoriumID).
		Order("created_at ASC").Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list auditorium sessions: %w", err)
	}
	return ids, nil
}

func (r *repository) SeatMapSource(ctx context.Context, sessionID uuid.UUID) (*SeatMapSource, error) {
	var session Session
	err := r.db.WithContext(ctx).Preload("Auditorium").Where("id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session seat map: %w", err)
	}

	source := &SeatMapSource{Session: session}
	if session.Auditorium != nil {
		source.Layout = session.Auditorium.SeatLayout()
		source.Pricing = session.PricingContext(session.Auditorium.CinemaID)
	} else {
		source.Pricing = session.PricingContext(uuid.Nil)
	}
	return source, nil
}
