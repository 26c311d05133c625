package tickets

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	CreateBatch(ctx context.Context, tickets []Ticket) error
	ListByCart(ctx context.Context, cartID uuid.UUID) ([]Ticket, error)
	// TicketedSeatIDs returns the ids of every seat of the session referenced by a ticket.
	TicketedSeatIDs(ctx context.Context, sessionID uuid.UUID) ([]uuid.UUID, error)
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

func (r *repository) CreateBatch(ctx context.Context, tickets []Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&tickets).Error; err != nil {
		return fmt.Errorf("failed to issue tickets: %w", err)
	}
	return nil
}

func (r *repository) ListByCart(ctx context.Context, cartID uuid.UUID) ([]Ticket, error) {
	var tickets []Ticket
	err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Order("seat_code ASC").Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cart tickets: %w", err)
	}
	return tickets, nil
}

func (r *repository) TicketedSeatIDs(ctx context.Context, sessionID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&Ticket{}).Where("session_id = ?", sessionID).Pluck("seat_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ticketed seats: %w", err)
	}
	return ids, nil
}
