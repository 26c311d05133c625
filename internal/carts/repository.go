package carts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrCartExpired  = errors.New("cart expired")
)

type Repository interface {
	Create(ctx context.Context, cart *Cart) error
	GetByID(ctx context.Context, id uuid.UUID) (*Cart, error)
	// ExtendTo moves the expiry forward only while the cart is still live at now.
	ExtendTo(ctx context.Context, id uuid.UUID, expiresAt, now time.Time) (bool, error)
	// Expire ends a cart at now so its remaining holds stop counting as live.
	Expire(ctx context.Context, id uuid.UUID, now time.Time) error
	LiveIDs(ctx context.Context, ids []uuid.UUID, now time.Time) ([]uuid.UUID, error)
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

func (r *repository) Create(ctx context.Context, cart *Cart) error {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Cart, error) {
	var cart Cart
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

func (r *repository) ExtendTo(ctx context.Context, id uuid.UUID, expiresAt, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&Cart{}).
		Where("id = ? AND expires_at > ? AND expires_at < ?", id, now, expiresAt).
		Update("expires_at", expiresAt)
	if result.Error != nil {
		return false, fmt.Errorf("failed to extend cart: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) Expire(ctx context.Context, id uuid.UUID, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&Cart{}).
		Where("id = ? AND expires_at > ?", id, now).
		Update("expires_at", now)
	if result.Error != nil {
		return fmt.Errorf("failed to expire cart: %w", result.Error)
	}
	return nil
}

func (r *repository) LiveIDs(ctx context.Context, ids []uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var live []uuid.UUID
	err := r.db.WithContext(ctx).Model(&Cart{}).
		Where("id IN ? AND expires_at > ?", ids, now).
		Pluck("id", &live).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list live carts: %w", err)
	}
	return live, nil
}
