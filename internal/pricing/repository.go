package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRuleNotFound = errors.New("price rule not found")

type Repository interface {
	Create(ctx context.Context, rule *PriceRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*PriceRule, error)
	Update(ctx context.Context, rule *PriceRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, query RuleListQuery) ([]PriceRule, int64, error)
	ListActive(ctx context.Context) ([]PriceRule, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rule *PriceRule) error {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create price rule: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*PriceRule, error) {
	var rule PriceRule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get price rule: %w", err)
	}
	return &rule, nil
}

func (r *repository) Update(ctx context.Context, rule *PriceRule) error {
	// Select("*") so that clearing a scope or window back to NULL is persisted.
	result := r.db.WithContext(ctx).Model(rule).Select("*").Omit("created_at").Updates(rule)
	if result.Error != nil {
		return fmt.Errorf("failed to update price rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&PriceRule{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete price rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, query RuleListQuery) ([]PriceRule, int64, error) {
	db := r.db.WithContext(ctx).Model(&PriceRule{})
	if query.Active != nil {
		db = db.Where("is_active = ?", *query.Active)
	}
	if query.CinemaID != "" {
		db = db.Where("cinema_id = ?", query.CinemaID)
	}
	if query.AuditoriumID != "" {
		db = db.Where("auditorium_id = ?", query.AuditoriumID)
	}
	if query.SessionID != "" {
		db = db.Where("session_id = ?", query.SessionID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count price rules: %w", err)
	}

	var rules []PriceRule
	err := db.Order("priority DESC").Order("updated_at DESC").Order("id ASC").
		Offset((query.Page - 1) * query.Limit).
		Limit(query.Limit).
		Find(&rules).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list price rules: %w", err)
	}
	return rules, total, nil
}

func (r *repository) ListActive(ctx context.Context) ([]PriceRule, error) {
	var rules []PriceRule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("priority DESC").Order("updated_at DESC").Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active price rules: %w", err)
	}
	return rules, nil
}
