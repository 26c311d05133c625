package pricing

import "github.com/google/uuid"

type CreateRuleRequest struct {
	Name         string     `json:"name" binding:"max=120"`
	Priority     int        `json:"priority"`
	IsActive     *bool      `json:"is_active"`
	CinemaID     *uuid.UUID `json:"cinema_id"`
	AuditoriumID *uuid.UUID `json:"auditorium_id"`
	SessionID    *uuid.UUID `json:"session_id"`
	DaysOfWeek   []int      `json:"days_of_week" binding:"omitempty,max=7,dive,min=0,max=6"`
	StartMinute  *int       `json:"start_minute" binding:"omitempty,min=0,max=1439"`
	EndMinute    *int       `json:"end_minute" binding:"omitempty,min=0,max=1439"`
	PriceCents   int64      `json:"price_cents" binding:"min=0"`
}

// UpdateRuleRequest replaces the rule's mutable fields. Omitted scope and window
// fields are cleared.
type UpdateRuleRequest = CreateRuleRequest

type RuleListQuery struct {
	Page         int    `form:"page,default=1" binding:"min=1"`
	Limit        int    `form:"limit,default=50" binding:"min=1,max=200"`
	Active       *bool  `form:"active"`
	CinemaID     string `form:"cinema_id" binding:"omitempty,uuid"`
	AuditoriumID string `form:"auditorium_id" binding:"omitempty,uuid"`
	SessionID    string `form:"session_id" binding:"omitempty,uuid"`
}
