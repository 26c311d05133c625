package sessions

import (
	"time"

	"cineseat/internal/layouts"

	"github.com/google/uuid"
)

type CreateCinemaRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=255"`
	Timezone string `json:"timezone" binding:"omitempty,max=64"`
}

type CreateAuditoriumRequest struct {
	CinemaID uuid.UUID       `json:"cinema_id" binding:"required"`
	Name     string          `json:"name" binding:"required,min=1,max=255"`
	Layout   *layouts.Layout `json:"layout"`
}

type UpdateLayoutRequest struct {
	Layout layouts.Layout `json:"layout"`
}

type CreateSessionRequest struct {
	AuditoriumID   uuid.UUID `json:"auditorium_id" binding:"required"`
	MovieTitle     string    `json:"movie_title" binding:"required,min=1,max=255"`
	StartsAt       time.Time `json:"starts_at" binding:"required"`
	EndsAt         time.Time `json:"ends_at" binding:"required,gtfield=StartsAt"`
	BasePriceCents int64     `json:"base_price_cents" binding:"min=0"`
	VIPPriceCents  int64     `json:"vip_price_cents" binding:"min=0"`
}

type SessionListQuery struct {
	AfterCreatedAt *time.Time `form:"after_created_at" time_format:"2006-01-02T15:04:05.999999999Z07:00"`
	AfterID        string     `form:"after_id" binding:"omitempty,uuid"`
	Limit          int        `form:"limit,default=50" binding:"min=1,max=500"`
}
