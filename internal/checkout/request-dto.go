package checkout

import "github.com/google/uuid"

type CreateCartRequest struct {
	UserID     *uuid.UUID `json:"user_id"`
	TTLSeconds int        `json:"ttl_seconds" binding:"omitempty,min=1"`
}

type ExtendCartRequest struct {
	TTLSeconds int `json:"ttl_seconds" binding:"omitempty,min=1"`
}

type HoldSeatsRequest struct {
	SessionID  uuid.UUID `json:"session_id" binding:"required"`
	Seats      []string  `json:"seats" binding:"required,min=1,max=20,dive,required,max=16"`
	TTLSeconds int       `json:"ttl_seconds" binding:"omitempty,min=1"`
}

type ConfirmRequest struct {
	PaymentRef  string `json:"payment_ref" binding:"max=255"`
	AmountCents int64  `json:"amount_cents" binding:"omitempty,min=0"`
}
