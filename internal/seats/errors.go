package seats

import "errors"

var (
	ErrSeatNotFound    = errors.New("seat not found")
	ErrSeatUnavailable = errors.New("seat unavailable")
	ErrSeatAlreadySold = errors.New("seat already sold")
	ErrHoldNotOwned    = errors.New("hold not owned by cart")
	ErrInvalidTTL      = errors.New("invalid hold ttl")
	ErrVersionMismatch = errors.New("seat version changed")
	ErrInvalidRequest  = errors.New("invalid seat request")
)
