package database

import (
	"cineseat/internal/carts"
	"cineseat/internal/pricing"
	"cineseat/internal/seats"
	"cineseat/internal/sessions"
	"cineseat/internal/tickets"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&sessions.Cinema{},
		&sessions.Auditorium{},
		&sessions.Session{},
		&seats.Seat{},
		&carts.Cart{},
		&tickets.Ticket{},
		&pricing.PriceRule{},
	)
}
