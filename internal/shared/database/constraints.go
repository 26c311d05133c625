package database

import (
	"fmt"

	"gorm.io/gorm"
)

// seatConstraints hold for every row written from now on. They are added NOT VALID so
// rows written before them stay readable until reconciliation repairs them.
var seatConstraints = map[string]string{
	"chk_seats_status": `CHECK (status IN ('AVAILABLE', 'HELD', 'SOLD'))`,
	"chk_seats_held_fields": `CHECK (status <> 'HELD' OR
		(held_until IS NOT NULL AND held_by_cart_id IS NOT NULL))`,
	"chk_seats_sold_fields": `CHECK (status <> 'SOLD' OR sold_at IS NOT NULL)`,
	"chk_seats_version":     `CHECK (version >= 1)`,
}

// MigrateConstraints adds the postgres only parts of the schema.
func MigrateConstraints(db *gorm.DB) error {
	for name, check := range seatConstraints {
		var exists int64
		if err := db.Raw(`SELECT COUNT(*) FROM pg_constraint WHERE conname = ?`, name).Scan(&exists).Error; err != nil {
			return fmt.Errorf("failed to look up constraint %s: %w", name, err)
		}
		if exists > 0 {
			continue
		}
		if err := db.Exec(fmt.Sprintf(`ALTER TABLE seats ADD CONSTRAINT %s %s NOT VALID`, name, check)).Error; err != nil {
			return fmt.Errorf("failed to add constraint %s: %w", name, err)
		}
	}

	// The sweeper scans only live holds.
	err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_seats_held_until
		ON seats (held_until) WHERE status = 'HELD'
	`).Error
	if err != nil {
		return fmt.Errorf("failed to add held seat index: %w", err)
	}
	return nil
}
