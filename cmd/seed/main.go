package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"cineseat/api/routes"
	"cineseat/internal/carts"
	"cineseat/internal/layouts"
	"cineseat/internal/pricing"
	"cineseat/internal/reconcile"
	"cineseat/internal/seats"
	"cineseat/internal/sessions"
	"cineseat/internal/shared/config"
	"cineseat/internal/shared/database"
	"cineseat/internal/tickets"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type Seeder struct {
	db       *database.DB
	services *routes.Services
}

func main() {
	fmt.Println("🌱 Starting CineSeat database seeder...")

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db, services: routes.BuildServices(cfg, db, nil)}
	ctx := context.Background()

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(ctx); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(ctx); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\n🔁 Reconciling every session...")
	batch, err := seeder.services.Engine.ReconcileAll(ctx, reconcile.BatchOptions{})
	if err != nil {
		log.Fatalf("Failed to reconcile: %v", err)
	}
	if err := batch.WriteTable(os.Stdout); err != nil {
		log.Fatalf("Failed to print report: %v", err)
	}

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase removes all rows, children before parents.
func (s *Seeder) CleanDatabase(ctx context.Context) error {
	models := []interface{}{
		&tickets.Ticket{},
		&seats.Seat{},
		&carts.Cart{},
		&pricing.PriceRule{},
		&sessions.Session{},
		&sessions.Auditorium{},
		&sessions.Cinema{},
	}
	return s.db.Primary.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range models {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clean %T: %w", model, err)
			}
		}
		return nil
	})
}

func (s *Seeder) SeedAll(ctx context.Context) error {
	cinema, err := s.services.Sessions.CreateCinema(ctx, sessions.CreateCinemaRequest{
		Name:     "Cinema Paradiso",
		Timezone: "Europe/Rome",
	})
	if err != nil {
		return err
	}
	fmt.Printf("  🏛  cinema %s\n", cinema.ID)

	grande, err := s.services.Sessions.CreateAuditorium(ctx, sessions.CreateAuditoriumRequest{
		CinemaID: cinema.ID,
		Name:     "Sala Grande",
		Layout:   grandeLayout(),
	})
	if err != nil {
		return err
	}
	piccola, err := s.services.Sessions.CreateAuditorium(ctx, sessions.CreateAuditoriumRequest{
		CinemaID: cinema.ID,
		Name:     "Sala Piccola",
		Layout: &layouts.Layout{
			Rows:        []layouts.RowSpec{{Row: "A", SeatCount: 8}, {Row: "B", SeatCount: 8}},
			PremiumRows: []string{"B"},
		},
	})
	if err != nil {
		return err
	}
	fmt.Printf("  🎞  auditoriums %s, %s\n", grande.ID, piccola.ID)

	if err := s.seedPriceRules(ctx, grande); err != nil {
		return err
	}

	start := time.Now().UTC().Truncate(time.Hour).Add(24 * time.Hour)
	showings := []struct {
		auditorium *sessions.Auditorium
		title      string
		offset     time.Duration
	}{
		{grande, "Nuovo Cinema Paradiso", 0},
		{grande, "La dolce vita", 4 * time.Hour},
		{grande, "Ladri di biciclette", 28 * time.Hour},
		{piccola, "Roma città aperta", 2 * time.Hour},
	}
	for _, show := range showings {
		session, err := s.services.Sessions.CreateSession(ctx, sessions.CreateSessionRequest{
			AuditoriumID:   show.auditorium.ID,
			MovieTitle:     show.title,
			StartsAt:       start.Add(show.offset),
			EndsAt:         start.Add(show.offset + 2*time.Hour),
			BasePriceCents: 950,
			VIPPriceCents:  1450,
		})
		if err != nil {
			return err
		}
		fmt.Printf("  🎬 session %s %q\n", session.ID, session.MovieTitle)
	}
	return nil
}

// grandeLayout is rows A(12) and M(25) with the middle of each row VIP, an aisle in M
// and two accessible seats at the front.
func grandeLayout() *layouts.Layout {
	return &layouts.Layout{
		Rows: []layouts.RowSpec{{Row: "A", SeatCount: 12}, {Row: "M", SeatCount: 25}},
		VIPZones: []layouts.VIPZone{
			{Row: "A", StartPercent: 24, EndPercent: 72},
			{Row: "M", StartPercent: 24, EndPercent: 72},
		},
		Accessible: []layouts.SeatRef{{Row: "A", Number: 1}, {Row: "A", Number: 12}},
		Gaps:       []layouts.SeatRange{{Row: "M", From: 13, To: 13}},
	}
}

func (s *Seeder) seedPriceRules(ctx context.Context, grande *sessions.Auditorium) error {
	active := true
	evening, late := 18*60, 23*60+59
	rules := []pricing.CreateRuleRequest{
		{
			Name:       "Weekend",
			Priority:   10,
			IsActive:   &active,
			DaysOfWeek: []int{int(time.Saturday), int(time.Sunday)},
			PriceCents: 1200,
		},
		{
			Name:         "Sala Grande evenings",
			Priority:     20,
			IsActive:     &active,
			AuditoriumID: &grande.ID,
			StartMinute:  &evening,
			EndMinute:    &late,
			PriceCents:   1300,
		},
	}
	for _, req := range rules {
		rule, err := s.services.Pricing.CreateRule(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create price rule %q: %w", req.Name, err)
		}
		fmt.Printf("  💶 price rule %q (%d cents)\n", rule.Name, rule.PriceCents)
	}
	return nil
}
