package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/carelink/telehealth-scheduling/internal/db"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

func main() {
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	physicianIDs, err := seedPhysicians(context.Background(), pool, 50)
	if err != nil {
		log.Fatal().Err(err).Msg("seed physicians")
	}
	if err := seedServices(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("seed services")
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedAvailability(context.Background(), pool, physicianIDs); err != nil {
		log.Fatal().Err(err).Msg("seed availability")
	}

	log.Info().Msg("seed complete")
}

func seedPhysicians(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding physicians")

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		fee := int64(gofakeit.Number(2000, 25000)) // minor currency units

		// Most seeded physicians are approved so slots show up immediately.
		status := "approved"
		if gofakeit.Number(0, 9) == 0 {
			status = "pending"
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO physicians (id, name, specialty, status, consultation_fee, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, "Dr. "+gofakeit.Name(), spec, status, fee)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Info().Msg("physicians seeded")
	return ids, nil
}

func seedServices(ctx context.Context, pool *pgxpool.Pool) error {
	services := []struct {
		name    string
		minutes int
	}{
		{"Initial Consultation", 30},
		{"Follow-up Visit", 15},
		{"Extended Consultation", 60},
		{"Prescription Review", 15},
		{"Mental Health Session", 45},
	}

	log.Info().Int("count", len(services)).Msg("seeding services")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, svc := range services {
		_, err := tx.Exec(ctx, `
			INSERT INTO services (id, name, duration_minutes, active, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())
		`, uuid.New(), svc.name, svc.minutes)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info().Msg("services seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return nil
}

// seedAvailability gives every physician a standard weekday grid: open
// Monday-Friday with varying hours, closed weekends, plus the master switch on.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, physicianIDs []uuid.UUID) error {
	log.Info().Int("physicians", len(physicianIDs)).Msg("seeding weekly availability")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, physID := range physicianIDs {
		startHour := gofakeit.Number(8, 10)
		endHour := gofakeit.Number(16, 19)

		for weekday := 0; weekday <= 6; weekday++ {
			open := weekday >= 1 && weekday <= 5
			start, end := "", ""
			if open {
				start = fmt.Sprintf("%02d:00", startHour)
				end = fmt.Sprintf("%02d:00", endHour)
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO weekly_availability (id, physician_id, weekday, start_time, end_time, available, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			`, uuid.New(), physID, weekday, start, end, open)
			if err != nil {
				return err
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO physician_settings (physician_id, accepting_bookings, created_at, updated_at)
			VALUES ($1, true, now(), now())
		`, physID)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info().Msg("availability seeded")
	return nil
}
