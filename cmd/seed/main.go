package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vetcareplus/vetcare-api/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	vetIDs, err := seedVets(context.Background(), pool, 25)
	if err != nil {
		log.Fatalf("seed vets: %v", err)
	}
	ownerIDs, err := seedOwners(context.Background(), pool, 500)
	if err != nil {
		log.Fatalf("seed owners: %v", err)
	}
	if err := seedPets(context.Background(), pool, ownerIDs); err != nil {
		log.Fatalf("seed pets: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, vetIDs); err != nil {
		log.Fatalf("seed availability: %v", err)
	}

	log.Println("seed complete")
}

func seedVets(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d vets", count)

	specializations := []string{
		"General Practice",
		"Surgery",
		"Dermatology",
		"Dentistry",
		"Cardiology",
		"Exotic Animals",
		"Ophthalmology",
		"Oncology",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]
		email := gofakeit.Email()
		phone := gofakeit.Phone()

		_, err := tx.Exec(ctx, `
			INSERT INTO vets (id, name, specialization, email, phone, archived, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, false, now(), now())
		`, id, name, spec, email, phone)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("vets seeded")
	return ids, nil
}

func seedOwners(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d owners", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, full_name, role, created_at, updated_at)
			VALUES ($1, $2, $3, 'OWNER', now(), now())
		`, id, email, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("owners seeded")
	return ids, nil
}

func seedPets(ctx context.Context, pool *pgxpool.Pool, ownerIDs []uuid.UUID) error {
	log.Printf("seeding pets for %d owners", len(ownerIDs))

	const batchSize = 500

	species := []string{"dog", "cat", "rabbit", "parrot", "hamster", "guinea pig"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	written := 0
	for _, ownerID := range ownerIDs {
		pets := gofakeit.Number(1, 3)
		for i := 0; i < pets; i++ {
			id := uuid.New()
			name := gofakeit.PetName()
			sp := species[gofakeit.Number(0, len(species)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO pets (id, owner_id, name, species, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, ownerID, name, sp)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			written++
			if written%batchSize == 0 {
				if err := tx.Commit(ctx); err != nil {
					return err
				}
				tx, err = pool.Begin(ctx)
				if err != nil {
					return err
				}
				log.Printf("pets seeded: %d", written)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("pets seeded: %d total", written)
	return nil
}

// seedAvailability gives each vet two weeks of weekday slots, 9:00 to 17:00
// in 30 minute increments.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, vetIDs []uuid.UUID) error {
	log.Printf("seeding availability for %d vets", len(vetIDs))

	start := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, vetID := range vetIDs {
		for day := 0; day < 14; day++ {
			date := start.AddDate(0, 0, day)
			if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			for half := 0; half < 16; half++ {
				slotStart := date.Add(9*time.Hour + time.Duration(half)*30*time.Minute)
				slotEnd := slotStart.Add(30 * time.Minute)

				_, err := tx.Exec(ctx, `
					INSERT INTO availability_slots (id, vet_id, start_at, end_at, is_booked, created_at, updated_at)
					VALUES ($1, $2, $3, $4, false, now(), now())
				`, uuid.New(), vetID, slotStart, slotEnd)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability seeded")
	return nil
}
