package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vetcareplus/vetcare-api/internal/db"
)

type PgRepository struct {
	pool db.Pool
}

func NewPgRepository(pool db.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.VetID,
		&s.StartAt,
		&s.EndAt,
		&s.IsBooked,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (r *PgRepository) VetExists(ctx context.Context, vetID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM vets WHERE id = $1)
	`, vetID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("vet exists check: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, vet_id, start_at, end_at, is_booked, created_at, updated_at
		FROM availability_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListOpenSlots(ctx context.Context, vetID uuid.UUID, after time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, vet_id, start_at, end_at, is_booked, created_at, updated_at
		FROM availability_slots
		WHERE vet_id = $1
		  AND start_at >= $2
		  AND is_booked = false
		ORDER BY start_at ASC
	`, vetID, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) HasOverlap(ctx context.Context, vetID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (bool, error) {
	var overlap bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM availability_slots
			WHERE vet_id = $1
			  AND start_at < $3
			  AND end_at > $2
			  AND ($4::uuid IS NULL OR id <> $4)
		)
	`, vetID, start, end, exclude).Scan(&overlap)
	if err != nil {
		return false, fmt.Errorf("slot overlap check: %w", err)
	}
	return overlap, nil
}

func (r *PgRepository) CreateSlot(ctx context.Context, vetID uuid.UUID, start, end time.Time) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_slots (id, vet_id, start_at, end_at, is_booked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, now(), now())
		RETURNING id, vet_id, start_at, end_at, is_booked, created_at, updated_at
	`, uuid.New(), vetID, start, end)
	return scanSlot(row)
}

func (r *PgRepository) UpdateSlot(ctx context.Context, id uuid.UUID, change SlotChange) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE availability_slots
		SET start_at = COALESCE($2, start_at),
		    end_at = COALESCE($3, end_at),
		    is_booked = COALESCE($4, is_booked),
		    updated_at = now()
		WHERE id = $1
		RETURNING id, vet_id, start_at, end_at, is_booked, created_at, updated_at
	`, id, change.StartAt, change.EndAt, change.IsBooked)
	return scanSlot(row)
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_slots WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}
