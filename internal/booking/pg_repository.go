package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vetcareplus/vetcare-api/internal/db"
	"github.com/vetcareplus/vetcare-api/internal/notify"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool   db.Pool
	outbox *notify.Outbox
}

func NewPgRepository(pool db.Pool, outbox *notify.Outbox) *PgRepository {
	return &PgRepository{pool: pool, outbox: outbox}
}

// Helpers

func scanPet(row pgx.Row) (*Pet, error) {
	var p Pet
	var species *string

	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&species,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPetNotOwned
		}
		return nil, err
	}

	p.Species = species
	return &p, nil
}

func scanVet(row pgx.Row) (*Vet, error) {
	var v Vet

	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Specialization,
		&v.Email,
		&v.Phone,
		&v.Archived,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVetNotFound
		}
		return nil, err
	}

	return &v, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.PetID,
		&a.VetID,
		&a.StartAt,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

// Interface methods

func (r *PgRepository) GetPetByID(ctx context.Context, id uuid.UUID) (*Pet, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, species, created_at, updated_at
		FROM pets
		WHERE id = $1
	`, id)
	return scanPet(row)
}

func (r *PgRepository) GetVetByID(ctx context.Context, id uuid.UUID) (*Vet, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialization, email, phone, archived, created_at, updated_at
		FROM vets
		WHERE id = $1
	`, id)
	return scanVet(row)
}

const conflictQuery = `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE vet_id = $1
			  AND status IN ('BOOKED', 'COMPLETED')
			  AND start_at >= $2
			  AND start_at < $3
			  AND ($4::uuid IS NULL OR id <> $4)
		)`

func (r *PgRepository) HasConflict(ctx context.Context, vetID uuid.UUID, start time.Time, window time.Duration, exclude *uuid.UUID) (bool, error) {
	var conflict bool
	err := r.pool.QueryRow(ctx, conflictQuery, vetID, start, start.Add(window), exclude).Scan(&conflict)
	if err != nil {
		return false, fmt.Errorf("conflict check: %w", err)
	}
	return conflict, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, pet_id, vet_id, start_at, status, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT a.id, a.owner_id, a.pet_id, a.vet_id, a.start_at, a.status, a.created_at, a.updated_at,
		       p.name, v.name, u.email
		FROM appointments a
		JOIN pets p ON p.id = a.pet_id
		JOIN vets v ON v.id = a.vet_id
		JOIN users u ON u.id = a.owner_id
		WHERE a.id = $1
	`, id)

	var d AppointmentDetail
	err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.PetID,
		&d.VetID,
		&d.StartAt,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.PetName,
		&d.VetName,
		&d.OwnerEmail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *PgRepository) ListAppointments(ctx context.Context, f ListFilter) ([]AppointmentDetail, error) {
	query := `
		SELECT a.id, a.owner_id, a.pet_id, a.vet_id, a.start_at, a.status, a.created_at, a.updated_at,
		       p.name, v.name, u.email
		FROM appointments a
		JOIN pets p ON p.id = a.pet_id
		JOIN vets v ON v.id = a.vet_id
		JOIN users u ON u.id = a.owner_id
		WHERE ($1::uuid IS NULL OR a.vet_id = $1)
		  AND ($2::uuid IS NULL OR a.owner_id = $2)
		  AND ($3::timestamptz IS NULL OR a.start_at >= $3)
		  AND ($4::timestamptz IS NULL OR a.start_at <= $4)
		ORDER BY a.start_at ASC
	`

	rows, err := r.pool.Query(ctx, query, f.VetID, f.OwnerID, f.From, f.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		var d AppointmentDetail
		err := rows.Scan(
			&d.ID,
			&d.OwnerID,
			&d.PetID,
			&d.VetID,
			&d.StartAt,
			&d.Status,
			&d.CreatedAt,
			&d.UpdatedAt,
			&d.PetName,
			&d.VetName,
			&d.OwnerEmail,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// lockVetRow serializes booking writes for one vet inside the transaction.
// Combined with the in-transaction conflict re-check this closes the race
// between the application-level pre-check and the insert.
func lockVetRow(ctx context.Context, tx pgx.Tx, vetID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM vets WHERE id = $1 FOR UPDATE`, vetID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVetNotFound
		}
		return fmt.Errorf("lock vet row: %w", err)
	}
	return nil
}

func txHasConflict(ctx context.Context, tx pgx.Tx, vetID uuid.UUID, start time.Time, window time.Duration, exclude *uuid.UUID) (bool, error) {
	var conflict bool
	err := tx.QueryRow(ctx, conflictQuery, vetID, start, start.Add(window), exclude).Scan(&conflict)
	if err != nil {
		return false, fmt.Errorf("conflict re-check: %w", err)
	}
	return conflict, nil
}

func (r *PgRepository) CreateBooked(ctx context.Context, p CreateParams) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockVetRow(ctx, tx, p.VetID); err != nil {
		return nil, err
	}

	conflict, err := txHasConflict(ctx, tx, p.VetID, p.StartAt, p.Window, nil)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrTimeConflict
	}

	apptID := uuid.New()
	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, owner_id, pet_id, vet_id, start_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'BOOKED', now(), now())
		RETURNING id, owner_id, pet_id, vet_id, start_at, status, created_at, updated_at
	`, apptID, p.OwnerID, p.PetID, p.VetID, p.StartAt)

	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrTimeConflict
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payments (id, appointment_id, amount_cents, provider, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'PENDING', now(), now())
	`, uuid.New(), appt.ID, p.FeeCents, p.Provider)
	if err != nil {
		return nil, fmt.Errorf("insert pending payment: %w", err)
	}

	if err := r.outbox.Enqueue(ctx, tx, p.Notice); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) Reschedule(ctx context.Context, p RescheduleParams) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockVetRow(ctx, tx, p.VetID); err != nil {
		return nil, err
	}

	exclude := p.AppointmentID
	conflict, err := txHasConflict(ctx, tx, p.VetID, p.NewStartAt, p.Window, &exclude)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrTimeConflict
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET start_at = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'BOOKED'
		RETURNING id, owner_id, pet_id, vet_id, start_at, status, created_at, updated_at
	`, p.AppointmentID, p.NewStartAt)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrNotReschedulable
		}
		if isUniqueViolation(err) {
			return nil, ErrTimeConflict
		}
		return nil, fmt.Errorf("update appointment time: %w", err)
	}

	if err := r.outbox.Enqueue(ctx, tx, p.Notice); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reschedule tx: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) Cancel(ctx context.Context, id uuid.UUID, notice notify.Message) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'CANCELLED',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'BOOKED'
		RETURNING id, owner_id, pet_id, vet_id, start_at, status, created_at, updated_at
	`, id)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrNotCancellable
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	if err := r.outbox.Enqueue(ctx, tx, notice); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel tx: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) ForceStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, owner_id, pet_id, vet_id, start_at, status, created_at, updated_at
	`, id, to)

	appt, err := scanAppointment(row)
	if err != nil {
		// Reviving an appointment whose slot was re-booked in the meantime
		// hits the partial unique index.
		if isUniqueViolation(err) {
			return nil, ErrTimeConflict
		}
		return nil, err
	}
	return appt, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
