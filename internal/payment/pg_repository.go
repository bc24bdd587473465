package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vetcareplus/vetcare-api/internal/db"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type PgRepository struct {
	pool db.Pool
}

func NewPgRepository(pool db.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const detailColumns = `
		p.id, p.appointment_id, p.amount_cents, p.provider, p.status, p.reference, p.created_at, p.updated_at,
		a.owner_id`

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	var reference *string

	err := row.Scan(
		&d.ID,
		&d.AppointmentID,
		&d.AmountCents,
		&d.Provider,
		&d.Status,
		&reference,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.OwnerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	d.Reference = reference
	return &d, nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var reference *string

	err := row.Scan(
		&p.ID,
		&p.AppointmentID,
		&p.AmountCents,
		&p.Provider,
		&p.Status,
		&reference,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	p.Reference = reference
	return &p, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+detailColumns+`
		FROM payments p
		JOIN appointments a ON a.id = p.appointment_id
		WHERE p.id = $1
	`, id)
	return scanDetail(row)
}

func (r *PgRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Detail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+detailColumns+`
		FROM payments p
		JOIN appointments a ON a.id = p.appointment_id
		WHERE p.appointment_id = $1
	`, appointmentID)
	return scanDetail(row)
}

func (r *PgRepository) GetAppointmentOwner(ctx context.Context, appointmentID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT owner_id FROM appointments WHERE id = $1
	`, appointmentID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrAppointmentNotFound
		}
		return uuid.Nil, err
	}
	return ownerID, nil
}

func (r *PgRepository) List(ctx context.Context, ownerID *uuid.UUID) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+detailColumns+`
		FROM payments p
		JOIN appointments a ON a.id = p.appointment_id
		WHERE ($1::uuid IS NULL OR a.owner_id = $1)
		ORDER BY p.created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Detail
	for rows.Next() {
		var d Detail
		var reference *string
		err := rows.Scan(
			&d.ID,
			&d.AppointmentID,
			&d.AmountCents,
			&d.Provider,
			&d.Status,
			&reference,
			&d.CreatedAt,
			&d.UpdatedAt,
			&d.OwnerID,
		)
		if err != nil {
			return nil, err
		}
		d.Reference = reference
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) Create(ctx context.Context, appointmentID uuid.UUID, amountCents int64, provider string) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO payments (id, appointment_id, amount_cents, provider, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'PENDING', now(), now())
		RETURNING id, appointment_id, amount_cents, provider, status, reference, created_at, updated_at
	`, uuid.New(), appointmentID, amountCents, provider)

	p, err := scanPayment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return nil, ErrPaymentExists
			case foreignKeyViolation:
				return nil, ErrAppointmentNotFound
			}
		}
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return p, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, reference *string) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE payments
		SET status = $2,
		    reference = COALESCE($3, reference),
		    updated_at = now()
		WHERE id = $1
		  AND status = $4
		RETURNING id, appointment_id, amount_cents, provider, status, reference, created_at, updated_at
	`, id, to, reference, from)

	return scanPayment(row)
}
