package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentExists       = errors.New("payment already exists for this appointment")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidAmount       = errors.New("amountCents must be a positive integer")
	ErrForbidden           = errors.New("forbidden")
)

// Repository contains all DB interactions needed by the payment service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Detail, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Detail, error)

	// GetAppointmentOwner resolves the owning user of an appointment, used
	// to gate payment creation.
	GetAppointmentOwner(ctx context.Context, appointmentID uuid.UUID) (uuid.UUID, error)

	// List returns all payments, or only those whose appointment belongs to
	// ownerID when it is non-nil. Newest first.
	List(ctx context.Context, ownerID *uuid.UUID) ([]Detail, error)

	// Create inserts a PENDING payment; at most one exists per appointment.
	Create(ctx context.Context, appointmentID uuid.UUID, amountCents int64, provider string) (*Payment, error)

	// UpdateStatus is a compare-and-swap on the status column. It returns
	// ErrPaymentNotFound when no row matched id+from; callers re-read to
	// distinguish a missing payment from a wrong state.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, reference *string) (*Payment, error)
}
