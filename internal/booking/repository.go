package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vetcareplus/vetcare-api/internal/notify"
)

var (
	// ErrPetNotOwned deliberately covers both "no such pet" and "not your
	// pet" so the response does not reveal which one applied.
	ErrPetNotOwned = errors.New("pet not found or not owned by user")

	ErrVetNotFound         = errors.New("vet not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrTimeConflict        = errors.New("vet already has an appointment in that time window")
	ErrNotCancellable      = errors.New("only BOOKED appointments can be cancelled")
	ErrNotReschedulable    = errors.New("only BOOKED appointments can be rescheduled")
	ErrForbidden           = errors.New("forbidden")
	ErrVetBeingBooked      = errors.New("vet is currently being booked, please retry")
)

// CreateParams is everything the repository needs to book atomically:
// the appointment, its pending payment, and the queued notification commit
// together or not at all.
type CreateParams struct {
	OwnerID  uuid.UUID
	PetID    uuid.UUID
	VetID    uuid.UUID
	StartAt  time.Time
	Window   time.Duration
	FeeCents int64
	Provider string
	Notice   notify.Message
}

// RescheduleParams moves a BOOKED appointment, re-checking the conflict
// window (excluding the appointment itself) inside the transaction.
type RescheduleParams struct {
	AppointmentID uuid.UUID
	VetID         uuid.UUID
	NewStartAt    time.Time
	Window        time.Duration
	Notice        notify.Message
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPetByID(ctx context.Context, id uuid.UUID) (*Pet, error)
	GetVetByID(ctx context.Context, id uuid.UUID) (*Vet, error)

	// HasConflict reports whether the vet has a BOOKED or COMPLETED
	// appointment starting inside [start, start+window). exclude removes one
	// appointment from the conflict set, used during reschedule.
	HasConflict(ctx context.Context, vetID uuid.UUID, start time.Time, window time.Duration, exclude *uuid.UUID) (bool, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	ListAppointments(ctx context.Context, f ListFilter) ([]AppointmentDetail, error)

	// CreateBooked inserts the appointment, its PENDING payment, and the
	// booked notification in one transaction, serialized per vet.
	CreateBooked(ctx context.Context, p CreateParams) (*Appointment, error)

	// Reschedule updates the start time of a BOOKED appointment and queues
	// the rescheduled notification in one transaction, serialized per vet.
	Reschedule(ctx context.Context, p RescheduleParams) (*Appointment, error)

	// Cancel transitions BOOKED to CANCELLED and queues the cancelled
	// notification in one transaction.
	Cancel(ctx context.Context, id uuid.UUID, notice notify.Message) (*Appointment, error)

	// ForceStatus sets any status regardless of the current one. Admin
	// escape hatch, including reviving terminal appointments.
	ForceStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error)
}
