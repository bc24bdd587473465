package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vetcareplus/vetcare-api/internal/auth"
	"github.com/vetcareplus/vetcare-api/internal/config"
	"github.com/vetcareplus/vetcare-api/internal/metrics"
	"github.com/vetcareplus/vetcare-api/internal/notify"
	redisclient "github.com/vetcareplus/vetcare-api/internal/redis"
)

const paymentProvider = "mock"

// Waker wakes the notification dispatcher after a booking commits so the
// email goes out promptly. May be nil.
type Waker interface {
	Nudge()
}

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	cfg     config.Config
	waker   Waker
	metrics *metrics.BookingMetrics
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, waker Waker, m *metrics.BookingMetrics) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		cfg:     cfg,
		waker:   waker,
		metrics: m,
	}
}

// CreateAppointment books a vet for a pet. The appointment, its pending
// payment, and the booked notification are created as one transaction; the
// email itself is delivered asynchronously and cannot fail the booking.
func (s *Service) CreateAppointment(ctx context.Context, actor auth.Identity, petID, vetID uuid.UUID, startAt time.Time) (*Appointment, error) {
	pet, err := s.repo.GetPetByID(ctx, petID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && pet.OwnerID != actor.ID {
		return nil, ErrPetNotOwned
	}

	vet, err := s.repo.GetVetByID(ctx, vetID)
	if err != nil {
		return nil, err
	}

	// Cheap pre-check outside the lock; the authoritative check runs again
	// inside the booking transaction.
	conflict, err := s.repo.HasConflict(ctx, vetID, startAt, s.cfg.SlotWindow, nil)
	if err != nil {
		return nil, fmt.Errorf("conflict pre-check: %w", err)
	}
	if conflict {
		s.metrics.ObserveBooking("conflict")
		return nil, ErrTimeConflict
	}

	params := CreateParams{
		OwnerID:  actor.ID,
		PetID:    petID,
		VetID:    vetID,
		StartAt:  startAt,
		Window:   s.cfg.SlotWindow,
		FeeCents: s.cfg.BookingFee,
		Provider: paymentProvider,
		Notice: notify.Message{
			Kind:      notify.KindBooked,
			Recipient: actor.Email,
			Payload: notify.Payload{
				PetName:   pet.Name,
				VetName:   vet.Name,
				StartAt:   startAt,
				ManageURL: s.manageURL(),
			},
		},
	}

	var created *Appointment
	err = s.locker.WithVetLock(ctx, vetID, func(lockCtx context.Context) error {
		appt, err := s.repo.CreateBooked(lockCtx, params)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveBooking("contended")
			return nil, ErrVetBeingBooked
		}
		if errors.Is(err, ErrTimeConflict) {
			s.metrics.ObserveBooking("conflict")
		}
		return nil, err
	}

	s.metrics.ObserveBooking("created")
	s.wake()
	return created, nil
}

// RescheduleAppointment moves a BOOKED appointment to a new start time. The
// appointment's own slot is excluded from the conflict check so it does not
// collide with itself.
func (s *Service) RescheduleAppointment(ctx context.Context, actor auth.Identity, apptID uuid.UUID, newStartAt time.Time) (*Appointment, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, apptID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && detail.OwnerID != actor.ID {
		return nil, ErrForbidden
	}
	if detail.Status != StatusBooked {
		return nil, ErrNotReschedulable
	}

	exclude := apptID
	conflict, err := s.repo.HasConflict(ctx, detail.VetID, newStartAt, s.cfg.SlotWindow, &exclude)
	if err != nil {
		return nil, fmt.Errorf("conflict pre-check: %w", err)
	}
	if conflict {
		s.metrics.ObserveBooking("conflict")
		return nil, ErrTimeConflict
	}

	oldStart := detail.StartAt
	params := RescheduleParams{
		AppointmentID: apptID,
		VetID:         detail.VetID,
		NewStartAt:    newStartAt,
		Window:        s.cfg.SlotWindow,
		Notice: notify.Message{
			Kind:      notify.KindRescheduled,
			Recipient: detail.OwnerEmail,
			Payload: notify.Payload{
				PetName:    detail.PetName,
				VetName:    detail.VetName,
				StartAt:    newStartAt,
				OldStartAt: &oldStart,
				ManageURL:  s.manageURL(),
			},
		},
	}

	var updated *Appointment
	err = s.locker.WithVetLock(ctx, detail.VetID, func(lockCtx context.Context) error {
		appt, err := s.repo.Reschedule(lockCtx, params)
		if err != nil {
			return err
		}
		updated = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveBooking("contended")
			return nil, ErrVetBeingBooked
		}
		if errors.Is(err, ErrTimeConflict) {
			s.metrics.ObserveBooking("conflict")
		}
		return nil, err
	}

	s.metrics.ObserveBooking("rescheduled")
	s.wake()
	return updated, nil
}

// CancelAppointment transitions a BOOKED appointment to CANCELLED.
func (s *Service) CancelAppointment(ctx context.Context, actor auth.Identity, apptID uuid.UUID) (*Appointment, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, apptID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && detail.OwnerID != actor.ID {
		return nil, ErrForbidden
	}
	if detail.Status != StatusBooked {
		return nil, ErrNotCancellable
	}

	notice := notify.Message{
		Kind:      notify.KindCancelled,
		Recipient: detail.OwnerEmail,
		Payload: notify.Payload{
			PetName: detail.PetName,
			VetName: detail.VetName,
			StartAt: detail.StartAt,
		},
	}

	updated, err := s.repo.Cancel(ctx, apptID, notice)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveBooking("cancelled")
	s.wake()
	return updated, nil
}

// SetStatus is the admin override. It can set any status, including forcing
// a terminal appointment back to BOOKED.
func (s *Service) SetStatus(ctx context.Context, actor auth.Identity, apptID uuid.UUID, to Status) (*Appointment, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !ValidStatus(to) {
		return nil, fmt.Errorf("invalid status %q", to)
	}
	return s.repo.ForceStatus(ctx, apptID, to)
}

// GetAppointment returns a hydrated appointment, restricted to its owner or
// an admin.
func (s *Service) GetAppointment(ctx context.Context, actor auth.Identity, apptID uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, apptID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && detail.OwnerID != actor.ID {
		return nil, ErrForbidden
	}
	return detail, nil
}

// ListAppointments applies the caller's filters. Non-admins are always
// scoped to their own appointments; a supplied owner filter is overwritten,
// never honored.
func (s *Service) ListAppointments(ctx context.Context, actor auth.Identity, f ListFilter) ([]AppointmentDetail, error) {
	if !actor.IsAdmin() {
		ownerID := actor.ID
		f.OwnerID = &ownerID
	}
	return s.repo.ListAppointments(ctx, f)
}

func (s *Service) manageURL() string {
	if s.cfg.AppBaseURL == "" {
		return ""
	}
	return s.cfg.AppBaseURL + "/appointments"
}

func (s *Service) wake() {
	if s.waker != nil {
		s.waker.Nudge()
	}
}
