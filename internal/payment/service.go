package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vetcareplus/vetcare-api/internal/auth"
	"github.com/vetcareplus/vetcare-api/internal/metrics"
)

type Service struct {
	repo    Repository
	metrics *metrics.BookingMetrics
}

func NewService(repo Repository, m *metrics.BookingMetrics) *Service {
	return &Service{repo: repo, metrics: m}
}

// CreatePayment attaches a PENDING payment to an appointment that does not
// already have one. The caller must own the appointment or be an admin.
func (s *Service) CreatePayment(ctx context.Context, actor auth.Identity, appointmentID uuid.UUID, amountCents int64, provider string) (*Payment, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if provider == "" {
		provider = "mock"
	}

	ownerID, err := s.repo.GetAppointmentOwner(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && ownerID != actor.ID {
		return nil, ErrForbidden
	}

	p, err := s.repo.Create(ctx, appointmentID, amountCents, provider)
	if err != nil {
		return nil, err
	}
	s.metrics.ObservePayment("created")
	return p, nil
}

// Complete moves a PENDING payment to SUCCESS and assigns a settlement
// reference. Owner of the linked appointment or admin.
func (s *Service) Complete(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Payment, error) {
	ref := settlementReference("MOCK-SUCCESS")
	return s.transition(ctx, actor, id, StatusPending, StatusSuccess, &ref, false)
}

// Fail moves a PENDING payment to FAILED. Owner or admin.
func (s *Service) Fail(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Payment, error) {
	ref := settlementReference("MOCK-FAILED")
	return s.transition(ctx, actor, id, StatusPending, StatusFailed, &ref, false)
}

// Refund moves a SUCCESS payment to REFUNDED. Admin only.
func (s *Service) Refund(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Payment, error) {
	ref := settlementReference("MOCK-REFUND")
	return s.transition(ctx, actor, id, StatusSuccess, StatusRefunded, &ref, true)
}

// GetForAppointment returns the payment linked to an appointment. Owner or
// admin.
func (s *Service) GetForAppointment(ctx context.Context, actor auth.Identity, appointmentID uuid.UUID) (*Detail, error) {
	d, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && d.OwnerID != actor.ID {
		return nil, ErrForbidden
	}
	return d, nil
}

// List returns all payments for admins, or the actor's own otherwise.
func (s *Service) List(ctx context.Context, actor auth.Identity) ([]Detail, error) {
	if actor.IsAdmin() {
		return s.repo.List(ctx, nil)
	}
	ownerID := actor.ID
	return s.repo.List(ctx, &ownerID)
}

func (s *Service) transition(ctx context.Context, actor auth.Identity, id uuid.UUID, from, to Status, reference *string, adminOnly bool) (*Payment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if adminOnly {
		if !actor.IsAdmin() {
			return nil, ErrForbidden
		}
	} else if !actor.IsAdmin() && current.OwnerID != actor.ID {
		return nil, ErrForbidden
	}

	updated, err := s.repo.UpdateStatus(ctx, id, from, to, reference)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			// The row exists but the compare-and-swap missed: wrong state,
			// possibly changed by a concurrent caller since the read above.
			latest, readErr := s.repo.GetByID(ctx, id)
			if readErr != nil {
				return nil, readErr
			}
			s.metrics.ObservePayment("rejected")
			return nil, &StateError{Current: latest.Status, Required: from}
		}
		return nil, err
	}

	s.metrics.ObservePayment(strings.ToLower(string(to)))
	return updated, nil
}

func settlementReference(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixMilli())
}
