package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidWindow = errors.New("slot end must be after start")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListOpenSlots returns a vet's upcoming unbooked slots.
func (s *Service) ListOpenSlots(ctx context.Context, vetID uuid.UUID) ([]Slot, error) {
	ok, err := s.repo.VetExists(ctx, vetID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVetNotFound
	}
	return s.repo.ListOpenSlots(ctx, vetID, time.Now())
}

// CreateSlot publishes a new availability window. No two slots for the same
// vet may have intersecting [start, end) windows.
func (s *Service) CreateSlot(ctx context.Context, vetID uuid.UUID, start, end time.Time) (*Slot, error) {
	if !end.After(start) {
		return nil, ErrInvalidWindow
	}

	ok, err := s.repo.VetExists(ctx, vetID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVetNotFound
	}

	overlap, err := s.repo.HasOverlap(ctx, vetID, start, end, nil)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrSlotOverlap
	}

	return s.repo.CreateSlot(ctx, vetID, start, end)
}

// UpdateSlot changes a slot's window or booked flag, re-verifying the
// overlap invariant when times move.
func (s *Service) UpdateSlot(ctx context.Context, vetID, slotID uuid.UUID, change SlotChange) (*Slot, error) {
	current, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if current.VetID != vetID {
		return nil, ErrSlotNotFound
	}

	if change.StartAt != nil || change.EndAt != nil {
		start := current.StartAt
		end := current.EndAt
		if change.StartAt != nil {
			start = *change.StartAt
		}
		if change.EndAt != nil {
			end = *change.EndAt
		}
		if !end.After(start) {
			return nil, ErrInvalidWindow
		}

		exclude := slotID
		overlap, err := s.repo.HasOverlap(ctx, vetID, start, end, &exclude)
		if err != nil {
			return nil, err
		}
		if overlap {
			return nil, fmt.Errorf("%w: updated window intersects another slot", ErrSlotOverlap)
		}
	}

	return s.repo.UpdateSlot(ctx, slotID, change)
}

// DeleteSlot removes a slot belonging to the given vet.
func (s *Service) DeleteSlot(ctx context.Context, vetID, slotID uuid.UUID) error {
	current, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return err
	}
	if current.VetID != vetID {
		return ErrSlotNotFound
	}
	return s.repo.DeleteSlot(ctx, slotID)
}
