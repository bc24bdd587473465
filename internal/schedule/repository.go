package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound = errors.New("slot not found")
	ErrSlotOverlap  = errors.New("slot overlaps existing availability")
	ErrVetNotFound  = errors.New("vet not found")
)

// Repository contains all DB interactions needed by the schedule service.
type Repository interface {
	VetExists(ctx context.Context, vetID uuid.UUID) (bool, error)

	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)

	// ListOpenSlots returns upcoming unbooked slots for a vet, ascending.
	ListOpenSlots(ctx context.Context, vetID uuid.UUID, after time.Time) ([]Slot, error)

	// HasOverlap reports whether any slot for the vet intersects
	// [start, end), optionally excluding one slot id.
	HasOverlap(ctx context.Context, vetID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (bool, error)

	CreateSlot(ctx context.Context, vetID uuid.UUID, start, end time.Time) (*Slot, error)
	UpdateSlot(ctx context.Context, id uuid.UUID, change SlotChange) (*Slot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
}
