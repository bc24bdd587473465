package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a bookable window published by a vet.
type Slot struct {
	ID        uuid.UUID
	VetID     uuid.UUID
	StartAt   time.Time
	EndAt     time.Time
	IsBooked  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotChange carries a partial update; nil fields keep current values.
type SlotChange struct {
	StartAt  *time.Time
	EndAt    *time.Time
	IsBooked *bool
}

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
