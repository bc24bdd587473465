package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusRefunded Status = "REFUNDED"
)

type Payment struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	AmountCents   int64
	Provider      string
	Status        Status
	Reference     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Detail carries the owning user of the linked appointment for access checks.
type Detail struct {
	Payment
	OwnerID uuid.UUID
}

// StateError reports a rejected transition, naming the payment's current
// status and the status the operation required.
type StateError struct {
	Current  Status
	Required Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("payment status is %s, must be %s", e.Current, e.Required)
}
