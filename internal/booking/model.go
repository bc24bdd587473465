package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// ValidStatus reports whether s is one of the appointment statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusBooked, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Pet struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Species   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Vet struct {
	ID             uuid.UUID
	Name           string
	Specialization *string
	Email          *string
	Phone          *string
	Archived       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Appointment struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	PetID     uuid.UUID
	VetID     uuid.UUID
	StartAt   time.Time
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppointmentDetail hydrates an appointment with the names and addresses the
// API responses and notifications need.
type AppointmentDetail struct {
	Appointment
	PetName    string
	VetName    string
	OwnerEmail string
}

// ListFilter narrows an appointment listing. Nil fields are ignored.
type ListFilter struct {
	VetID   *uuid.UUID
	OwnerID *uuid.UUID
	From    *time.Time
	To      *time.Time
}
