package notify

import "time"

type Kind string

const (
	KindBooked      Kind = "booked"
	KindRescheduled Kind = "rescheduled"
	KindCancelled   Kind = "cancelled"
)

// Message is a lifecycle notification queued for delivery. It carries
// everything the templates need so the worker never has to re-read the
// appointment.
type Message struct {
	Kind      Kind
	Recipient string
	Payload   Payload
}

type Payload struct {
	PetName    string     `json:"pet_name"`
	VetName    string     `json:"vet_name"`
	StartAt    time.Time  `json:"start_at"`
	OldStartAt *time.Time `json:"old_start_at,omitempty"`
	ManageURL  string     `json:"manage_url,omitempty"`
}
