package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/vetcareplus/vetcare-api/internal/booking"
	"github.com/vetcareplus/vetcare-api/internal/payment"
	"github.com/vetcareplus/vetcare-api/internal/schedule"
)

type CreateAppointmentRequest struct {
	PetID    string `json:"petId"`
	VetID    string `json:"vetId"`
	DateTime string `json:"dateTime"`
}

type RescheduleRequest struct {
	NewDateTime string `json:"newDateTime"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type CreatePaymentRequest struct {
	AppointmentID string `json:"appointmentId"`
	AmountCents   int64  `json:"amountCents"`
	Provider      string `json:"provider"`
}

type CreateSlotRequest struct {
	StartAt string `json:"startAt"`
	EndAt   string `json:"endAt"`
}

type UpdateSlotRequest struct {
	StartAt  *string `json:"startAt"`
	EndAt    *string `json:"endAt"`
	IsBooked *bool   `json:"isBooked"`
}

type AppointmentDTO struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	PetID     uuid.UUID `json:"petId"`
	VetID     uuid.UUID `json:"vetId"`
	DateTime  time.Time `json:"dateTime"`
	Status    string    `json:"status"`
	PetName   string    `json:"petName,omitempty"`
	VetName   string    `json:"vetName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type AppointmentResponse struct {
	OK          bool           `json:"ok"`
	Appointment AppointmentDTO `json:"appointment"`
}

type AppointmentListResponse struct {
	OK           bool             `json:"ok"`
	Appointments []AppointmentDTO `json:"appointments"`
}

type PaymentDTO struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	AmountCents   int64     `json:"amountCents"`
	Provider      string    `json:"provider"`
	Status        string    `json:"status"`
	Reference     *string   `json:"reference"`
	CreatedAt     time.Time `json:"createdAt"`
}

type PaymentResponse struct {
	OK      bool       `json:"ok"`
	Payment PaymentDTO `json:"payment"`
}

type PaymentListResponse struct {
	OK       bool         `json:"ok"`
	Payments []PaymentDTO `json:"payments"`
}

type SlotDTO struct {
	ID        uuid.UUID `json:"id"`
	VetID     uuid.UUID `json:"vetId"`
	StartAt   time.Time `json:"startAt"`
	EndAt     time.Time `json:"endAt"`
	IsBooked  bool      `json:"isBooked"`
	CreatedAt time.Time `json:"createdAt"`
}

type SlotResponse struct {
	OK   bool    `json:"ok"`
	Slot SlotDTO `json:"slot"`
}

type SlotListResponse struct {
	OK    bool      `json:"ok"`
	Slots []SlotDTO `json:"slots"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func appointmentDTO(a *booking.Appointment) AppointmentDTO {
	return AppointmentDTO{
		ID:        a.ID,
		OwnerID:   a.OwnerID,
		PetID:     a.PetID,
		VetID:     a.VetID,
		DateTime:  a.StartAt,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}

func appointmentDetailDTO(d *booking.AppointmentDetail) AppointmentDTO {
	dto := appointmentDTO(&d.Appointment)
	dto.PetName = d.PetName
	dto.VetName = d.VetName
	return dto
}

func paymentDTO(p *payment.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            p.ID,
		AppointmentID: p.AppointmentID,
		AmountCents:   p.AmountCents,
		Provider:      p.Provider,
		Status:        string(p.Status),
		Reference:     p.Reference,
		CreatedAt:     p.CreatedAt,
	}
}

func slotDTO(s *schedule.Slot) SlotDTO {
	return SlotDTO{
		ID:        s.ID,
		VetID:     s.VetID,
		StartAt:   s.StartAt,
		EndAt:     s.EndAt,
		IsBooked:  s.IsBooked,
		CreatedAt: s.CreatedAt,
	}
}
