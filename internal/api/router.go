package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vetcareplus/vetcare-api/internal/auth"
	"github.com/vetcareplus/vetcare-api/internal/booking"
	"github.com/vetcareplus/vetcare-api/internal/payment"
	"github.com/vetcareplus/vetcare-api/internal/schedule"
)

type BookingService interface {
	CreateAppointment(ctx context.Context, actor auth.Identity, petID, vetID uuid.UUID, startAt time.Time) (*booking.Appointment, error)
	RescheduleAppointment(ctx context.Context, actor auth.Identity, apptID uuid.UUID, newStartAt time.Time) (*booking.Appointment, error)
	CancelAppointment(ctx context.Context, actor auth.Identity, apptID uuid.UUID) (*booking.Appointment, error)
	SetStatus(ctx context.Context, actor auth.Identity, apptID uuid.UUID, to booking.Status) (*booking.Appointment, error)
	GetAppointment(ctx context.Context, actor auth.Identity, apptID uuid.UUID) (*booking.AppointmentDetail, error)
	ListAppointments(ctx context.Context, actor auth.Identity, f booking.ListFilter) ([]booking.AppointmentDetail, error)
}

type PaymentService interface {
	CreatePayment(ctx context.Context, actor auth.Identity, appointmentID uuid.UUID, amountCents int64, provider string) (*payment.Payment, error)
	Complete(ctx context.Context, actor auth.Identity, id uuid.UUID) (*payment.Payment, error)
	Fail(ctx context.Context, actor auth.Identity, id uuid.UUID) (*payment.Payment, error)
	Refund(ctx context.Context, actor auth.Identity, id uuid.UUID) (*payment.Payment, error)
	GetForAppointment(ctx context.Context, actor auth.Identity, appointmentID uuid.UUID) (*payment.Detail, error)
	List(ctx context.Context, actor auth.Identity) ([]payment.Detail, error)
}

type ScheduleService interface {
	ListOpenSlots(ctx context.Context, vetID uuid.UUID) ([]schedule.Slot, error)
	CreateSlot(ctx context.Context, vetID uuid.UUID, start, end time.Time) (*schedule.Slot, error)
	UpdateSlot(ctx context.Context, vetID, slotID uuid.UUID, change schedule.SlotChange) (*schedule.Slot, error)
	DeleteSlot(ctx context.Context, vetID, slotID uuid.UUID) error
}

type RouterConfig struct {
	Bookings  BookingService
	Payments  PaymentService
	Schedule  ScheduleService
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	JWTSecret string
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Post("/appointments", createAppointmentHandler(cfg.Bookings))
		r.Get("/appointments", listAppointmentsHandler(cfg.Bookings))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Bookings))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Bookings))
		r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Bookings))
		r.Get("/appointments/{id}/payment", getAppointmentPaymentHandler(cfg.Payments))

		r.Post("/payments", createPaymentHandler(cfg.Payments))
		r.Get("/payments", listPaymentsHandler(cfg.Payments))
		r.Post("/payments/{id}/complete", completePaymentHandler(cfg.Payments))
		r.Post("/payments/{id}/fail", failPaymentHandler(cfg.Payments))
		r.Post("/payments/{id}/refund", refundPaymentHandler(cfg.Payments))

		r.Get("/vets/{vetId}/availability", listOpenSlotsHandler(cfg.Schedule))

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(auth.RoleAdmin))

			r.Patch("/appointments/{id}/status", setAppointmentStatusHandler(cfg.Bookings))
			r.Post("/vets/{vetId}/availability", createSlotHandler(cfg.Schedule))
			r.Patch("/vets/{vetId}/availability/{slotId}", updateSlotHandler(cfg.Schedule))
			r.Delete("/vets/{vetId}/availability/{slotId}", deleteSlotHandler(cfg.Schedule))
		})
	})

	return r
}
