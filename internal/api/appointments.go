package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetcareplus/vetcare-api/internal/booking"
)

func createAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON")
			return
		}

		var issues []FieldIssue
		petID, err := uuid.Parse(req.PetID)
		if err != nil {
			issues = append(issues, FieldIssue{Field: "petId", Message: "must be a valid UUID"})
		}
		vetID, err := uuid.Parse(req.VetID)
		if err != nil {
			issues = append(issues, FieldIssue{Field: "vetId", Message: "must be a valid UUID"})
		}
		startAt, err := parseTime(req.DateTime)
		if err != nil {
			issues = append(issues, FieldIssue{Field: "dateTime", Message: "must be an RFC 3339 timestamp"})
		}
		if len(issues) > 0 {
			writeValidationError(w, issues)
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), actor, petID, vetID, startAt)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AppointmentResponse{OK: true, Appointment: appointmentDTO(appt)})
	}
}

func listAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var f booking.ListFilter
		q := r.URL.Query()

		if v := q.Get("vetId"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "vetId must be a valid UUID")
				return
			}
			f.VetID = &id
		}
		if v := q.Get("ownerId"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "ownerId must be a valid UUID")
				return
			}
			f.OwnerID = &id
		}
		if v := q.Get("from"); v != "" {
			t, err := parseTime(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "from must be an RFC 3339 timestamp")
				return
			}
			f.From = &t
		}
		if v := q.Get("to"); v != "" {
			t, err := parseTime(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "to must be an RFC 3339 timestamp")
				return
			}
			f.To = &t
		}

		details, err := svc.ListAppointments(r.Context(), actor, f)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		dtos := make([]AppointmentDTO, 0, len(details))
		for i := range details {
			dtos = append(dtos, appointmentDetailDTO(&details[i]))
		}

		writeJSON(w, http.StatusOK, AppointmentListResponse{OK: true, Appointments: dtos})
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be a valid UUID")
			return
		}

		detail, err := svc.GetAppointment(r.Context(), actor, id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentResponse{OK: true, Appointment: appointmentDetailDTO(detail)})
	}
}

func cancelAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be a valid UUID")
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), actor, id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentResponse{OK: true, Appointment: appointmentDTO(appt)})
	}
}

func rescheduleAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON")
			return
		}

		newStart, err := parseTime(req.NewDateTime)
		if err != nil {
			writeValidationError(w, []FieldIssue{{Field: "newDateTime", Message: "must be an RFC 3339 timestamp"}})
			return
		}

		appt, err := svc.RescheduleAppointment(r.Context(), actor, id, newStart)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentResponse{OK: true, Appointment: appointmentDTO(appt)})
	}
}

func setAppointmentStatusHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be a valid UUID")
			return
		}

		var req StatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON")
			return
		}

		status := booking.Status(req.Status)
		if !booking.ValidStatus(status) {
			writeValidationError(w, []FieldIssue{{Field: "status", Message: "must be BOOKED, COMPLETED or CANCELLED"}})
			return
		}

		appt, err := svc.SetStatus(r.Context(), actor, id, status)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentResponse{OK: true, Appointment: appointmentDTO(appt)})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrVetNotFound),
		errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, booking.ErrPetNotOwned),
		errors.Is(err, booking.ErrTimeConflict),
		errors.Is(err, booking.ErrNotCancellable),
		errors.Is(err, booking.ErrNotReschedulable):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrVetBeingBooked):
		writeError(w, http.StatusConflict, "vet is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339, v)
}
