package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetcareplus/vetcare-api/internal/auth"
	"github.com/vetcareplus/vetcare-api/internal/payment"
)

func createPaymentHandler(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req CreatePaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON")
			return
		}

		var issues []FieldIssue
		apptID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			issues = append(issues, FieldIssue{Field: "appointmentId", Message: "must be a valid UUID"})
		}
		if req.AmountCents <= 0 {
			issues = append(issues, FieldIssue{Field: "amountCents", Message: "must be a positive integer"})
		}
		if len(issues) > 0 {
			writeValidationError(w, issues)
			return
		}

		p, err := svc.CreatePayment(r.Context(), actor, apptID, req.AmountCents, req.Provider)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, PaymentResponse{OK: true, Payment: paymentDTO(p)})
	}
}

func listPaymentsHandler(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		details, err := svc.List(r.Context(), actor)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		dtos := make([]PaymentDTO, 0, len(details))
		for i := range details {
			dtos = append(dtos, paymentDTO(&details[i].Payment))
		}

		writeJSON(w, http.StatusOK, PaymentListResponse{OK: true, Payments: dtos})
	}
}

func getAppointmentPaymentHandler(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		apptID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be a valid UUID")
			return
		}

		detail, err := svc.GetForAppointment(r.Context(), actor, apptID)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PaymentResponse{OK: true, Payment: paymentDTO(&detail.Payment)})
	}
}

func settlePaymentHandler(settle func(r *http.Request, actor auth.Identity, id uuid.UUID) (*payment.Payment, error)) http.HandlerFunc {
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

		p, err := settle(r, actor, id)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PaymentResponse{OK: true, Payment: paymentDTO(p)})
	}
}

func completePaymentHandler(svc PaymentService) http.HandlerFunc {
	return settlePaymentHandler(func(r *http.Request, actor auth.Identity, id uuid.UUID) (*payment.Payment, error) {
		return svc.Complete(r.Context(), actor, id)
	})
}

func failPaymentHandler(svc PaymentService) http.HandlerFunc {
	return settlePaymentHandler(func(r *http.Request, actor auth.Identity, id uuid.UUID) (*payment.Payment, error) {
		return svc.Fail(r.Context(), actor, id)
	})
}

func refundPaymentHandler(svc PaymentService) http.HandlerFunc {
	return settlePaymentHandler(func(r *http.Request, actor auth.Identity, id uuid.UUID) (*payment.Payment, error) {
		return svc.Refund(r.Context(), actor, id)
	})
}

func handlePaymentError(w http.ResponseWriter, err error) {
	var stateErr *payment.StateError
	switch {
	case errors.As(err, &stateErr):
		writeError(w, http.StatusBadRequest, stateErr.Error())
	case errors.Is(err, payment.ErrPaymentNotFound),
		errors.Is(err, payment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, payment.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, payment.ErrPaymentExists),
		errors.Is(err, payment.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
