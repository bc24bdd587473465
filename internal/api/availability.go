package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetcareplus/vetcare-api/internal/schedule"
)

func listOpenSlotsHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vetID, err := uuid.Parse(chi.URLParam(r, "vetId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "vetId must be a valid UUID")
			return
		}

		slots, err := svc.ListOpenSlots(r.Context(), vetID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		dtos := make([]SlotDTO, 0, len(slots))
		for i := range slots {
			dtos = append(dtos, slotDTO(&slots[i]))
		}

		writeJSON(w, http.StatusOK, SlotListResponse{OK: true, Slots: dtos})
	}
}

func createSlotHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vetID, err := uuid.Parse(chi.URLParam(r, "vetId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "vetId must be a valid UUID")
			return
		}

		var req CreateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON")
			return
		}

		var issues []FieldIssue
		start, err := parseTime(req.StartAt)
		if err != nil {
			issues = append(issues, FieldIssue{Field: "startAt", Message: "must be an RFC 3339 timestamp"})
		}
		end, err := parseTime(req.EndAt)
		if err != nil {
			issues = append(issues, FieldIssue{Field: "endAt", Message: "must be an RFC 3339 timestamp"})
		}
		if len(issues) > 0 {
			writeValidationError(w, issues)
			return
		}

		slot, err := svc.CreateSlot(r.Context(), vetID, start, end)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, SlotResponse{OK: true, Slot: slotDTO(slot)})
	}
}

func updateSlotHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vetID, err := uuid.Parse(chi.URLParam(r, "vetId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "vetId must be a valid UUID")
			return
		}
		slotID, err := uuid.Parse(chi.URLParam(r, "slotId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "slotId must be a valid UUID")
			return
		}

		var req UpdateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON")
			return
		}

		var change schedule.SlotChange
		var issues []FieldIssue
		if req.StartAt != nil {
			t, err := parseTime(*req.StartAt)
			if err != nil {
				issues = append(issues, FieldIssue{Field: "startAt", Message: "must be an RFC 3339 timestamp"})
			} else {
				change.StartAt = &t
			}
		}
		if req.EndAt != nil {
			t, err := parseTime(*req.EndAt)
			if err != nil {
				issues = append(issues, FieldIssue{Field: "endAt", Message: "must be an RFC 3339 timestamp"})
			} else {
				change.EndAt = &t
			}
		}
		if len(issues) > 0 {
			writeValidationError(w, issues)
			return
		}
		change.IsBooked = req.IsBooked

		slot, err := svc.UpdateSlot(r.Context(), vetID, slotID, change)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotResponse{OK: true, Slot: slotDTO(slot)})
	}
}

func deleteSlotHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vetID, err := uuid.Parse(chi.URLParam(r, "vetId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "vetId must be a valid UUID")
			return
		}
		slotID, err := uuid.Parse(chi.URLParam(r, "slotId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "slotId must be a valid UUID")
			return
		}

		if err := svc.DeleteSlot(r.Context(), vetID, slotID); err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, OKResponse{OK: true})
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrVetNotFound),
		errors.Is(err, schedule.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrSlotOverlap):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, schedule.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
