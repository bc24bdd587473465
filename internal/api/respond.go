package api

import (
	"encoding/json"
	"log"
	"net/http"
)

type ErrorResponse struct {
	OK      bool         `json:"ok"`
	Error   string       `json:"error"`
	Details string       `json:"details,omitempty"`
	Issues  []FieldIssue `json:"issues,omitempty"`
}

// FieldIssue is one field-level validation problem.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{OK: false, Error: message})
}

func writeValidationError(w http.ResponseWriter, issues []FieldIssue) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		OK:     false,
		Error:  "validation failed",
		Issues: issues,
	})
}
