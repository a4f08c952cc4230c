package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the uniform error body for all endpoints. Details is
// only populated for errors that carry structured data (e.g. the
// required/available amounts on a payment-required rejection).
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// RespondWithError sends an error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithErrorDetails sends an error response with structured details
func RespondWithErrorDetails(w http.ResponseWriter, code int, message string, details map[string]any) {
	RespondWithJSON(w, code, ErrorResponse{Error: message, Details: details})
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return err
	}
	return nil
}
