package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/sofemci/predictive/internal/services"
)

// ErrorResponse is the error envelope returned by every endpoint
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// RespondJSON writes data as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Failed to encode JSON response: %v", err)
		}
	}
}

// RespondError writes an error response with a machine-readable code.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// RespondValidationError writes field-level validation errors as a 422 response.
func RespondValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	RespondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "Validation failed",
		Code:    "validation_error",
		Details: fieldErrors,
	})
}

// RespondServiceError maps a service error onto an HTTP status.
// Unknown errors are logged and reported as 500 without their details.
func RespondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrMachineNotFound),
		errors.Is(err, services.ErrZoneNotFound),
		errors.Is(err, services.ErrAlertNotFound):
		RespondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		RespondError(w, http.StatusConflict, "invalid_transition", err.Error())
	default:
		log.Printf("Request failed: %v", err)
		RespondError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
