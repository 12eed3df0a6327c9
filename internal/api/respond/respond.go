// Package respond writes JSON responses and maps domain errors to status codes.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mycelian/mycelian-crisis/internal/model"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes data as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrContactNotFound),
		errors.Is(err, model.ErrNoSafetyPlan):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteDomainError writes err with the status chosen by StatusFor. Internal
// errors are logged and their detail withheld from the client.
func WriteDomainError(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		log.Error().Stack().Err(err).Msg("request failed")
		WriteError(w, code, "internal error")
		return
	}
	WriteError(w, code, err.Error())
}
