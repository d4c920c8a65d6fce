package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"ms-marketplace/internal/models"
)

// Caller returns the acting account for a request. Authentication itself is
// out of scope; identity arrives as a header set by the edge.
func Caller(r *http.Request) string {
	return r.Header.Get("X-Account-ID")
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError maps the marketplace error taxonomy onto HTTP status codes.
// The specific failure reason travels in the body.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrSupplyExhausted):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientBalance), errors.Is(err, models.ErrInsufficientAllowance):
		status = http.StatusPaymentRequired
	}
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}
