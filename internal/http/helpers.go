package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledgerchat/internal/core"
	"ledgerchat/internal/log"
	"ledgerchat/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondServiceError maps domain and storage errors onto HTTP status
// codes, hiding internals behind a generic 500. Unexpected errors are
// logged with the request-scoped logger before being masked.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicate):
		respondError(w, http.StatusConflict, "already exists")
	case errors.Is(err, storage.ErrOTPInvalid):
		respondError(w, http.StatusUnauthorized, "invalid or expired code")
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrDescriptionTooLong),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidDateRange),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrInvalidUsername):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			log.FieldError, err,
			"method", r.Method,
			"path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
