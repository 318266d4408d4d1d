package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/schofire/invoiceapi/internal/apperr"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Error maps a service error to its HTTP status and writes the JSON body.
// Unrecognized errors are reported as a generic 500 without leaking detail.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, apperr.ErrUnauthenticated):
		JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, apperr.ErrForbidden):
		JSONError(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, apperr.ErrConflict):
		JSONError(w, http.StatusConflict, "conflict", nil)
	case errors.Is(err, apperr.ErrInvalidArgument):
		JSONError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, apperr.ErrUnavailable):
		JSONError(w, http.StatusServiceUnavailable, "unavailable", nil)
	default:
		JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
