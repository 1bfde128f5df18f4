package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warefront/api/internal/apperr"
)

var errBadID = apperr.Validation("invalid id")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses. Anything without a
// kind is a 500 with a generic body; the cause goes to the log, not the wire.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindConflict:
		status = http.StatusConflict
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	body := map[string]string{"error": err.Error()}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body["code"] = appErr.Code()
	}
	writeJSON(w, status, body)
}

// isDomainError reports whether the error is part of the typed taxonomy and
// therefore expected traffic rather than a server fault.
func isDomainError(err error) bool {
	return apperr.KindOf(err) != apperr.KindUnknown
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errBadID
	}
	return id, nil
}
