package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/agx/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error   string         `json:"error" validate:"required"`
	Matches []apperr.Match `json:"matches,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput),
		errors.Is(err, apperr.ErrMissingRequiredField):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrReferenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrAlreadyExists),
		errors.Is(err, apperr.ErrDuplicateTitle),
		errors.Is(err, apperr.ErrAmbiguousReference),
		errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrMalformedDocument),
		errors.Is(err, apperr.ErrInvalidMetadata):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrCorpusUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as an errResponse. Unclassified errors are logged
// and reported as "internal error".
func writeError(w http.ResponseWriter, op string, err error, attrs ...any) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", append(attrs, slog.String("error", err.Error()))...)
		writeJSON(w, status, errorBody("internal error"))
		return
	}

	body := errorBody(err.Error())
	var amb *apperr.AmbiguousReferenceError
	var dup *apperr.DuplicateTitleError
	switch {
	case errors.As(err, &amb):
		body.Matches = amb.Matches
	case errors.As(err, &dup):
		body.Matches = dup.Conflicts
	}
	writeJSON(w, status, body)
}
