package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"campus/internal/domain"
	"campus/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var invalidOpErr *domain.InvalidOperationError
	var conflictErr *domain.ConflictError

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrAccessDenied):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &invalidOpErr):
		httputil.RespondError(w, http.StatusUnprocessableEntity, invalidOpErr.Error())
	case errors.As(err, &conflictErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(),
			map[string]any{"retryable": true})
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, err.Error(),
			map[string]any{"retryable": true})
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID validates that s is a well-formed UUID and returns it normalized
func parseUUID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// pathID extracts and validates the {id} path segment
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := parseUUID(r.PathValue("id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid item ID")
		return "", false
	}
	return id, true
}
