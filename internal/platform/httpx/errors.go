// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the domain layer. Module packages wrap these so the
// HTTP boundary can map any failure to the right status code with errors.Is.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrStorage    = errors.New("storage failure")
)

// Storage tags err as a storage failure unless it already carries one of the
// sentinels above. Transaction helpers pass rolled-back errors through it so
// callers see them as retryable instead of an opaque internal error.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrForbidden, ErrStorage} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Storage failures carry a fixed detail telling the caller the operation
// rolled back and may be retried.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrStorage):
		Problem(w, http.StatusInternalServerError, "Storage Error", "operation rolled back, safe to retry")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
