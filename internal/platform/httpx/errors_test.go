package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorageLeavesDomainErrorsAlone(t *testing.T) {
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrForbidden, ErrStorage} {
		wrapped := fmt.Errorf("%w: sale 42", sentinel)
		require.Same(t, wrapped, Storage(wrapped))
	}
	require.NoError(t, Storage(nil))
}

func TestStorageTagsUnmappedErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage(cause)
	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, cause)
}

func TestRespondErrorStorageIsRetryable(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, Storage(errors.New("connection reset")))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Storage Error")
	require.Contains(t, rec.Body.String(), "operation rolled back, safe to retry")
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: sale", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: dup", ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: qty", ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: pin", ErrForbidden), http.StatusForbidden},
		{errors.New("unmapped"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}
