package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		code   *ErrorCode
	}{
		{http.StatusBadRequest, ErrorCodeBadRequest},
		{http.StatusUnauthorized, ErrorCodeUnauthorized},
		{http.StatusForbidden, ErrorCodeForbidden},
		{http.StatusNotFound, ErrorCodeNotFound},
		{http.StatusInternalServerError, ErrorCodeUpstream},
		{http.StatusTeapot, ErrorCodeUpstream},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			err := FromStatus(tc.status, []byte("nope"))
			require.Equal(t, tc.code.Code(), err.Code)
			require.Equal(t, tc.status, err.HTTPStatus)
			require.Equal(t, []byte("nope"), err.Body)
			require.Same(t, tc.code, err.ErrorCode())
		})
	}
}

func TestErrorString(t *testing.T) {
	err := FromStatus(http.StatusNotFound, nil).WithRequest(http.MethodGet, "https://api.example.com/users/1")
	require.Equal(t, "GET https://api.example.com/users/1: http 404: Not found", err.Error())

	wrapped := New(ErrorCodeTransport).WithRequest(http.MethodPost, "/x").Wrap(errors.New("connection refused"))
	require.Equal(t, "POST /x: Request could not be delivered: connection refused", wrapped.Error())

	var nilErr *AppError
	require.Equal(t, "<nil>", nilErr.Error())
}

func TestAsAndIs(t *testing.T) {
	base := New(ErrorCodeTimeout).Wrap(context.DeadlineExceeded)
	err := fmt.Errorf("calling upstream: %w", base)

	ae, ok := As(err)
	require.True(t, ok)
	require.Same(t, base, ae)
	require.True(t, IsCode(err, ErrorCodeTimeout))
	require.False(t, IsCode(err, ErrorCodeNotFound))
	require.True(t, errors.Is(err, context.DeadlineExceeded))

	require.True(t, IsStatus(FromStatus(http.StatusConflict, nil), http.StatusConflict))
	require.False(t, IsStatus(errors.New("plain"), http.StatusConflict))
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	ae := New(ErrorCodeNotFound)
	require.Same(t, ae, FromError(fmt.Errorf("wrap: %w", ae)))

	plain := errors.New("boom")
	got := FromError(plain)
	require.Equal(t, ErrorCodeInternal.Code(), got.Code)
	require.ErrorIs(t, got, plain)
}

func TestSuggestions(t *testing.T) {
	ae := New(ErrorCodeInvalidConfig).AddSuggestion("base_url", "must be absolute")
	require.True(t, ae.HasErrors())
	require.Equal(t, []Suggestion{{Field: "base_url", Message: "must be absolute"}}, ae.Suggestions)
}
