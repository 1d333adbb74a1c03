package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", InvalidArgument("content is empty"), http.StatusBadRequest},
		{"unauthenticated", Unauthenticated("missing token"), http.StatusUnauthorized},
		{"forbidden", Forbidden("admin only"), http.StatusForbidden},
		{"not found", NotFound("user %s", "u9"), http.StatusNotFound},
		{"conflict", Conflict("email taken"), http.StatusConflict},
		{"rate limited", RateLimited("slow down"), http.StatusTooManyRequests},
		{"unavailable", Unavailable(errors.New("dial tcp: refused")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped twice", fmt.Errorf("append: %w", NotFound("receiver")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessageHidesCause(t *testing.T) {
	err := Unavailable(errors.New("pq: password authentication failed"))
	require.Equal(t, "internal server error", PublicMessage(err))
	require.True(t, errors.Is(err, ErrUnavailable))

	require.Equal(t, "user u2", PublicMessage(NotFound("user %s", "u2")))
	require.Equal(t, "user u2", PublicMessage(fmt.Errorf("lookup: %w", NotFound("user %s", "u2"))))
	require.Equal(t, "not found: user u2", NotFound("user %s", "u2").Error())
}
