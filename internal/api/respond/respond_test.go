package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Vasu1712/lounge-backend/internal/apperr"
	"github.com/Vasu1712/lounge-backend/internal/logging"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func TestDecodeValidates(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{`, "invalid request body"},
		{"missing email", `{"password":"secret1"}`, "email is required"},
		{"short password", `{"email":"a@example.com","password":"123"}`, "password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst signup
			err := Decode(httptest.NewRecorder(), req, &dst)
			require.ErrorIs(t, err, apperr.ErrInvalidArgument)
			require.Equal(t, tt.want, apperr.PublicMessage(err))
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@example.com","password":"secret1"}`))
	var dst signup
	require.NoError(t, Decode(httptest.NewRecorder(), req, &dst))
	require.Equal(t, "a@example.com", dst.Email)
}

func TestErrorHidesInternalCause(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	Error(rr, req, logging.Discard(), apperr.Unavailable(errors.New("pq: connection refused")))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, "internal server error", body["message"])
}
