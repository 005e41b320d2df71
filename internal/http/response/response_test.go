package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var result Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	Success(w, map[string]string{"message": "test"}, logger)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	result := decode(t, w)
	assert.Equal(t, Version, result.Version)
	assert.True(t, result.Success)
	assert.NotNil(t, result.Data)
	assert.Empty(t, result.Error)
}

func TestStatusCodeBoundary(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		expectedSuccess bool
	}{
		{"200 OK", 200, true},
		{"204 No Content", 204, true},
		{"399 Custom Success", 399, true},
		{"400 Bad Request", 400, false},
		{"500 Internal Server Error", 500, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JSON(w, tt.status, nil, nil)
			assert.Equal(t, tt.expectedSuccess, decode(t, w).Success)
		})
	}
}

func TestUnauthorized(t *testing.T) {
	w := httptest.NewRecorder()
	Unauthorized(w, "Missing authorization header", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	result := decode(t, w)
	assert.False(t, result.Success)
	assert.Equal(t, "UNAUTHORIZED", result.Code)
	assert.Equal(t, "Missing authorization header", result.Message)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "domain error keeps its code",
			err:        domainerrors.TokenExpired("session expired"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "TOKEN_EXPIRED",
			wantMsg:    "session expired",
		},
		{
			name:       "backend not found",
			err:        backend.ErrNotFound.WithMessage("user not found"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantMsg:    "not found",
		},
		{
			name:       "unknown error hides its text",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL",
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, tt.err, slog.New(slog.NewTextHandler(io.Discard, nil)))

			assert.Equal(t, tt.wantStatus, w.Code)
			result := decode(t, w)
			assert.False(t, result.Success)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Equal(t, tt.wantMsg, result.Message)
			assert.Equal(t, tt.wantMsg, result.Error)
		})
	}
}

func TestEnvelope_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(Envelope{Version: Version, Success: true, Data: "test"})
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"v":1`)
	assert.Contains(t, s, `"data":"test"`)
	assert.NotContains(t, s, `"error":`)
	assert.NotContains(t, s, `"code":`)
}
