package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUp_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":     "Ada@Example.com",
		"password":  "correct horse battery",
		"full_name": "Ada Lovelace",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	envelope := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())
	assert.True(t, envelope.Success)
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.Equal(t, "Bearer", envelope.Data.TokenType)
	assert.Equal(t, "ada@example.com", envelope.Data.User.Email)
	assert.Positive(t, envelope.Data.ExpiresIn)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)
	ts.signUp(t, "ada@example.com", "Ada")

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":    "ada@example.com",
		"password": "another password",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "ALREADY_EXISTS", decodeError(t, resp.Body.Bytes()).Code)
}

func TestSignUp_ValidationErrors(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{
			name:       "missing email",
			body:       map[string]any{"password": "correct horse battery"},
			wantStatus: http.StatusUnprocessableEntity, // Huma rejects missing required fields
		},
		{
			name:       "invalid email format",
			body:       map[string]any{"email": "not-an-email", "password": "correct horse battery"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "password too short",
			body:       map[string]any{"email": "ada@example.com", "password": "short"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/auth/signup", tt.body)
			assert.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())

			envelope := decodeError(t, resp.Body.Bytes())
			assert.False(t, envelope.Success)
			assert.Equal(t, "VALIDATION", envelope.Code)
		})
	}
}

func TestSignIn(t *testing.T) {
	ts := setupTestServer(t)
	ts.signUp(t, "ada@example.com", "Ada")

	resp := ts.api.Post("/api/v1/auth/signin", map[string]any{
		"email":    "ada@example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	envelope := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())
	assert.NotNil(t, envelope.Data.User.LastLoginAt)

	resp = ts.api.Post("/api/v1/auth/signin", map[string]any{
		"email":    "ada@example.com",
		"password": "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, resp.Body.Bytes()).Code)
}

func TestSignIn_RateLimited(t *testing.T) {
	ts := setupTestServer(t, withSignInLimit(0.001, 2))

	body := map[string]any{"email": "nobody@example.com", "password": "whatever"}
	for range 2 {
		resp := ts.api.Post("/api/v1/auth/signin", body)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	}

	resp := ts.api.Post("/api/v1/auth/signin", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, resp.Body.Bytes()).Code)
}

func TestSession_AndSignOut(t *testing.T) {
	ts := setupTestServer(t)
	token, userID := ts.signUp(t, "ada@example.com", "Ada")

	resp := ts.api.Get("/api/v1/auth/session", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	session := decodeEnvelope[SessionResponse](t, resp.Body.Bytes())
	assert.Equal(t, userID, session.Data.UserID)
	assert.Equal(t, "ada@example.com", session.Data.Email)

	resp = ts.api.Post("/api/v1/auth/signout", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/auth/session", bearer(token))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSession_MissingOrMalformedHeader(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/auth/session")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Missing authorization header", decodeError(t, resp.Body.Bytes()).Message)

	resp = ts.api.Get("/api/v1/auth/session", "Authorization: Token abc")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Invalid authorization header format", decodeError(t, resp.Body.Bytes()).Message)
}

func TestRefresh_RotatesOnce(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":    "ada@example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	first := decodeEnvelope[AuthResponse](t, resp.Body.Bytes()).Data

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": first.RefreshToken})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	second := decodeEnvelope[AuthResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
