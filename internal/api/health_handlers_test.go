package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	envelope := decodeEnvelope[HealthResponse](t, resp.Body.Bytes())
	assert.True(t, envelope.Success)
	assert.Equal(t, "healthy", envelope.Data.Status)
	assert.Equal(t, "healthy", envelope.Data.Components["database"].Status)
	assert.Equal(t, "0 books indexed", envelope.Data.Components["search"].Message)
	assert.Equal(t, "no connected clients", envelope.Data.Components["sse"].Message)
}

func TestHealthCheck_SearchDisabledIsDegraded(t *testing.T) {
	ts := setupTestServer(t)
	ts.services.Search = nil

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	envelope := decodeEnvelope[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "degraded", envelope.Data.Status)
	assert.Equal(t, "degraded", envelope.Data.Components["search"].Status)
}

func TestFormatSSEStatus(t *testing.T) {
	assert.Equal(t, "no connected clients", formatSSEStatus(0))
	assert.Equal(t, "1 connected client", formatSSEStatus(1))
	assert.Equal(t, "12 connected clients", formatSSEStatus(12))
}
