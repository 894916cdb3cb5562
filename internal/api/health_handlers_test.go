package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthCheck_BeforeSetup(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "unhealthy", health.Components["fields"].Status)
	assert.Equal(t, "healthy", health.Components["imports"].Status)
}

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)
	ts.reload(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.NotEmpty(t, health.Uptime)
	assert.Equal(t, "5 codes, 10 synonyms", health.Components["fields"].Message)
}

func TestHealthCheck_NotConfigured(t *testing.T) {
	s := &Server{}

	assert.Equal(t, "degraded", s.checkFields().Status)
	assert.Equal(t, "degraded", s.checkImportLog(t.Context()).Status)
}
