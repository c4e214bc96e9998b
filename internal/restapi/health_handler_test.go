package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trajet.transportbi.org/internal/app"
)

func TestHealthHandlerWithNilApplication(t *testing.T) {
	api := &RestAPI{
		Application: nil,
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	api.healthHandler(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "backend not initialized", resp.Detail)
}

func TestHealthHandlerWithNilBackend(t *testing.T) {
	api := &RestAPI{
		Application: &app.Application{},
	}

	w := httptest.NewRecorder()
	api.healthHandler(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandlerReturnsOK(t *testing.T) {
	api := createTestApi(t)

	w := httptest.NewRecorder()
	api.healthHandler(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "local", resp.Backend)
}

func TestHealthHandlerBackendClosed(t *testing.T) {
	api := createTestApi(t)
	require.NoError(t, api.Backend.Close())

	w := httptest.NewRecorder()
	api.healthHandler(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "backend connection failed", resp.Detail)
}

func TestHealthzRouteNeedsNoKey(t *testing.T) {
	api := createTestApi(t)
	server := serveAPI(t, api)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
