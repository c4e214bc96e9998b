package restapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trajet.transportbi.org/internal/gateway"
)

func TestMapHandlerETag(t *testing.T) {
	api := createTestApi(t)
	_, line := seedBujumbura(t, api)
	server := serveAPI(t, api)

	resp, model := callAPI(t, server, http.MethodGet, "/api/map.json?key=TEST", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tag := resp.Header.Get("ETag")
	require.NotEmpty(t, tag)

	entry := entryOf(t, model)
	assert.Len(t, entry["polylines"], 1)
	assert.Len(t, entry["markers"], 2)
	assert.Equal(t, tag, `"`+entry["fingerprint"].(string)+`"`)

	t.Run("unchanged lines answer 304", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/map.json?key=TEST", nil)
		require.NoError(t, err)
		req.Header.Set("If-None-Match", tag)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusNotModified, resp.StatusCode)
		assert.Equal(t, tag, resp.Header.Get("ETag"))
	})

	t.Run("an edit changes the tag", func(t *testing.T) {
		_, err := api.Backend.Gateway.BusLines.Update(context.Background(), line.ID, gateway.Patch{"color": "#00FF00"})
		require.NoError(t, err)

		resp, _ := callAPI(t, server, http.MethodGet, "/api/map.json?key=TEST", "", nil)
		assert.NotEqual(t, tag, resp.Header.Get("ETag"))
	})
}

func TestMapHandlerEmpty(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/map.json?key=TEST")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	entry := entryOf(t, model)
	assert.Empty(t, entry["polylines"])
	viewport := entry["viewport"].(map[string]any)
	center := viewport["center"].(map[string]any)
	assert.InDelta(t, -3.3731, center["latitude"], 1e-9)
}

func TestMapTapHandler(t *testing.T) {
	api := createTestApi(t)
	_, line := seedBujumbura(t, api)
	server := serveAPI(t, api)

	t.Run("near a stop", func(t *testing.T) {
		resp, model := callAPI(t, server, http.MethodGet, "/api/map/tap.json?key=TEST&lat=-3.3801&lon=29.3601", "", nil)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		entry := entryOf(t, model)
		marker := entry["marker"].(map[string]any)
		assert.Equal(t, line.ID, marker["line_id"])
		assert.Equal(t, "Marché central", marker["title"])
		detail := entry["line"].(map[string]any)
		assert.Equal(t, "Kinindo - Centre", detail["name"])
	})

	t.Run("far from every stop", func(t *testing.T) {
		resp, _ := callAPI(t, server, http.MethodGet, "/api/map/tap.json?key=TEST&lat=-3.30&lon=29.30", "", nil)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		resp, _ := callAPI(t, server, http.MethodGet, "/api/map/tap.json?key=TEST&lat=abc", "", nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("out of range", func(t *testing.T) {
		resp, _ := callAPI(t, server, http.MethodGet, "/api/map/tap.json?key=TEST&lat=95&lon=29.3", "", nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestETagMatches(t *testing.T) {
	assert.True(t, etagMatches(`"abc"`, `"abc"`))
	assert.True(t, etagMatches(`W/"abc"`, `"abc"`))
	assert.True(t, etagMatches(`"x", "abc"`, `"abc"`))
	assert.True(t, etagMatches(`*`, `"abc"`))
	assert.False(t, etagMatches(`"abd"`, `"abc"`))
}
