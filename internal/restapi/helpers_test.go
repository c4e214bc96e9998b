package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"trajet.transportbi.org/internal/app"
	"trajet.transportbi.org/internal/appconf"
	"trajet.transportbi.org/internal/metrics"
	"trajet.transportbi.org/internal/models"
	"trajet.transportbi.org/internal/session"
)

const (
	testAPIKey    = "TEST"
	testJWTSecret = "test-secret-test-secret-test-secret"
	testPassword  = "password123"
)

func testConfig() appconf.Config {
	cfg := appconf.Defaults()
	cfg.Env = appconf.Test
	cfg.Backend = appconf.BackendLocal
	cfg.DataPath = ":memory:"
	cfg.JWTSecret = testJWTSecret
	cfg.MapboxToken = "pk.test-token"
	cfg.ApiKeys = []string{testAPIKey}
	cfg.RateLimit = 1000
	return cfg
}

// createTestApi builds a RestAPI over an empty in-memory local backend.
func createTestApi(t *testing.T) *RestAPI {
	t.Helper()
	cfg := testConfig()
	backend, err := app.OpenBackend(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	a := app.New(cfg, slog.New(slog.DiscardHandler), nil, metrics.New(), backend)
	api := NewRestAPI(a)
	t.Cleanup(api.Shutdown)
	return api
}

func serveAPI(t *testing.T, api *RestAPI) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// callAPI sends a request with an optional bearer token and JSON body and
// decodes the envelope. The raw body stays readable through the model.
func callAPI(t *testing.T, server *httptest.Server, method, path, token string, body any) (*http.Response, models.ResponseModel) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case []byte:
			reader = bytes.NewReader(b)
		default:
			encoded, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(encoded)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var model models.ResponseModel
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &model), "body: %s", raw)
	}
	return resp, model
}

func serveAndRetrieveEndpoint(t *testing.T, endpoint string) (*RestAPI, *http.Response, models.ResponseModel) {
	t.Helper()
	api := createTestApi(t)
	resp, model := callAPI(t, serveAPI(t, api), http.MethodGet, endpoint, "", nil)
	return api, resp, model
}

// signUp creates an account through the backend and returns its token.
func signUp(t *testing.T, api *RestAPI, email string, admin bool) string {
	t.Helper()
	ctx := context.Background()
	provider, err := api.Backend.NewProvider(&session.MemoryStore{})
	require.NoError(t, err)
	sess, err := provider.SignUp(ctx, email, testPassword)
	require.NoError(t, err)
	require.NotNil(t, sess)
	if admin {
		require.NoError(t, api.Backend.Local.GrantAdmin(ctx, sess.User.ID))
	}
	return sess.AccessToken
}

func entryOf(t *testing.T, model models.ResponseModel) map[string]any {
	t.Helper()
	data, ok := model.Data.(map[string]any)
	require.True(t, ok, "data is %T", model.Data)
	entry, ok := data["entry"].(map[string]any)
	require.True(t, ok, "entry is %T", data["entry"])
	return entry
}

func listOf(t *testing.T, model models.ResponseModel) []any {
	t.Helper()
	data, ok := model.Data.(map[string]any)
	require.True(t, ok, "data is %T", model.Data)
	list, ok := data["list"].([]any)
	require.True(t, ok, "list is %T", data["list"])
	return list
}

// seedBujumbura stores one city and one line with a path and two stops.
func seedBujumbura(t *testing.T, api *RestAPI) (models.City, models.BusLine) {
	t.Helper()
	ctx := context.Background()
	city, err := api.Backend.Gateway.Cities.Insert(ctx, models.City{
		Name:        "Bujumbura",
		Coordinates: models.CityPoint{Lat: -3.3731, Lng: 29.36},
	})
	require.NoError(t, err)

	line, err := api.Backend.Gateway.BusLines.Insert(ctx, models.BusLine{
		Name:         "Kinindo - Centre",
		CityID:       city.ID,
		ZonesCovered: []string{"Kinindo", "Centre"},
		RouteCoordinates: models.NewLineString(
			models.NewPosition(29.35, -3.41),
			models.NewPosition(29.36, -3.38),
		),
		Stops: []models.Stop{
			{Name: "Kinindo", Coordinates: models.NewPosition(29.35, -3.41)},
			{Name: "Marché central", Coordinates: models.NewPosition(29.36, -3.38)},
		},
		Color:  "#FF0000",
		Price:  models.IntPtr(700),
		Active: true,
	})
	require.NoError(t, err)
	return city, line
}
