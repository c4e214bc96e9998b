package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trajet.transportbi.org/internal/app"
	"trajet.transportbi.org/internal/appconf"
	"trajet.transportbi.org/internal/models"
)

func testConfig(port int) appconf.Config {
	cfg := appconf.Defaults()
	cfg.Port = port
	cfg.Env = appconf.Test
	cfg.ApiKeys = []string{"test"}
	cfg.RateLimit = 100
	cfg.Backend = appconf.BackendLocal
	cfg.DataPath = ":memory:"
	cfg.JWTSecret = "test-secret-test-secret-test-secret"
	cfg.MapboxToken = "pk.test"
	return cfg
}

// seedLines inserts n active bus lines with four stops each.
func seedLines(t *testing.T, coreApp *app.Application, n int) {
	t.Helper()
	for i := range n {
		line := models.BusLine{
			Name:   fmt.Sprintf("Ligne %d", i),
			CityID: "bujumbura",
			Color:  "#1E88E5",
			Active: true,
		}
		for j := range 4 {
			p := models.NewPosition(29.35+float64(i)*0.01, -3.41+float64(j)*0.01)
			line.Stops = append(line.Stops, models.Stop{Name: fmt.Sprintf("Stop %d-%d", i, j), Coordinates: p})
		}
		line.RouteCoordinates = models.NewLineString(line.Stops[0].Coordinates, line.Stops[3].Coordinates)
		_, err := coreApp.Gateway.BusLines.Insert(context.Background(), line)
		require.NoError(t, err)
	}
}

func TestParseAPIKeys(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Single key",
			input:    "test-key",
			expected: []string{"test-key"},
		},
		{
			name:     "Multiple keys",
			input:    "key1,key2,key3",
			expected: []string{"key1", "key2", "key3"},
		},
		{
			name:     "Keys with spaces",
			input:    " key1 , key2 , key3 ",
			expected: []string{"key1", "key2", "key3"},
		},
		{
			name:     "Empty string",
			input:    "",
			expected: []string{},
		},
		{
			name:     "Single key with whitespace",
			input:    "  test-key  ",
			expected: []string{"test-key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseAPIKeys(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseAPIKeysEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Only commas",
			input:    ",,,",
			expected: []string{"", "", "", ""},
		},
		{
			name:     "Commas with spaces",
			input:    " , , , ",
			expected: []string{"", "", "", ""},
		},
		{
			name:     "Trailing comma",
			input:    "key1,",
			expected: []string{"key1", ""},
		},
		{
			name:     "Leading comma",
			input:    ",key1",
			expected: []string{"", "key1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseAPIKeys(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestBuildApplicationWithMemoryDB(t *testing.T) {
	cfg := testConfig(4000)

	coreApp, err := BuildApplication(cfg)
	require.NoError(t, err, "BuildApplication should not return an error")
	t.Cleanup(func() {
		coreApp.Metrics.Shutdown()
		_ = coreApp.Backend.Close()
	})

	assert.NotNil(t, coreApp.Logger, "Logger should be initialized")
	assert.NotNil(t, coreApp.Metrics, "Metrics should be initialized")
	assert.NotNil(t, coreApp.Backend.Local, "Local backend should be open")
	assert.Equal(t, cfg, coreApp.Config, "Config should match input")
}

func TestBuildApplicationErrorHandling(t *testing.T) {
	cfg := testConfig(4000)
	cfg.Backend = "firebase"

	_, err := BuildApplication(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open firebase backend")
}

func TestCreateServer(t *testing.T) {
	cfg := testConfig(8080)
	coreApp, err := BuildApplication(cfg)
	require.NoError(t, err, "BuildApplication should not fail")
	t.Cleanup(func() { _ = coreApp.Backend.Close() })

	srv, api := CreateServer(coreApp, cfg)
	defer api.Shutdown()

	assert.NotNil(t, srv, "Server should not be nil")
	assert.Equal(t, ":8080", srv.Addr, "Server address should match port")
	assert.NotNil(t, srv.Handler, "Server handler should be set")
	assert.Equal(t, time.Minute, srv.IdleTimeout, "IdleTimeout should be 1 minute")
	assert.Equal(t, 5*time.Second, srv.ReadTimeout, "ReadTimeout should be 5 seconds")
	assert.Equal(t, 10*time.Second, srv.WriteTimeout, "WriteTimeout should be 10 seconds")
}

func TestCreateServerHandlerResponds(t *testing.T) {
	cfg := testConfig(8080)
	coreApp, err := BuildApplication(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = coreApp.Backend.Close() })

	srv, api := CreateServer(coreApp, cfg)
	defer api.Shutdown()

	t.Run("config endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/config.json?key=test", nil)
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("small bodies stay uncompressed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/config.json?key=test", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Values("Vary"), "Accept-Encoding")
		assert.Empty(t, w.Header().Get("Content-Encoding"))
	})

	t.Run("gzip when accepted", func(t *testing.T) {
		seedLines(t, coreApp, 6)

		req := httptest.NewRequest(http.MethodGet, "/api/map.json?key=test", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
		assert.Contains(t, w.Header().Values("Vary"), "Accept-Encoding")

		zr, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		body, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Greater(t, len(body), 1024)
		assert.Contains(t, string(body), "Stop 5-3")
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/home.json?key=test", nil)
		req.Header.Set("Origin", "https://app.transportbi.org")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("debug page outside production", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug?dataType=counts", nil)
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "trajet_http_requests_total")
	})
}

func TestRunWithPortZeroAndImmediateShutdown(t *testing.T) {
	cfg := testConfig(0)
	coreApp, err := BuildApplication(cfg)
	require.NoError(t, err)

	srv, api := CreateServer(coreApp, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, srv, coreApp, api)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "Server should shutdown cleanly")
	case <-time.After(10 * time.Second):
		t.Fatal("Test timeout - server did not shutdown")
	}
}

func TestConfigFileLoading(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("loads valid YAML config file", func(t *testing.T) {
		path := write("config.yaml", `
port: 5000
env: test
api-keys: [test-key]
rate-limit: 50
backend: local
data-path: ":memory:"
jwt-secret: test-secret-test-secret-test-secret
mapbox-token: pk.test
`)
		cfg, err := loadConfig(path, dir)
		require.NoError(t, err)

		coreApp, err := BuildApplication(cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = coreApp.Backend.Close() })
		assert.Equal(t, 5000, coreApp.Config.Port)
		assert.Equal(t, appconf.Test, coreApp.Config.Env)
		assert.Equal(t, []string{"test-key"}, coreApp.Config.ApiKeys)
		assert.Equal(t, 50, coreApp.Config.RateLimit)
	})

	t.Run("fails on missing settings", func(t *testing.T) {
		path := write("config.json", `{"port": 5000, "backend": "supabase"}`)
		_, err := loadConfig(path, dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.ErrorIs(t, err, appconf.ErrMissingSetting)
	})

	t.Run("fails on nonexistent file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(dir, "nonexistent.json"), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to stat config file")
	})
}

func TestLoadConfigFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TRAJET_PORT=4100\nMAPBOX_TOKEN=pk.base\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("MAPBOX_TOKEN=pk.local\n"), 0o600))
	t.Setenv("TRAJET_PORT", "")
	t.Setenv("MAPBOX_TOKEN", "")
	require.NoError(t, os.Unsetenv("TRAJET_PORT"))
	require.NoError(t, os.Unsetenv("MAPBOX_TOKEN"))

	cfg, err := loadConfig("", dir)
	require.NoError(t, err)
	assert.Equal(t, 4100, cfg.Port)
	assert.Equal(t, "pk.local", cfg.MapboxToken)
}

func TestApplyFlags(t *testing.T) {
	cfg := appconf.Defaults()
	applyFlags(&cfg, 9000, "production", "a, b", 0, true, "local", "/tmp/trajet.db")

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, appconf.Production, cfg.Env)
	assert.Equal(t, []string{"a", "b"}, cfg.ApiKeys)
	assert.Equal(t, 0, cfg.RateLimit)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, appconf.BackendLocal, cfg.Backend)
	assert.Equal(t, "/tmp/trajet.db", cfg.DataPath)

	untouched := appconf.Defaults()
	applyFlags(&untouched, 0, "", "", -1, false, "", "")
	assert.Equal(t, appconf.Defaults(), untouched)
}
