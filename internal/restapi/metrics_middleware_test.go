package restapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trajet.transportbi.org/internal/metrics"
)

func requestCount(m *metrics.Metrics, method, route, status string) float64 {
	return testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(method, route, status))
}

func TestMetricsHandlerNilMetricsPassesThrough(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rec := httptest.NewRecorder()
	MetricsHandler(nil)(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMetricsHandlerLabelsByRoute(t *testing.T) {
	api := createTestApi(t)
	_, line := seedBujumbura(t, api)
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	handler := MetricsHandler(api.Metrics)(mux)

	for _, path := range []string{
		"/api/bus-lines/" + line.ID + "?key=TEST",
		"/api/bus-lines/missing?key=TEST",
		"/api/bus-lines/also-missing?key=TEST",
		"/api/nothing-here",
	} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 1.0, requestCount(api.Metrics, "GET", "/api/bus-lines/{id}", "200"))
	assert.Equal(t, 2.0, requestCount(api.Metrics, "GET", "/api/bus-lines/{id}", "404"),
		"ids never become label values")
	assert.Equal(t, 1.0, requestCount(api.Metrics, "GET", "unmatched", "404"))
}

func TestMetricsHandlerStatusCodes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name:    "implicit ok",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) },
			want:    "200",
		},
		{
			name:    "created",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) },
			want:    "201",
		},
		{
			name: "first status wins",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.WriteHeader(http.StatusOK)
			},
			want: "502",
		},
		{
			name:    "nothing written",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			want:    "200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			mux := http.NewServeMux()
			mux.Handle("POST /api/admin/agencies", tt.handler)

			MetricsHandler(m)(mux).ServeHTTP(httptest.NewRecorder(),
				httptest.NewRequest(http.MethodPost, "/api/admin/agencies", nil))

			assert.Equal(t, 1.0, requestCount(m, "POST", "/api/admin/agencies", tt.want))
		})
	}
}

func TestMetricsHandlerClientClosed(t *testing.T) {
	m := metrics.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search.json", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/search.json", nil).WithContext(ctx)
	MetricsHandler(m)(mux).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1.0, requestCount(m, "GET", "/api/search.json", "499"))
	assert.Equal(t, 0.0, requestCount(m, "GET", "/api/search.json", "200"))
}

func TestMetricsResponseWriterUnwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &metricsResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	assert.Same(t, rec, w.Unwrap())
	require.NoError(t, http.NewResponseController(w).Flush())
	assert.True(t, rec.Flushed, "flushes reach the underlying writer")
}

func TestRouteLabel(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/bus-lines/42", nil)
	assert.Equal(t, "unmatched", routeLabel(req))

	req.Pattern = "GET /api/bus-lines/{id}"
	assert.Equal(t, "/api/bus-lines/{id}", routeLabel(req))

	req.Pattern = "/debug"
	assert.Equal(t, "/debug", routeLabel(req))
}
