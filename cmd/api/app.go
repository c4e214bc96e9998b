package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"
	"trajet.transportbi.org/internal/app"
	"trajet.transportbi.org/internal/appconf"
	"trajet.transportbi.org/internal/clock"
	"trajet.transportbi.org/internal/logging"
	"trajet.transportbi.org/internal/metrics"
	"trajet.transportbi.org/internal/restapi"
	"trajet.transportbi.org/internal/webui"
)

const (
	dbStatsInterval = 15 * time.Second
	shutdownTimeout = 30 * time.Second
)

// ParseAPIKeys splits a comma-separated list of API keys and trims each one.
// Empty segments are kept; they never match a request key.
func ParseAPIKeys(apiKeysFlag string) []string {
	if apiKeysFlag == "" {
		return []string{}
	}
	keys := strings.Split(apiKeysFlag, ",")
	for i, key := range keys {
		keys[i] = strings.TrimSpace(key)
	}
	return keys
}

func newLogger(cfg appconf.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	if cfg.Env == appconf.Production {
		return logging.NewStructuredLogger(os.Stdout, level)
	}
	return logging.NewTextLogger(os.Stdout, level)
}

// BuildApplication opens the configured backend and wires the application
// on top of it.
func BuildApplication(cfg appconf.Config) (*app.Application, error) {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	clk := clock.RealClock{}
	backend, err := app.OpenBackend(cfg, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", cfg.Backend, err)
	}

	m := metrics.NewWithLogger(logger)
	if backend.Local != nil {
		m.StartDBStatsCollector(backend.Local.DB, dbStatsInterval)
	}

	coreApp := app.New(cfg, logger, clk, m, backend)
	logging.LogOperation(logger, "application_built",
		slog.String("backend", string(backend.Kind)),
		slog.String("env", cfg.Env.String()))
	return coreApp, nil
}

// CreateServer builds the HTTP server and the REST API behind it. The
// caller owns api and must call api.Shutdown.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)
	webUI := &webui.WebUI{Application: coreApp}

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	webUI.SetWebUIRoutes(mux)

	// Metrics wraps the mux directly so it sees the matched pattern.
	var handler http.Handler = mux
	if coreApp.Metrics != nil {
		handler = restapi.MetricsHandler(coreApp.Metrics)(handler)
	}
	handler = restapi.NewRequestLoggingMiddleware(coreApp.Logger)(handler)
	handler = restapi.RequestIDMiddleware(handler)
	handler = gzhttp.GzipHandler(handler)
	handler = cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "If-None-Match", "X-Request-ID"},
		ExposedHeaders: []string{"ETag", "Retry-After", "X-Request-ID"},
		MaxAge:         300,
	})(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}
	return srv, api
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully and releases the backend.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "server_starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logging.LogOperation(logger, "server_shutting_down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "server forced to shutdown", err)
		runErr = errors.Join(runErr, err)
	}

	api.Shutdown()
	if coreApp.Metrics != nil {
		coreApp.Metrics.Shutdown()
	}
	if coreApp.Backend != nil {
		logging.SafeCloseWithLogging(coreApp.Backend, logger, "backend")
	}
	logging.LogOperation(logger, "server_stopped")
	return runErr
}
