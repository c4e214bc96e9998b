package app

import (
	"log/slog"

	"trajet.transportbi.org/internal/appconf"
	"trajet.transportbi.org/internal/catalog"
	"trajet.transportbi.org/internal/clock"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/metrics"
	"trajet.transportbi.org/internal/search"
)

// Application holds the dependencies shared by the HTTP handlers, the
// middleware and the CLI commands. Gateway is the instrumented view of
// Backend.Gateway; every read and write goes through it.
type Application struct {
	Config  appconf.Config
	Logger  *slog.Logger
	Clock   clock.Clock
	Metrics *metrics.Metrics
	Backend *Backend
	Gateway gateway.Gateway
	Catalog *catalog.Catalog
	Search  *search.Engine
}

// New wires the read flows on top of backend. m may be nil.
func New(cfg appconf.Config, logger *slog.Logger, clk clock.Clock, m *metrics.Metrics, backend *Backend) *Application {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}

	var (
		gatewayObserver gateway.Observer
		searchObserver  search.Observer
	)
	if m != nil {
		gatewayObserver = m
		searchObserver = m
	}

	gw := backend.Gateway.Instrumented(gatewayObserver, logger)
	return &Application{
		Config:  cfg,
		Logger:  logger,
		Clock:   clk,
		Metrics: m,
		Backend: backend,
		Gateway: gw,
		Catalog: catalog.New(gw),
		Search:  search.NewEngine(gw.BusLines, gw.Routes, searchObserver),
	}
}
