// Package metrics provides Prometheus metrics for the trajet services.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search outcome label values.
const (
	SearchHit     = "hit"
	SearchEmpty   = "empty"
	SearchPartial = "partial"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Backend metrics
	GatewayCallsTotal   *prometheus.CounterVec
	GatewayCallDuration *prometheus.HistogramVec

	// Search metrics
	SearchesTotal  *prometheus.CounterVec
	SearchDuration prometheus.Histogram

	// Local database metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitSecondsTotal prometheus.Counter

	logger *slog.Logger

	// collectorStarted prevents spawning multiple collector goroutines
	collectorStarted atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	return NewWithLogger(nil)
}

// NewWithLogger creates metrics with a logger for error reporting.
func NewWithLogger(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trajet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trajet_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	gatewayCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trajet_gateway_calls_total",
			Help: "Total number of backend table calls",
		},
		[]string{"table", "operation", "outcome"},
	)

	gatewayCallDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trajet_gateway_call_duration_seconds",
			Help:    "Backend table call latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table", "operation"},
	)

	searchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trajet_searches_total",
			Help: "Total number of executed searches by outcome",
		},
		[]string{"outcome"},
	)

	searchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trajet_search_duration_seconds",
		Help:    "Search latency distribution, both collections included",
		Buckets: prometheus.DefBuckets,
	})

	dbConnectionsOpen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trajet_db_connections_open",
		Help: "Number of open local database connections",
	})

	dbConnectionsInUse := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trajet_db_connections_in_use",
		Help: "Number of local database connections currently in use",
	})

	dbConnectionsIdle := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trajet_db_connections_idle",
		Help: "Number of idle local database connections",
	})

	dbWaitSecondsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trajet_db_wait_seconds_total",
		Help: "Total time blocked waiting for a local database connection",
	})

	registry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		gatewayCallsTotal,
		gatewayCallDuration,
		searchesTotal,
		searchDuration,
		dbConnectionsOpen,
		dbConnectionsInUse,
		dbConnectionsIdle,
		dbWaitSecondsTotal,
	)

	return &Metrics{
		Registry:            registry,
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		GatewayCallsTotal:   gatewayCallsTotal,
		GatewayCallDuration: gatewayCallDuration,
		SearchesTotal:       searchesTotal,
		SearchDuration:      searchDuration,
		DBConnectionsOpen:   dbConnectionsOpen,
		DBConnectionsInUse:  dbConnectionsInUse,
		DBConnectionsIdle:   dbConnectionsIdle,
		DBWaitSecondsTotal:  dbWaitSecondsTotal,
		logger:              logger,
	}
}

// ObserveGatewayCall records one backend table call.
func (m *Metrics) ObserveGatewayCall(table, operation, outcome string, d time.Duration) {
	m.GatewayCallsTotal.WithLabelValues(table, operation, outcome).Inc()
	m.GatewayCallDuration.WithLabelValues(table, operation).Observe(d.Seconds())
}

// ObserveSearch records one search. A partial search counts as partial even
// when it found results.
func (m *Metrics) ObserveSearch(partial bool, results int, d time.Duration) {
	outcome := SearchHit
	switch {
	case partial:
		outcome = SearchPartial
	case results == 0:
		outcome = SearchEmpty
	}
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	m.SearchDuration.Observe(d.Seconds())
}

// StartDBStatsCollector starts a goroutine that periodically collects database
// connection pool statistics and updates the corresponding metrics.
// This method is idempotent. Call Shutdown() to stop the collector.
func (m *Metrics) StartDBStatsCollector(db *sql.DB, interval time.Duration) {
	if db == nil {
		return
	}

	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	var lastWaitDuration time.Duration

	// Add to WaitGroup BEFORE exposing cancel to avoid race with Shutdown
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				if m.logger != nil {
					m.logger.Error("panic in DB stats collector", "error", r)
				}
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := db.Stats()
				m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
				m.DBConnectionsInUse.Set(float64(stats.InUse))
				m.DBConnectionsIdle.Set(float64(stats.Idle))

				waitDelta := stats.WaitDuration - lastWaitDuration
				if waitDelta > 0 {
					m.DBWaitSecondsTotal.Add(waitDelta.Seconds())
				}
				lastWaitDuration = stats.WaitDuration

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the DB stats collector goroutine and waits for it to exit.
// This method is safe to call multiple times.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
