// Package telemetry provides application-level observability for the metering platform.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<SMP_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format and is intended to be scraped every 15–60 seconds.  It is NOT served by
// the Gin router and is therefore invisible to dashboard and ingest clients.
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /orgs/:org_id/api-keys)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template, not the raw URL.
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and
// exponential-ish buckets from 5 ms to 30 s.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// API key authentication metrics.
//
// APIKeyAuthFailuresTotal is a CounterVec with label {reason} incremented on
// every rejected ingest request.  reason is one of "missing", "invalid", or
// "store_unavailable"; revoked, expired, and unknown keys all count as
// "invalid" so the metric leaks no more than the response does.
//
// Example PromQL queries:
//   - Rejection rate:      sum by (reason) (rate(apikey_auth_failures_total[5m]))
//   - Store outage alert:  increase(apikey_auth_failures_total{reason="store_unavailable"}[5m]) > 0
var APIKeyAuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "apikey_auth_failures_total",
		Help: "Total number of rejected API key authentications, by reason.",
	},
	[]string{"reason"},
)

// Rate limiter metrics.
//
// RateLimitDecisionsTotal is a CounterVec with label {decision}: "allowed",
// "limited", or "error" (counter store unreachable after retry; the configured
// failure policy then decides the request's fate).
//
// Example PromQL queries:
//   - Throttle rate:       rate(ratelimit_decisions_total{decision="limited"}[5m])
//   - Redis outage alert:  increase(ratelimit_decisions_total{decision="error"}[5m]) > 0
var RateLimitDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ratelimit_decisions_total",
		Help: "Total number of rate limit decisions, by outcome.",
	},
	[]string{"decision"},
)

// EventsIngestedTotal is a plain Counter incremented once per event row
// accepted through POST /v1/events (not per request: a batch of 20 events
// increments it by 20).
var EventsIngestedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "events_ingested_total",
		Help: "Total number of usage events accepted into the events store.",
	},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
