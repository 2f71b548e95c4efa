// Package telemetry registers the Prometheus metrics exposed on /metrics.
// HTTP metrics are labelled by the chi route pattern, not the raw URL, to
// keep label cardinality bounded.
package telemetry

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts processed requests by method, route pattern
	// and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks request latency by method and route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route pattern.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// OrgsCreatedTotal counts organization creations, split by personal
	// (signup-provisioned) versus explicitly created.
	OrgsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgs_created_total",
			Help: "Total number of organizations created, by kind (personal or standard).",
		},
		[]string{"kind"},
	)

	// InvitesTotal counts invitation lifecycle transitions by outcome
	// (sent, accepted, cancelled, resent).
	InvitesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "org_invites_total",
			Help: "Total number of invitation lifecycle events, by outcome.",
		},
		[]string{"outcome"},
	)

	// DBAcquiredConnections tracks connections currently acquired from the
	// pgx pool.
	DBAcquiredConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_acquired_connections",
			Help: "Current number of acquired database connections in the pool.",
		},
	)
)

// StartPoolStatsCollector samples pool statistics every 30 seconds. The
// goroutine exits when stop is closed.
func StartPoolStatsCollector(pool *pgxpool.Pool, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				DBAcquiredConnections.Set(float64(pool.Stat().AcquiredConns()))
			}
		}
	}()
}
