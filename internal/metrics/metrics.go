// Package metrics exposes Prometheus instrumentation for tree sessions and the
// HTTP API.
//
// Every Metrics value owns its own registry, so tests and multiple servers in
// one process never collide on metric names.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cabewaldrop/bplusviz/internal/algorithm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bplusviz"

// Metrics holds the collectors.
type Metrics struct {
	registry *prometheus.Registry

	// operations counts tree operations.
	// Labels: operation (insert, delete, find, clear), result (ok, error)
	operations *prometheus.CounterVec

	// repairs counts structural steps taken while rebalancing.
	// Labels: kind (split, root_split, borrow_left, borrow_right, merge, collapse, separator_fix)
	repairs *prometheus.CounterVec

	// commands measures the length of each emitted command log.
	commands prometheus.Histogram

	// duration measures how long a mutation took, recording included.
	// Labels: operation
	duration *prometheus.HistogramVec

	sessions prometheus.Gauge

	// requests counts HTTP requests.
	// Labels: method, route, status
	requests *prometheus.CounterVec

	// latency measures HTTP request latency.
	// Labels: method, route
	latency *prometheus.HistogramVec
}

// New creates a Metrics with a fresh registry that also carries the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "operations_total",
			Help:      "Tree operations by kind and result",
		}, []string{"operation", "result"}),
		repairs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "repairs_total",
			Help:      "Structural rebalancing steps by kind",
		}, []string{"kind"}),
		commands: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "commands_per_operation",
			Help:      "Number of commands emitted by one mutation",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 8),
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "operation_duration_seconds",
			Help:      "Mutation latency in seconds",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"operation"}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of live tree sessions",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOperation records one tree operation. stats is ignored for failed
// operations and for reads.
func (m *Metrics) ObserveOperation(op string, stats algorithm.Stats, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
	if err != nil || (op != "insert" && op != "delete" && op != "clear") {
		return
	}

	m.commands.Observe(float64(stats.Commands))
	m.duration.WithLabelValues(op).Observe(stats.Duration.Seconds())
	for kind, n := range map[string]int{
		"split":         stats.Splits,
		"root_split":    stats.RootSplits,
		"borrow_left":   stats.BorrowsLeft,
		"borrow_right":  stats.BorrowsRight,
		"merge":         stats.Merges,
		"collapse":      stats.Collapses,
		"separator_fix": stats.SeparatorFixes,
	} {
		if n > 0 {
			m.repairs.WithLabelValues(kind).Add(float64(n))
		}
	}
}

// SessionsChanged sets the live session gauge.
func (m *Metrics) SessionsChanged(n int) {
	m.sessions.Set(float64(n))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}
