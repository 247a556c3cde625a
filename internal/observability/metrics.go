package observability

import (
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "issue_service"

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	registerer prometheus.Registerer

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec

	scanRuns     prometheus.Counter
	scanDuration prometheus.Histogram
	breaches     prometheus.Counter
	scanFailures prometheus.Counter
}

// NewMetrics registers collectors on reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		registerer: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP error responses by domain error code",
		}, []string{"method", "path", "code"}),
		scanRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sla_scan_runs_total",
			Help:      "Total breach scanner executions",
		}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sla_scan_duration_seconds",
			Help:      "Duration of breach scanner executions",
			Buckets:   prometheus.DefBuckets,
		}),
		breaches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sla_breaches_total",
			Help:      "Tickets marked as SLA breached",
		}),
		scanFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sla_scan_failures_total",
			Help:      "Breach candidates that failed to persist",
		}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

// RecordScan records one breach scanner execution.
func (m *Metrics) RecordScan(duration time.Duration, breached, failed int) {
	if m == nil {
		return
	}
	m.scanRuns.Inc()
	m.scanDuration.Observe(duration.Seconds())
	m.breaches.Add(float64(breached))
	m.scanFailures.Add(float64(failed))
}

// RegisterPool exposes pgx connection pool statistics as gauges.
func (m *Metrics) RegisterPool(pool *pgxpool.Pool) {
	if m == nil || pool == nil {
		return
	}
	factory := promauto.With(m.registerer)
	gauge := func(name, help string, value func(*pgxpool.Stat) float64) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pgxpool",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return value(pool.Stat())
		})
	}
	gauge("acquired_conns", "Number of currently acquired connections in the pool",
		func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) })
	gauge("max_conns", "Maximum number of connections in the pool",
		func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) })
	gauge("total_conns", "Total number of connections in the pool",
		func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) })
	gauge("idle_conns", "Number of idle connections in the pool",
		func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) })
}
