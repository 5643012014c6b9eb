// Package telemetry exposes Prometheus metrics for the API: HTTP request
// duration and in-flight gauges, attachment upload outcomes, and database
// pool gauges, served in text exposition format at /metrics.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medconsult/medconsult/internal/platform/apperr"
)

// Attachment outcomes recorded per uploaded file.
const (
	OutcomeStored   = "stored"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var defaultDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// Metrics owns a private registry so tests and multiple servers in one
// process never collide on the global default registry.
type Metrics struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
	attachments     *prometheus.CounterVec
}

// New builds the collectors under the given namespace. Go runtime and
// process collectors are included.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   defaultDurationBuckets,
		}, []string{"method", "route", "status"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "Number of in-flight HTTP requests.",
		}),
		attachments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consultation",
			Name:      "attachments_total",
			Help:      "Attachment files processed during consultation creation, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.requestDuration,
		m.activeRequests,
		m.attachments,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Pre-populate outcome series so dashboards see zeroes.
	for _, o := range []string{OutcomeStored, OutcomeRejected, OutcomeFailed} {
		m.attachments.WithLabelValues(o)
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// AttachmentOutcome counts one processed attachment file.
func (m *Metrics) AttachmentOutcome(outcome string) {
	m.attachments.WithLabelValues(outcome).Inc()
}

// PoolStatFunc reports total, idle and acquired connections.
type PoolStatFunc func() (total, idle, acquired int32)

// RegisterPoolGauges exposes database pool gauges read at scrape time.
func (m *Metrics) RegisterPoolGauges(namespace string, stat PoolStatFunc) {
	gauge := func(name, help string, pick func(total, idle, acquired int32) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(pick(stat()))
		})
	}
	m.registry.MustRegister(
		gauge("total_connections", "Total connections in the pool.", func(t, _, _ int32) int32 { return t }),
		gauge("idle_connections", "Idle connections in the pool.", func(_, i, _ int32) int32 { return i }),
		gauge("acquired_connections", "Connections currently checked out.", func(_, _, a int32) int32 { return a }),
	)
}

// Middleware records request duration by method, route pattern and status.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.activeRequests.Inc()
			defer m.activeRequests.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = apperr.StatusCode(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			m.requestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry at /metrics.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	}))
}
