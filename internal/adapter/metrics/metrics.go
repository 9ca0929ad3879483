// Package metrics exposes Prometheus collectors for the purchase engine
// and the HTTP layer.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns every collector, registered on its own registry so tests and
// multiple app instances never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	purchasesTotal  *prometheus.CounterVec
	purchaseLatency *prometheus.HistogramVec
	conflictRetries prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		purchasesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_purchases_total",
			Help: "Total number of purchase attempts by outcome",
		}, []string{"outcome"}),
		purchaseLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketplace_purchase_duration_seconds",
			Help:    "Latency of the buy flow by outcome",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		conflictRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_purchase_conflict_retries_total",
			Help: "Total number of atomic purchase blocks re-run after a conflict",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// ObservePurchase implements ports.PurchaseMetrics.
func (m *Metrics) ObservePurchase(outcome string, elapsed time.Duration) {
	m.purchasesTotal.WithLabelValues(outcome).Inc()
	m.purchaseLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// IncConflictRetry implements ports.PurchaseMetrics.
func (m *Metrics) IncConflictRetry() {
	m.conflictRetries.Inc()
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.httpDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
