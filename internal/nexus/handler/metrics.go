package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	nexusRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	nexusRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexus_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	nexusAuthDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_auth_decisions_total",
		Help: "Wallet-signature authorization outcomes by action and result.",
	}, []string{"action", "result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request
// metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		nexusRequestsTotal.WithLabelValues(method, path, status).Inc()
		nexusRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAuthDecision records one authorization outcome for an action.
func RecordAuthDecision(action string, granted bool) {
	result := "denied"
	if granted {
		result = "granted"
	}
	nexusAuthDecisions.WithLabelValues(action, result).Inc()
}
