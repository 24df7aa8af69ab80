// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	QuizSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursehub_quiz_submissions_total",
			Help: "Graded quiz submissions by resulting status",
		},
		[]string{"status"},
	)

	EnrollmentConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursehub_enrollment_version_conflicts_total",
			Help: "Enrollment compare-and-swap conflicts by outcome (retried or exhausted)",
		},
		[]string{"outcome"},
	)

	AuditAppendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coursehub_audit_append_failures_total",
			Help: "Audit entries that could be neither queued nor written",
		},
	)

	AuditBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coursehub_audit_flush_batch_size",
			Help:    "Entries per audit worker flush",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)
)

// Init registers every collector with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		QuizSubmissions,
		EnrollmentConflicts,
		AuditAppendFailures,
		AuditBatchSize,
	)
}

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus exposition format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
