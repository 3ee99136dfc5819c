// Package metrics registers the Prometheus collectors for the admin backend.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarian_http_requests_total",
			Help: "Total HTTP requests by route and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "librarian_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ImportRows counts imported spreadsheet rows by entity and result (imported, skipped).
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarian_import_rows_total",
			Help: "Rows processed by bulk imports",
		},
		[]string{"entity", "result"},
	)

	// Exports counts completed exports by entity and format.
	Exports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarian_exports_total",
			Help: "Completed bulk exports",
		},
		[]string{"entity", "format"},
	)

	// Attachments counts attach and detach operations by owner kind and result.
	Attachments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarian_attachments_total",
			Help: "Image attach and detach operations",
		},
		[]string{"owner_kind", "op", "result"},
	)

	// StorageInconsistencies counts blob/row divergences that were left for the sweeper.
	StorageInconsistencies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarian_storage_inconsistencies_total",
			Help: "Blob and image row divergences that could not be repaired in place",
		},
		[]string{"op"},
	)

	// OrphansRemoved counts unreferenced blobs deleted by the sweeper.
	OrphansRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "librarian_orphan_blobs_removed_total",
			Help: "Unreferenced image blobs removed by the sweeper",
		},
	)
)

// Middleware records request counts and latency. Paths are labelled by their
// route pattern so ids do not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
