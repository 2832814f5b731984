// Package metrics provides Prometheus metrics for the log daemon.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters, histograms, and gauges the core pipeline
// updates, plus the HTTP request metrics for the adjacent metrics server
// itself.
type Metrics struct {
	// Core pipeline metrics, named directly by the ingestion protocol.
	IngestCount     prometheus.Counter
	BytesProcessed  prometheus.Counter
	DroppedMessages prometheus.Counter
	WriteLatencyMs  prometheus.Histogram
	ActiveConns     prometheus.Gauge

	// Supporting pipeline metrics.
	ParseFailures     prometheus.Counter
	FramesRejected    prometheus.Counter
	FlushesTotal      prometheus.Counter
	FilesWritten      prometheus.Counter

	// HTTP metrics for the metrics server's own requests; requests to
	// /metrics are not counted (see Middleware).
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all collectors registered. The
// instanceID label identifies this process when multiple daemons share a
// scrape target or log aggregator.
func New(instanceID string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	constLabels := prometheus.Labels{"instance": instanceID}

	m.IngestCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "ingest_count",
		Help:        "Total number of log records added to the storage engine's batch",
		ConstLabels: constLabels,
	})

	m.BytesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "bytes_processed",
		Help:        "Total bytes written to Parquet files",
		ConstLabels: constLabels,
	})

	m.DroppedMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "dropped_messages",
		Help:        "Total number of records dropped because the ingest queue was full",
		ConstLabels: constLabels,
	})

	m.WriteLatencyMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "write_latency_ms",
		Help:        "Latency of a single Parquet flush in milliseconds",
		Buckets:     prometheus.ExponentialBuckets(1, 2, 14), // 1ms .. ~8s
		ConstLabels: constLabels,
	})

	m.ActiveConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "active_connections",
		Help:        "Number of currently open ingest connections",
		ConstLabels: constLabels,
	})

	m.ParseFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "logdaemon_parse_failures_total",
		Help:        "Total number of frames dropped for JSON parse or schema validation failure",
		ConstLabels: constLabels,
	})

	m.FramesRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "logdaemon_frames_rejected_total",
		Help:        "Total number of connections closed for exceeding the frame size bound",
		ConstLabels: constLabels,
	})

	m.FlushesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "logdaemon_flushes_total",
		Help:        "Total number of storage engine flushes, batch-size and idle-timer triggered",
		ConstLabels: constLabels,
	})

	m.FilesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "logdaemon_files_written_total",
		Help:        "Total number of Parquet files written",
		ConstLabels: constLabels,
	})

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "logdaemon_http_requests_total",
			Help:        "Total number of HTTP requests against the metrics/health endpoint",
			ConstLabels: constLabels,
		},
		[]string{"method", "path", "status"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "logdaemon_http_request_duration_seconds",
			Help:        "HTTP request latency in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "path"},
	)

	m.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "logdaemon_http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: constLabels,
		},
	)

	m.registry.MustRegister(
		m.IngestCount,
		m.BytesProcessed,
		m.DroppedMessages,
		m.WriteLatencyMs,
		m.ActiveConns,
		m.ParseFailures,
		m.FramesRejected,
		m.FlushesTotal,
		m.FilesWritten,
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
	)

	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Middleware returns HTTP middleware that records request metrics for the
// adjacent metrics server.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		m.RequestsInFlight.Inc()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.RequestsInFlight.Dec()
		duration := time.Since(start).Seconds()

		m.RequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecordFlush records a completed storage engine flush: its latency and the
// byte size of the file it produced.
func (m *Metrics) RecordFlush(latency time.Duration, fileBytes int64) {
	m.FlushesTotal.Inc()
	m.FilesWritten.Inc()
	m.WriteLatencyMs.Observe(float64(latency.Milliseconds()))
	m.BytesProcessed.Add(float64(fileBytes))
}
