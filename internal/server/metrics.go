package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/d-led/iiwsit/pkg/decision"
)

const (
	namespace = "iiwsit"

	// Labels
	decisionLabel = "decision"
	modeLabel     = "mode"
	codeLabel     = "code"
	methodLabel   = "method"
	pathLabel     = "path"
)

var latencyBuckets = []float64{1, 5, 10, 50, 100, 500, 1000}

// metrics holds the server's Prometheus collectors. Each server owns its
// registry so several servers can run in one process.
type metrics struct {
	registry     *prometheus.Registry
	calculations *prometheus.CounterVec
	confidence   prometheus.Histogram
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Number of evaluations partitioned by decision and scoring mode.",
		}, []string{decisionLabel, modeLabel}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confidence",
			Help:      "Confidence percentage of evaluations.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests partitioned by status code, method and HTTP path.",
		}, []string{codeLabel, methodLabel, pathLabel}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_milliseconds",
			Help:      "Time spent on the request partitioned by status code, method and HTTP path.",
			Buckets:   latencyBuckets,
		}, []string{codeLabel, methodLabel, pathLabel}),
	}

	m.registry.MustRegister(
		m.calculations,
		m.confidence,
		m.requests,
		m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// observeResult records one evaluation.
func (m *metrics) observeResult(r decision.Result) {
	m.calculations.With(prometheus.Labels{
		decisionLabel: string(r.Decision),
		modeLabel:     string(r.Mode),
	}).Inc()
	m.confidence.Observe(r.Confidence)
}

func (m *metrics) observeRequest(code int, method, path string, elapsed time.Duration) {
	labels := []string{strconv.Itoa(code), method, path}
	m.requests.WithLabelValues(labels...).Inc()
	m.latency.WithLabelValues(labels...).Observe(float64(elapsed.Milliseconds()))
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// routeLabel maps a request path to a bounded label value.
func routeLabel(path string) string {
	switch path {
	case "/v1/calculate", "/v1/calculate/batch", "/v1/defaults", "/health", "/metrics":
		return path
	default:
		return "other"
	}
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
