// Package metrics exposes Prometheus collectors for the watcher service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	watcherChecksTotal          *prometheus.CounterVec
	watcherChangesTotal         *prometheus.CounterVec
	watcherFetchBytesTotal      *prometheus.CounterVec
	watcherCheckDurationSeconds prometheus.Histogram
	watcherActiveChecks         prometheus.Gauge
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		watcherChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_checks_total",
				Help: "Total number of entity checks, labeled by status.",
			},
			[]string{"status"},
		)

		watcherChangesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_changes_total",
				Help: "Total number of detected changes, labeled by severity.",
			},
			[]string{"severity"},
		)

		watcherFetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		watcherCheckDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "watcher_check_duration_seconds",
				Help:    "Histogram of end-to-end check latencies.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		)

		watcherActiveChecks = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "watcher_active_checks",
				Help: "Number of entity checks currently in flight.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCheck records the outcome and duration of one entity check.
func ObserveCheck(status string, duration time.Duration) {
	watcherChecksTotal.WithLabelValues(status).Inc()
	watcherCheckDurationSeconds.Observe(duration.Seconds())
}

// ObserveChange increments the change counter for the given severity.
func ObserveChange(severity string) {
	watcherChangesTotal.WithLabelValues(severity).Inc()
}

// ObserveFetch records bytes fetched for a site.
func ObserveFetch(site string, bytesFetched int) {
	if bytesFetched > 0 {
		watcherFetchBytesTotal.WithLabelValues(SanitizeSite(site)).Add(float64(bytesFetched))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveChecks increments the active checks gauge.
func IncActiveChecks() {
	watcherActiveChecks.Inc()
}

// DecActiveChecks decrements the active checks gauge.
func DecActiveChecks() {
	watcherActiveChecks.Dec()
}
