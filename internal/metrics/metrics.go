package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspection_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inspection_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	formTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspection_form_transitions_total",
		Help: "Count of inspection form workflow transitions by target status",
	}, []string{"status"})

	reportRenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inspection_report_render_duration_seconds",
		Help:    "Duration of PDF report rendering",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	reportCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspection_report_cache_lookups_total",
		Help: "Count of rendered report cache lookups by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveTransition increments the workflow transition counter for status
func ObserveTransition(status string) {
	formTransitions.WithLabelValues(status).Inc()
}

// ObserveReportRender records the duration of a render attempt with a result label.
func ObserveReportRender(result string, duration time.Duration) {
	reportRenderDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveReportCache records a cache lookup, "hit" or "miss".
func ObserveReportCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	reportCacheLookups.WithLabelValues(result).Inc()
}
