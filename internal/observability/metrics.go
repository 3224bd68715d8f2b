package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "deskctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "deskctl",
			Subsystem: "environment",
			Name:      "probe_duration_seconds",
			Help:      "Environment probe duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"probe", "success"},
	)
	pluginRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskctl",
			Subsystem: "output",
			Name:      "plugin_runs_total",
			Help:      "Output plugin runs by module and outcome.",
		},
		[]string{"module", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, probeDuration, pluginRuns)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordProbe(probe string, duration time.Duration, success bool) {
	RegisterMetrics()
	probeDuration.WithLabelValues(probe, strconv.FormatBool(success)).Observe(duration.Seconds())
}

// RecordPluginRun counts one plugin execution. outcome is "ok", "empty" or "error".
func RecordPluginRun(module, outcome string) {
	RegisterMetrics()
	pluginRuns.WithLabelValues(module, outcome).Inc()
}
