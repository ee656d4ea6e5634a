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
			Namespace: "notify",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notify",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	deliverySends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "delivery",
			Name:      "sends_total",
			Help:      "Outbound send attempts by result.",
		},
		[]string{"result"},
	)
	deliveryRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "delivery",
			Name:      "retries_total",
			Help:      "Queued-message retry attempts.",
		},
	)
	deliveryDeadLetters = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "delivery",
			Name:      "dead_letters_total",
			Help:      "Messages dropped after exhausting their retry budget.",
		},
	)
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "notify",
			Subsystem: "delivery",
			Name:      "queue_depth",
			Help:      "Messages currently waiting in the retry queue.",
		},
	)
	drainRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "delivery",
			Name:      "drain_runs_total",
			Help:      "Retry-queue drain loops started.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			deliverySends, deliveryRetries, deliveryDeadLetters,
			queueDepth, drainRuns,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordSend counts one send attempt. result is one of: sent, not_ready,
// invalid_destination, timeout, transport_error.
func RecordSend(result string) {
	RegisterMetrics()
	deliverySends.WithLabelValues(result).Inc()
}

func RecordRetry() {
	RegisterMetrics()
	deliveryRetries.Inc()
}

func RecordDeadLetter() {
	RegisterMetrics()
	deliveryDeadLetters.Inc()
}

func SetQueueDepth(depth int) {
	RegisterMetrics()
	queueDepth.Set(float64(depth))
}

func RecordDrain() {
	RegisterMetrics()
	drainRuns.Inc()
}
