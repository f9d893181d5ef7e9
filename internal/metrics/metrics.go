package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rentals",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentals",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rentals",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentals",
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Payment webhook deliveries by event type and outcome.",
		},
		[]string{"type", "result"},
	)

	listingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentals",
			Subsystem: "listings",
			Name:      "status_transitions_total",
			Help:      "Listing status changes by target status.",
		},
		[]string{"status"},
	)

	externalCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentals",
			Subsystem: "external",
			Name:      "calls_total",
			Help:      "Calls to external providers by provider and outcome.",
		},
		[]string{"provider", "result"},
	)

	expiredSubscriptions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rentals",
			Subsystem: "subscriptions",
			Name:      "expired_total",
			Help:      "Subscriptions expired by the scheduler.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		webhookEvents,
		listingTransitions,
		externalCalls,
		expiredSubscriptions,
	)
}

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RegisterGauge exposes a value computed at scrape time.
func RegisterGauge(name, help string, fn func() float64) {
	Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "rentals",
		Name:      name,
		Help:      help,
	}, fn))
}

func RecordWebhook(eventType, result string) {
	webhookEvents.WithLabelValues(eventType, result).Inc()
}

func RecordTransition(status string) {
	listingTransitions.WithLabelValues(status).Inc()
}

func RecordExternalCall(provider string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	externalCalls.WithLabelValues(provider, result).Inc()
}

func RecordExpired(n int) {
	expiredSubscriptions.Add(float64(n))
}
