// Package metrics exposes the application's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "flowstate",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowstate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "flowstate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	notificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowstate",
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Total number of notifications persisted.",
		},
		[]string{"type"},
	)

	messagesRelayed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flowstate",
			Subsystem: "chat",
			Name:      "messages_relayed_total",
			Help:      "Total number of chat messages persisted and pushed.",
		},
	)

	xpGranted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flowstate",
			Subsystem: "gamification",
			Name:      "xp_granted_total",
			Help:      "Total XP granted for completed tasks.",
		},
	)

	habitRollovers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowstate",
			Subsystem: "habits",
			Name:      "rollover_runs_total",
			Help:      "Total habit cadence rollover runs by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		notificationsCreated,
		messagesRelayed,
		xpGranted,
		habitRollovers,
	)
}

// Handler serves the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTPInFlight adjusts the in-flight gauge by delta.
func ObserveHTTPInFlight(delta float64) { httpInFlight.Add(delta) }

// ObserveHTTPRequest records one handled request.
func ObserveHTTPRequest(method, path, status string, seconds float64) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(seconds)
}

// NotificationCreated counts one persisted notification.
func NotificationCreated(typ string) { notificationsCreated.WithLabelValues(typ).Inc() }

// MessageRelayed counts one relayed chat message.
func MessageRelayed() { messagesRelayed.Inc() }

// XPGranted counts granted XP.
func XPGranted(amount int) { xpGranted.Add(float64(amount)) }

// HabitRollover counts one cadence run by outcome ("ok" or "error").
func HabitRollover(outcome string) { habitRollovers.WithLabelValues(outcome).Inc() }
