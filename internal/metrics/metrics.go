// Package metrics owns the service's Prometheus collectors. A nil *Registry is
// valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	bookings          *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	broadcastFailures prometheus.Counter
}

func New() *Registry {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	bookings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_total",
		Help: "Session booking attempts by outcome",
	}, []string{"outcome"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_transitions_total",
		Help: "Session lifecycle transitions by name and outcome",
	}, []string{"transition", "outcome"})

	broadcastFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_failures_total",
		Help: "Call-status broadcasts that could not be published",
	})

	registry.MustRegister(
		requestDuration,
		requestTotal,
		bookings,
		transitions,
		broadcastFailures,
		prometheus.NewGoCollector(),
	)

	return &Registry{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		bookings:          bookings,
		transitions:       transitions,
		broadcastFailures: broadcastFailures,
	}
}

func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

func (r *Registry) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	code := strconv.Itoa(status)
	r.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	r.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveBooking records a booking attempt; outcome is "created" or an error kind.
func (r *Registry) ObserveBooking(outcome string) {
	if r == nil {
		return
	}
	r.bookings.WithLabelValues(outcome).Inc()
}

func (r *Registry) ObserveTransition(transition, outcome string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(transition, outcome).Inc()
}

func (r *Registry) ObserveBroadcastFailure() {
	if r == nil {
		return
	}
	r.broadcastFailures.Inc()
}

// Middleware records request metrics keyed by the matched route pattern.
func (r *Registry) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		r.ObserveHTTPRequest(c.Method(), path, c.Response().StatusCode(), time.Since(start))
		return err
	}
}
