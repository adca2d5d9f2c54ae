package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistryCountsBookingsAndTransitions(t *testing.T) {
	registry := New()

	registry.ObserveBooking("created")
	registry.ObserveBooking("created")
	registry.ObserveBooking("conflict")
	registry.ObserveTransition("confirm", "ok")
	registry.ObserveBroadcastFailure()
	registry.ObserveHTTPRequest("GET", "/health", 200, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(registry.bookings.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(registry.bookings.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(registry.transitions.WithLabelValues("confirm", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(registry.broadcastFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(registry.requestTotal.WithLabelValues("GET", "/health", "200")))
}

func TestNilRegistryIsSafe(t *testing.T) {
	var registry *Registry

	assert.NotPanics(t, func() {
		registry.ObserveBooking("created")
		registry.ObserveTransition("cancel", "ok")
		registry.ObserveBroadcastFailure()
		registry.ObserveHTTPRequest("GET", "/", 200, time.Second)
	})
	assert.NotNil(t, registry.Handler())
}
