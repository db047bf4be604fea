package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	rawEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appwatch",
			Subsystem: "detector",
			Name:      "raw_events_total",
			Help:      "Window events received from the display server, by type.",
		}, []string{"type"},
	)
	transitions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "appwatch",
			Subsystem: "detector",
			Name:      "transitions_total",
			Help:      "Genuine foreground application changes.",
		},
	)
	noiseEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "appwatch",
			Subsystem: "detector",
			Name:      "noise_events_total",
			Help:      "Window state events dropped as empty or same-app.",
		},
	)
	persistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appwatch",
			Subsystem: "history",
			Name:      "failures_total",
			Help:      "History store read/write failures.",
		}, []string{"op"},
	)
	historyLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "appwatch",
			Subsystem: "history",
			Name:      "entries",
			Help:      "Entries currently retained in the rolling history.",
		},
	)
	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appwatch",
			Subsystem: "relay",
			Name:      "deliveries_total",
			Help:      "Change notifications by delivery result.",
		}, []string{"result"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{rawEvents, transitions, noiseEvents, persistFailures, historyLength, deliveries}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the default gatherer.
func Handler() http.Handler { return promhttp.Handler() }

// The helpers below no-op until Register has succeeded.

func IncRawEvent(eventType string) {
	if regOK.Load() {
		rawEvents.WithLabelValues(eventType).Inc()
	}
}

func IncTransition() {
	if regOK.Load() {
		transitions.Inc()
	}
}

func IncNoise() {
	if regOK.Load() {
		noiseEvents.Inc()
	}
}

func IncPersistFailure(op string) {
	if regOK.Load() {
		persistFailures.WithLabelValues(op).Inc()
	}
}

func SetHistoryLength(n int) {
	if regOK.Load() {
		historyLength.Set(float64(n))
	}
}

// Delivery results.
const (
	DeliveryOK         = "ok"
	DeliveryFailed     = "failed"
	DeliveryNoConsumer = "no_consumer"
)

func IncDelivery(result string) {
	if regOK.Load() {
		deliveries.WithLabelValues(result).Inc()
	}
}
